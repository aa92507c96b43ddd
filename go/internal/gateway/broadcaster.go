package gateway

import (
	"github.com/mcdev12/duel/go/internal/match"
)

// The connection manager is the orchestrator's Broadcaster: each call is
// routed to the player's current connection.

func (cm *ConnectionManager) MatchFound(playerID, opponentID string, s match.Snapshot) {
	cm.SendToPlayer(playerID, TypeMatchFound, MatchFoundData{
		MatchID:    s.MatchID,
		OpponentID: opponentID,
		State:      s,
	})
}

func (cm *ConnectionManager) GameUpdate(playerID string, s match.Snapshot) {
	cm.SendToPlayer(playerID, TypeGameUpdate, s)
}

func (cm *ConnectionManager) RoundOver(playerID string, r match.RoundResult) {
	cm.SendToPlayer(playerID, TypeRoundOver, r)
}

func (cm *ConnectionManager) RoundStart(playerID string, round int) {
	cm.SendToPlayer(playerID, TypeRoundStart, RoundStartData{RoundNumber: round})
}

func (cm *ConnectionManager) MatchOver(playerID string, r match.MatchResult) {
	cm.SendToPlayer(playerID, TypeMatchOver, r)
}

func (cm *ConnectionManager) OpponentDisconnected(playerID string) {
	cm.SendToPlayer(playerID, TypeOpponentDisconnected, NoticeData{Message: "Your opponent left the match"})
}
