package match

import (
	"time"

	"github.com/mcdev12/duel/go/internal/card"
)

// Relative names a player from a viewer's point of view.
type Relative string

const (
	RelativeYou      Relative = "you"
	RelativeOpponent Relative = "opponent"
)

// EndReason explains why a match finished.
type EndReason string

const (
	ReasonMatchWon             EndReason = "match_won"
	ReasonOpponentDisconnected EndReason = "opponent_disconnected"
)

// PlayerInfo is the public profile of a seat.
type PlayerInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// EffectView projects the pending effect for one viewer.
type EffectView struct {
	Kind            EffectKind `json:"kind"`
	SourcePlayerID  string     `json:"source_player_id"`
	TargetPlayerID  string     `json:"target_player_id"`
	Counterable     bool       `json:"counterable"`
	DrawCount       int        `json:"draw_count,omitempty"`
	CounterDeadline time.Time  `json:"counter_deadline"`
	CanYouCounter   bool       `json:"can_you_counter"`
	MustYouDecide   bool       `json:"must_you_decide"`
}

// Snapshot is the state of a match as one player may see it. The opponent's
// hand is reduced to a count.
type Snapshot struct {
	MatchID           string      `json:"match_id"`
	Version           uint64      `json:"version"`
	YourHand          []card.Card `json:"your_hand"`
	OpponentCardCount int         `json:"opponent_card_count"`
	TopCard           *card.Card  `json:"top_card,omitempty"`
	ActiveSuit        card.Suit   `json:"active_suit"`
	IsYourTurn        bool        `json:"is_your_turn"`
	DeckCount         int         `json:"deck_count"`
	DiscardPileCount  int         `json:"discard_pile_count"`
	PendingEffect     *EffectView `json:"pending_effect,omitempty"`
	Status            Status      `json:"status"`
	TurnDeadline      *time.Time  `json:"turn_deadline,omitempty"`
	YourScore         int         `json:"your_score"`
	OpponentScore     int         `json:"opponent_score"`
	CurrentRound      int         `json:"current_round"`
	TargetScore       int         `json:"target_score"`
	RoundWinner       Relative    `json:"round_winner,omitempty"`
	MatchWinner       Relative    `json:"match_winner,omitempty"`
	You               PlayerInfo  `json:"you"`
	Opponent          PlayerInfo  `json:"opponent"`
	Mode              Mode        `json:"mode"`
}

// RoundResult announces the end of a round to one viewer.
type RoundResult struct {
	RoundWinnerID string `json:"round_winner_id"`
	IsWinner      bool   `json:"is_winner"`
	RoundNumber   int    `json:"round_number"`
	Scores        [2]int `json:"scores"`
	YourScore     int    `json:"your_score"`
	OpponentScore int    `json:"opponent_score"`
}

// MatchResult announces the end of a match to one viewer.
type MatchResult struct {
	MatchWinnerID string    `json:"match_winner_id"`
	IsWinner      bool      `json:"is_winner"`
	FinalScore    [2]int    `json:"final_score"`
	YourScore     int       `json:"your_score"`
	OpponentScore int       `json:"opponent_score"`
	Reason        EndReason `json:"reason"`
}

// Snapshot builds the view of the match for viewerID.
func (m *Match) Snapshot(viewerID string) (Snapshot, error) {
	idx, ok := m.PlayerIndex(viewerID)
	if !ok {
		return Snapshot{}, ErrPlayerNotFound
	}
	me, opp := m.Players[idx], m.Players[opponent(idx)]

	s := Snapshot{
		MatchID:           m.ID,
		Version:           m.Version,
		YourHand:          me.Hand(),
		OpponentCardCount: opp.HandSize(),
		ActiveSuit:        m.ActiveSuit,
		IsYourTurn:        m.Status == StatusPlaying && m.Current == idx,
		DeckCount:         m.Deck.Len(),
		DiscardPileCount:  m.Discard.Len(),
		Status:            m.Status,
		YourScore:         m.Scores[idx],
		OpponentScore:     m.Scores[opponent(idx)],
		CurrentRound:      m.Round,
		TargetScore:       m.rules.TargetScore,
		RoundWinner:       m.relative(m.RoundWinner, viewerID),
		MatchWinner:       m.relative(m.MatchWinner, viewerID),
		You:               info(me, "You", "🎴"),
		Opponent:          info(opp, "Opponent", "🃏"),
		Mode:              m.Mode,
	}
	if top, ok := m.Discard.Top(); ok {
		s.TopCard = &top
	}
	if !m.TurnDeadline.IsZero() {
		d := m.TurnDeadline
		s.TurnDeadline = &d
	}
	if m.Pending != nil {
		src, tgt := m.Pending.parties()
		v := &EffectView{
			Kind:            m.Pending.Kind(),
			SourcePlayerID:  m.Players[src].ID,
			TargetPlayerID:  m.Players[tgt].ID,
			Counterable:     true,
			CounterDeadline: m.Pending.deadline(),
			CanYouCounter:   tgt == idx && me.HasRank(m.Pending.CounterRank()),
			MustYouDecide:   tgt == idx && m.Status == StatusWaitingForCounter,
		}
		if fd, ok := m.Pending.(*ForcedDraw); ok {
			v.DrawCount = fd.DrawCount
		}
		s.PendingEffect = v
	}
	return s, nil
}

// RoundResultFor describes the round that just ended for viewerID.
func (m *Match) RoundResultFor(viewerID string) (RoundResult, error) {
	idx, ok := m.PlayerIndex(viewerID)
	if !ok {
		return RoundResult{}, ErrPlayerNotFound
	}
	number := m.Round
	if m.Status == StatusRoundOver {
		number--
	}
	return RoundResult{
		RoundWinnerID: m.RoundWinner,
		IsWinner:      m.RoundWinner == viewerID,
		RoundNumber:   number,
		Scores:        m.Scores,
		YourScore:     m.Scores[idx],
		OpponentScore: m.Scores[opponent(idx)],
	}, nil
}

// MatchResultFor describes the finished match for viewerID.
func (m *Match) MatchResultFor(viewerID string) (MatchResult, error) {
	idx, ok := m.PlayerIndex(viewerID)
	if !ok {
		return MatchResult{}, ErrPlayerNotFound
	}
	reason := ReasonMatchWon
	if m.Status == StatusAbandoned {
		reason = ReasonOpponentDisconnected
	}
	return MatchResult{
		MatchWinnerID: m.MatchWinner,
		IsWinner:      m.MatchWinner == viewerID,
		FinalScore:    m.Scores,
		YourScore:     m.Scores[idx],
		OpponentScore: m.Scores[opponent(idx)],
		Reason:        reason,
	}, nil
}

func (m *Match) relative(winnerID, viewerID string) Relative {
	switch winnerID {
	case "":
		return ""
	case viewerID:
		return RelativeYou
	default:
		return RelativeOpponent
	}
}

func info(p *Player, name, avatar string) PlayerInfo {
	out := PlayerInfo{ID: p.ID, Username: p.Name, Avatar: p.Avatar}
	if out.Username == "" {
		out.Username = name
	}
	if out.Avatar == "" {
		out.Avatar = avatar
	}
	return out
}
