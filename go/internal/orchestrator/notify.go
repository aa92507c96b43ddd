package orchestrator

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duel/go/internal/events"
	"github.com/mcdev12/duel/go/internal/match"
)

// notice collects everything to deliver after one mutation. It is built
// under the session lock and delivered after the lock is released.
type notice struct {
	playerIDs [2]string
	snaps     [2]match.Snapshot

	roundResults *[2]match.RoundResult
	matchResults *[2]match.MatchResult
	roundStarted int
	remaining    string

	roundEvent *events.RoundFinishedPayload
	matchEvent *events.MatchFinishedPayload
}

// mutate runs fn on the match under its lock. A rejected action leaves the
// match untouched and returns the error. Any change re-arms the match timer
// and is broadcast once the lock is released.
func (o *Orchestrator) mutate(ctx context.Context, matchID string, fn func(*match.Match) error) error {
	s, err := o.session(matchID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return match.ErrMatchNotFound
	}
	m := s.m
	before, version := m.Status, m.Version
	if err := fn(m); err != nil {
		s.mu.Unlock()
		return err
	}
	if m.Version == version {
		if _, armed := o.pendingTimer(matchID); !armed {
			o.armTimerLocked(m)
		}
		s.mu.Unlock()
		return nil
	}
	o.armTimerLocked(m)
	n := o.buildNotice(m, before)
	s.mu.Unlock()

	o.deliver(ctx, n)
	return nil
}

func (o *Orchestrator) buildNotice(m *match.Match, before match.Status) notice {
	n := notice{
		playerIDs: [2]string{m.Players[0].ID, m.Players[1].ID},
		snaps:     snapshots(m),
	}
	now := o.clock.Now()

	roundEnded := (m.Status == match.StatusRoundOver || m.Status == match.StatusMatchOver) &&
		before != match.StatusRoundOver && !before.Terminal()
	if roundEnded {
		var rr [2]match.RoundResult
		for i, id := range n.playerIDs {
			rr[i], _ = m.RoundResultFor(id)
		}
		if m.Status == match.StatusRoundOver {
			n.roundResults = &rr
		}
		n.roundEvent = &events.RoundFinishedPayload{
			MatchID:     m.ID,
			RoundNumber: rr[0].RoundNumber,
			WinnerID:    m.RoundWinner,
			Players:     playerResults(m, rr[0].RoundNumber),
			FinishedAt:  now,
		}
	}

	if before == match.StatusRoundOver && m.Status == match.StatusPlaying {
		n.roundStarted = m.Round
	}

	if m.Status.Terminal() && !before.Terminal() {
		var mr [2]match.MatchResult
		for i, id := range n.playerIDs {
			mr[i], _ = m.MatchResultFor(id)
		}
		n.matchResults = &mr
		if m.Status == match.StatusAbandoned {
			n.remaining = m.MatchWinner
		}
		played := m.Scores[0] + m.Scores[1]
		n.matchEvent = &events.MatchFinishedPayload{
			MatchID:    m.ID,
			WinnerID:   m.MatchWinner,
			Reason:     string(mr[0].Reason),
			Mode:       string(m.Mode),
			RoomCode:   m.RoomCode,
			Players:    playerResults(m, played),
			FinishedAt: now,
		}
	}
	return n
}

// deliver sends a notice to the broadcaster and the outcome recorder.
func (o *Orchestrator) deliver(ctx context.Context, n notice) {
	if n.roundStarted > 0 {
		for _, id := range n.playerIDs {
			o.broadcaster.RoundStart(id, n.roundStarted)
		}
	}
	for i, id := range n.playerIDs {
		o.broadcaster.GameUpdate(id, n.snaps[i])
	}
	if n.roundResults != nil {
		for i, id := range n.playerIDs {
			o.broadcaster.RoundOver(id, n.roundResults[i])
		}
	}
	if n.remaining != "" {
		o.broadcaster.OpponentDisconnected(n.remaining)
	}
	if n.matchResults != nil {
		for i, id := range n.playerIDs {
			o.broadcaster.MatchOver(id, n.matchResults[i])
		}
	}

	if n.roundEvent != nil {
		if err := o.recorder.RecordRoundFinished(ctx, *n.roundEvent); err != nil {
			log.Error().Err(err).Str("match_id", n.roundEvent.MatchID).Msg("failed to record round")
		}
	}
	if n.matchEvent != nil {
		log.Info().
			Str("match_id", n.matchEvent.MatchID).
			Str("winner_id", n.matchEvent.WinnerID).
			Str("reason", n.matchEvent.Reason).
			Msg("match finished")
		if err := o.recorder.RecordMatchFinished(ctx, *n.matchEvent); err != nil {
			log.Error().Err(err).Str("match_id", n.matchEvent.MatchID).Msg("failed to record match")
		}
	}
}

func snapshots(m *match.Match) [2]match.Snapshot {
	var out [2]match.Snapshot
	for i, p := range m.Players {
		out[i], _ = m.Snapshot(p.ID)
	}
	return out
}

func playerResults(m *match.Match, roundsPlayed int) []events.PlayerResult {
	out := make([]events.PlayerResult, 0, len(m.Players))
	for i, p := range m.Players {
		out = append(out, events.PlayerResult{
			PlayerID:     p.ID,
			RoundsWon:    m.Scores[i],
			RoundsPlayed: roundsPlayed,
			Won:          m.MatchWinner != "" && m.MatchWinner == p.ID,
		})
	}
	return out
}
