package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duel/go/internal/match"
)

// Run starts the worker pool that handles timer firings and blocks until ctx
// is cancelled. All timers are stopped on return.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info().
		Str("instance", o.instanceID).
		Int("workers", o.cfg.NumWorkers).
		Msg("match orchestrator started")

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.NumWorkers; i++ {
		wg.Add(1)
		go o.worker(ctx, &wg, i)
	}

	<-ctx.Done()
	log.Info().Str("instance", o.instanceID).Msg("orchestrator shutdown requested")

	o.quitOnce.Do(func() { close(o.quit) })
	o.cancelAllTimers()
	wg.Wait()

	log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	return nil
}

// worker processes timer firings from the work channel
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	log.Debug().
		Str("instance", o.instanceID).
		Int("worker_id", workerID).
		Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("worker shutting down")
			return
		case ev := <-o.workCh:
			if err := o.handleTimer(ctx, ev); err != nil {
				log.Error().
					Err(err).
					Str("match_id", ev.matchID).
					Str("class", string(ev.class)).
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("worker timer handling failed")
			}
		}
	}
}

// handleTimer applies a fired timer if the match is still at the version the
// timer was armed for.
func (o *Orchestrator) handleTimer(ctx context.Context, ev timerEvent) error {
	s, err := o.session(ev.matchID)
	if err != nil {
		log.Debug().Str("match_id", ev.matchID).Msg("timer fired for unknown match")
		return nil
	}

	if ev.class == timerCleanup {
		s.mu.Lock()
		if s.removed || s.m.Version != ev.version || !s.m.Status.Terminal() {
			s.mu.Unlock()
			return nil
		}
		s.removed = true
		players := s.m.Players
		s.mu.Unlock()
		o.removeMatch(ev.matchID, players)
		return nil
	}

	err = o.mutate(ctx, ev.matchID, func(m *match.Match) error {
		if m.Version != ev.version {
			log.Debug().
				Str("match_id", ev.matchID).
				Str("class", string(ev.class)).
				Uint64("armed_version", ev.version).
				Uint64("version", m.Version).
				Msg("dropping stale timer")
			return nil
		}
		switch ev.class {
		case timerTurn:
			if m.Status != match.StatusPlaying {
				return nil
			}
			action, err := m.AutoPlay()
			if err != nil {
				return err
			}
			log.Info().
				Str("match_id", m.ID).
				Str("player_id", action.PlayerID).
				Str("action", string(action.Kind)).
				Msg("turn timed out, auto-played")
		case timerCounter:
			if m.ExpireCounter() {
				log.Info().Str("match_id", m.ID).Msg("counter window expired")
			}
		case timerRoundBreak:
			if m.Status != match.StatusRoundOver {
				return nil
			}
			return m.StartRound()
		default:
			return fmt.Errorf("unknown timer class %q", ev.class)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply %s timer: %w", ev.class, err)
	}
	return nil
}
