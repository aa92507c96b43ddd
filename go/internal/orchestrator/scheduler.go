package orchestrator

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duel/go/internal/match"
)

// timerClass names what a firing timer is meant to do.
type timerClass string

const (
	timerTurn       timerClass = "turn"
	timerCounter    timerClass = "counter"
	timerRoundBreak timerClass = "round_break"
	timerCleanup    timerClass = "cleanup"
)

// timerEvent is queued for the workers when a timer fires. version is the
// match version the timer was armed for; a handler drops the event when the
// match has moved on since.
type timerEvent struct {
	matchID string
	class   timerClass
	version uint64
}

type armedTimer struct {
	timer clockwork.Timer
	class timerClass
	done  chan struct{}
}

// armTimerLocked arms the single timer the match's status calls for. Callers
// hold the session lock so arming is part of the same step as the mutation.
func (o *Orchestrator) armTimerLocked(m *match.Match) {
	now := o.clock.Now()
	switch m.Status {
	case match.StatusPlaying:
		o.schedule(m.ID, timerTurn, m.TurnDeadline.Sub(now), m.Version)
	case match.StatusWaitingForCounter:
		deadline, _ := m.CounterDeadline()
		o.schedule(m.ID, timerCounter, deadline.Sub(now), m.Version)
	case match.StatusRoundOver:
		o.schedule(m.ID, timerRoundBreak, o.cfg.RoundBreak, m.Version)
	case match.StatusMatchOver, match.StatusAbandoned:
		o.schedule(m.ID, timerCleanup, o.cfg.CleanupGrace, m.Version)
	default:
		o.cancelTimer(m.ID)
	}
}

// schedule creates a one-shot timer that queues a timerEvent when it fires,
// superseding whatever timer the match had before.
func (o *Orchestrator) schedule(matchID string, class timerClass, d time.Duration, version uint64) {
	if d < 0 {
		d = 0
	}
	at := &armedTimer{
		timer: o.clock.NewTimer(d),
		class: class,
		done:  make(chan struct{}),
	}
	o.replaceTimer(matchID, at)

	go func() {
		select {
		case <-at.timer.Chan():
			o.removeTimer(matchID, at)
			ev := timerEvent{matchID: matchID, class: class, version: version}
			select {
			case o.workCh <- ev:
				log.Debug().
					Str("match_id", matchID).
					Str("class", string(class)).
					Msg("timer fired - enqueued for processing")
			case <-at.done:
			case <-o.quit:
			}
		case <-at.done:
		case <-o.quit:
			stopAndDrainTimer(at.timer)
		}
	}()

	log.Debug().
		Str("match_id", matchID).
		Str("class", string(class)).
		Dur("duration", d).
		Uint64("version", version).
		Msg("scheduled one-shot timer")
}

// replaceTimer swaps in a new timer for a match and stops the previous one.
func (o *Orchestrator) replaceTimer(matchID string, at *armedTimer) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()

	if existing, ok := o.activeTimers[matchID]; ok {
		existing.stop()
		log.Debug().
			Str("match_id", matchID).
			Str("class", string(existing.class)).
			Msg("replaced existing timer")
	}
	o.activeTimers[matchID] = at
}

// cancelTimer stops and forgets the timer of a match.
func (o *Orchestrator) cancelTimer(matchID string) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()

	if at, ok := o.activeTimers[matchID]; ok {
		at.stop()
		delete(o.activeTimers, matchID)
		log.Debug().Str("match_id", matchID).Msg("cancelled existing timer")
	}
}

// removeTimer forgets a fired timer unless a newer one has taken its slot.
func (o *Orchestrator) removeTimer(matchID string, at *armedTimer) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()
	if o.activeTimers[matchID] == at {
		delete(o.activeTimers, matchID)
	}
}

// cancelAllTimers stops every timer, used on shutdown.
func (o *Orchestrator) cancelAllTimers() {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()
	for matchID, at := range o.activeTimers {
		at.stop()
		log.Debug().Str("match_id", matchID).Msg("cancelled timer on shutdown")
	}
	o.activeTimers = make(map[string]*armedTimer)
}

// pendingTimer reports the class of the armed timer, if any.
func (o *Orchestrator) pendingTimer(matchID string) (timerClass, bool) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()
	at, ok := o.activeTimers[matchID]
	if !ok {
		return "", false
	}
	return at.class, true
}

func (at *armedTimer) stop() {
	stopAndDrainTimer(at.timer)
	close(at.done)
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
