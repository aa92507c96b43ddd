package orchestrator

import (
	"context"
	"errors"

	"github.com/mcdev12/duel/go/internal/events"
)

// MultiRecorder fans every outcome out to several recorders. All recorders
// are called; their errors are joined.
func MultiRecorder(recs ...OutcomeRecorder) OutcomeRecorder {
	return multiRecorder(recs)
}

type multiRecorder []OutcomeRecorder

func (m multiRecorder) RecordMatchStarted(ctx context.Context, p events.MatchStartedPayload) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordMatchStarted(ctx, p))
	}
	return errors.Join(errs...)
}

func (m multiRecorder) RecordRoundFinished(ctx context.Context, p events.RoundFinishedPayload) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordRoundFinished(ctx, p))
	}
	return errors.Join(errs...)
}

func (m multiRecorder) RecordMatchFinished(ctx context.Context, p events.MatchFinishedPayload) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordMatchFinished(ctx, p))
	}
	return errors.Join(errs...)
}
