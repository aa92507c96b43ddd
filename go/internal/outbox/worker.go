package outbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type Config struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int32         `yaml:"batch_size"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   time.Second,
	}
}

// Worker relays the outbox to an EventPublisher. It polls on an interval
// and whenever Wake is called.
type Worker struct {
	source    BatchSource
	publisher EventPublisher
	config    Config
	clock     clockwork.Clock

	wake chan struct{}

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	processed atomic.Uint64
	lastEvent atomic.Int64
}

func NewWorker(source BatchSource, publisher EventPublisher, cfg Config, clock clockwork.Clock) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Worker{
		source:    source,
		publisher: publisher,
		config:    cfg,
		clock:     clock,
		wake:      make(chan struct{}, 1),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Dur("poll_interval", w.config.PollInterval).
		Int32("batch_size", w.config.BatchSize).
		Msg("outbox worker started")
	return nil
}

func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	w.running = false
	close(w.stopChan)
	w.mu.Unlock()

	w.wg.Wait()
	log.Info().Msg("outbox worker stopped")
	return nil
}

// Wake requests a poll without waiting for the next tick.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Running reports whether the worker loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stats returns how many events were relayed and when the last one went out.
func (w *Worker) Stats() (uint64, time.Time) {
	var last time.Time
	if ns := w.lastEvent.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return w.processed.Load(), last
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := w.clock.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.Chan():
			w.drain(ctx)
		case <-w.wake:
			w.drain(ctx)
		}
	}
}

// drain keeps processing while full batches are being relayed.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		res := w.processOutbox(ctx)
		if res.Sent == 0 || res.Fetched < int(w.config.BatchSize) {
			return
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) BatchResult {
	res, err := w.source.ProcessUnsent(ctx, w.config.BatchSize, w.publishWithRetry)
	if err != nil {
		log.Error().Err(err).Msg("failed to process outbox")
		return res
	}
	if res.Fetched == 0 {
		return res
	}

	if res.Sent > 0 {
		w.processed.Add(uint64(res.Sent))
		w.lastEvent.Store(w.clock.Now().UnixNano())
	}
	log.Info().
		Int("total", res.Fetched).
		Int("successful", res.Sent).
		Msg("processed outbox events")
	return res
}

func (w *Worker) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 && w.config.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.clock.After(w.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := w.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("event_id", event.ID.String()).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}

		if attempt > 0 {
			log.Info().
				Str("event_id", event.ID.String()).
				Int("attempt", attempt+1).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}
