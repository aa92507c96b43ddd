package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// NotifyChannel is the channel the outbox insert trigger notifies on.
const NotifyChannel = "outbox_events"

type ListenerConfig struct {
	DatabaseURL   string
	NotifyChannel string
	PingInterval  time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel: NotifyChannel,
		PingInterval:  90 * time.Second,
	}
}

// Waker is poked for every notification.
type Waker interface {
	Wake()
}

// Listener turns Postgres notifications about new outbox rows into
// immediate worker polls. The worker's own interval covers anything missed
// while the connection was down.
type Listener struct {
	listener *pq.Listener
	waker    Waker
	cfg      ListenerConfig
}

func NewListener(cfg ListenerConfig, waker Waker) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for notifications")

	return &Listener{
		listener: l,
		waker:    waker,
		cfg:      cfg,
	}, nil
}

func (l *Listener) Start(ctx context.Context) error {
	pingTicker := time.NewTicker(l.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			// nil means the connection was re-established; poll in case
			// anything was inserted meanwhile.
			if note != nil {
				log.Debug().Str("event_id", note.Extra).Msg("outbox notification")
			}
			l.waker.Wake()
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	return l.listener.Close()
}
