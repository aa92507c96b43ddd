package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // How long to keep messages
	MaxMsgs         int64
	Replicas        int
	DuplicateWindow time.Duration // Window for de-duplication by outbox id
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "DUEL_EVENTS",
		SubjectPrefix:   "duel.events",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
	}
}

// Subject is the subject an event type is published on.
func (c JetStreamConfig) Subject(eventType string) string {
	return fmt.Sprintf("%s.%s", c.SubjectPrefix, eventType)
}

// JetStreamPublisher publishes outbox events to a JetStream stream
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.Name("duel-outbox"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

func (p *JetStreamPublisher) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Match outcome events relayed from the outbox",
		Subjects:    []string{p.config.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		MaxMsgs:     p.config.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    p.config.Replicas,
		Duplicates:  p.config.DuplicateWindow,
	}
}

// ensureStream creates the stream, or updates it when its limits drifted.
func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := p.streamConfig()

	stream, err := p.js.Stream(ctx, sc.Name)
	if err != nil {
		if _, err = p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", sc.Name).Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !sameLimits(info.Config, sc) {
		if _, err = p.js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().Str("stream", sc.Name).Msg("updated JetStream stream")
	}
	return nil
}

// Publish sends the event envelope. The outbox id is the JetStream message
// id, so a row published twice is stored once.
func (p *JetStreamPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	subject := p.config.Subject(event.EventType)

	data, err := json.Marshal(event.Envelope())
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{event.EventType},
			"Match-ID":   []string{event.MatchID},
			"Event-ID":   []string{event.ID.String()},
		},
	},
		jetstream.WithMsgID(event.ID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", event.ID.String()).
		Uint64("sequence", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("published to JetStream")
	return nil
}

// Connected reports whether the NATS connection is up.
func (p *JetStreamPublisher) Connected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

func sameLimits(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Replicas == b.Replicas &&
		a.Duplicates == b.Duplicates
}

// LogPublisher only logs events. It backs local runs without NATS.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("match_id", event.MatchID).
		RawJSON("payload", event.Payload).
		Msg("publishing event")
	return nil
}
