package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/duel/go/internal/events"
)

// OutboxEvent is one unsent row of the match outbox
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	MatchID   string          `json:"match_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Envelope wraps the event for the wire.
func (e OutboxEvent) Envelope() events.DomainEvent {
	return events.DomainEvent{
		EventID:   e.ID.String(),
		EventType: events.EventType(e.EventType),
		MatchID:   e.MatchID,
		Timestamp: e.CreatedAt.UTC(),
		Payload:   e.Payload,
		Metadata:  e.Metadata,
	}
}

// EventPublisher delivers an outbox event to the message bus
type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

// BatchResult counts what one pass over the outbox did.
type BatchResult struct {
	Fetched int
	Sent    int
}

// BatchSource hands locked unsent events to publish and marks those that
// were published as sent.
type BatchSource interface {
	ProcessUnsent(ctx context.Context, limit int32, publish func(context.Context, OutboxEvent) error) (BatchResult, error)
}
