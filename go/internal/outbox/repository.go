package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duel/go/internal/db"
	"github.com/mcdev12/duel/go/internal/sqlutil"
)

// Repository reads and settles the match outbox on Postgres
type Repository struct {
	db      *sql.DB
	queries *db.Queries
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		db:      database,
		queries: db.New(database),
	}
}

// ProcessUnsent locks up to limit unsent rows for the length of one
// transaction, so concurrent relays never publish the same batch.
func (r *Repository) ProcessUnsent(ctx context.Context, limit int32, publish func(context.Context, OutboxEvent) error) (BatchResult, error) {
	var res BatchResult
	err := sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		rows, err := q.FetchUnsentOutbox(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to fetch unsent events: %w", err)
		}
		res.Fetched = len(rows)

		var sent []uuid.UUID
		for _, row := range rows {
			event := rowToEvent(row)
			if err := publish(ctx, event); err != nil {
				log.Error().
					Err(err).
					Str("event_id", event.ID.String()).
					Str("event_type", event.EventType).
					Msg("failed to publish event")
				continue
			}
			sent = append(sent, row.ID)
		}
		if len(sent) == 0 {
			return nil
		}

		if err := q.MarkOutboxSent(ctx, sent); err != nil {
			return fmt.Errorf("failed to mark events as sent: %w", err)
		}
		res.Sent = len(sent)
		return nil
	})
	if err != nil {
		return BatchResult{Fetched: res.Fetched}, err
	}
	return res, nil
}

// Pending counts the events not yet relayed.
func (r *Repository) Pending(ctx context.Context) (int64, error) {
	n, err := r.queries.CountUnsentOutbox(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending events: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func rowToEvent(row db.MatchOutbox) OutboxEvent {
	return OutboxEvent{
		ID:        row.ID,
		MatchID:   row.MatchID,
		EventType: row.EventType,
		Payload:   row.Payload,
		Metadata:  sqlutil.FromNullRawMessage(row.Metadata),
		CreatedAt: row.CreatedAt,
	}
}
