package db

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

const insertOutboxEvent = `-- name: InsertOutboxEvent :exec
INSERT INTO match_outbox (id, match_id, event_type, payload, metadata)
VALUES ($1, $2, $3, $4, $5)`

type InsertOutboxEventParams struct {
	ID        uuid.UUID             `json:"id"`
	MatchID   string                `json:"match_id"`
	EventType string                `json:"event_type"`
	Payload   json.RawMessage       `json:"payload"`
	Metadata  pqtype.NullRawMessage `json:"metadata"`
}

func (q *Queries) InsertOutboxEvent(ctx context.Context, arg InsertOutboxEventParams) error {
	_, err := q.db.ExecContext(ctx, insertOutboxEvent,
		arg.ID,
		arg.MatchID,
		arg.EventType,
		arg.Payload,
		arg.Metadata,
	)
	return err
}

const outboxColumns = `id, match_id, event_type, payload, metadata, created_at, sent_at`

func scanOutbox(row rowScanner) (MatchOutbox, error) {
	var i MatchOutbox
	err := row.Scan(
		&i.ID,
		&i.MatchID,
		&i.EventType,
		&i.Payload,
		&i.Metadata,
		&i.CreatedAt,
		&i.SentAt,
	)
	return i, err
}

const fetchUnsentOutbox = `-- name: FetchUnsentOutbox :many
SELECT ` + outboxColumns + `
FROM match_outbox
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED`

func (q *Queries) FetchUnsentOutbox(ctx context.Context, limit int32) ([]MatchOutbox, error) {
	rows, err := q.db.QueryContext(ctx, fetchUnsentOutbox, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MatchOutbox
	for rows.Next() {
		i, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const fetchOutboxByID = `-- name: FetchOutboxByID :one
SELECT ` + outboxColumns + `
FROM match_outbox
WHERE id = $1 AND sent_at IS NULL
FOR UPDATE SKIP LOCKED`

func (q *Queries) FetchOutboxByID(ctx context.Context, id uuid.UUID) (MatchOutbox, error) {
	row := q.db.QueryRowContext(ctx, fetchOutboxByID, id)
	return scanOutbox(row)
}

const markOutboxSent = `-- name: MarkOutboxSent :exec
UPDATE match_outbox
SET sent_at = now()
WHERE id = ANY($1::uuid[])`

func (q *Queries) MarkOutboxSent(ctx context.Context, ids []uuid.UUID) error {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := q.db.ExecContext(ctx, markOutboxSent, pq.Array(strs))
	return err
}

const countUnsentOutbox = `-- name: CountUnsentOutbox :one
SELECT COUNT(*) FROM match_outbox WHERE sent_at IS NULL`

func (q *Queries) CountUnsentOutbox(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUnsentOutbox)
	var count int64
	err := row.Scan(&count)
	return count, err
}
