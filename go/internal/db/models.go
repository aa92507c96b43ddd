package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Profile struct {
	ID            uuid.UUID `json:"id"`
	VisitorID     string    `json:"visitor_id"`
	Username      string    `json:"username"`
	Avatar        string    `json:"avatar"`
	MatchesPlayed int32     `json:"matches_played"`
	MatchesWon    int32     `json:"matches_won"`
	MatchesLost   int32     `json:"matches_lost"`
	RoundsPlayed  int32     `json:"rounds_played"`
	RoundsWon     int32     `json:"rounds_won"`
	WinStreak     int32     `json:"win_streak"`
	BestWinStreak int32     `json:"best_win_streak"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastSeenAt    time.Time `json:"last_seen_at"`
}

type MatchOutbox struct {
	ID        uuid.UUID             `json:"id"`
	MatchID   string                `json:"match_id"`
	EventType string                `json:"event_type"`
	Payload   json.RawMessage       `json:"payload"`
	Metadata  pqtype.NullRawMessage `json:"metadata"`
	CreatedAt time.Time             `json:"created_at"`
	SentAt    sql.NullTime          `json:"sent_at"`
}
