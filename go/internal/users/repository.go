package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/duel/go/internal/db"
	"github.com/mcdev12/duel/go/internal/sqlutil"
)

// Repository implements profile and stats data access on Postgres
type Repository struct {
	db      *sql.DB
	queries *db.Queries
}

// NewRepository creates a new profiles repository
func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		db:      database,
		queries: db.New(database),
	}
}

// GetProfile retrieves a profile by visitor id
func (r *Repository) GetProfile(ctx context.Context, visitorID string) (*Profile, error) {
	row, err := r.queries.GetProfileByVisitorID(ctx, visitorID)
	if err != nil {
		return nil, notFound(err, "failed to get profile")
	}
	return dbProfileToModel(row), nil
}

// CreateProfile inserts a new profile
func (r *Repository) CreateProfile(ctx context.Context, visitorID, username, avatar string) (*Profile, error) {
	row, err := r.queries.CreateProfile(ctx, db.CreateProfileParams{
		ID:        uuid.New(),
		VisitorID: visitorID,
		Username:  username,
		Avatar:    avatar,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return dbProfileToModel(row), nil
}

// TouchProfile refreshes the last-seen time
func (r *Repository) TouchProfile(ctx context.Context, visitorID string) (*Profile, error) {
	row, err := r.queries.TouchProfile(ctx, visitorID)
	if err != nil {
		return nil, notFound(err, "failed to touch profile")
	}
	return dbProfileToModel(row), nil
}

// UpdateProfile stores a new username and avatar
func (r *Repository) UpdateProfile(ctx context.Context, visitorID, username, avatar string) (*Profile, error) {
	row, err := r.queries.UpdateProfile(ctx, db.UpdateProfileParams{
		VisitorID: visitorID,
		Username:  username,
		Avatar:    avatar,
	})
	if err != nil {
		return nil, notFound(err, "failed to update profile")
	}
	return dbProfileToModel(row), nil
}

// Leaderboard lists the profiles with the most wins among those with at
// least minMatches played
func (r *Repository) Leaderboard(ctx context.Context, minMatches, limit int) ([]*Profile, error) {
	rows, err := r.queries.ListLeaderboard(ctx, db.ListLeaderboardParams{
		MinMatches: int32(minMatches),
		Limit:      int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard: %w", err)
	}
	out := make([]*Profile, len(rows))
	for i, row := range rows {
		out[i] = dbProfileToModel(row)
	}
	return out, nil
}

// InsertOutbox writes a single outcome event
func (r *Repository) InsertOutbox(ctx context.Context, rec OutboxRecord) error {
	if err := r.queries.InsertOutboxEvent(ctx, outboxParams(rec)); err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", rec.EventType, err)
	}
	return nil
}

// ApplyMatchResult updates every listed player's stats and writes the
// outcome event in one transaction. Players without a profile are skipped.
func (r *Repository) ApplyMatchResult(ctx context.Context, updates []StatsUpdate, rec OutboxRecord) error {
	return sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		for _, u := range updates {
			row, err := q.GetProfileForUpdate(ctx, u.VisitorID)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to lock profile %s: %w", u.VisitorID, err)
			}

			stats := dbProfileToModel(row).Stats
			stats.Record(u.Won, u.RoundsWon, u.Rounds)
			if err := q.UpdateProfileStats(ctx, db.UpdateProfileStatsParams{
				ID:            row.ID,
				MatchesPlayed: int32(stats.MatchesPlayed),
				MatchesWon:    int32(stats.MatchesWon),
				MatchesLost:   int32(stats.MatchesLost),
				RoundsPlayed:  int32(stats.RoundsPlayed),
				RoundsWon:     int32(stats.RoundsWon),
				WinStreak:     int32(stats.WinStreak),
				BestWinStreak: int32(stats.BestWinStreak),
			}); err != nil {
				return fmt.Errorf("failed to update stats for %s: %w", u.VisitorID, err)
			}
		}

		if err := q.InsertOutboxEvent(ctx, outboxParams(rec)); err != nil {
			return fmt.Errorf("failed to insert %s outbox event: %w", rec.EventType, err)
		}
		return nil
	})
}

func outboxParams(rec OutboxRecord) db.InsertOutboxEventParams {
	return db.InsertOutboxEventParams{
		ID:        uuid.New(),
		MatchID:   rec.MatchID,
		EventType: rec.EventType,
		Payload:   rec.Payload,
		Metadata:  sqlutil.ToNullRawMessage(map[string]string{"source": "duel-server"}),
	}
}

func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// dbProfileToModel converts a database profile to the domain model
func dbProfileToModel(row db.Profile) *Profile {
	return &Profile{
		ID:        row.ID.String(),
		VisitorID: row.VisitorID,
		Username:  row.Username,
		Avatar:    row.Avatar,
		Stats: Stats{
			MatchesPlayed: int(row.MatchesPlayed),
			MatchesWon:    int(row.MatchesWon),
			MatchesLost:   int(row.MatchesLost),
			RoundsPlayed:  int(row.RoundsPlayed),
			RoundsWon:     int(row.RoundsWon),
			WinStreak:     int(row.WinStreak),
			BestWinStreak: int(row.BestWinStreak),
		},
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
		LastSeenAt: row.LastSeenAt,
	}
}
