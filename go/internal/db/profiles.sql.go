package db

import (
	"context"

	"github.com/google/uuid"
)

const profileColumns = `id, visitor_id, username, avatar, matches_played, matches_won, matches_lost,
    rounds_played, rounds_won, win_streak, best_win_streak, created_at, updated_at, last_seen_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var i Profile
	err := row.Scan(
		&i.ID,
		&i.VisitorID,
		&i.Username,
		&i.Avatar,
		&i.MatchesPlayed,
		&i.MatchesWon,
		&i.MatchesLost,
		&i.RoundsPlayed,
		&i.RoundsWon,
		&i.WinStreak,
		&i.BestWinStreak,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.LastSeenAt,
	)
	return i, err
}

const createProfile = `-- name: CreateProfile :one
INSERT INTO profiles (id, visitor_id, username, avatar)
VALUES ($1, $2, $3, $4)
ON CONFLICT (visitor_id) DO UPDATE SET last_seen_at = now()
RETURNING ` + profileColumns

type CreateProfileParams struct {
	ID        uuid.UUID `json:"id"`
	VisitorID string    `json:"visitor_id"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar"`
}

func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (Profile, error) {
	row := q.db.QueryRowContext(ctx, createProfile,
		arg.ID,
		arg.VisitorID,
		arg.Username,
		arg.Avatar,
	)
	return scanProfile(row)
}

const getProfileByVisitorID = `-- name: GetProfileByVisitorID :one
SELECT ` + profileColumns + `
FROM profiles
WHERE visitor_id = $1`

func (q *Queries) GetProfileByVisitorID(ctx context.Context, visitorID string) (Profile, error) {
	row := q.db.QueryRowContext(ctx, getProfileByVisitorID, visitorID)
	return scanProfile(row)
}

const getProfileForUpdate = `-- name: GetProfileForUpdate :one
SELECT ` + profileColumns + `
FROM profiles
WHERE visitor_id = $1
FOR UPDATE`

func (q *Queries) GetProfileForUpdate(ctx context.Context, visitorID string) (Profile, error) {
	row := q.db.QueryRowContext(ctx, getProfileForUpdate, visitorID)
	return scanProfile(row)
}

const touchProfile = `-- name: TouchProfile :one
UPDATE profiles
SET last_seen_at = now()
WHERE visitor_id = $1
RETURNING ` + profileColumns

func (q *Queries) TouchProfile(ctx context.Context, visitorID string) (Profile, error) {
	row := q.db.QueryRowContext(ctx, touchProfile, visitorID)
	return scanProfile(row)
}

const updateProfile = `-- name: UpdateProfile :one
UPDATE profiles
SET username = $2, avatar = $3, updated_at = now()
WHERE visitor_id = $1
RETURNING ` + profileColumns

type UpdateProfileParams struct {
	VisitorID string `json:"visitor_id"`
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
}

func (q *Queries) UpdateProfile(ctx context.Context, arg UpdateProfileParams) (Profile, error) {
	row := q.db.QueryRowContext(ctx, updateProfile, arg.VisitorID, arg.Username, arg.Avatar)
	return scanProfile(row)
}

const updateProfileStats = `-- name: UpdateProfileStats :exec
UPDATE profiles
SET matches_played = $2,
    matches_won = $3,
    matches_lost = $4,
    rounds_played = $5,
    rounds_won = $6,
    win_streak = $7,
    best_win_streak = $8,
    updated_at = now()
WHERE id = $1`

type UpdateProfileStatsParams struct {
	ID            uuid.UUID `json:"id"`
	MatchesPlayed int32     `json:"matches_played"`
	MatchesWon    int32     `json:"matches_won"`
	MatchesLost   int32     `json:"matches_lost"`
	RoundsPlayed  int32     `json:"rounds_played"`
	RoundsWon     int32     `json:"rounds_won"`
	WinStreak     int32     `json:"win_streak"`
	BestWinStreak int32     `json:"best_win_streak"`
}

func (q *Queries) UpdateProfileStats(ctx context.Context, arg UpdateProfileStatsParams) error {
	_, err := q.db.ExecContext(ctx, updateProfileStats,
		arg.ID,
		arg.MatchesPlayed,
		arg.MatchesWon,
		arg.MatchesLost,
		arg.RoundsPlayed,
		arg.RoundsWon,
		arg.WinStreak,
		arg.BestWinStreak,
	)
	return err
}

const listLeaderboard = `-- name: ListLeaderboard :many
SELECT ` + profileColumns + `
FROM profiles
WHERE matches_played >= $1
ORDER BY matches_won DESC, matches_played ASC, username ASC
LIMIT $2`

type ListLeaderboardParams struct {
	MinMatches int32 `json:"min_matches"`
	Limit      int32 `json:"limit"`
}

func (q *Queries) ListLeaderboard(ctx context.Context, arg ListLeaderboardParams) ([]Profile, error) {
	rows, err := q.db.QueryContext(ctx, listLeaderboard, arg.MinMatches, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Profile
	for rows.Next() {
		i, err := scanProfile(rows)
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
