package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duel/go/internal/events"
)

// ProfilesRepository defines what the app layer needs from the repository
type ProfilesRepository interface {
	GetProfile(ctx context.Context, visitorID string) (*Profile, error)
	CreateProfile(ctx context.Context, visitorID, username, avatar string) (*Profile, error)
	TouchProfile(ctx context.Context, visitorID string) (*Profile, error)
	UpdateProfile(ctx context.Context, visitorID, username, avatar string) (*Profile, error)
	Leaderboard(ctx context.Context, minMatches, limit int) ([]*Profile, error)
	InsertOutbox(ctx context.Context, rec OutboxRecord) error
	ApplyMatchResult(ctx context.Context, updates []StatsUpdate, rec OutboxRecord) error
}

// App handles profile and stats business logic
type App struct {
	repo ProfilesRepository

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewApp creates a new users App
func NewApp(repo ProfilesRepository) *App {
	return &App{
		repo: repo,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FindOrCreate returns the profile for visitorID, creating it on first
// contact. An existing profile has its last-seen time refreshed.
func (a *App) FindOrCreate(ctx context.Context, visitorID, username string) (*Profile, error) {
	if err := validateVisitorID(visitorID); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	_, err := a.repo.GetProfile(ctx, visitorID)
	switch {
	case err == nil:
		p, err := a.repo.TouchProfile(ctx, visitorID)
		if err != nil {
			return nil, fmt.Errorf("failed to touch profile: %w", err)
		}
		return p, nil
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	name, ok := cleanUsername(username)
	if !ok {
		name = fmt.Sprintf("Player%d", a.intn(10000))
	}
	avatar := Avatars[a.intn(len(Avatars))]

	p, err := a.repo.CreateProfile(ctx, visitorID, name, avatar)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	log.Info().
		Str("visitor_id", visitorID).
		Str("username", p.Username).
		Msg("created profile")
	return p, nil
}

// GetProfile retrieves a profile by visitor id
func (a *App) GetProfile(ctx context.Context, visitorID string) (*Profile, error) {
	p, err := a.repo.GetProfile(ctx, visitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// UpdateProfile applies the valid parts of req. A username outside 2-20
// characters after trimming and an avatar off the whitelist are ignored.
func (a *App) UpdateProfile(ctx context.Context, visitorID string, req UpdateProfileRequest) (*Profile, error) {
	existing, err := a.repo.GetProfile(ctx, visitorID)
	if err != nil {
		return nil, fmt.Errorf("profile not found: %w", err)
	}

	username, avatar := existing.Username, existing.Avatar
	if name, ok := cleanUsername(req.Username); ok {
		username = name
	}
	if IsValidAvatar(req.Avatar) {
		avatar = req.Avatar
	}

	p, err := a.repo.UpdateProfile(ctx, visitorID, username, avatar)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	log.Info().
		Str("visitor_id", visitorID).
		Str("username", p.Username).
		Msg("updated profile")
	return p, nil
}

// Leaderboard returns the top players by wins among those with at least five
// matches played.
func (a *App) Leaderboard(ctx context.Context, limit int) ([]PublicProfile, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultLeaderboard
	}
	profiles, err := a.repo.Leaderboard(ctx, LeaderboardMinMatch, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	out := make([]PublicProfile, len(profiles))
	for i, p := range profiles {
		out[i] = p.Public()
	}
	return out, nil
}

// RecordMatchStarted writes a MatchStarted outcome event.
func (a *App) RecordMatchStarted(ctx context.Context, p events.MatchStartedPayload) error {
	rec, err := outboxRecord(p.MatchID, events.EventTypeMatchStarted, p)
	if err != nil {
		return err
	}
	return a.repo.InsertOutbox(ctx, rec)
}

// RecordRoundFinished writes a RoundFinished outcome event.
func (a *App) RecordRoundFinished(ctx context.Context, p events.RoundFinishedPayload) error {
	rec, err := outboxRecord(p.MatchID, events.EventTypeRoundFinished, p)
	if err != nil {
		return err
	}
	return a.repo.InsertOutbox(ctx, rec)
}

// RecordMatchFinished updates both players' stats and writes the
// MatchFinished event in one transaction. When the match was abandoned only
// the remaining player is credited.
func (a *App) RecordMatchFinished(ctx context.Context, p events.MatchFinishedPayload) error {
	rec, err := outboxRecord(p.MatchID, events.EventTypeMatchFinished, p)
	if err != nil {
		return err
	}

	updates := StatsUpdates(p)
	if err := a.repo.ApplyMatchResult(ctx, updates, rec); err != nil {
		return fmt.Errorf("failed to record match result: %w", err)
	}

	log.Info().
		Str("match_id", p.MatchID).
		Str("winner_id", p.WinnerID).
		Int("players_updated", len(updates)).
		Msg("recorded match result")
	return nil
}

// StatsUpdates derives the per-player stats changes of a finished match.
func StatsUpdates(p events.MatchFinishedPayload) []StatsUpdate {
	total := p.TotalRounds()
	if p.Abandoned() {
		for _, pl := range p.Players {
			if pl.PlayerID != p.WinnerID {
				continue
			}
			rounds := total
			if rounds < 1 {
				rounds = 1
			}
			return []StatsUpdate{{VisitorID: pl.PlayerID, Won: true, RoundsWon: pl.RoundsWon, Rounds: rounds}}
		}
		return nil
	}

	out := make([]StatsUpdate, 0, len(p.Players))
	for _, pl := range p.Players {
		out = append(out, StatsUpdate{
			VisitorID: pl.PlayerID,
			Won:       pl.PlayerID == p.WinnerID,
			RoundsWon: pl.RoundsWon,
			Rounds:    total,
		})
	}
	return out
}

func outboxRecord(matchID string, eventType events.EventType, payload interface{}) (OutboxRecord, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return OutboxRecord{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return OutboxRecord{MatchID: matchID, EventType: string(eventType), Payload: raw}, nil
}

func (a *App) intn(n int) int {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return a.rng.Intn(n)
}

func cleanUsername(name string) (string, bool) {
	name = strings.TrimSpace(name)
	n := len([]rune(name))
	return name, n >= MinUsernameLength && n <= MaxUsernameLength
}

func validateVisitorID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("visitor id is required")
	}
	if len(id) > 64 {
		return fmt.Errorf("visitor id is too long")
	}
	return nil
}
