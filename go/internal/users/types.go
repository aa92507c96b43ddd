package users

import (
	"errors"
	"math"
	"time"
)

// Avatars is the whitelist of avatars a profile may use.
var Avatars = []string{
	"🎴", "🃏", "👑", "⚔️", "🛡️", "🏆", "🎯", "🔥",
	"💎", "🌟", "🦁", "🦊", "🐺", "🦅", "🐉", "🎭",
}

const (
	MinUsernameLength   = 2
	MaxUsernameLength   = 20
	LeaderboardMinMatch = 5
	DefaultLeaderboard  = 20
)

var ErrUserNotFound = errors.New("user not found")

// Stats are a player's lifetime results.
type Stats struct {
	MatchesPlayed int `json:"matches_played"`
	MatchesWon    int `json:"matches_won"`
	MatchesLost   int `json:"matches_lost"`
	RoundsPlayed  int `json:"rounds_played"`
	RoundsWon     int `json:"rounds_won"`
	WinStreak     int `json:"win_streak"`
	BestWinStreak int `json:"best_win_streak"`
}

// WinRate is the percentage of matches won, rounded, or 0 before any match.
func (s Stats) WinRate() int {
	if s.MatchesPlayed == 0 {
		return 0
	}
	return int(math.Round(float64(s.MatchesWon) / float64(s.MatchesPlayed) * 100))
}

// Record applies one finished match to the stats.
func (s *Stats) Record(won bool, roundsWon, roundsPlayed int) {
	s.MatchesPlayed++
	s.RoundsPlayed += roundsPlayed
	s.RoundsWon += roundsWon
	if won {
		s.MatchesWon++
		s.WinStreak++
		if s.WinStreak > s.BestWinStreak {
			s.BestWinStreak = s.WinStreak
		}
		return
	}
	s.MatchesLost++
	s.WinStreak = 0
}

// Profile is a player identity as stored.
type Profile struct {
	ID         string    `json:"id"`
	VisitorID  string    `json:"visitor_id"`
	Username   string    `json:"username"`
	Avatar     string    `json:"avatar"`
	Stats      Stats     `json:"stats"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// PublicProfile is what other players and the HTTP API see.
type PublicProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Stats    Stats  `json:"stats"`
	WinRate  int    `json:"win_rate"`
}

// Public strips the private fields of a profile.
func (p *Profile) Public() PublicProfile {
	return PublicProfile{
		ID:       p.VisitorID,
		Username: p.Username,
		Avatar:   p.Avatar,
		Stats:    p.Stats,
		WinRate:  p.Stats.WinRate(),
	}
}

// UpdateProfileRequest carries optional profile changes.
type UpdateProfileRequest struct {
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// StatsUpdate is the new stats row for one player.
type StatsUpdate struct {
	VisitorID string
	Won       bool
	RoundsWon int
	Rounds    int
}

// OutboxRecord is an event row written alongside a state change.
type OutboxRecord struct {
	MatchID   string
	EventType string
	Payload   []byte
}

// IsValidAvatar reports whether avatar is on the whitelist.
func IsValidAvatar(avatar string) bool {
	for _, a := range Avatars {
		if a == avatar {
			return true
		}
	}
	return false
}
