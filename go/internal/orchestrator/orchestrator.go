package orchestrator

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duel/go/internal/card"
	"github.com/mcdev12/duel/go/internal/events"
	"github.com/mcdev12/duel/go/internal/match"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Broadcaster delivers per-player messages to connected clients. Calls
// happen after a mutation has completed and must not block for long.
type Broadcaster interface {
	MatchFound(playerID, opponentID string, s match.Snapshot)
	GameUpdate(playerID string, s match.Snapshot)
	RoundOver(playerID string, r match.RoundResult)
	RoundStart(playerID string, round int)
	MatchOver(playerID string, r match.MatchResult)
	OpponentDisconnected(playerID string)
}

// OutcomeRecorder persists match outcomes. Each method is called exactly
// once per corresponding transition.
type OutcomeRecorder interface {
	RecordMatchStarted(ctx context.Context, p events.MatchStartedPayload) error
	RecordRoundFinished(ctx context.Context, p events.RoundFinishedPayload) error
	RecordMatchFinished(ctx context.Context, p events.MatchFinishedPayload) error
}

var (
	// ErrPlayerInMatch is returned when pairing a player who is still playing.
	ErrPlayerInMatch = errors.New("player already in a live match")
	// ErrInvalidPairing is returned when both seats name the same player.
	ErrInvalidPairing = errors.New("pairing needs two distinct players")
)

// Config holds the orchestrator's timing and pool settings.
type Config struct {
	Rules        match.Rules   `yaml:",inline"`
	RoundBreak   time.Duration `yaml:"round_break"`
	CleanupGrace time.Duration `yaml:"cleanup_grace"`
	NumWorkers   int           `yaml:"workers"`
}

// DefaultConfig returns the reference timings with a 3s round break and a
// 5s grace period before finished matches are dropped.
func DefaultConfig() Config {
	return Config{
		Rules:        match.DefaultRules(),
		RoundBreak:   3 * time.Second,
		CleanupGrace: 5 * time.Second,
		NumWorkers:   4,
	}
}

// Seat describes one paired player.
type Seat struct {
	PlayerID string
	Handle   string
	Username string
	Avatar   string
}

// Pairing is produced by matchmaking or a private room.
type Pairing struct {
	First    Seat
	Second   Seat
	Mode     match.Mode
	RoomCode string
}

// session guards one match. Every read or write of m holds mu.
type session struct {
	mu        sync.Mutex
	m         *match.Match
	createdAt time.Time
	removed   bool
}

// Orchestrator owns the live matches, the identity lookups and the timers
// that drive matches forward without player input.
type Orchestrator struct {
	cfg         Config
	clock       Clock
	broadcaster Broadcaster
	recorder    OutcomeRecorder
	strat       match.AutoPlayStrategy
	instanceID  string

	seedMu sync.Mutex
	seeds  *rand.Rand

	mu           sync.RWMutex
	matches      map[string]*session
	playerMatch  map[string]string
	handlePlayer map[string]string

	workCh         chan timerEvent
	activeTimersMu sync.Mutex
	activeTimers   map[string]*armedTimer
	quit           chan struct{}
	quitOnce       sync.Once
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the real clock.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithSeed makes card shuffles reproducible.
func WithSeed(seed int64) Option {
	return func(o *Orchestrator) { o.seeds = rand.New(rand.NewSource(seed)) }
}

// WithAutoPlayStrategy replaces the default auto-play choice.
func WithAutoPlayStrategy(s match.AutoPlayStrategy) Option {
	return func(o *Orchestrator) { o.strat = s }
}

// NewOrchestrator creates an orchestrator. Call Run to start processing timers.
func NewOrchestrator(cfg Config, broadcaster Broadcaster, recorder OutcomeRecorder, opts ...Option) *Orchestrator {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	o := &Orchestrator{
		cfg:          cfg,
		clock:        clockwork.NewRealClock(),
		broadcaster:  broadcaster,
		recorder:     recorder,
		strat:        match.PreferPlainStrategy{},
		instanceID:   uuid.New().String()[:8],
		seeds:        rand.New(rand.NewSource(time.Now().UnixNano())),
		matches:      make(map[string]*session),
		playerMatch:  make(map[string]string),
		handlePlayer: make(map[string]string),
		workCh:       make(chan timerEvent, cfg.NumWorkers*64),
		activeTimers: make(map[string]*armedTimer),
		quit:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateMatch builds a match for a pairing, deals the first round and arms
// its turn timer.
func (o *Orchestrator) CreateMatch(ctx context.Context, p Pairing) (string, error) {
	if p.First.PlayerID == "" || p.First.PlayerID == p.Second.PlayerID {
		return "", ErrInvalidPairing
	}

	id := uuid.NewString()
	m := match.New(id,
		match.NewPlayer(p.First.PlayerID, p.First.Handle, p.First.Username, p.First.Avatar),
		match.NewPlayer(p.Second.PlayerID, p.Second.Handle, p.Second.Username, p.Second.Avatar),
		match.Config{
			Rules:    o.cfg.Rules,
			Mode:     p.Mode,
			RoomCode: p.RoomCode,
			Clock:    o.clock,
			Rand:     o.newRand(),
			AutoPlay: o.strat,
		},
	)
	if err := m.StartRound(); err != nil {
		return "", err
	}
	s := &session{m: m, createdAt: o.clock.Now()}

	o.mu.Lock()
	for _, seat := range []Seat{p.First, p.Second} {
		if o.inLiveMatchLocked(seat.PlayerID) {
			o.mu.Unlock()
			return "", ErrPlayerInMatch
		}
	}
	o.matches[id] = s
	for _, seat := range []Seat{p.First, p.Second} {
		o.playerMatch[seat.PlayerID] = id
		if seat.Handle != "" {
			o.handlePlayer[seat.Handle] = seat.PlayerID
		}
	}
	o.mu.Unlock()

	s.mu.Lock()
	o.armTimerLocked(m)
	snaps := snapshots(m)
	s.mu.Unlock()

	log.Info().
		Str("match_id", id).
		Str("mode", string(m.Mode)).
		Str("player_0", p.First.PlayerID).
		Str("player_1", p.Second.PlayerID).
		Msg("match created")

	o.broadcaster.MatchFound(p.First.PlayerID, p.Second.PlayerID, snaps[0])
	o.broadcaster.MatchFound(p.Second.PlayerID, p.First.PlayerID, snaps[1])

	started := events.MatchStartedPayload{
		MatchID:   id,
		Mode:      string(m.Mode),
		RoomCode:  m.RoomCode,
		PlayerIDs: []string{p.First.PlayerID, p.Second.PlayerID},
		StartedAt: s.createdAt,
	}
	if err := o.recorder.RecordMatchStarted(ctx, started); err != nil {
		log.Error().Err(err).Str("match_id", id).Msg("failed to record match start")
	}
	return id, nil
}

// PlayCard plays a card on behalf of a player. suit is only used for a wild.
func (o *Orchestrator) PlayCard(ctx context.Context, matchID, playerID, cardID string, suit string) error {
	return o.mutate(ctx, matchID, func(m *match.Match) error {
		return m.PlayCard(playerID, cardID, card.Suit(suit))
	})
}

// Decide answers a pending block or forced draw.
func (o *Orchestrator) Decide(ctx context.Context, matchID, playerID string, counter bool, cardID string) error {
	return o.mutate(ctx, matchID, func(m *match.Match) error {
		return m.Decide(playerID, counter, cardID)
	})
}

// DrawCard draws for a player, or accepts a pending forced draw.
func (o *Orchestrator) DrawCard(ctx context.Context, matchID, playerID string) error {
	return o.mutate(ctx, matchID, func(m *match.Match) error {
		return m.Draw(playerID)
	})
}

// BindHandle records that handle now speaks for playerID. A player who is in
// a match gets the new handle attached and a fresh snapshot.
func (o *Orchestrator) BindHandle(handle, playerID string) {
	o.mu.Lock()
	o.handlePlayer[handle] = playerID
	matchID, ok := o.playerMatch[playerID]
	s := o.matches[matchID]
	o.mu.Unlock()
	if !ok || s == nil {
		return
	}

	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return
	}
	if p, found := s.m.Player(playerID); found {
		p.Handle = handle
	}
	snap, err := s.m.Snapshot(playerID)
	s.mu.Unlock()
	if err == nil {
		o.broadcaster.GameUpdate(playerID, snap)
	}
}

// Disconnect handles a closed transport. If the handle is still the active
// one for a player in a live match, the match is abandoned in favour of the
// opponent.
func (o *Orchestrator) Disconnect(ctx context.Context, handle string) {
	o.mu.Lock()
	playerID, ok := o.handlePlayer[handle]
	delete(o.handlePlayer, handle)
	matchID := o.playerMatch[playerID]
	o.mu.Unlock()
	if !ok || matchID == "" {
		return
	}

	err := o.mutate(ctx, matchID, func(m *match.Match) error {
		p, found := m.Player(playerID)
		if !found || p.Handle != handle {
			return nil
		}
		if m.Abandon(playerID) {
			log.Info().Str("match_id", matchID).Str("player_id", playerID).Msg("match abandoned")
		}
		return nil
	})
	if err != nil && !errors.Is(err, match.ErrMatchNotFound) {
		log.Error().Err(err).Str("handle", handle).Msg("failed to abandon match")
	}
}

// Snapshot returns the current view of a match for one player.
func (o *Orchestrator) Snapshot(matchID, playerID string) (match.Snapshot, error) {
	s, err := o.session(matchID)
	if err != nil {
		return match.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Snapshot(playerID)
}

// MatchIDForPlayer returns the match a player is seated in.
func (o *Orchestrator) MatchIDForPlayer(playerID string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	id, ok := o.playerMatch[playerID]
	return id, ok
}

// InLiveMatch reports whether a player is seated in a match that has not
// ended yet.
func (o *Orchestrator) InLiveMatch(playerID string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.inLiveMatchLocked(playerID)
}

// PlayerForHandle resolves a transport handle.
func (o *Orchestrator) PlayerForHandle(handle string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	id, ok := o.handlePlayer[handle]
	return id, ok
}

// ActiveMatches returns the number of matches held in memory.
func (o *Orchestrator) ActiveMatches() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.matches)
}

// MatchSummary is a public line about one live match.
type MatchSummary struct {
	MatchID   string       `json:"match_id"`
	Mode      match.Mode   `json:"mode"`
	Status    match.Status `json:"status"`
	Round     int          `json:"round"`
	Scores    [2]int       `json:"scores"`
	Players   [2]string    `json:"players"`
	CreatedAt time.Time    `json:"created_at"`
}

// Summaries lists every match currently held.
func (o *Orchestrator) Summaries() []MatchSummary {
	o.mu.RLock()
	sessions := make([]*session, 0, len(o.matches))
	for _, s := range o.matches {
		sessions = append(sessions, s)
	}
	o.mu.RUnlock()

	out := make([]MatchSummary, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		out = append(out, MatchSummary{
			MatchID:   s.m.ID,
			Mode:      s.m.Mode,
			Status:    s.m.Status,
			Round:     s.m.Round,
			Scores:    s.m.Scores,
			Players:   [2]string{s.m.Players[0].Name, s.m.Players[1].Name},
			CreatedAt: s.createdAt,
		})
		s.mu.Unlock()
	}
	return out
}

func (o *Orchestrator) session(matchID string) (*session, error) {
	o.mu.RLock()
	s, ok := o.matches[matchID]
	o.mu.RUnlock()
	if !ok {
		return nil, match.ErrMatchNotFound
	}
	return s, nil
}

// inLiveMatchLocked reports whether the player sits in a non-terminal match.
// Callers hold o.mu.
func (o *Orchestrator) inLiveMatchLocked(playerID string) bool {
	id, ok := o.playerMatch[playerID]
	if !ok {
		return false
	}
	s, ok := o.matches[id]
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.removed && !s.m.Status.Terminal()
}

// removeMatch drops a finished match and every lookup entry pointing at it.
func (o *Orchestrator) removeMatch(matchID string, players [2]*match.Player) {
	o.cancelTimer(matchID)

	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.matches, matchID)
	for _, p := range players {
		if o.playerMatch[p.ID] != matchID {
			continue
		}
		delete(o.playerMatch, p.ID)
		for h, id := range o.handlePlayer {
			if id == p.ID {
				delete(o.handlePlayer, h)
			}
		}
	}
	log.Info().Str("match_id", matchID).Msg("match removed")
}

func (o *Orchestrator) newRand() *rand.Rand {
	o.seedMu.Lock()
	defer o.seedMu.Unlock()
	return rand.New(rand.NewSource(o.seeds.Int63()))
}
