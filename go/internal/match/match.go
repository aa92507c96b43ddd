package match

import (
	"math/rand"
	"time"

	"github.com/mcdev12/duel/go/internal/card"
)

// Status is the lifecycle state of a match.
type Status string

const (
	StatusWaiting           Status = "waiting"
	StatusPlaying           Status = "playing"
	StatusWaitingForCounter Status = "waiting_for_counter"
	StatusRoundOver         Status = "round_over"
	StatusMatchOver         Status = "match_over"
	StatusAbandoned         Status = "abandoned"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusMatchOver || s == StatusAbandoned
}

// Mode records how the two players were paired.
type Mode string

const (
	ModeRandom  Mode = "random"
	ModePrivate Mode = "private"
)

const (
	handSize = 5
	numSeats = 2
)

// Rules holds the timing and scoring constants of a match.
type Rules struct {
	TurnTimeout      time.Duration `yaml:"turn_timeout"`
	BlockWindow      time.Duration `yaml:"block_window"`
	ForcedDrawWindow time.Duration `yaml:"forced_draw_window"`
	TargetScore      int           `yaml:"target_score"`
}

// DefaultRules returns the reference timings: 30s turns, 10s to counter a
// block, 15s to counter a forced draw, first to 5 rounds.
func DefaultRules() Rules {
	return Rules{
		TurnTimeout:      30 * time.Second,
		BlockWindow:      10 * time.Second,
		ForcedDrawWindow: 15 * time.Second,
		TargetScore:      5,
	}
}

// Clock is the time source used for deadlines.
type Clock interface {
	Now() time.Time
}

// Config carries the collaborators of a match.
type Config struct {
	Rules    Rules
	Mode     Mode
	RoomCode string
	Clock    Clock
	Rand     *rand.Rand
	AutoPlay AutoPlayStrategy
}

// Match is the authoritative state of one two-player match. It is not safe
// for concurrent use; callers serialize every call per match.
type Match struct {
	ID       string
	Players  [numSeats]*Player
	Mode     Mode
	RoomCode string

	Deck         card.Pile
	Discard      card.Pile
	Current      int
	ActiveSuit   card.Suit
	Status       Status
	Pending      Effect
	TurnDeadline time.Time

	Scores      [numSeats]int
	Round       int
	RoundWinner string
	MatchWinner string

	// Version increases with every applied mutation.
	Version uint64

	rules        Rules
	clock        Clock
	rng          *rand.Rand
	autoPlay     AutoPlayStrategy
	roundStarter int
}

// New creates a match in StatusWaiting. StartRound deals the first round.
func New(id string, p0, p1 *Player, cfg Config) *Match {
	if cfg.Rules == (Rules{}) {
		cfg.Rules = DefaultRules()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeRandom
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.AutoPlay == nil {
		cfg.AutoPlay = PreferPlainStrategy{}
	}
	return &Match{
		ID:       id,
		Players:  [numSeats]*Player{p0, p1},
		Mode:     cfg.Mode,
		RoomCode: cfg.RoomCode,
		Status:   StatusWaiting,
		Round:    1,
		rules:    cfg.Rules,
		clock:    cfg.Clock,
		rng:      cfg.Rand,
		autoPlay: cfg.AutoPlay,
	}
}

// Rules returns the constants the match was created with.
func (m *Match) Rules() Rules { return m.rules }

// StartRound deals a fresh round. It is valid before the first round and
// after a round ends without finishing the match.
func (m *Match) StartRound() error {
	if m.Status != StatusWaiting && m.Status != StatusRoundOver {
		return ErrIllegalMove
	}

	for _, p := range m.Players {
		p.ClearHand()
	}
	m.Deck = card.BuildDeck()
	card.Shuffle(m.Deck, m.rng)
	m.Discard = nil

	for i := 0; i < handSize; i++ {
		for _, p := range m.Players {
			c, _ := m.Deck.Pop()
			p.AddCard(c)
		}
	}

	seed, _ := m.Deck.Pop()
	for seed.Rank.IsSpecial() {
		m.Deck.Push(seed)
		card.Shuffle(m.Deck, m.rng)
		seed, _ = m.Deck.Pop()
	}
	m.Discard.Push(seed)
	m.ActiveSuit = seed.Suit

	m.Current = m.roundStarter
	m.roundStarter = opponent(m.roundStarter)
	m.Pending = nil
	m.RoundWinner = ""
	m.Status = StatusPlaying
	m.TurnDeadline = m.now().Add(m.rules.TurnTimeout)
	m.Version++
	return nil
}

// TopCard returns the top of the discard pile.
func (m *Match) TopCard() (card.Card, bool) {
	return m.Discard.Top()
}

// PlayerIndex returns the seat of the player with the given id.
func (m *Match) PlayerIndex(playerID string) (int, bool) {
	for i, p := range m.Players {
		if p.ID == playerID {
			return i, true
		}
	}
	return 0, false
}

// Player returns the player with the given id.
func (m *Match) Player(playerID string) (*Player, bool) {
	idx, ok := m.PlayerIndex(playerID)
	if !ok {
		return nil, false
	}
	return m.Players[idx], true
}

// OpponentOf returns the other seat's player.
func (m *Match) OpponentOf(playerID string) (*Player, bool) {
	idx, ok := m.PlayerIndex(playerID)
	if !ok {
		return nil, false
	}
	return m.Players[opponent(idx)], true
}

// CurrentPlayer returns the player whose turn it is.
func (m *Match) CurrentPlayer() *Player {
	return m.Players[m.Current]
}

// CardCount is the number of cards across deck, discard pile and hands. It
// equals card.DeckSize for the whole of a round.
func (m *Match) CardCount() int {
	n := m.Deck.Len() + m.Discard.Len()
	for _, p := range m.Players {
		n += p.HandSize()
	}
	return n
}

// CounterDeadline returns the deadline of the pending effect, if any.
func (m *Match) CounterDeadline() (time.Time, bool) {
	if m.Pending == nil {
		return time.Time{}, false
	}
	return m.Pending.deadline(), true
}

func (m *Match) now() time.Time {
	if m.clock == nil {
		return time.Now()
	}
	return m.clock.Now()
}

var zeroTime time.Time

func opponent(idx int) int { return 1 - idx }
