package rooms

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Status is the lifecycle state of a private room.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
	StatusExpired  Status = "expired"
)

// DefaultExpiry is how long a waiting room stays joinable.
const DefaultExpiry = 30 * time.Minute

const (
	codeLength   = 8
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
	retention    = 24 * time.Hour
	maxTxRetries = 5
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrOwnRoom         = errors.New("cannot join your own room")
	ErrRoomUnavailable = errors.New("room is no longer available")
	ErrRoomExpired     = errors.New("room link has expired")
)

// Participant identifies a player and the transport handle they used.
type Participant struct {
	PlayerID string
	Handle   string
}

// Room is a private invitation between two players.
type Room struct {
	Code        string    `json:"code"`
	Status      Status    `json:"status"`
	HostID      string    `json:"host_id"`
	HostHandle  string    `json:"host_handle,omitempty"`
	GuestID     string    `json:"guest_id,omitempty"`
	GuestHandle string    `json:"guest_handle,omitempty"`
	MatchID     string    `json:"match_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the room's link has lapsed at now.
func (r *Room) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Store keeps rooms in Redis under room:<code>, with a per-host index and a
// set of waiting codes.
type Store struct {
	rdb    *redis.Client
	clock  clockwork.Clock
	expiry time.Duration
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithExpiry sets how long a waiting room stays joinable.
func WithExpiry(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.expiry = d
		}
	}
}

func NewStore(rdb *redis.Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, clock: clockwork.NewRealClock(), expiry: DefaultExpiry}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func keyRoom(code string) string   { return "room:" + strings.TrimSpace(code) }
func keyHost(hostID string) string { return "room:host:" + strings.TrimSpace(hostID) }
func keyWaiting() string           { return "room:waiting" }

// Create opens a new waiting room for host. Any room the host still has
// waiting is expired first.
func (s *Store) Create(ctx context.Context, host Participant) (*Room, error) {
	codes, err := s.rdb.SMembers(ctx, keyHost(host.PlayerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list host rooms: %w", err)
	}
	for _, code := range codes {
		if _, err := s.transition(ctx, code, func(r *Room) error {
			if r.Status != StatusWaiting {
				return errSkip
			}
			r.Status = StatusExpired
			return nil
		}); err != nil && !errors.Is(err, errSkip) && !errors.Is(err, ErrRoomNotFound) {
			return nil, err
		}
	}

	now := s.clock.Now()
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		code, err := newCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room code: %w", err)
		}
		room := &Room{
			Code:       code,
			Status:     StatusWaiting,
			HostID:     host.PlayerID,
			HostHandle: host.Handle,
			CreatedAt:  now,
			ExpiresAt:  now.Add(s.expiry),
		}
		raw, err := json.Marshal(room)
		if err != nil {
			return nil, err
		}
		ok, err := s.rdb.SetNX(ctx, keyRoom(code), raw, s.expiry+retention).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to store room: %w", err)
		}
		if !ok {
			continue
		}

		pipe := s.rdb.TxPipeline()
		pipe.SAdd(ctx, keyHost(host.PlayerID), code)
		pipe.Expire(ctx, keyHost(host.PlayerID), s.expiry+retention)
		pipe.SAdd(ctx, keyWaiting(), code)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to index room: %w", err)
		}

		log.Info().Str("code", code).Str("host_id", host.PlayerID).Msg("private room created")
		return room, nil
	}
	return nil, errors.New("failed to allocate a unique room code")
}

// Join seats guest in the room. Two guests racing for the same room cannot
// both succeed.
func (s *Store) Join(ctx context.Context, code string, guest Participant) (*Room, error) {
	var expired bool
	room, err := s.transition(ctx, code, func(r *Room) error {
		if r.HostID == guest.PlayerID {
			return ErrOwnRoom
		}
		if r.Status != StatusWaiting {
			return ErrRoomUnavailable
		}
		if r.Expired(s.clock.Now()) {
			r.Status = StatusExpired
			expired = true
			return nil
		}
		r.GuestID = guest.PlayerID
		r.GuestHandle = guest.Handle
		r.Status = StatusPlaying
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrRoomExpired
	}

	log.Info().Str("code", room.Code).Str("guest_id", guest.PlayerID).Msg("guest joined private room")
	return room, nil
}

// Cancel expires a waiting room at its host's request. It reports whether a
// room was cancelled.
func (s *Store) Cancel(ctx context.Context, code, hostID string) (bool, error) {
	_, err := s.transition(ctx, code, func(r *Room) error {
		if r.HostID != hostID || r.Status != StatusWaiting {
			return errSkip
		}
		r.Status = StatusExpired
		return nil
	})
	switch {
	case errors.Is(err, errSkip), errors.Is(err, ErrRoomNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	log.Info().Str("code", code).Str("host_id", hostID).Msg("private room cancelled")
	return true, nil
}

// Get loads a room by code.
func (s *Store) Get(ctx context.Context, code string) (*Room, error) {
	raw, err := s.rdb.Get(ctx, keyRoom(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	var r Room
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to decode room: %w", err)
	}
	return &r, nil
}

// SetMatchID links a room to the match it started.
func (s *Store) SetMatchID(ctx context.Context, code, matchID string) error {
	_, err := s.transition(ctx, code, func(r *Room) error {
		r.MatchID = matchID
		return nil
	})
	return err
}

// Finish marks the room's match as over.
func (s *Store) Finish(ctx context.Context, code string) error {
	_, err := s.transition(ctx, code, func(r *Room) error {
		if r.Status != StatusPlaying {
			return errSkip
		}
		r.Status = StatusFinished
		return nil
	})
	if errors.Is(err, errSkip) {
		return nil
	}
	return err
}

// Reopen returns a joined room to waiting, used when its match could not be
// created.
func (s *Store) Reopen(ctx context.Context, code string) error {
	_, err := s.transition(ctx, code, func(r *Room) error {
		if r.Status != StatusPlaying || r.MatchID != "" {
			return errSkip
		}
		r.Status = StatusWaiting
		r.GuestID, r.GuestHandle = "", ""
		return nil
	})
	if errors.Is(err, errSkip) {
		return nil
	}
	return err
}

// CleanupExpired marks every waiting room past its expiry as expired and
// returns how many were changed.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	codes, err := s.rdb.SMembers(ctx, keyWaiting()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list waiting rooms: %w", err)
	}
	now := s.clock.Now()
	n := 0
	for _, code := range codes {
		_, err := s.transition(ctx, code, func(r *Room) error {
			if r.Status != StatusWaiting || !r.Expired(now) {
				return errSkip
			}
			r.Status = StatusExpired
			return nil
		})
		switch {
		case err == nil:
			n++
		case errors.Is(err, errSkip):
		case errors.Is(err, ErrRoomNotFound):
			s.rdb.SRem(ctx, keyWaiting(), code)
		default:
			return n, err
		}
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("expired stale private rooms")
	}
	return n, nil
}

// errSkip aborts a transition without writing.
var errSkip = errors.New("skip")

// transition applies fn to the stored room inside an optimistic WATCH
// transaction and writes the result back. The waiting index follows the
// room's status.
func (s *Store) transition(ctx context.Context, code string, fn func(*Room) error) (*Room, error) {
	key := keyRoom(code)
	var out *Room

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		var r Room
		if err := json.Unmarshal(raw, &r); err != nil {
			return fmt.Errorf("failed to decode room: %w", err)
		}
		if err := fn(&r); err != nil {
			return err
		}
		updated, err := json.Marshal(&r)
		if err != nil {
			return err
		}
		ttl, err := tx.TTL(ctx, key).Result()
		if err != nil || ttl <= 0 {
			ttl = s.expiry + retention
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, ttl)
			if r.Status == StatusWaiting {
				pipe.SAdd(ctx, keyWaiting(), r.Code)
			} else {
				pipe.SRem(ctx, keyWaiting(), r.Code)
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = &r
		return nil
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrRoomUnavailable
}

// newCode returns codeLength characters from an alphabet without look-alike
// characters.
func newCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
