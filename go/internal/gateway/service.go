package gateway

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duel/go/internal/events"
	"github.com/mcdev12/duel/go/internal/matchmaking"
	"github.com/mcdev12/duel/go/internal/orchestrator"
	"github.com/mcdev12/duel/go/internal/rooms"
	"github.com/mcdev12/duel/go/internal/users"
)

// ProfileStore is what the gateway needs from the users app
type ProfileStore interface {
	FindOrCreate(ctx context.Context, visitorID, username string) (*users.Profile, error)
	GetProfile(ctx context.Context, visitorID string) (*users.Profile, error)
	UpdateProfile(ctx context.Context, visitorID string, req users.UpdateProfileRequest) (*users.Profile, error)
}

// RoomDirectory is what the gateway needs from the private room store
type RoomDirectory interface {
	Create(ctx context.Context, host rooms.Participant) (*rooms.Room, error)
	Join(ctx context.Context, code string, guest rooms.Participant) (*rooms.Room, error)
	Cancel(ctx context.Context, code, hostID string) (bool, error)
	Get(ctx context.Context, code string) (*rooms.Room, error)
	SetMatchID(ctx context.Context, code, matchID string) error
	Reopen(ctx context.Context, code string) error
}

// MatchRunner is what the gateway needs from the orchestrator
type MatchRunner interface {
	CreateMatch(ctx context.Context, p orchestrator.Pairing) (string, error)
	PlayCard(ctx context.Context, matchID, playerID, cardID, suit string) error
	Decide(ctx context.Context, matchID, playerID string, counter bool, cardID string) error
	DrawCard(ctx context.Context, matchID, playerID string) error
	BindHandle(handle, playerID string)
	Disconnect(ctx context.Context, handle string)
	InLiveMatch(playerID string) bool
	ActiveMatches() int
	Summaries() []orchestrator.MatchSummary
}

// Config holds configuration for the gateway service
type Config struct {
	FrontendBaseURL string
	RequestTimeout  time.Duration
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		FrontendBaseURL: "http://localhost:3000",
		RequestTimeout:  5 * time.Second,
	}
}

// Service connects websocket clients to matchmaking, private rooms and the
// orchestrator.
type Service struct {
	config   Config
	conns    *ConnectionManager
	profiles ProfileStore
	rooms    RoomDirectory
	matches  MatchRunner
	queue    *matchmaking.Queue

	mu sync.Mutex
	// waitingRooms maps a host's handle to the room it is waiting in.
	waitingRooms map[string]string
}

// NewService creates the gateway and attaches it to the connection manager.
func NewService(config Config, conns *ConnectionManager, profiles ProfileStore, roomDir RoomDirectory, matches MatchRunner, queue *matchmaking.Queue) *Service {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultConfig().RequestTimeout
	}
	s := &Service{
		config:       config,
		conns:        conns,
		profiles:     profiles,
		rooms:        roomDir,
		matches:      matches,
		queue:        queue,
		waitingRooms: make(map[string]string),
	}
	conns.onMessage = s.handleMessage
	conns.onClose = s.handleClose
	return s
}

// RegisterRoutes registers the websocket endpoint and the gateway's HTTP
// routes.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/room/{code}", s.handleGetRoom).Methods(http.MethodGet)
	r.HandleFunc("/api/matches/active", s.handleActiveMatches).Methods(http.MethodGet)
	log.Info().Msg("gateway routes registered")
}

// Shutdown closes every websocket connection.
func (s *Service) Shutdown() {
	s.conns.CloseAll()
}

func (s *Service) shareURL(code string) string {
	return strings.TrimRight(s.config.FrontendBaseURL, "/") + "/join/" + code
}

func (s *Service) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.config.RequestTimeout)
}

// handleClose cleans up after a closed connection: the player leaves the
// queue, a room they were hosting is cancelled and the orchestrator is told
// the handle is gone.
func (s *Service) handleClose(c *Connection) {
	ctx, cancel := s.requestContext()
	defer cancel()

	s.queue.RemoveByHandle(c.Handle)

	s.mu.Lock()
	code, hosting := s.waitingRooms[c.Handle]
	delete(s.waitingRooms, c.Handle)
	s.mu.Unlock()
	if hosting {
		if _, err := s.rooms.Cancel(ctx, code, c.PlayerID()); err != nil {
			log.Error().Err(err).Str("room_code", code).Msg("failed to cancel room of disconnected host")
		}
	}

	s.matches.Disconnect(ctx, c.Handle)
}

// RoomFinisher marks a private room finished when its match ends.
type RoomFinisher struct {
	Rooms interface {
		Finish(ctx context.Context, code string) error
	}
}

func (f RoomFinisher) RecordMatchStarted(context.Context, events.MatchStartedPayload) error {
	return nil
}

func (f RoomFinisher) RecordRoundFinished(context.Context, events.RoundFinishedPayload) error {
	return nil
}

func (f RoomFinisher) RecordMatchFinished(ctx context.Context, p events.MatchFinishedPayload) error {
	if p.RoomCode == "" {
		return nil
	}
	return f.Rooms.Finish(ctx, p.RoomCode)
}
