package main

import (
	"database/sql"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/mcdev12/duel/go/internal/config"
	"github.com/mcdev12/duel/go/internal/gateway"
	"github.com/mcdev12/duel/go/internal/matchmaking"
	"github.com/mcdev12/duel/go/internal/orchestrator"
	"github.com/mcdev12/duel/go/internal/rooms"
	"github.com/mcdev12/duel/go/internal/users"
)

type Services struct {
	Users        *users.Service
	Rooms        *rooms.Store
	Orchestrator *orchestrator.Orchestrator
	Gateway      *gateway.Service
}

func setupServices(cfg *config.Config, database *sql.DB, rdb *redis.Client) *Services {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer

	// Profiles and stats
	userRepo := users.NewRepository(database)
	userApp := users.NewApp(userRepo)
	userService := users.NewService(userApp)

	// Private rooms
	roomStore := rooms.NewStore(rdb, rooms.WithExpiry(cfg.Rooms.Expiry))

	// Connections deliver the orchestrator's messages, so they exist first.
	conns := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	recorder := orchestrator.MultiRecorder(userApp, gateway.RoomFinisher{Rooms: roomStore})
	orch := orchestrator.NewOrchestrator(cfg.Game, conns, recorder)

	gw := gateway.NewService(
		gateway.Config{FrontendBaseURL: cfg.Server.FrontendBaseURL},
		conns,
		userApp,
		roomStore,
		orch,
		matchmaking.NewQueue(clockwork.NewRealClock()),
	)

	return &Services{
		Users:        userService,
		Rooms:        roomStore,
		Orchestrator: orch,
		Gateway:      gw,
	}
}
