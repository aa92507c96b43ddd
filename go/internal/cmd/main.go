package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := setupDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close()

	rdb, err := setupRedis(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	services := setupServices(cfg, database, rdb)
	server := setupServer(cfg, services)

	orchDone := make(chan error, 1)
	go func() {
		orchDone <- services.Orchestrator.Run(ctx)
	}()
	go runRoomCleanup(ctx, services, cfg.Rooms.CleanupInterval)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting game server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("server failed")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	services.Gateway.Shutdown()
	if err := <-orchDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("orchestrator stopped with error")
	}
	log.Info().Msg("graceful shutdown complete")
}
