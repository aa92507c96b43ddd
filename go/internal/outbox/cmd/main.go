package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duel/go/internal/config"
	"github.com/mcdev12/duel/go/internal/dbconfig"
	"github.com/mcdev12/duel/go/internal/outbox"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.Server.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCfg := dbconfig.NewConfigFromEnv()
	database, err := dbCfg.Open(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	var (
		publisher outbox.EventPublisher = outbox.LogPublisher{}
		bus       outbox.BusConn
	)
	if cfg.NATS.URL != "-" {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATS.URL
		js, err := outbox.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("create JetStream publisher")
		}
		defer func() {
			if err := js.Close(); err != nil {
				log.Error().Err(err).Msg("close publisher")
			}
		}()
		publisher, bus = js, js
	} else {
		log.Warn().Msg("NATS disabled, events are only logged")
	}

	repo := outbox.NewRepository(database)
	worker := outbox.NewWorker(repo, publisher, cfg.Outbox, clockwork.NewRealClock())

	ltCfg := outbox.DefaultListenerConfig()
	ltCfg.DatabaseURL = dbCfg.DSN()
	listener, err := outbox.NewListener(ltCfg, worker)
	if err != nil {
		log.Fatal().Err(err).Msg("create outbox listener")
	}

	health := &http.Server{
		Addr:              ":" + getEnv("HEALTH_PORT", "8081"),
		Handler:           outbox.NewHealthChecker(worker, repo, bus, 2*time.Minute),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server failed")
		}
	}()

	if err := worker.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start outbox worker")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("starting outbox listener")
		errCh <- listener.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("listener exited unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := health.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server shutdown")
	}
	if err := worker.Stop(); err != nil {
		log.Error().Err(err).Msg("stop outbox worker")
	}
	log.Info().Msg("graceful shutdown complete")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
