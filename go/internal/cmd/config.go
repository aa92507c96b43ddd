package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duel/go/internal/config"
)

// loadConfig reads .env, the YAML config and the environment, and sets up
// the global logger.
func loadConfig() *config.Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	lvl, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.Server.LogLevel).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return cfg
}
