package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duel/go/internal/dbconfig"
)

func setupDatabase(ctx context.Context) (*sql.DB, error) {
	return dbconfig.NewConfigFromEnv().Open(ctx)
}

func setupRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("connected to redis")
	return rdb, nil
}
