package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/duel/go/internal/config"
)

func setupServer(cfg *config.Config, services *Services) *http.Server {
	r := mux.NewRouter()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	services.Users.RegisterRoutes(r)
	services.Gateway.RegisterRoutes(r)

	handler := c.Handler(r)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// runRoomCleanup expires stale waiting rooms until ctx is done.
func runRoomCleanup(ctx context.Context, services *Services, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := services.Rooms.CleanupExpired(ctx); err != nil {
				log.Error().Err(err).Msg("room cleanup failed")
			}
		}
	}
}
