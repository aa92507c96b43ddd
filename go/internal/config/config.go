package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/duel/go/internal/orchestrator"
	"github.com/mcdev12/duel/go/internal/outbox"
	"github.com/mcdev12/duel/go/internal/rooms"
)

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "config.yaml"

type ServerConfig struct {
	Port            string        `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	FrontendBaseURL string        `yaml:"frontend_base_url"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

type RoomsConfig struct {
	Expiry          time.Duration `yaml:"expiry"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

// Config is the full runtime configuration of the binaries.
type Config struct {
	Server ServerConfig        `yaml:"server"`
	Game   orchestrator.Config `yaml:"game"`
	Rooms  RoomsConfig         `yaml:"rooms"`
	Redis  RedisConfig         `yaml:"redis"`
	NATS   NATSConfig          `yaml:"nats"`
	Outbox outbox.Config       `yaml:"outbox"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			AllowedOrigins:  []string{"*"},
			FrontendBaseURL: "http://localhost:3000",
			ShutdownTimeout: 10 * time.Second,
			LogLevel:        "info",
		},
		Game: orchestrator.DefaultConfig(),
		Rooms: RoomsConfig{
			Expiry:          rooms.DefaultExpiry,
			CleanupInterval: 5 * time.Minute,
		},
		Redis:  RedisConfig{URL: "redis://localhost:6379/0"},
		NATS:   NATSConfig{URL: "nats://127.0.0.1:4222"},
		Outbox: outbox.DefaultConfig(),
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads the file named by CONFIG_PATH.
func LoadFromEnv() (*Config, error) {
	return Load(getEnv("CONFIG_PATH", DefaultPath))
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.FrontendBaseURL = getEnv("FRONTEND_BASE_URL", c.Server.FrontendBaseURL)
	c.Server.LogLevel = getEnv("LOG_LEVEL", c.Server.LogLevel)
	if origin := os.Getenv("ALLOWED_ORIGIN"); origin != "" {
		c.Server.AllowedOrigins = strings.Split(origin, ",")
	}
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)

	c.Game.Rules.TurnTimeout = getEnvAsDuration("TURN_TIMEOUT", c.Game.Rules.TurnTimeout)
	c.Game.RoundBreak = getEnvAsDuration("ROUND_BREAK", c.Game.RoundBreak)
	c.Game.NumWorkers = getEnvAsInt("NUM_WORKERS", c.Game.NumWorkers)
	c.Rooms.Expiry = getEnvAsDuration("ROOM_EXPIRY", c.Rooms.Expiry)
	c.Outbox.PollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", c.Outbox.PollInterval)
}

// Validate rejects timings the engine cannot run with.
func (c *Config) Validate() error {
	r := c.Game.Rules
	switch {
	case r.TurnTimeout <= 0:
		return fmt.Errorf("game.turn_timeout must be positive")
	case r.BlockWindow <= 0 || r.ForcedDrawWindow <= 0:
		return fmt.Errorf("game counter windows must be positive")
	case r.TargetScore < 1:
		return fmt.Errorf("game.target_score must be at least 1")
	case c.Game.NumWorkers < 1:
		return fmt.Errorf("game.workers must be at least 1")
	case c.Rooms.Expiry <= 0:
		return fmt.Errorf("rooms.expiry must be positive")
	case c.Rooms.CleanupInterval <= 0:
		return fmt.Errorf("rooms.cleanup_interval must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
