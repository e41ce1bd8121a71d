// Package config sources the edge-security settings from the environment.
// An optional .env file is honored for local development; real deployments
// set plain environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the recognized settings.
type Config struct {
	// RedisAddr is the remote store address. Empty means no remote store:
	// the limiter runs memory-only and the lock manager fails closed.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// BcryptCost is the slow-hash cost factor for API key secrets.
	BcryptCost int
	// MaxKeysPerOwner caps live API keys per account.
	MaxKeysPerOwner int

	// ProbeInterval, SweepInterval and PingTimeout tune the limiter's
	// background maintenance. Zero keeps the limiter defaults.
	ProbeInterval time.Duration
	SweepInterval time.Duration
	PingTimeout   time.Duration
}

// Default returns a Config with the documented defaults and no remote store.
func Default() *Config {
	return &Config{
		BcryptCost:      10,
		MaxKeysPerOwner: 10,
	}
}

// Load builds a Config from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := Default()
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	var err error
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = intEnv("BCRYPT_COST", cfg.BcryptCost); err != nil {
		return nil, err
	}
	if cfg.MaxKeysPerOwner, err = intEnv("MAX_API_KEYS_PER_USER", cfg.MaxKeysPerOwner); err != nil {
		return nil, err
	}
	if cfg.ProbeInterval, err = msEnv("THROTTLE_PROBE_INTERVAL_MS"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = msEnv("THROTTLE_SWEEP_INTERVAL_MS"); err != nil {
		return nil, err
	}
	if cfg.PingTimeout, err = msEnv("THROTTLE_PING_TIMEOUT_MS"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func intEnv(name string, fallback int) (int, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid integer %q", name, value)
	}
	return parsed, nil
}

func msEnv(name string) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("config: %s: invalid millisecond value %q", name, value)
	}
	return time.Duration(parsed) * time.Millisecond, nil
}
