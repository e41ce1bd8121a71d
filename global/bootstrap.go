// Package global holds the process-default instances of the edge-security
// components. Components are plain values; nothing forces their use through
// this package, and tests construct their own instances directly.
package global

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/supra126/open-short-url-sub003/apikey"
	"github.com/supra126/open-short-url-sub003/config"
	"github.com/supra126/open-short-url-sub003/kv"
	"github.com/supra126/open-short-url-sub003/limiter"
	"github.com/supra126/open-short-url-sub003/redlock"
	"github.com/supra126/open-short-url-sub003/task"
)

// Bootstrap constructs the component stack from cfg and installs it as the
// process defaults. Without a Redis address the limiter runs memory-only and
// locks fail closed, as documented on those components.
func Bootstrap(cfg *config.Config, repo apikey.Repository) {
	var store kv.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = kv.NewRedisStore(client)
		log.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("remote store configured")
	} else {
		log.Warn().Msg("no REDIS_ADDR configured: rate limiting is local-only and distributed locks are disabled")
	}

	var limiterOpts []limiter.Option
	if cfg.ProbeInterval > 0 {
		limiterOpts = append(limiterOpts, limiter.WithProbeInterval(cfg.ProbeInterval))
	}
	if cfg.SweepInterval > 0 {
		limiterOpts = append(limiterOpts, limiter.WithSweepInterval(cfg.SweepInterval))
	}
	if cfg.PingTimeout > 0 {
		limiterOpts = append(limiterOpts, limiter.WithPingTimeout(cfg.PingTimeout))
	}

	SetLimiter(limiter.New(store, limiterOpts...))
	SetLockManager(redlock.NewManager(store))
	SetAuthenticator(apikey.NewService(repo, task.NewRunner(),
		apikey.WithBcryptCost(cfg.BcryptCost),
		apikey.WithMaxKeysPerOwner(cfg.MaxKeysPerOwner),
	))
}
