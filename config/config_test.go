package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, name := range []string{
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"BCRYPT_COST", "MAX_API_KEYS_PER_USER",
		"THROTTLE_PROBE_INTERVAL_MS", "THROTTLE_SWEEP_INTERVAL_MS", "THROTTLE_PING_TIMEOUT_MS",
	} {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
	if cfg.BcryptCost != 10 || cfg.MaxKeysPerOwner != 10 {
		t.Fatalf("defaults: cost=%d max=%d", cfg.BcryptCost, cfg.MaxKeysPerOwner)
	}
	if cfg.ProbeInterval != 0 || cfg.SweepInterval != 0 || cfg.PingTimeout != 0 {
		t.Fatal("interval defaults should be zero (component defaults apply)")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("MAX_API_KEYS_PER_USER", "5")
	t.Setenv("THROTTLE_PROBE_INTERVAL_MS", "15000")
	t.Setenv("THROTTLE_SWEEP_INTERVAL_MS", "")
	t.Setenv("THROTTLE_PING_TIMEOUT_MS", "2500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RedisAddr != "redis.internal:6379" || cfg.RedisPassword != "hunter2" || cfg.RedisDB != 3 {
		t.Fatalf("redis settings: %+v", cfg)
	}
	if cfg.BcryptCost != 12 || cfg.MaxKeysPerOwner != 5 {
		t.Fatalf("cost=%d max=%d", cfg.BcryptCost, cfg.MaxKeysPerOwner)
	}
	if cfg.ProbeInterval != 15*time.Second || cfg.PingTimeout != 2500*time.Millisecond {
		t.Fatalf("intervals: %+v", cfg)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("BCRYPT_COST", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid BCRYPT_COST")
	}

	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("THROTTLE_PROBE_INTERVAL_MS", "-5")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative interval")
	}
}
