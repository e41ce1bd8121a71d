package limiter

import "time"

// Storage modes reported by Stats.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Defaults for the background maintenance loops.
const (
	// DefaultProbeInterval is how often a degraded limiter re-pings the
	// remote store. Deliberately offset from typical keep-alive periods so
	// probes don't pile onto unrelated traffic to the same store.
	DefaultProbeInterval = 60 * time.Second

	// DefaultSweepInterval is how often expired local records are purged.
	DefaultSweepInterval = 60 * time.Second

	// DefaultPingTimeout bounds a single health probe.
	DefaultPingTimeout = 5 * time.Second
)

// throttlePrefix namespaces limiter counters in the shared store.
const throttlePrefix = "throttle:"
