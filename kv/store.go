// Package kv defines the key-value store boundary shared by the rate limiter
// and the distributed lock manager. It exposes only the handful of primitives
// those components rely on, so the remote cache can be swapped for an
// in-process store in tests or single-node deployments.
package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable is returned when the underlying store cannot be reached.
	ErrUnavailable = errors.New("kv: store unavailable")
)

// Store is the contract the edge-security components consume.
// All operations are context-bound; none of them blocks an OS thread.
type Store interface {
	// Incr atomically increments the integer at key and returns the new value.
	// A missing key counts as zero.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets a TTL on key. Returns false if the key does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// SetNX stores value under key with the given TTL only when the key is
	// absent. Returns true when the value was stored.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// CompareAndDelete deletes key only if its current value equals value,
	// as a single atomic step. Returns true when the deletion occurred.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)

	// Get returns the string value at key. The second return is false when
	// the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Ping reports reachability of the store.
	Ping(ctx context.Context) error
}
