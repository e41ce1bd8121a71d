// Package redlock provides named mutual-exclusion locks backed by a shared
// remote store. Locks carry an opaque token; release is an atomic
// compare-and-delete on that token, so a holder whose TTL expired can never
// delete a lock re-acquired by someone else.
//
// There is no in-memory substitute: a local lock cannot provide cross-process
// exclusion, so without a reachable store every acquisition fails closed and
// callers must rely on their own fallback (e.g. optimistic concurrency).
package redlock

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/supra126/open-short-url-sub003/kv"
)

const (
	// DefaultTTL is the lock expiry used when the caller passes ttl <= 0.
	DefaultTTL = 5 * time.Second
	// DefaultRetryDelay is the base delay between acquisition attempts.
	DefaultRetryDelay = 100 * time.Millisecond
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3

	// maxJitter is added (uniformly random) to each retry delay so
	// contending callers don't retry in lockstep.
	maxJitter = 50 * time.Millisecond

	lockPrefix = "lock:"
)

// ErrLockNotAcquired is returned by WithLock when acquisition fails and the
// caller asked for an error instead of a quiet miss.
var ErrLockNotAcquired = errors.New("redlock: lock not acquired")

// LockResult reports one acquisition attempt. LockID is empty unless
// Acquired is true; it is the only credential that permits release.
type LockResult struct {
	Acquired bool
	LockID   string
}

// WithLockOptions tunes WithLock acquisition behavior.
//
// MaxRetries zero means DefaultMaxRetries; a negative value disables
// retries. RetryDelay zero means DefaultRetryDelay. ErrOnFailure turns a
// failed acquisition into ErrLockNotAcquired instead of a quiet return.
type WithLockOptions struct {
	MaxRetries   int
	RetryDelay   time.Duration
	ErrOnFailure bool
}

// Manager acquires and releases distributed locks. A nil store is allowed
// and makes every acquisition fail closed.
type Manager struct {
	store kv.Store
}

// NewManager creates a lock manager on top of the given store.
func NewManager(store kv.Store) *Manager {
	return &Manager{store: store}
}

// Acquire attempts to take the lock for resource with the given TTL.
// Contention and store unavailability both come back as Acquired == false;
// neither is an error. ttl <= 0 falls back to DefaultTTL.
func (m *Manager) Acquire(ctx context.Context, resource string, ttl time.Duration) LockResult {
	if m.store == nil {
		log.Debug().Str("resource", resource).Msg("lock acquisition without a store, failing closed")
		return LockResult{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	lockID := newLockID()
	ok, err := m.store.SetNX(ctx, lockPrefix+resource, lockID, ttl)
	if err != nil {
		log.Warn().Err(err).Str("resource", resource).Msg("lock acquisition failed, store unreachable")
		return LockResult{}
	}
	if !ok {
		log.Debug().Str("resource", resource).Msg("lock already held")
		return LockResult{}
	}

	log.Debug().Str("resource", resource).Str("lock_id", lockID).Dur("ttl", ttl).Msg("lock acquired")
	return LockResult{Acquired: true, LockID: lockID}
}

// Release frees the lock for resource iff the stored token still equals
// lockID. Returns false for an empty lockID, an unreachable store, or a
// token mismatch (the lock expired and was taken over by another holder).
func (m *Manager) Release(ctx context.Context, resource, lockID string) bool {
	if lockID == "" || m.store == nil {
		return false
	}

	ok, err := m.store.CompareAndDelete(ctx, lockPrefix+resource, lockID)
	if err != nil {
		log.Warn().Err(err).Str("resource", resource).Msg("lock release failed, store unreachable")
		return false
	}
	if !ok {
		log.Warn().Str("resource", resource).Str("lock_id", lockID).Msg("lock release skipped, token no longer matches")
		return false
	}

	log.Debug().Str("resource", resource).Str("lock_id", lockID).Msg("lock released")
	return true
}

// AcquireWithRetry attempts Acquire up to maxRetries+1 times, sleeping
// retryDelay plus up to 50ms of jitter between attempts (never after the
// last). maxRetries < 0 and retryDelay <= 0 select the defaults. Context
// cancellation cuts the wait short and reports not acquired.
func (m *Manager) AcquireWithRetry(ctx context.Context, resource string, ttl time.Duration, maxRetries int, retryDelay time.Duration) LockResult {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	attempts := maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		res := m.Acquire(ctx, resource, ttl)
		if res.Acquired {
			if attempt > 1 {
				log.Debug().Str("resource", resource).Int("attempt", attempt).Msg("lock acquired after retrying")
			}
			return res
		}
		if attempt == attempts {
			break
		}

		delay := retryDelay + time.Duration(rand.Int63n(int64(maxJitter)))
		select {
		case <-ctx.Done():
			log.Debug().Err(ctx.Err()).Str("resource", resource).Int("attempt", attempt).Msg("context done while waiting to retry lock")
			return LockResult{}
		case <-time.After(delay):
		}
	}

	log.Debug().Str("resource", resource).Int("attempts", attempts).Msg("lock not acquired after all attempts")
	return LockResult{}
}

// WithLock runs section under the lock for resource. Release is guaranteed
// on every exit path, including a panicking section. The returned bool
// reports whether the lock was acquired; when it is false the section never
// ran and err is nil unless opts.ErrOnFailure was set.
func (m *Manager) WithLock(ctx context.Context, resource string, ttl time.Duration, opts WithLockOptions, section func(ctx context.Context) error) (bool, error) {
	maxRetries := opts.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = DefaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	res := m.AcquireWithRetry(ctx, resource, ttl, maxRetries, opts.RetryDelay)
	if !res.Acquired {
		if opts.ErrOnFailure {
			return false, ErrLockNotAcquired
		}
		return false, nil
	}

	// Release must proceed even when ctx was cancelled inside the section.
	defer m.Release(context.WithoutCancel(ctx), resource, res.LockID)

	return true, section(ctx)
}

// IsAvailable reports whether the underlying store is reachable.
func (m *Manager) IsAvailable(ctx context.Context) bool {
	if m.store == nil {
		return false
	}
	return m.store.Ping(ctx) == nil
}

// newLockID builds a debuggable, unique token: base-36 timestamp, random
// base-36 suffix, base-36 pid. It is never parsed, only compared.
func newLockID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := strconv.FormatUint(rand.Uint64(), 36)
	pid := strconv.FormatInt(int64(os.Getpid()), 36)
	return ts + "-" + suffix + "-" + pid
}
