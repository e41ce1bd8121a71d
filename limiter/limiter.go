// Package limiter provides hybrid request throttling: counters live in a
// shared remote store when one is reachable and degrade to a process-local
// map when it is not. Degradation is silent toward callers; a periodic
// health probe restores remote mode.
package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/supra126/open-short-url-sub003/kv"
)

// Result describes the state of a throttle key after one increment.
//
// IsBlocked is informational: the limiter marks a key as blocked once its
// hit count exceeds the limit, but never denies a request itself. Rejecting
// blocked traffic is the job of the middleware consuming this result.
type Result struct {
	TotalHits      int64
	ExpiresIn      time.Duration
	IsBlocked      bool
	BlockExpiresIn time.Duration
}

// Stats is a snapshot of the limiter's storage state.
type Stats struct {
	StorageMode string // StorageRedis or StorageMemory
	TrackedKeys int    // -1 when remote (unbounded, owned by the store)
}

// throttleRecord is the local fallback state for one key. Owned exclusively
// by the limiter; mutated only under mu.
type throttleRecord struct {
	totalHits    int64
	windowExpiry time.Time
	blocked      bool
	blockExpiry  time.Time
}

// HybridLimiter tracks per-key request counts with TTL windows.
//
// Construct independent instances per test; nothing here is process-global.
type HybridLimiter struct {
	store kv.Store // nil means memory-only forever

	usingRemote atomic.Bool

	mu      sync.Mutex
	records map[string]*throttleRecord

	probeInterval time.Duration
	sweepInterval time.Duration
	pingTimeout   time.Duration
	now           func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New creates a HybridLimiter. A nil store yields a memory-only limiter that
// never probes. With a store, reachability is probed once at startup (bounded
// by the ping timeout) and then periodically in the background.
func New(store kv.Store, opts ...Option) *HybridLimiter {
	l := &HybridLimiter{
		store:         store,
		records:       make(map[string]*throttleRecord),
		probeInterval: DefaultProbeInterval,
		sweepInterval: DefaultSweepInterval,
		pingTimeout:   DefaultPingTimeout,
		now:           time.Now,
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.store != nil {
		l.probeOnce()
		l.wg.Add(1)
		go l.probeLoop()
	} else {
		log.Info().Msg("no remote store configured, rate limiting is memory-only")
	}

	l.wg.Add(1)
	go l.sweepLoop()

	return l
}

// Stop cancels the background probe and sweep loops. Safe to call more than
// once.
func (l *HybridLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
	l.wg.Wait()
}

// Increment records one hit for key within a window of windowTTL.
//
// It never fails: a remote-store error flips the limiter to its local path
// for this and all subsequent calls until a health probe succeeds.
func (l *HybridLimiter) Increment(ctx context.Context, key string, windowTTL time.Duration, limit int64, blockDuration time.Duration) Result {
	if l.usingRemote.Load() {
		res, err := l.remoteIncrement(ctx, key, windowTTL, limit, blockDuration)
		if err == nil {
			return res
		}
		if l.usingRemote.Swap(false) {
			log.Warn().Err(err).Str("key", key).Msg("remote store error, falling back to in-memory rate limiting")
		}
	}
	return l.localIncrement(key, windowTTL, limit, blockDuration)
}

// Stats reports the current storage mode and, in memory mode, the number of
// tracked keys. TrackedKeys is -1 in remote mode: key expiry is owned by the
// store and the population is unknown here.
func (l *HybridLimiter) Stats() Stats {
	if l.usingRemote.Load() {
		return Stats{StorageMode: StorageRedis, TrackedKeys: -1}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{StorageMode: StorageMemory, TrackedKeys: len(l.records)}
}

// remoteIncrement increments the shared counter. The first hit in a window
// (counter == 1) arms the TTL; the store's expiry is then authoritative for
// window rollover.
func (l *HybridLimiter) remoteIncrement(ctx context.Context, key string, windowTTL time.Duration, limit int64, blockDuration time.Duration) (Result, error) {
	storeKey := throttlePrefix + key
	hits, err := l.store.Incr(ctx, storeKey)
	if err != nil {
		return Result{}, err
	}
	if hits == 1 {
		if _, err := l.store.Expire(ctx, storeKey, windowTTL); err != nil {
			return Result{}, err
		}
	}

	res := Result{TotalHits: hits, ExpiresIn: windowTTL}
	if limit > 0 && hits > limit {
		res.IsBlocked = true
		res.BlockExpiresIn = blockDuration
	}
	return res, nil
}

// localIncrement is the fallback path. All record mutations happen under mu
// in one step, so interleaved requests for the same key cannot lose updates.
func (l *HybridLimiter) localIncrement(key string, windowTTL time.Duration, limit int64, blockDuration time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[key]
	if !ok || now.After(rec.windowExpiry) {
		fresh := &throttleRecord{
			totalHits:    1,
			windowExpiry: now.Add(windowTTL),
		}
		// A block outlives the window that caused it.
		if ok && rec.blocked && now.Before(rec.blockExpiry) {
			fresh.blocked = true
			fresh.blockExpiry = rec.blockExpiry
		}
		l.records[key] = fresh
		rec = fresh
	} else {
		rec.totalHits++
	}

	if rec.blocked && !rec.blockExpiry.IsZero() && now.After(rec.blockExpiry) {
		rec.blocked = false
		rec.blockExpiry = time.Time{}
	}
	if limit > 0 && rec.totalHits > limit {
		rec.blocked = true
		if blockDuration > 0 && rec.blockExpiry.IsZero() {
			rec.blockExpiry = now.Add(blockDuration)
		}
	}

	res := Result{
		TotalHits: rec.totalHits,
		ExpiresIn: rec.windowExpiry.Sub(now),
		IsBlocked: rec.blocked,
	}
	if rec.blocked && !rec.blockExpiry.IsZero() {
		res.BlockExpiresIn = rec.blockExpiry.Sub(now)
	}
	return res
}

func (l *HybridLimiter) probeLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.probeOnce()
		}
	}
}

// probeOnce pings the remote store with a bounded timeout and updates the
// storage mode. Recovery is logged once per transition; repeated failures
// while already degraded stay at debug level to avoid log spam.
func (l *HybridLimiter) probeOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), l.pingTimeout)
	defer cancel()

	if err := l.store.Ping(ctx); err != nil {
		if l.usingRemote.Swap(false) {
			log.Warn().Err(err).Msg("remote store health probe failed, rate limiting degraded to memory")
		} else {
			log.Debug().Err(err).Msg("remote store still unreachable")
		}
		return
	}
	if !l.usingRemote.Swap(true) {
		log.Info().Msg("remote store reachable again, rate limiting restored to redis")
	}
}

func (l *HybridLimiter) sweepLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweepOnce()
		}
	}
}

// sweepOnce drops local records whose window has passed. It only does work
// while degraded; in remote mode the store's TTLs handle expiry natively.
func (l *HybridLimiter) sweepOnce() {
	if l.usingRemote.Load() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, rec := range l.records {
		if now.After(rec.windowExpiry) && (rec.blockExpiry.IsZero() || now.After(rec.blockExpiry)) {
			delete(l.records, key)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Int("remaining", len(l.records)).Msg("swept expired throttle records")
	}
}
