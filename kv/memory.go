package kv

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memEntry struct {
	value    string
	expireAt time.Time // zero means no expiry
}

// MemoryStore is a Store backed by a process-local map. It honors TTLs
// lazily on access and supports health injection so tests can simulate a
// remote store going down mid-sequence.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	healthy bool
	now     func() time.Time
}

// NewMemoryStore creates an empty, healthy MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memEntry),
		healthy: true,
		now:     time.Now,
	}
}

// SetHealthy toggles simulated reachability. While unhealthy every operation
// returns ErrUnavailable.
func (s *MemoryStore) SetHealthy(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = v
}

// Len reports the number of live (non-expired) entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for _, e := range s.entries {
		if e.expireAt.IsZero() || now.Before(e.expireAt) {
			n++
		}
	}
	return n
}

// live fetches an entry, dropping it if expired. Caller must hold mu.
func (s *MemoryStore) live(key string) (memEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expireAt.IsZero() && !s.now().Before(e.expireAt) {
		delete(s.entries, key)
		return memEntry{}, false
	}
	return e, true
}

// Incr implements Store.
func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.healthy {
		return 0, ErrUnavailable
	}
	e, ok := s.live(key)
	var n int64
	if ok {
		prev, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = prev + 1
	} else {
		n = 1
		e = memEntry{}
	}
	e.value = strconv.FormatInt(n, 10)
	s.entries[key] = e
	return n, nil
}

// Expire implements Store.
func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.healthy {
		return false, ErrUnavailable
	}
	e, ok := s.live(key)
	if !ok {
		return false, nil
	}
	e.expireAt = s.now().Add(ttl)
	s.entries[key] = e
	return true, nil
}

// SetNX implements Store.
func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.healthy {
		return false, ErrUnavailable
	}
	if _, ok := s.live(key); ok {
		return false, nil
	}
	e := memEntry{value: value}
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return true, nil
}

// CompareAndDelete implements Store. The mutex makes the check-and-delete a
// single atomic step, mirroring the Lua script on the Redis side.
func (s *MemoryStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.healthy {
		return false, ErrUnavailable
	}
	e, ok := s.live(key)
	if !ok || e.value != value {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.healthy {
		return "", false, ErrUnavailable
	}
	e, ok := s.live(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.healthy {
		return ErrUnavailable
	}
	return nil
}
