package apikey

import (
	"context"
	"sync"
	"time"
)

// Repository is the persistent-store boundary for key and owner records.
// Implementations must make FindValidByLookupHash an indexed lookup, not a
// scan-and-compare over every stored key.
type Repository interface {
	// CreateKey persists a new key record.
	CreateKey(ctx context.Context, key *Key) error

	// FindValidByLookupHash returns the key whose LookupHash matches and
	// whose ExpiresAt is nil or >= now. Returns (nil, nil) when absent.
	FindValidByLookupHash(ctx context.Context, lookupHash string, now time.Time) (*Key, error)

	// CountLiveByOwner counts the owner's keys that have not expired at now.
	CountLiveByOwner(ctx context.Context, ownerID string, now time.Time) (int, error)

	// ListByOwner returns the owner's keys without hash material.
	ListByOwner(ctx context.Context, ownerID string) ([]KeyInfo, error)

	// DeleteKey removes the key identified by (id, ownerID). Returns false
	// when no such pair exists; a key owned by someone else is "no such
	// pair", never a distinct signal.
	DeleteKey(ctx context.Context, id, ownerID string) (bool, error)

	// TouchLastUsed records a successful use of the key.
	TouchLastUsed(ctx context.Context, id string, at time.Time) error

	// FindOwner resolves the owning account. Returns (nil, nil) when absent.
	FindOwner(ctx context.Context, ownerID string) (*Owner, error)
}

// MemoryRepository is a Repository backed by process-local maps, used in
// tests and single-node bootstraps. The lookup-hash index keeps
// FindValidByLookupHash O(1), mirroring the database index in production.
type MemoryRepository struct {
	mu       sync.RWMutex
	keys     map[string]*Key // by id
	byLookup map[string]*Key // by lookup hash
	owners   map[string]*Owner
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		keys:     make(map[string]*Key),
		byLookup: make(map[string]*Key),
		owners:   make(map[string]*Owner),
	}
}

// PutOwner registers or replaces an owner account.
func (r *MemoryRepository) PutOwner(owner *Owner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *owner
	r.owners[owner.ID] = &copied
}

// CreateKey implements Repository.
func (r *MemoryRepository) CreateKey(ctx context.Context, key *Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *key
	r.keys[key.ID] = &copied
	r.byLookup[key.LookupHash] = &copied
	return nil
}

// FindValidByLookupHash implements Repository.
func (r *MemoryRepository) FindValidByLookupHash(ctx context.Context, lookupHash string, now time.Time) (*Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.byLookup[lookupHash]
	if !ok {
		return nil, nil
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(now) {
		return nil, nil
	}
	copied := *key
	return &copied, nil
}

// CountLiveByOwner implements Repository.
func (r *MemoryRepository) CountLiveByOwner(ctx context.Context, ownerID string, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, key := range r.keys {
		if key.OwnerID != ownerID {
			continue
		}
		if key.ExpiresAt != nil && key.ExpiresAt.Before(now) {
			continue
		}
		n++
	}
	return n, nil
}

// ListByOwner implements Repository.
func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]KeyInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var infos []KeyInfo
	for _, key := range r.keys {
		if key.OwnerID != ownerID {
			continue
		}
		infos = append(infos, KeyInfo{
			ID:         key.ID,
			Name:       key.Name,
			Prefix:     key.Prefix,
			LastUsedAt: key.LastUsedAt,
			ExpiresAt:  key.ExpiresAt,
			CreatedAt:  key.CreatedAt,
		})
	}
	return infos, nil
}

// DeleteKey implements Repository.
func (r *MemoryRepository) DeleteKey(ctx context.Context, id, ownerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[id]
	if !ok || key.OwnerID != ownerID {
		return false, nil
	}
	delete(r.keys, id)
	delete(r.byLookup, key.LookupHash)
	return true, nil
}

// TouchLastUsed implements Repository.
func (r *MemoryRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[id]
	if !ok {
		return nil
	}
	key.LastUsedAt = &at
	key.UpdatedAt = at
	return nil
}

// FindOwner implements Repository.
func (r *MemoryRepository) FindOwner(ctx context.Context, ownerID string) (*Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[ownerID]
	if !ok {
		return nil, nil
	}
	copied := *owner
	return &copied, nil
}
