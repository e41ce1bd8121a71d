package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/supra126/open-short-url-sub003/task"
)

const (
	// DefaultBcryptCost is the slow-hash cost factor.
	DefaultBcryptCost = 10
	// DefaultMaxKeysPerOwner caps live keys per account.
	DefaultMaxKeysPerOwner = 10

	secretPrefix     = "osu_"
	secretBytes      = 32
	displayPrefixLen = 12
)

var (
	// ErrQuotaExceeded is returned by Issue when the owner already holds the
	// maximum number of live keys. Unlike validation failures this is
	// actionable and reported distinctly.
	ErrQuotaExceeded = errors.New("apikey: live key quota exceeded")

	// ErrKeyNotFound is returned for delete targets that don't exist for the
	// calling owner. A key owned by someone else reports the same error, so
	// existence is never confirmed to non-owners.
	ErrKeyNotFound = errors.New("apikey: key not found")
)

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost sets the slow-hash cost factor. Out-of-range values keep
// the default.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// WithMaxKeysPerOwner sets the live-key cap. Values <= 0 keep the default.
func WithMaxKeysPerOwner(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxKeys = n
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service issues and validates API keys against a Repository.
type Service struct {
	repo    Repository
	tasks   *task.Runner
	cost    int
	maxKeys int
	now     func() time.Time
}

// NewService creates a Service. tasks may be nil, in which case lastUsedAt
// bookkeeping runs on its own detached runner.
func NewService(repo Repository, tasks *task.Runner, opts ...Option) *Service {
	if tasks == nil {
		tasks = task.NewRunner()
	}
	s := &Service{
		repo:    repo,
		tasks:   tasks,
		cost:    DefaultBcryptCost,
		maxKeys: DefaultMaxKeysPerOwner,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a new key for ownerID and returns the raw secret exactly
// once. Fails with ErrQuotaExceeded when the owner already holds the
// configured maximum of live keys.
func (s *Service) Issue(ctx context.Context, ownerID, name string, expiresAt *time.Time) (*IssuedKey, error) {
	now := s.now()

	count, err := s.repo.CountLiveByOwner(ctx, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("apikey: counting keys for owner %s: %w", ownerID, err)
	}
	if count >= s.maxKeys {
		return nil, ErrQuotaExceeded
	}

	rawSecret, err := newSecret()
	if err != nil {
		return nil, fmt.Errorf("apikey: generating secret: %w", err)
	}
	secretHash, err := bcrypt.GenerateFromPassword([]byte(rawSecret), s.cost)
	if err != nil {
		return nil, fmt.Errorf("apikey: hashing secret: %w", err)
	}

	key := &Key{
		ID:         uuid.NewString(),
		Name:       name,
		OwnerID:    ownerID,
		SecretHash: secretHash,
		LookupHash: lookupHash(rawSecret),
		Prefix:     rawSecret[:displayPrefixLen] + "...",
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateKey(ctx, key); err != nil {
		return nil, fmt.Errorf("apikey: persisting key: %w", err)
	}

	log.Info().Str("key_id", key.ID).Str("owner_id", ownerID).Str("prefix", key.Prefix).Msg("api key issued")
	return &IssuedKey{
		ID:        key.ID,
		Name:      key.Name,
		Prefix:    key.Prefix,
		RawSecret: rawSecret,
		ExpiresAt: key.ExpiresAt,
		CreatedAt: key.CreatedAt,
	}, nil
}

// Validate resolves rawSecret to an identity, or nil for any failure:
// unknown, expired, tampered, inactive owner, or a store error. The reasons
// deliberately collapse into one outcome so a caller can't probe which check
// failed. A successful validation touches lastUsedAt as a detached task.
func (s *Service) Validate(ctx context.Context, rawSecret string) *Identity {
	if rawSecret == "" {
		return nil
	}
	now := s.now()

	// Stage one: indexed fast-hash lookup with the expiry filter applied.
	key, err := s.repo.FindValidByLookupHash(ctx, lookupHash(rawSecret), now)
	if err != nil {
		log.Warn().Err(err).Msg("api key lookup failed")
		return nil
	}
	if key == nil {
		return nil
	}

	// Stage two: the slow salted compare is authoritative. The fast hash
	// only located the record; it proves nothing on its own.
	if err := bcrypt.CompareHashAndPassword(key.SecretHash, []byte(rawSecret)); err != nil {
		log.Debug().Str("key_id", key.ID).Msg("api key secret mismatch")
		return nil
	}

	owner, err := s.repo.FindOwner(ctx, key.OwnerID)
	if err != nil {
		log.Warn().Err(err).Str("key_id", key.ID).Msg("owner lookup failed")
		return nil
	}
	if owner == nil || !owner.Active {
		log.Debug().Str("key_id", key.ID).Str("owner_id", key.OwnerID).Msg("api key rejected, owner missing or inactive")
		return nil
	}

	keyID := key.ID
	s.tasks.Go("apikey.touch-last-used", func() error {
		return s.repo.TouchLastUsed(context.Background(), keyID, now)
	})

	return &Identity{
		OwnerID: owner.ID,
		Role:    owner.Role,
		Email:   owner.Email,
		Active:  owner.Active,
	}
}

// Delete removes the key identified by (id, ownerID). A key that does not
// exist for this owner yields ErrKeyNotFound, whether or not it exists for
// someone else.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	ok, err := s.repo.DeleteKey(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("apikey: deleting key %s: %w", id, err)
	}
	if !ok {
		return ErrKeyNotFound
	}
	log.Info().Str("key_id", id).Str("owner_id", ownerID).Msg("api key deleted")
	return nil
}

// List returns the owner's keys without any hash material.
func (s *Service) List(ctx context.Context, ownerID string) ([]KeyInfo, error) {
	infos, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("apikey: listing keys for owner %s: %w", ownerID, err)
	}
	return infos, nil
}

// newSecret produces the raw credential: a service prefix plus 32 random
// bytes rendered as hex.
func newSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return secretPrefix + hex.EncodeToString(buf), nil
}

// lookupHash is the deterministic fast digest used only to index records.
func lookupHash(rawSecret string) string {
	sum := sha256.Sum256([]byte(rawSecret))
	return hex.EncodeToString(sum[:])
}
