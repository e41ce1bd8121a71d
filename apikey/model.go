// Package apikey issues and validates opaque bearer credentials. Each key is
// stored as two digests: an unsalted SHA-256 fingerprint used only for
// indexed lookup, and a salted bcrypt hash that is authoritative for
// authorization. The raw secret is returned exactly once at issuance.
package apikey

import "time"

// Key is the persistent record for one API key.
type Key struct {
	ID         string
	Name       string
	OwnerID    string
	SecretHash []byte // bcrypt of the raw secret; authoritative
	LookupHash string // hex SHA-256 of the raw secret; index only
	Prefix     string // display-safe fragment of the raw secret
	LastUsedAt *time.Time
	ExpiresAt  *time.Time // nil means the key never expires
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Owner is the account a key belongs to, as far as validation cares.
type Owner struct {
	ID     string
	Email  string
	Role   string
	Active bool
}

// Identity is the outcome of a successful validation.
type Identity struct {
	OwnerID string
	Role    string
	Email   string
	Active  bool
}

// IssuedKey is handed back from Issue. RawSecret is never persisted in
// recoverable form and cannot be retrieved again.
type IssuedKey struct {
	ID        string
	Name      string
	Prefix    string
	RawSecret string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// KeyInfo is the listing view of a key; it carries no hash material.
type KeyInfo struct {
	ID         string
	Name       string
	Prefix     string
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
	CreatedAt  time.Time
}
