// Package meta carries request-scoped metadata through a context.Context:
// the authenticated identity resolved from an API key plus the attributes
// the throttling layer keys on (client address, route).
package meta

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/supra126/open-short-url-sub003/apikey"
)

// metadataKey is the private context key type; a private type prevents
// collisions with other packages' context values.
type metadataKey struct{}

// Metadata holds the request attributes. Safe for concurrent use.
type Metadata struct {
	mu       sync.RWMutex
	identity *apikey.Identity
	clientIP string
	route    string
}

// New creates an empty Metadata.
func New() *Metadata {
	return &Metadata{}
}

// SetIdentity records the authenticated identity.
func (m *Metadata) SetIdentity(id *apikey.Identity) {
	if m == nil {
		log.Error().Msg("attempted to set identity on nil metadata")
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = id
}

// Identity returns the authenticated identity, or nil for anonymous
// requests.
func (m *Metadata) Identity() *apikey.Identity {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

// SetClientIP records the caller's network address.
func (m *Metadata) SetClientIP(ip string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientIP = ip
}

// ClientIP returns the caller's network address, or "".
func (m *Metadata) ClientIP() string {
	if m == nil {
		return ""
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clientIP
}

// SetRoute records the matched route or method name.
func (m *Metadata) SetRoute(route string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.route = route
}

// Route returns the matched route or method name, or "".
func (m *Metadata) Route() string {
	if m == nil {
		return ""
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.route
}

// ThrottleKey derives the rate-limit key for this request: the owner id for
// authenticated traffic, the client address otherwise, qualified by route.
func (m *Metadata) ThrottleKey() string {
	if m == nil {
		return ""
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	subject := m.clientIP
	if m.identity != nil {
		subject = "owner:" + m.identity.OwnerID
	}
	if m.route == "" {
		return subject
	}
	return subject + "|" + m.route
}

// WithContext returns a context carrying m.
func (m *Metadata) WithContext(ctx context.Context) context.Context {
	if ctx == nil {
		log.Error().Msg("attempted to attach metadata to a nil context, using background context")
		ctx = context.Background()
	}
	if m == nil {
		return ctx
	}
	return context.WithValue(ctx, metadataKey{}, m)
}

// FromContext extracts the Metadata from ctx. A context without metadata
// yields a fresh empty instance so callers never need a nil check.
func FromContext(ctx context.Context) *Metadata {
	if ctx == nil {
		return New()
	}
	if md, ok := ctx.Value(metadataKey{}).(*Metadata); ok {
		return md
	}
	return New()
}

// Identity is shorthand for FromContext(ctx).Identity().
func Identity(ctx context.Context) *apikey.Identity {
	return FromContext(ctx).Identity()
}
