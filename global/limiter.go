package global

import (
	"sync/atomic"

	"github.com/supra126/open-short-url-sub003/limiter"
)

func defaultLimiter() *atomic.Value {
	v := &atomic.Value{}
	// Memory-only until Bootstrap wires a remote store.
	v.Store(limiter.New(nil))
	return v
}

var globalLimiter = defaultLimiter()

// SetLimiter sets the process-default rate limiter.
func SetLimiter(l *limiter.HybridLimiter) {
	globalLimiter.Store(l)
}

// GetLimiter retrieves the process-default rate limiter.
func GetLimiter() *limiter.HybridLimiter {
	return globalLimiter.Load().(*limiter.HybridLimiter)
}
