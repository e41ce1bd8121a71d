package global

import (
	"sync/atomic"

	"github.com/supra126/open-short-url-sub003/redlock"
)

func defaultLockManager() *atomic.Value {
	v := &atomic.Value{}
	// No store: every acquisition fails closed until Bootstrap runs.
	v.Store(redlock.NewManager(nil))
	return v
}

var globalLockManager = defaultLockManager()

// SetLockManager sets the process-default lock manager.
func SetLockManager(m *redlock.Manager) {
	globalLockManager.Store(m)
}

// GetLockManager retrieves the process-default lock manager.
func GetLockManager() *redlock.Manager {
	return globalLockManager.Load().(*redlock.Manager)
}
