// Package task runs fire-and-forget side effects. Failures are logged and
// swallowed; they never reach the caller's control flow. A synchronous mode
// lets tests observe completion deterministically.
package task

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Runner schedules detached tasks.
type Runner struct {
	synchronous bool
	wg          sync.WaitGroup
}

// NewRunner creates a Runner that executes tasks on their own goroutines.
func NewRunner() *Runner {
	return &Runner{}
}

// NewSyncRunner creates a Runner that executes tasks inline. Tests use this
// to await side effects without racing against a goroutine.
func NewSyncRunner() *Runner {
	return &Runner{synchronous: true}
}

// Go schedules fn. Errors and panics are logged under name and discarded.
func (r *Runner) Go(name string, fn func() error) {
	if r.synchronous {
		r.run(name, fn)
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(name, fn)
	}()
}

// Wait blocks until every task scheduled so far has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(name string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("task", name).Any("panic", rec).Msg("detached task panicked")
		}
	}()
	if err := fn(); err != nil {
		log.Warn().Err(err).Str("task", name).Msg("detached task failed")
	}
}
