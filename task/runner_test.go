package task

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestSyncRunner_RunsInline(t *testing.T) {
	t.Parallel()
	r := NewSyncRunner()

	ran := false
	r.Go("inline", func() error {
		ran = true
		return nil
	})
	if !ran {
		t.Fatal("synchronous task did not run before Go returned")
	}
}

func TestRunner_WaitObservesCompletion(t *testing.T) {
	t.Parallel()
	r := NewRunner()

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		r.Go("count", func() error {
			count.Add(1)
			return nil
		})
	}
	r.Wait()
	if got := count.Load(); got != 10 {
		t.Fatalf("completed tasks = %d, want 10", got)
	}
}

func TestRunner_SwallowsErrorsAndPanics(t *testing.T) {
	t.Parallel()
	r := NewSyncRunner()

	// Neither may escape to the caller.
	r.Go("fails", func() error { return errors.New("boom") })
	r.Go("panics", func() error { panic("boom") })
}
