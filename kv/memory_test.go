package kv

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_IncrAndExpire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	for want := int64(1); want <= 3; want++ {
		got, err := store.Incr(ctx, "counter")
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if got != want {
			t.Fatalf("incr returned %d, want %d", got, want)
		}
	}

	ok, err := store.Expire(ctx, "counter", 30*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("expire existing key: ok=%v err=%v", ok, err)
	}
	ok, err = store.Expire(ctx, "missing", time.Second)
	if err != nil {
		t.Fatalf("expire missing key: %v", err)
	}
	if ok {
		t.Fatal("expire reported success for missing key")
	}

	time.Sleep(50 * time.Millisecond)
	got, err := store.Incr(ctx, "counter")
	if err != nil {
		t.Fatalf("incr after expiry: %v", err)
	}
	if got != 1 {
		t.Fatalf("counter survived expiry, got %d", got)
	}
}

func TestMemoryStore_SetNX(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.SetNX(ctx, "lock:a", "one", 0)
	if err != nil || !ok {
		t.Fatalf("first setnx: ok=%v err=%v", ok, err)
	}
	ok, err = store.SetNX(ctx, "lock:a", "two", 0)
	if err != nil {
		t.Fatalf("second setnx: %v", err)
	}
	if ok {
		t.Fatal("setnx overwrote an existing key")
	}

	val, found, err := store.Get(ctx, "lock:a")
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if val != "one" {
		t.Fatalf("got %q, want the original value", val)
	}
}

func TestMemoryStore_CompareAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.SetNX(ctx, "lock:b", "token", 0); err != nil {
		t.Fatal(err)
	}

	ok, err := store.CompareAndDelete(ctx, "lock:b", "wrong")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("compare-and-delete succeeded with mismatched value")
	}
	if _, found, _ := store.Get(ctx, "lock:b"); !found {
		t.Fatal("mismatched compare-and-delete removed the key")
	}

	ok, err = store.CompareAndDelete(ctx, "lock:b", "token")
	if err != nil || !ok {
		t.Fatalf("matching compare-and-delete: ok=%v err=%v", ok, err)
	}
	if _, found, _ := store.Get(ctx, "lock:b"); found {
		t.Fatal("key survived a successful compare-and-delete")
	}
}

func TestMemoryStore_HealthInjection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	store.SetHealthy(false)
	if err := store.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("ping while unhealthy: %v", err)
	}
	if _, err := store.Incr(ctx, "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("incr while unhealthy: %v", err)
	}

	store.SetHealthy(true)
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping after recovery: %v", err)
	}
}
