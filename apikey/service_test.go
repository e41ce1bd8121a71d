package apikey

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/supra126/open-short-url-sub003/task"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	repo.PutOwner(&Owner{ID: "owner-1", Email: "one@example.com", Role: "user", Active: true})
	svc := NewService(repo, task.NewSyncRunner(), append([]Option{WithBcryptCost(4)}, opts...)...)
	return svc, repo
}

func TestIssueAndValidate_Roundtrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	issued, err := svc.Issue(ctx, "owner-1", "ci-token", nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(issued.RawSecret, "osu_") {
		t.Fatalf("raw secret %q lacks service prefix", issued.RawSecret)
	}
	if !strings.HasSuffix(issued.Prefix, "...") || !strings.HasPrefix(issued.RawSecret, issued.Prefix[:12]) {
		t.Fatalf("display prefix %q does not match secret", issued.Prefix)
	}

	id := svc.Validate(ctx, issued.RawSecret)
	if id == nil {
		t.Fatal("validate returned nil for a freshly issued key")
	}
	if id.OwnerID != "owner-1" || id.Role != "user" || id.Email != "one@example.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestValidate_TamperedSecret(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	issued, err := svc.Issue(ctx, "owner-1", "k", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Same prefix, one trailing character flipped.
	raw := []byte(issued.RawSecret)
	last := raw[len(raw)-1]
	if last == '0' {
		raw[len(raw)-1] = '1'
	} else {
		raw[len(raw)-1] = '0'
	}

	if svc.Validate(ctx, string(raw)) != nil {
		t.Fatal("tampered secret validated")
	}
	if svc.Validate(ctx, "") != nil {
		t.Fatal("empty secret validated")
	}
	if svc.Validate(ctx, "osu_not-a-real-key") != nil {
		t.Fatal("unknown secret validated")
	}
}

func TestValidate_ExpiredKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	past := time.Now().Add(-time.Hour)
	issued, err := svc.Issue(ctx, "owner-1", "expired", &past)
	if err != nil {
		t.Fatal(err)
	}
	if svc.Validate(ctx, issued.RawSecret) != nil {
		t.Fatal("expired key validated")
	}

	future := time.Now().Add(time.Hour)
	issued, err = svc.Issue(ctx, "owner-1", "fresh", &future)
	if err != nil {
		t.Fatal(err)
	}
	if svc.Validate(ctx, issued.RawSecret) == nil {
		t.Fatal("unexpired key rejected")
	}
}

func TestValidate_InactiveOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo := newTestService(t)

	issued, err := svc.Issue(ctx, "owner-1", "k", nil)
	if err != nil {
		t.Fatal(err)
	}
	repo.PutOwner(&Owner{ID: "owner-1", Email: "one@example.com", Role: "user", Active: false})

	if svc.Validate(ctx, issued.RawSecret) != nil {
		t.Fatal("key of an inactive owner validated")
	}
}

func TestValidate_TouchesLastUsed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	issued, err := svc.Issue(ctx, "owner-1", "k", nil)
	if err != nil {
		t.Fatal(err)
	}
	// The sync runner makes the detached touch complete before Validate returns.
	if svc.Validate(ctx, issued.RawSecret) == nil {
		t.Fatal("validate failed")
	}

	infos, err := svc.List(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Fatalf("listed %d keys, want 1", len(infos))
	}
	if infos[0].LastUsedAt == nil {
		t.Fatal("lastUsedAt not recorded after validation")
	}
}

func TestIssue_QuotaCap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	for i := 0; i < DefaultMaxKeysPerOwner; i++ {
		if _, err := svc.Issue(ctx, "owner-1", "k", nil); err != nil {
			t.Fatalf("issue %d: %v", i+1, err)
		}
	}

	_, err := svc.Issue(ctx, "owner-1", "one-too-many", nil)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("11th issue: err = %v, want ErrQuotaExceeded", err)
	}
}

func TestIssue_ExpiredKeysFreeQuota(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t, WithMaxKeysPerOwner(1))

	past := time.Now().Add(-time.Minute)
	if _, err := svc.Issue(ctx, "owner-1", "old", &past); err != nil {
		t.Fatal(err)
	}
	// The expired key is not live, so the cap of one is not reached.
	if _, err := svc.Issue(ctx, "owner-1", "new", nil); err != nil {
		t.Fatalf("issue after expiry: %v", err)
	}
	if _, err := svc.Issue(ctx, "owner-1", "blocked", nil); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestDelete_ScopedToOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo := newTestService(t)
	repo.PutOwner(&Owner{ID: "owner-2", Email: "two@example.com", Role: "user", Active: true})

	issued, err := svc.Issue(ctx, "owner-1", "k", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Another owner must see not-found, not forbidden.
	if err := svc.Delete(ctx, issued.ID, "owner-2"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("cross-owner delete: err = %v, want ErrKeyNotFound", err)
	}
	if err := svc.Delete(ctx, issued.ID, "owner-1"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := svc.Delete(ctx, issued.ID, "owner-1"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("repeat delete: err = %v, want ErrKeyNotFound", err)
	}
	if svc.Validate(ctx, issued.RawSecret) != nil {
		t.Fatal("deleted key still validates")
	}
}

func TestList_OmitsHashMaterial(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	issued, err := svc.Issue(ctx, "owner-1", "k", nil)
	if err != nil {
		t.Fatal(err)
	}
	infos, err := svc.List(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Fatalf("listed %d keys, want 1", len(infos))
	}
	if infos[0].ID != issued.ID || infos[0].Prefix != issued.Prefix {
		t.Fatalf("listing mismatch: %+v", infos[0])
	}
}
