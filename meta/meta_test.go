package meta

import (
	"context"
	"testing"

	"github.com/supra126/open-short-url-sub003/apikey"
)

func TestWithContextRoundtrip(t *testing.T) {
	t.Parallel()
	md := New()
	md.SetClientIP("203.0.113.9")
	md.SetRoute("/v1/links")

	ctx := md.WithContext(context.Background())
	got := FromContext(ctx)
	if got != md {
		t.Fatal("FromContext returned a different metadata instance")
	}
	if got.ClientIP() != "203.0.113.9" || got.Route() != "/v1/links" {
		t.Fatalf("attributes lost: ip=%q route=%q", got.ClientIP(), got.Route())
	}
}

func TestFromContext_Empty(t *testing.T) {
	t.Parallel()
	md := FromContext(context.Background())
	if md == nil {
		t.Fatal("FromContext returned nil")
	}
	if md.Identity() != nil {
		t.Fatal("empty metadata carries an identity")
	}
}

func TestThrottleKey(t *testing.T) {
	t.Parallel()

	md := New()
	md.SetClientIP("198.51.100.7")
	md.SetRoute("/v1/links")
	if got := md.ThrottleKey(); got != "198.51.100.7|/v1/links" {
		t.Fatalf("anonymous throttle key = %q", got)
	}

	md.SetIdentity(&apikey.Identity{OwnerID: "u42", Role: "user", Active: true})
	if got := md.ThrottleKey(); got != "owner:u42|/v1/links" {
		t.Fatalf("authenticated throttle key = %q", got)
	}
}

func TestIdentityShorthand(t *testing.T) {
	t.Parallel()
	md := New()
	md.SetIdentity(&apikey.Identity{OwnerID: "u1", Active: true})
	ctx := md.WithContext(context.Background())

	id := Identity(ctx)
	if id == nil || id.OwnerID != "u1" {
		t.Fatalf("identity from context = %+v", id)
	}
	if Identity(context.Background()) != nil {
		t.Fatal("identity resolved from bare context")
	}
}
