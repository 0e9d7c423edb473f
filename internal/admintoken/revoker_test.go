package admintoken

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryRevocationsExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 22, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRevocations()
	r.now = func() time.Time { return now }

	if err := r.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := r.IsRevoked(ctx, "jti-1"); !revoked {
		t.Fatalf("expected jti-1 to be revoked")
	}
	if revoked, _ := r.IsRevoked(ctx, "jti-2"); revoked {
		t.Fatalf("jti-2 was never revoked")
	}

	now = now.Add(2 * time.Minute)
	if revoked, _ := r.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatalf("revocation should lapse with the token")
	}
}

func TestRedisRevocations(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	r, err := NewRedisRevocations(mr.Addr(), "")
	if err != nil {
		t.Fatalf("new revocations: %v", err)
	}
	defer r.Close()

	if err := r.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := r.Revoke(ctx, "jti-ignored", 0); err != nil {
		t.Fatalf("revoke with zero ttl: %v", err)
	}
	revoked, err := r.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected jti-1 revoked, got %v %v", revoked, err)
	}
	if revoked, _ := r.IsRevoked(ctx, "jti-ignored"); revoked {
		t.Fatalf("zero ttl must not revoke")
	}
	if ttl := mr.TTL(defaultRevocationPrefix + ":jti-1"); ttl != time.Minute {
		t.Fatalf("ttl = %v, want 1m", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if revoked, _ := r.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatalf("revocation should expire")
	}

	mr.Close()
	if _, err := r.IsRevoked(ctx, "jti-1"); err == nil {
		t.Fatalf("expected error with redis down")
	}
}

func TestNewRedisRevocationsRequiresAddr(t *testing.T) {
	if _, err := NewRedisRevocations(" ", ""); err == nil {
		t.Fatalf("expected error without addr")
	}
}
