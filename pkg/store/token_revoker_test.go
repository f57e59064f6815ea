package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryTokenRevokerRevokeAndExpire(t *testing.T) {
	r := NewMemoryTokenRevoker()
	if err := r.Revoke("jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := r.Revoke("jti-2", 10*time.Millisecond); err != nil {
		t.Fatalf("revoke short: %v", err)
	}
	if err := r.Revoke("jti-3", 0); err != nil {
		t.Fatalf("revoke zero ttl: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	cases := map[string]bool{"jti-1": true, "jti-2": false, "jti-3": false, "unknown": false}
	for token, want := range cases {
		got, err := r.IsRevoked(token)
		if err != nil {
			t.Fatalf("is revoked %s: %v", token, err)
		}
		if got != want {
			t.Fatalf("token %s: expected revoked=%v, got %v", token, want, got)
		}
	}
}

func TestMemoryTokenRevokerUserCutoffMonotonic(t *testing.T) {
	r := NewMemoryTokenRevoker()
	first := time.Now().UTC().Add(-time.Minute)
	second := time.Now().UTC()

	if err := r.RevokeUser("user-1", first); err != nil {
		t.Fatalf("revoke user first: %v", err)
	}
	if err := r.RevokeUser("user-1", first.Add(-time.Minute)); err != nil {
		t.Fatalf("revoke user older cutoff: %v", err)
	}
	got, err := r.RevokedAfter("user-1")
	if err != nil {
		t.Fatalf("revoked after first: %v", err)
	}
	if !got.Equal(first) {
		t.Fatalf("expected first cutoff to be kept, got %v", got)
	}

	if err := r.RevokeUser("user-1", second); err != nil {
		t.Fatalf("revoke user second: %v", err)
	}
	got, err = r.RevokedAfter("user-1")
	if err != nil {
		t.Fatalf("revoked after second: %v", err)
	}
	if !got.Equal(second) {
		t.Fatalf("expected newest cutoff, got %v", got)
	}

	none, err := r.RevokedAfter("user-2")
	if err != nil {
		t.Fatalf("revoked after unknown user: %v", err)
	}
	if !none.IsZero() {
		t.Fatalf("expected zero cutoff for unknown user, got %v", none)
	}
}

func TestRedisTokenRevokerRevoke(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedisTokenRevoker(mr.Addr(), "", time.Hour)
	t.Cleanup(func() { _ = r.Close() })

	if err := r.Revoke("jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := r.IsRevoked("jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected jti-1 revoked, revoked=%v err=%v", revoked, err)
	}

	mr.FastForward(2 * time.Minute)
	revoked, err = r.IsRevoked("jti-1")
	if err != nil || revoked {
		t.Fatalf("expected jti-1 to expire, revoked=%v err=%v", revoked, err)
	}
}

func TestRedisTokenRevokerUserCutoffMonotonic(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedisTokenRevoker(mr.Addr(), "", time.Hour)
	t.Cleanup(func() { _ = r.Close() })

	none, err := r.RevokedAfter("user-1")
	if err != nil || !none.IsZero() {
		t.Fatalf("expected no cutoff, got %v err=%v", none, err)
	}

	first := time.Now().UTC().Add(-time.Minute)
	second := time.Now().UTC()
	if err := r.RevokeUser("user-1", first); err != nil {
		t.Fatalf("revoke user first: %v", err)
	}
	if err := r.RevokeUser("user-1", first.Add(-time.Minute)); err != nil {
		t.Fatalf("revoke user older cutoff: %v", err)
	}
	got, err := r.RevokedAfter("user-1")
	if err != nil {
		t.Fatalf("revoked after first: %v", err)
	}
	if !got.Equal(first) {
		t.Fatalf("expected first cutoff to be kept, got %v", got)
	}

	if err := r.RevokeUser("user-1", second); err != nil {
		t.Fatalf("revoke user second: %v", err)
	}
	got, err = r.RevokedAfter("user-1")
	if err != nil {
		t.Fatalf("revoked after second: %v", err)
	}
	if !got.Equal(second) {
		t.Fatalf("expected newest cutoff, got %v", got)
	}
	if ttl := mr.TTL(userCutoffKey("user-1")); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected cutoff key ttl within an hour, got %v", ttl)
	}
}

func TestJWTSessionStoreWithRedisRevoker(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedisTokenRevoker(mr.Addr(), "", time.Hour)
	t.Cleanup(func() { _ = r.Close() })
	s := newTestSessionStore(t, r, JWTOptions{})

	token, _, err := s.NewSession("user-redis")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); err == nil || ok {
		t.Fatalf("expected revoked token to fail, ok=%v err=%v", ok, err)
	}
}
