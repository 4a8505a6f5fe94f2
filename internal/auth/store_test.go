package auth

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestStoreAccessRevocation(t *testing.T) {
	store := NewTokenStore()
	expiry := time.Now().Add(time.Hour)

	if store.IsAccessTokenRevoked("tok-a") {
		t.Fatalf("fresh store must not report revocation")
	}
	store.RevokeAccessToken("tok-a", expiry)
	if !store.IsAccessTokenRevoked("tok-a") {
		t.Fatalf("expected tok-a revoked")
	}
	if store.IsAccessTokenRevoked("tok-b") {
		t.Fatalf("unrelated token reported revoked")
	}
	// Idempotent.
	store.RevokeAccessToken("tok-a", expiry)
	if !store.IsAccessTokenRevoked("tok-a") {
		t.Fatalf("expected tok-a still revoked")
	}
}

func TestStoreConsumeRefreshToken(t *testing.T) {
	store := NewTokenStore()
	expiry := time.Now().Add(time.Hour)

	store.RegisterRefreshToken("refresh-1", "user-42", expiry)

	subject, err := store.ConsumeRefreshToken("refresh-1")
	if err != nil {
		t.Fatalf("ConsumeRefreshToken: %v", err)
	}
	if subject != "user-42" {
		t.Fatalf("unexpected subject: %s", subject)
	}

	// Reuse after rotation is "revoked", not "unknown".
	if _, err := store.ConsumeRefreshToken("refresh-1"); !errors.Is(err, ErrRefreshRevoked) {
		t.Fatalf("expected ErrRefreshRevoked, got %v", err)
	}
	if _, err := store.ConsumeRefreshToken("never-registered"); !errors.Is(err, ErrRefreshUnknown) {
		t.Fatalf("expected ErrRefreshUnknown, got %v", err)
	}
}

func TestStoreRegisterDoesNotResurrectRevoked(t *testing.T) {
	store := NewTokenStore()
	expiry := time.Now().Add(time.Hour)

	store.RegisterRefreshToken("refresh-1", "user-42", expiry)
	if _, err := store.ConsumeRefreshToken("refresh-1"); err != nil {
		t.Fatalf("ConsumeRefreshToken: %v", err)
	}

	store.RegisterRefreshToken("refresh-1", "user-42", expiry)
	if _, err := store.ConsumeRefreshToken("refresh-1"); !errors.Is(err, ErrRefreshRevoked) {
		t.Fatalf("revoked token was resurrected: %v", err)
	}
}

func TestStoreConcurrentConsumeSingleWinner(t *testing.T) {
	store := NewTokenStore()
	store.RegisterRefreshToken("contested", "user-42", time.Now().Add(time.Hour))

	const attempts = 64
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  int
		failures int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			subject, err := store.ConsumeRefreshToken("contested")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				if subject != "user-42" {
					t.Errorf("winner got wrong subject: %s", subject)
				}
				winners++
				return
			}
			if !errors.Is(err, ErrRefreshRevoked) && !errors.Is(err, ErrRefreshUnknown) {
				t.Errorf("unexpected consume error: %v", err)
			}
			failures++
		}()
	}
	close(start)
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if failures != attempts-1 {
		t.Fatalf("expected %d failures, got %d", attempts-1, failures)
	}
}

func TestStoreLogoutIdempotent(t *testing.T) {
	store := NewTokenStore()
	expiry := time.Now().Add(time.Hour)
	store.RegisterRefreshToken("refresh-1", "user-42", expiry)

	store.Logout("access-1", expiry, "refresh-1", expiry)
	if !store.IsAccessTokenRevoked("access-1") {
		t.Fatalf("expected access-1 revoked")
	}
	if _, err := store.ConsumeRefreshToken("refresh-1"); !errors.Is(err, ErrRefreshRevoked) {
		t.Fatalf("expected ErrRefreshRevoked after logout, got %v", err)
	}

	// A second logout with the same or unknown tokens changes nothing
	// and does not panic.
	store.Logout("access-1", expiry, "refresh-1", expiry)
	store.Logout("", time.Time{}, "never-seen", expiry)
	if _, err := store.ConsumeRefreshToken("never-seen"); !errors.Is(err, ErrRefreshRevoked) {
		t.Fatalf("logout must retire even unknown refresh strings, got %v", err)
	}
}

func TestStoreSweepDropsRetiredUnknownRefresh(t *testing.T) {
	store := NewTokenStore()
	now := time.Now()

	// A refresh string retired by logout without ever being registered
	// still carries a retention bound and must not pile up forever.
	store.Logout("", time.Time{}, "never-registered", now.Add(-time.Minute))
	if _, err := store.ConsumeRefreshToken("never-registered"); !errors.Is(err, ErrRefreshRevoked) {
		t.Fatalf("expected retired string revoked, got %v", err)
	}

	if removed := store.Sweep(now); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := store.ConsumeRefreshToken("never-registered"); !errors.Is(err, ErrRefreshUnknown) {
		t.Fatalf("expected retired string swept, got %v", err)
	}
}

func TestStoreSweepDropsExpiredEntries(t *testing.T) {
	store := NewTokenStore()
	now := time.Now()

	store.RevokeAccessToken("old-access", now.Add(-time.Minute))
	store.RevokeAccessToken("live-access", now.Add(time.Hour))
	store.RegisterRefreshToken("old-refresh", "user-1", now.Add(-time.Minute))
	store.RegisterRefreshToken("live-refresh", "user-1", now.Add(time.Hour))

	if removed := store.Sweep(now); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if store.IsAccessTokenRevoked("old-access") {
		t.Fatalf("expired revocation record survived sweep")
	}
	if !store.IsAccessTokenRevoked("live-access") {
		t.Fatalf("live revocation record swept")
	}
	if _, err := store.ConsumeRefreshToken("live-refresh"); err != nil {
		t.Fatalf("live refresh token swept: %v", err)
	}
	if _, err := store.ConsumeRefreshToken("old-refresh"); !errors.Is(err, ErrRefreshUnknown) {
		t.Fatalf("expected expired refresh token gone, got %v", err)
	}
}
