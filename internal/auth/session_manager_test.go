package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func TestManagerIssueAndRefresh(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(testSecret, time.Minute, time.Hour, store)

	tokens, err := manager.Issue(context.Background(), 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}

	userID, err := manager.Verify(tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user 42 got %d", userID)
	}

	refreshed, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected new refresh token")
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("old token should have been removed")
	}
	if !store.Has(refreshed.RefreshToken) {
		t.Fatal("new token should be stored")
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager := NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore())
	if _, err := manager.Issue(context.Background(), 0); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerVerifyRejects(t *testing.T) {
	manager := NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore())
	tokens, err := manager.Issue(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewManager("another-secret", time.Minute, time.Hour, NewInMemorySessionStore())
	if _, err := other.Verify(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for foreign signature got %v", err)
	}

	if _, err := manager.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for empty string got %v", err)
	}

	if _, err := manager.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for garbage got %v", err)
	}

	later := time.Now().UTC().Add(2 * time.Minute)
	manager.WithNowFunc(func() time.Time { return later })
	if _, err := manager.Verify(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token after expiry got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "7", Issuer: issuer})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := manager.Verify(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected unsigned token to be rejected got %v", err)
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	manager := NewManager(testSecret, time.Minute, time.Millisecond, NewInMemorySessionStore())

	if _, err := manager.Refresh(context.Background(), ""); err != ErrSessionNotFound {
		t.Fatalf("expected session not found got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != ErrRefreshTokenExpired {
		t.Fatalf("expected refresh expired got %v", err)
	}

	manager = NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore())
	tokens, err = manager.Issue(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if got, err := manager.Revoke(context.Background(), tokens.RefreshToken); err != nil || got != 1 {
		t.Fatalf("expected revoke to report user 1 got %d (%v)", got, err)
	}
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != ErrSessionNotFound {
		t.Fatalf("expected session not found after revoke got %v", err)
	}
	if got, err := manager.Revoke(context.Background(), tokens.RefreshToken); err != nil || got != 0 {
		t.Fatalf("expected unknown token to report zero got %d (%v)", got, err)
	}
}

type failingDeleteStore struct {
	*InMemorySessionStore
	err error
}

func (s failingDeleteStore) Delete(context.Context, string) error {
	return s.err
}

func TestManagerRevokeReportsStoreFailure(t *testing.T) {
	boom := errors.New("store unavailable")
	store := failingDeleteStore{InMemorySessionStore: NewInMemorySessionStore(), err: boom}
	manager := NewManager(testSecret, time.Minute, time.Hour, store)

	tokens, err := manager.Issue(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := manager.Revoke(context.Background(), tokens.RefreshToken)
	if !errors.Is(err, boom) || got != 0 {
		t.Fatalf("expected store failure, got user %d err %v", got, err)
	}

	if got, err := manager.Revoke(context.Background(), ""); err != nil || got != 0 {
		t.Fatalf("expected empty token to be a no-op, got %d (%v)", got, err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("supersafe")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "supersafe" {
		t.Fatal("expected password to be hashed")
	}
	if err := CheckPassword(hash, "supersafe"); err != nil {
		t.Fatalf("expected match got %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch got %v", err)
	}
}

func TestUserIDContext(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected no user on empty context")
	}
	ctx := WithUserID(context.Background(), 9)
	if id, ok := UserIDFromContext(ctx); !ok || id != 9 {
		t.Fatalf("expected user 9 got %d (%v)", id, ok)
	}
}
