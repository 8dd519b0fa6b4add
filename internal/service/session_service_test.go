package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/token"
)

func newTestSessions(t *testing.T) (*SessionService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	key, err := token.LoadKey(strings.Repeat("k", token.MinKeyBytes))
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	codec := token.NewCodec(key, time.Hour)
	repo := repository.NewSessionRepository(rdb, "session", 2*time.Second)

	return NewSessionService(codec, repo), mr
}

func testUser() *domain.User {
	return &domain.User{
		ID:       "user-1",
		Username: "alice",
		Roles:    []string{domain.RoleUser},
		Active:   true,
	}
}

func TestIssueThenValid(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	tokenStr, rec, expiresAt, err := sessions.Issue(ctx, testUser(), time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if rec.UserID != "user-1" {
		t.Fatalf("record user = %q, want user-1", rec.UserID)
	}
	if rec.TTLSec != 3600 {
		t.Fatalf("record ttl = %d, want 3600", rec.TTLSec)
	}
	if expiresAt.Before(time.Now()) {
		t.Fatal("token already expired at issuance")
	}

	if !sessions.IsValid(ctx, tokenStr) {
		t.Fatal("freshly issued token not valid")
	}

	claims, err := sessions.Validate(ctx, tokenStr)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.ID != rec.ID {
		t.Fatalf("claims jti = %q, want record id %q", claims.ID, rec.ID)
	}
}

func TestRevokedTokenInvalidWhileSignatureStillVerifies(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	tokenStr, _, _, err := sessions.Issue(ctx, testUser(), time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := sessions.Revoke(ctx, tokenStr); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if sessions.IsValid(ctx, tokenStr) {
		t.Fatal("revoked token still valid")
	}
	// The signature itself holds until natural expiry.
	if _, err := sessions.Claims(tokenStr); err != nil {
		t.Fatalf("signature check after revocation: %v", err)
	}
}

func TestRevokeAllForUser(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()
	user := testUser()

	tok1, _, _, err := sessions.Issue(ctx, user, time.Now())
	if err != nil {
		t.Fatalf("Issue 1: %v", err)
	}
	tok2, _, _, err := sessions.Issue(ctx, user, time.Now())
	if err != nil {
		t.Fatalf("Issue 2: %v", err)
	}
	if tok1 == tok2 {
		t.Fatal("two issuances produced the same token")
	}

	removed, err := sessions.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("RevokeAllForUser: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	if sessions.IsValid(ctx, tok1) || sessions.IsValid(ctx, tok2) {
		t.Fatal("token still valid after bulk revocation")
	}
}

func TestUntrackedTokenInvalid(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	// Signed but never written to the registry: validation must fail even
	// though the signature is intact.
	tokenStr, _, err := sessions.codec.Sign("rec-x", "user-1", "alice", nil, time.Now())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := sessions.Claims(tokenStr); err != nil {
		t.Fatalf("signature check: %v", err)
	}
	if sessions.IsValid(ctx, tokenStr) {
		t.Fatal("untracked token accepted")
	}
}

func TestValidateFailsClosedWhenRegistryDown(t *testing.T) {
	sessions, mr := newTestSessions(t)
	ctx := context.Background()

	tokenStr, _, _, err := sessions.Issue(ctx, testUser(), time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	mr.Close()

	if sessions.IsValid(ctx, tokenStr) {
		t.Fatal("token accepted while registry unreachable")
	}
}

func TestExpiredRecordInvalidatesToken(t *testing.T) {
	sessions, mr := newTestSessions(t)
	ctx := context.Background()

	tokenStr, _, _, err := sessions.Issue(ctx, testUser(), time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	mr.FastForward(time.Hour + time.Minute)

	if sessions.IsValid(ctx, tokenStr) {
		t.Fatal("token accepted after registry record expired")
	}
}

func TestConcurrentRevocationsSafe(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	tokenStr, _, _, err := sessions.Issue(ctx, testUser(), time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- sessions.Revoke(ctx, tokenStr)
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent Revoke: %v", err)
		}
	}

	if sessions.IsValid(ctx, tokenStr) {
		t.Fatal("token still valid after concurrent revocations")
	}
}
