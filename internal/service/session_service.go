package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/token"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// SessionService issues and validates bearer sessions. Every session is a
// pair: a signed token the client holds, and a registry record the server
// can revoke. The token is the authority for tamper-evidence and hard
// expiry; the registry is the authority for early revocation.
type SessionService struct {
	codec    *token.Codec
	sessions repository.SessionRepository
}

// NewSessionService builds the service.
func NewSessionService(codec *token.Codec, sessions repository.SessionRepository) *SessionService {
	return &SessionService{codec: codec, sessions: sessions}
}

// Issue signs a token for the user and writes its tracking record. The
// record gets the full configured token lifetime, so both stores expire
// together. The two writes are not transactional: a crash between them
// leaves a signed token with no record, which validation rejects.
func (s *SessionService) Issue(ctx context.Context, user *domain.User, now time.Time) (string, *domain.SessionRecord, time.Time, error) {
	recordID := uuid.NewString()

	tokenStr, expiresAt, err := s.codec.Sign(recordID, user.ID, user.Username, user.Roles, now)
	if err != nil {
		return "", nil, time.Time{}, err
	}

	ttl := s.codec.TTL()
	rec, err := domain.NewSessionRecord(recordID, user.ID, tokenStr, int64(ttl/time.Second))
	if err != nil {
		return "", nil, time.Time{}, err
	}

	if err := s.sessions.Put(ctx, rec, ttl); err != nil {
		return "", nil, time.Time{}, err
	}
	return tokenStr, rec, expiresAt, nil
}

// Validate accepts a token iff the signature verifies, the token is not
// expired, and a live registry record exists with the revoked flag unset.
// A missing record fails validation even for a cryptographically intact
// token. Dependency failures propagate so callers can distinguish "invalid"
// from "registry down"; both deny access.
func (s *SessionService) Validate(ctx context.Context, tokenStr string) (*token.Claims, error) {
	claims, err := s.codec.Verify(tokenStr)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	rec, err := s.findWithRetry(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperrors.NewUnauthorized("invalid token")
		}
		return nil, err
	}
	if rec.Revoked {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	return claims, nil
}

// IsValid is the fail-closed boolean form of Validate.
func (s *SessionService) IsValid(ctx context.Context, tokenStr string) bool {
	_, err := s.Validate(ctx, tokenStr)
	return err == nil
}

// Claims verifies the token signature only, without a registry check.
func (s *SessionService) Claims(tokenStr string) (*token.Claims, error) {
	return s.codec.Verify(tokenStr)
}

// Revoke marks the record for the given token revoked. Idempotent: a
// missing or already-revoked record is not an error.
func (s *SessionService) Revoke(ctx context.Context, tokenStr string) error {
	return s.sessions.MarkRevoked(ctx, tokenStr)
}

// RevokeAllForUser removes every session record the user owns and returns
// how many were deleted.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	return s.sessions.DeleteAllForUser(ctx, userID)
}

// findWithRetry retries the idempotent registry read once when the store
// errors, then gives up and lets the caller fail closed.
func (s *SessionService) findWithRetry(ctx context.Context, tokenStr string) (*domain.SessionRecord, error) {
	rec, err := s.sessions.FindByToken(ctx, tokenStr)
	if err != nil && apperrors.IsDependencyError(err) {
		rec, err = s.sessions.FindByToken(ctx, tokenStr)
	}
	return rec, err
}
