package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// AuthService coordinates registration, login and logout flows on top of
// the session issuer/validator.
type AuthService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	sessions   *SessionService
	dispatcher events.Dispatcher
	bcryptCost int
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	RoleRepo   repository.RoleRepository
	Sessions   *SessionService
	Dispatcher events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		roles:      deps.RoleRepo,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// LoginResult carries issuance output for the transport layer.
type LoginResult struct {
	Token     string
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// Login authenticates credentials and issues a session. Unknown username
// and wrong password produce the same generic failure so responses cannot
// be used to enumerate accounts.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewUnauthorized("invalid username or password")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid username or password")
	}

	tokenStr, rec, expiresAt, err := s.sessions.Issue(ctx, user, time.Now())
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventSessionIssued, user.ID, events.SessionIssuedPayload{
		SessionID: rec.ID,
		Username:  user.Username,
		ExpiresAt: expiresAt,
	})

	return &LoginResult{
		Token:     tokenStr,
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: expiresAt,
	}, nil
}

// Register creates a new account with the default role attached.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already registered", map[string]any{"username": username})
	} else if err != pgx.ErrNoRows {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	role, err := s.roles.GetByName(ctx, domain.RoleUser)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewInternalError(err)
		}
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		Roles:        []string{role.Name},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Username: user.Username,
	})
	return user, nil
}

// Logout revokes every session the user owns.
func (s *AuthService) Logout(ctx context.Context, userID string) (int64, error) {
	removed, err := s.sessions.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.publish(ctx, events.EventUserLoggedOut, userID, events.UserLoggedOutPayload{
		SessionsRemoved: removed,
	})
	return removed, nil
}

// RevokeToken marks a single presented token revoked.
func (s *AuthService) RevokeToken(ctx context.Context, userID, tokenStr string) error {
	if err := s.sessions.Revoke(ctx, tokenStr); err != nil {
		return err
	}

	sessionID := ""
	if claims, err := s.sessions.Claims(tokenStr); err == nil {
		sessionID = claims.ID
	}
	s.publish(ctx, events.EventSessionRevoked, userID, events.SessionRevokedPayload{
		SessionID: sessionID,
	})
	return nil
}

// Sessions exposes the session service for middleware wiring.
func (s *AuthService) Sessions() *SessionService {
	return s.sessions
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func validateRegistration(username, email, password string) error {
	details := map[string]any{}
	if strings.TrimSpace(username) == "" {
		details["username"] = "required"
	}
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		details["email"] = "valid email required"
	}
	if password == "" {
		details["password"] = "required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid registration input", details)
	}
	return nil
}
