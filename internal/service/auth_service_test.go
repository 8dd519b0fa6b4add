package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeRoleRepo struct {
	roles map[string]*domain.Role
}

func newFakeRoleRepo(names ...string) *fakeRoleRepo {
	repo := &fakeRoleRepo{roles: make(map[string]*domain.Role)}
	for _, name := range names {
		repo.roles[name] = &domain.Role{ID: uuid.NewString(), Name: name}
	}
	return repo
}

func (f *fakeRoleRepo) GetByName(_ context.Context, name string) (*domain.Role, error) {
	if role, ok := f.roles[name]; ok {
		return role, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeRoleRepo) Ensure(_ context.Context, name string) error {
	if _, ok := f.roles[name]; !ok {
		f.roles[name] = &domain.Role{ID: uuid.NewString(), Name: name}
	}
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()

	sessions, _ := newTestSessions(t)
	users := newFakeUserRepo()
	roles := newFakeRoleRepo(domain.RoleUser, domain.RoleAdmin)

	cfg := config.Config{Auth: config.AuthConfig{BcryptCost: bcrypt.MinCost}}
	svc := NewAuthService(cfg, AuthDependencies{
		UserRepo: users,
		RoleRepo: roles,
		Sessions: sessions,
	})
	return svc, users
}

func seedUser(t *testing.T, users *fakeUserRepo, username, password string, roles []string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	user := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Active:       true,
		Roles:        roles,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestLoginLogoutRelogin(t *testing.T) {
	svc, users := newTestAuthService(t)
	ctx := context.Background()

	alice := seedUser(t, users, "alice", "secret123", []string{domain.RoleUser, domain.RoleAdmin})

	first, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if first.UserID != alice.ID || first.Username != "alice" {
		t.Fatalf("unexpected login result: %+v", first)
	}
	if !svc.Sessions().IsValid(ctx, first.Token) {
		t.Fatal("token invalid right after login")
	}

	removed, err := svc.Logout(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if removed != 1 {
		t.Fatalf("logout removed = %d, want 1", removed)
	}
	if svc.Sessions().IsValid(ctx, first.Token) {
		t.Fatal("token still valid after logout")
	}

	second, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if second.Token == first.Token {
		t.Fatal("re-login produced an identical token")
	}
	if !svc.Sessions().IsValid(ctx, second.Token) {
		t.Fatal("second token invalid")
	}
	if svc.Sessions().IsValid(ctx, first.Token) {
		t.Fatal("logged-out token resurrected by re-login")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, users := newTestAuthService(t)
	ctx := context.Background()

	seedUser(t, users, "alice", "secret123", []string{domain.RoleUser})

	_, unknownErr := svc.Login(ctx, "nobody", "secret123")
	_, wrongPassErr := svc.Login(ctx, "alice", "wrong-password")

	for name, err := range map[string]error{"unknown user": unknownErr, "wrong password": wrongPassErr} {
		var domainErr *apperrors.DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != "UNAUTHORIZED" {
			t.Fatalf("%s: error = %v, want UNAUTHORIZED", name, err)
		}
	}
	if unknownErr.Error() != wrongPassErr.Error() {
		t.Fatalf("login failure messages differ: %q vs %q", unknownErr.Error(), wrongPassErr.Error())
	}
}

func TestLoginTokenCarriesRoles(t *testing.T) {
	svc, users := newTestAuthService(t)
	ctx := context.Background()

	seedUser(t, users, "alice", "secret123", []string{domain.RoleUser, domain.RoleAdmin})
	seedUser(t, users, "bob", "hunter22x", nil)

	result, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login alice: %v", err)
	}
	claims, err := svc.Sessions().Claims(result.Token)
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	want := map[string]bool{domain.RoleUser: true, domain.RoleAdmin: true}
	got := map[string]bool{}
	for _, role := range claims.RoleList() {
		got[role] = true
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("roles = %v, want %v", got, want)
	}

	result, err = svc.Login(ctx, "bob", "hunter22x")
	if err != nil {
		t.Fatalf("Login bob: %v", err)
	}
	claims, err = svc.Sessions().Claims(result.Token)
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if roles := claims.RoleList(); len(roles) != 0 {
		t.Fatalf("roles for roleless user = %v, want empty", roles)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "not-an-email", "")
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_FAILED" {
		t.Fatalf("Register = %v, want VALIDATION_FAILED", err)
	}
	for _, field := range []string{"username", "email", "password"} {
		if _, ok := domainErr.Details[field]; !ok {
			t.Errorf("validation details missing field %q", field)
		}
	}
}

func TestRegisterAttachesDefaultRole(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "carol", "carol@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !reflect.DeepEqual(user.Roles, []string{domain.RoleUser}) {
		t.Fatalf("roles = %v, want [%s]", user.Roles, domain.RoleUser)
	}
	if !user.Active {
		t.Fatal("new user not active")
	}

	_, err = svc.Register(ctx, "carol", "other@example.com", "secret123")
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "CONFLICT" {
		t.Fatalf("duplicate Register = %v, want CONFLICT", err)
	}
}

func TestRevokeTokenOnlyAffectsPresentedToken(t *testing.T) {
	svc, users := newTestAuthService(t)
	ctx := context.Background()

	alice := seedUser(t, users, "alice", "secret123", []string{domain.RoleUser})

	first, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.RevokeToken(ctx, alice.ID, first.Token); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}

	if svc.Sessions().IsValid(ctx, first.Token) {
		t.Fatal("revoked token still valid")
	}
	if !svc.Sessions().IsValid(ctx, second.Token) {
		t.Fatal("sibling session collateral-revoked")
	}
}
