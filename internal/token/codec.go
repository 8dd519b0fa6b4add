package token

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Verification failures. ErrTokenExpired and ErrTokenMalformed are split out
// so callers can log the cause; all three mean "do not trust this token".
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenInvalid   = errors.New("invalid token")
)

// Claims describes the signed payload.
type Claims struct {
	Username string `json:"username"`
	Roles    string `json:"roles"`
	jwt.RegisteredClaims
}

// RoleList splits the comma-joined roles claim. An empty claim yields an
// empty list, not a single empty role.
func (c *Claims) RoleList() []string {
	if strings.TrimSpace(c.Roles) == "" {
		return nil
	}
	parts := strings.Split(c.Roles, ",")
	roles := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			roles = append(roles, trimmed)
		}
	}
	return roles
}

// Codec signs and verifies bearer tokens. The MAC algorithm is fixed to
// HS384; the signature compare inside the JWT library is constant-time.
type Codec struct {
	key Key
	ttl time.Duration
	now func() time.Time
}

// NewCodec builds a codec around an already-validated signing key.
func NewCodec(key Key, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Codec{key: key, ttl: ttl, now: time.Now}
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Sign builds and signs a token for the subject. The id lands in the jti
// claim so every issued token maps back to exactly one session record.
// Pure function of its inputs and the key.
func (c *Codec) Sign(id, subject, username string, roles []string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(c.ttl)
	claims := &Claims{
		Username: username,
		Roles:    strings.Join(roles, ","),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString(c.key.bytes())
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry and returns the decoded claims.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS384 {
			return nil, errors.New("unexpected signing method")
		}
		return c.key.bytes(), nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// SubjectOf extracts the subject identifier after full verification.
func (c *Codec) SubjectOf(tokenStr string) (string, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
