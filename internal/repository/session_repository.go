package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// ErrSessionNotFound is returned when no live record matches the lookup.
var ErrSessionNotFound = errors.New("session record not found")

// SessionRepository is the revocation registry: a time-expiring store of
// issued-token records. Redis evicts records itself when their TTL elapses;
// nothing here runs a sweep.
type SessionRepository interface {
	Put(ctx context.Context, rec *domain.SessionRecord, ttl time.Duration) error
	FindByToken(ctx context.Context, tokenStr string) (*domain.SessionRecord, error)
	MarkRevoked(ctx context.Context, tokenStr string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}

// markRevokedScript flips the revoked flag only while the record still
// exists, so a revoke racing with eviction can never resurrect the key
// as an unexpiring hash. KEYS[1] is the token index, ARGV[1] the record
// key prefix.
var markRevokedScript = redis.NewScript(`
local id = redis.call("GET", KEYS[1])
if not id then
  return 0
end
local key = ARGV[1] .. id
if redis.call("EXISTS", key) == 0 then
  return 0
end
redis.call("HSET", key, "revoked", "1")
return 1
`)

// deleteAllScript removes every record in the user's index set along with
// its token index entry, server-side in one script call. KEYS[1] is the
// user index, ARGV[1] the record key prefix, ARGV[2] the token index prefix.
var deleteAllScript = redis.NewScript(`
local ids = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for _, id in ipairs(ids) do
  local key = ARGV[1] .. id
  local hash = redis.call("HGET", key, "token_hash")
  if redis.call("DEL", key) == 1 then
    removed = removed + 1
  end
  if hash then
    redis.call("DEL", ARGV[2] .. hash)
  end
end
redis.call("DEL", KEYS[1])
return removed
`)

type redisSessionRepository struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewSessionRepository returns a Redis-backed registry. Every call runs
// under the given timeout; store failures surface as dependency errors,
// never as a business outcome.
func NewSessionRepository(client *redis.Client, prefix string, timeout time.Duration) SessionRepository {
	if prefix == "" {
		prefix = "session"
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &redisSessionRepository{client: client, prefix: prefix, timeout: timeout}
}

func (r *redisSessionRepository) recordKey(id string) string {
	return r.prefix + ":" + id
}

func (r *redisSessionRepository) tokenKey(tokenHash string) string {
	return r.prefix + ":token:" + tokenHash
}

func (r *redisSessionRepository) userKey(userID string) string {
	return r.prefix + ":user:" + userID
}

func hashToken(tokenStr string) string {
	sum := sha256.Sum256([]byte(tokenStr))
	return hex.EncodeToString(sum[:])
}

func (r *redisSessionRepository) Put(ctx context.Context, rec *domain.SessionRecord, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tokenHash := hashToken(rec.Token)
	recordKey := r.recordKey(rec.ID)
	userKey := r.userKey(rec.UserID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, recordKey,
			"id", rec.ID,
			"user_id", rec.UserID,
			"token", rec.Token,
			"token_hash", tokenHash,
			"ttl", rec.TTLSec,
			"revoked", boolField(rec.Revoked),
		)
		pipe.Expire(ctx, recordKey, ttl)
		pipe.Set(ctx, r.tokenKey(tokenHash), rec.ID, ttl)
		pipe.SAdd(ctx, userKey, rec.ID)
		// The index set always carries the freshest full TTL, so it
		// outlives every record it points at.
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return apperrors.NewDependencyError("session registry", err)
	}
	return nil
}

func (r *redisSessionRepository) FindByToken(ctx context.Context, tokenStr string) (*domain.SessionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	id, err := r.client.Get(ctx, r.tokenKey(hashToken(tokenStr))).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, apperrors.NewDependencyError("session registry", err)
	}

	fields, err := r.client.HGetAll(ctx, r.recordKey(id)).Result()
	if err != nil {
		return nil, apperrors.NewDependencyError("session registry", err)
	}
	if len(fields) == 0 {
		// Record evicted between index lookup and read.
		return nil, ErrSessionNotFound
	}

	ttlSec, _ := strconv.ParseInt(fields["ttl"], 10, 64)
	return &domain.SessionRecord{
		ID:      fields["id"],
		UserID:  fields["user_id"],
		Token:   fields["token"],
		TTLSec:  ttlSec,
		Revoked: fields["revoked"] == "1",
	}, nil
}

func (r *redisSessionRepository) MarkRevoked(ctx context.Context, tokenStr string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	keys := []string{r.tokenKey(hashToken(tokenStr))}
	err := markRevokedScript.Run(ctx, r.client, keys, r.prefix+":").Err()
	if err != nil && err != redis.Nil {
		return apperrors.NewDependencyError("session registry", err)
	}
	// A missing or already-revoked record is not an error.
	return nil
}

func (r *redisSessionRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	keys := []string{r.userKey(userID)}
	removed, err := deleteAllScript.Run(ctx, r.client, keys, r.prefix+":", r.prefix+":token:").Int64()
	if err != nil && err != redis.Nil {
		return 0, apperrors.NewDependencyError("session registry", err)
	}
	return removed, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
