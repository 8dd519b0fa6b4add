package domain

import "errors"

// SessionRecord tracks one issued token in the revocation registry. The
// registry evicts the record when its TTL elapses; an absent record means
// the session is gone, whatever the token's own expiry says.
type SessionRecord struct {
	ID      string
	UserID  string
	Token   string
	TTLSec  int64
	Revoked bool
}

// NewSessionRecord constructs a record, enforcing required fields up front.
func NewSessionRecord(id, userID, tokenStr string, ttlSec int64) (*SessionRecord, error) {
	if id == "" {
		return nil, errors.New("session record id required")
	}
	if userID == "" {
		return nil, errors.New("session record user id required")
	}
	if tokenStr == "" {
		return nil, errors.New("session record token required")
	}
	if ttlSec <= 0 {
		return nil, errors.New("session record ttl must be positive")
	}
	return &SessionRecord{ID: id, UserID: userID, Token: tokenStr, TTLSec: ttlSec}, nil
}
