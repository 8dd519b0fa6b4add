package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventSessionIssued  EventType = "session_issued"
	EventSessionRevoked EventType = "session_revoked"
	EventUserLoggedOut  EventType = "user_logged_out"
)

// Event represents a session lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionIssuedPayload payload.
type SessionIssuedPayload struct {
	SessionID string    `json:"session_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionRevokedPayload payload.
type SessionRevokedPayload struct {
	SessionID string `json:"session_id"`
}

// UserLoggedOutPayload payload.
type UserLoggedOutPayload struct {
	SessionsRemoved int64 `json:"sessions_removed"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Username string `json:"username"`
}
