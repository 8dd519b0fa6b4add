package dto

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for credential login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session.
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// RegisterResponse confirms account creation.
type RegisterResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// LogoutResponse confirms bulk revocation.
type LogoutResponse struct {
	OK              bool  `json:"ok"`
	SessionsRemoved int64 `json:"sessionsRemoved"`
}

// RevokeResponse confirms single-token revocation.
type RevokeResponse struct {
	OK bool `json:"ok"`
}

// CurrentUserResponse describes the authenticated account.
type CurrentUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
