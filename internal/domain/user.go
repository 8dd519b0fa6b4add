package domain

import "time"

// Well-known role names. ROLE_USER is attached to every new registration.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// User is the domain model for account holders.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is a named authority granted to users.
type Role struct {
	ID   string
	Name string
}
