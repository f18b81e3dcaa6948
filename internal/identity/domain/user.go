package domain

import "time"

// User represents an account. Users are never hard-deleted by the
// application: deactivation flips IsActive and nothing else.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsStaff      bool       `db:"is_staff" json:"is_staff"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	DateJoined   time.Time  `db:"date_joined" json:"date_joined"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
}

// RegisterRequest is the payload for public account registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the payload for authentication
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SetPasswordRequest is the payload for an administrator resetting
// another user's password
type SetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}
