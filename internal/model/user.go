package model

import (
	"time"
)

// Role is a staff role. Higher levels include the permissions of lower ones.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAnalyst   Role = "analyst"
	RoleCounselor Role = "counselor"
	RoleSales     Role = "sales"
)

// Level returns the role's rank in the hierarchy, 0 for unknown roles.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 4
	case RoleAnalyst:
		return 3
	case RoleCounselor:
		return 2
	case RoleSales:
		return 1
	}
	return 0
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Level() > 0 && r.Level() >= min.Level()
}

// User is a staff member.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	Role         Role      `json:"role" db:"role"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	Active       bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// LoginRequest is the login form.
type LoginRequest struct {
	Username string `json:"username" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the request to create a staff user.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Role     Role   `json:"role" validate:"required,oneof=admin analyst counselor sales"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,e164"`
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
