package dto

import (
	"time"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// CreateUserRequest payload.
type CreateUserRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Fullname string      `json:"fullname"`
	Role     domain.Role `json:"role"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Fullname  string      `json:"fullname"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}
