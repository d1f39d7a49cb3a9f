package auth

import (
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the public sign-up payload.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=3"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// AdminRegisterRequest creates a staff account outside production.
type AdminRegisterRequest struct {
	Name     string     `json:"name" validate:"required"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     enums.Role `json:"role" validate:"required,oneof=manager admin"`
}

// TokenResponse is returned by login and registration.
type TokenResponse struct {
	AccessToken string         `json:"token"`
	User        *users.UserDTO `json:"user"`
}
