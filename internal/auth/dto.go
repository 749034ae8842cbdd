package auth

import (
	"github.com/pasabuy/pasabuy-backend/internal/users"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a requester or pasabuyer account.
type RegisterRequest struct {
	Email       string         `json:"email" validate:"required,email"`
	Password    string         `json:"password" validate:"required,min=6"`
	DisplayName string         `json:"display_name" validate:"notblank,max=80"`
	Role        enums.UserRole `json:"role" validate:"required"`
	PhotoURL    *string        `json:"photo_url,omitempty" validate:"omitempty,url"`
	Phone       *string        `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// LoginResponse contains the token pair and the signed-in user.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}
