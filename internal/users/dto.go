package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"display_name"`
	PhotoURL    *string        `json:"photo_url,omitempty"`
	Phone       *string        `json:"phone,omitempty"`
	Role        enums.UserRole `json:"role"`
	IsActive    bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	DisplayName  string
	PhotoURL     *string
	Phone        *string
	Role         enums.UserRole
}

// UpdateProfileInput carries the editable profile fields.
type UpdateProfileInput struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=80"`
	PhotoURL    *string `json:"photo_url,omitempty" validate:"omitempty,url"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// Identity is the slice of a user the request and chat flows read.
type Identity struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	PhotoURL    *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// IdentityFromModel falls back to the email when no display name is set.
func IdentityFromModel(u *models.User) Identity {
	name := u.DisplayName
	if name == "" {
		name = u.Email
	}
	return Identity{
		UserID:      u.ID,
		DisplayName: name,
		Email:       u.Email,
		PhotoURL:    u.PhotoURL,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:           uuid.New(),
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		DisplayName:  c.DisplayName,
		PhotoURL:     c.PhotoURL,
		Phone:        c.Phone,
		Role:         c.Role,
		IsActive:     true,
	}
}
