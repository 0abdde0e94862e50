package types

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile mirrors a row of the users table. DeletedAt is kept internal
// and excluded from JSON responses.
type UserProfile struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// UpdateProfileParams defines the fields allowed for profile updates.
// Pointers distinguish "not provided" from zero values, allowing partial
// updates.
type UpdateProfileParams struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	IsActive *bool   `json:"is_active,omitempty"`
}
