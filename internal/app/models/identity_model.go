package models

import (
	"time"

	"github.com/google/uuid"
)

// IdentityUser is the identity provider's view of a caller. The core never
// manages sessions; it only consumes the opaque user id, the admin flag and
// the registration time (for account-age checks).
type IdentityUser struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsAdmin      bool      `json:"is_admin"`
	RegisteredAt time.Time `json:"registered_at"`
}
