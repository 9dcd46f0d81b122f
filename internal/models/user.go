package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system.
type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Identity is the resolved, display-ready representation of an actor. It is
// derived from a credential and never persisted.
type Identity struct {
	UserID        uuid.UUID `json:"user_id,omitempty"`
	Name          string    `json:"name"`
	Authenticated bool      `json:"authenticated"`
}

// AnonymousName is the sentinel display name assigned to realtime
// connections whose credential was absent or failed to resolve.
const AnonymousName = "anonymous"

// Anonymous returns the sentinel identity for unauthenticated sessions.
func Anonymous() Identity {
	return Identity{Name: AnonymousName}
}
