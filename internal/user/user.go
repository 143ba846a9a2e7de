// Package user defines the account entity used throughout the
// application, particularly for authentication and link ownership.
package user

import "time"

// User represents a registered account.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"id"`

	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`

	// HashedPassword is the bcrypt hash of the account password.
	// It is never serialized in API responses.
	HashedPassword string `json:"-"`

	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
