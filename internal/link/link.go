// Package link defines the link entity: a single entry on a user's
// public page, with its click counter and ordering metadata.
package link

import "time"

// Link is one entry of a user's page.
type Link struct {
	// ID is the unique identifier of the link, meaning a UUID.
	ID string `json:"id"`

	// UserID references the owning user.
	UserID string `json:"user_id"`

	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`

	IsActive     bool `json:"is_active"`
	DisplayOrder int  `json:"display_order"`

	// ClickCount is the lifetime counter, incremented synchronously on
	// every tracked click. Detailed per-click metadata lives in click
	// events.
	ClickCount int64 `json:"click_count"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
