// Package models defines the request/response payloads, click event and
// email log records, and the sentinel errors shared between the storage,
// service and router layers.
package models

import (
	"errors"
	"time"
)

// RegisterRequest is the payload for creating a new account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=100"`
	FullName string `json:"full_name,omitempty" validate:"omitempty,max=100"`
}

// LoginRequest is the payload for username/password authentication.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirm struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=100"`
}

type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100"`
}

// UserUpdateRequest carries the profile fields a user may change.
// Nil pointers mean "leave unchanged".
type UserUpdateRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// LinkCreateRequest is the payload for creating a link.
type LinkCreateRequest struct {
	Title        string `json:"title" validate:"required,max=100"`
	URL          string `json:"url" validate:"required,url,max=2000"`
	Description  string `json:"description,omitempty" validate:"omitempty,max=500"`
	Icon         string `json:"icon,omitempty" validate:"omitempty,max=50"`
	IsActive     *bool  `json:"is_active,omitempty"`
	DisplayOrder int    `json:"display_order,omitempty"`
}

// LinkUpdateRequest carries a partial link update. Nil pointers mean
// "leave unchanged".
type LinkUpdateRequest struct {
	Title        *string `json:"title,omitempty" validate:"omitempty,max=100"`
	URL          *string `json:"url,omitempty" validate:"omitempty,url,max=2000"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Icon         *string `json:"icon,omitempty" validate:"omitempty,max=50"`
	IsActive     *bool   `json:"is_active,omitempty"`
	DisplayOrder *int    `json:"display_order,omitempty"`
}

// ClickEvent is a single recorded click with request metadata.
type ClickEvent struct {
	ID         int64     `json:"id"`
	LinkID     string    `json:"link_id"`
	ClickedAt  time.Time `json:"clicked_at"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Referer    string    `json:"referer,omitempty"`
	Country    string    `json:"country,omitempty"`
	DeviceType string    `json:"device_type,omitempty"`
	Browser    string    `json:"browser,omitempty"`
}

// ClickJob is the unit of work queued for the background click tracker.
type ClickJob struct {
	LinkID    string
	ClickedAt time.Time
	IPAddress string
	UserAgent string
	Referer   string
}

// DailyStats is one point of a per-day click series.
type DailyStats struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

// LinkStats describes the performance of a single link within a period.
type LinkStats struct {
	LinkID     string  `json:"link_id"`
	Title      string  `json:"title"`
	Clicks     int64   `json:"clicks"`
	Percentage float64 `json:"percentage"`
}

type DeviceStats struct {
	DeviceType string  `json:"device_type"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type CountryStats struct {
	CountryCode    string  `json:"country_code"`
	CountryName    string  `json:"country_name"`
	Clicks         int64   `json:"clicks"`
	Percentage     float64 `json:"percentage"`
	UniqueVisitors int64   `json:"unique_visitors"`
}

type CityStats struct {
	City        string  `json:"city"`
	CountryCode string  `json:"country_code"`
	CountryName string  `json:"country_name"`
	Clicks      int64   `json:"clicks"`
	Percentage  float64 `json:"percentage"`
}

// AnalyticsResponse is the aggregate returned by GET /analytics.
type AnalyticsResponse struct {
	TotalClicks      int64         `json:"total_clicks"`
	UniqueVisitors   int64         `json:"unique_visitors"`
	DailyStats       []DailyStats  `json:"daily_stats"`
	TopLinks         []LinkStats   `json:"top_links"`
	DeviceStats      []DeviceStats `json:"device_stats"`
	GrowthPercentage float64       `json:"growth_percentage"`
}

// GeographicResponse is the aggregate returned by GET /analytics/geographic.
type GeographicResponse struct {
	TotalCountries   int            `json:"total_countries"`
	TopCountries     []CountryStats `json:"top_countries"`
	CityBreakdown    []CityStats    `json:"city_breakdown"`
	GeographicTrends []DailyStats   `json:"geographic_trends"`
}

// CountryClicks is a raw per-country aggregation row produced by the
// storage layer; the service turns it into CountryStats.
type CountryClicks struct {
	Country        string
	Clicks         int64
	UniqueVisitors int64
}

// EmailType classifies entries of the email log.
type EmailType string

const (
	EmailTypeWelcome          EmailType = "welcome"
	EmailTypePasswordReset    EmailType = "password_reset"
	EmailTypeAnalyticsSummary EmailType = "analytics_summary"
)

// EmailLogEntry records one outbound email attempt.
type EmailLogEntry struct {
	ID             int64      `json:"id"`
	UserID         string     `json:"user_id"`
	EmailType      EmailType  `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	SentAt         time.Time  `json:"sent_at"`
	Success        bool       `json:"success"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	PeriodStart    *time.Time `json:"analytics_period_start,omitempty"`
	PeriodEnd      *time.Time `json:"analytics_period_end,omitempty"`
}

// EmailStatsResponse summarizes analytics email delivery over a period.
type EmailStatsResponse struct {
	TotalSent   int64      `json:"total_sent"`
	TotalFailed int64      `json:"total_failed"`
	SuccessRate float64    `json:"success_rate"`
	LastSent    *time.Time `json:"last_sent"`
}

// WeeklyJobResult reports the outcome of a weekly summary run.
type WeeklyJobResult struct {
	Sent   int `json:"sent"`
	Errors int `json:"errors"`
}

// PasswordResetToken is a single-use, expiring reset credential.
type PasswordResetToken struct {
	ID        int64
	UserID    string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsUsed    bool
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeMemory
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUsernameTaken is returned on registration with a known username.
	ErrUsernameTaken = errors.New("username already registered")

	// ErrEmailTaken is returned on registration with a known email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for a bad username/password pair
	// or a token referencing a missing user.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// ErrInactiveUser is returned when a disabled account is used.
	ErrInactiveUser = errors.New("inactive user")

	// ErrLinkInactive is returned when a deactivated link is clicked.
	ErrLinkInactive = errors.New("link is not active")

	// ErrNotOwner is returned when a user touches a link they do not own.
	ErrNotOwner = errors.New("not authorized to access this link")

	// ErrInvalidResetToken is returned for unknown, used or expired
	// password reset tokens.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")

	// ErrWrongPassword is returned when the current password check fails.
	ErrWrongPassword = errors.New("current password is incorrect")
)
