// Package storage declares the interface every storage backend of the
// service implements.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/mvolkov/biotap/internal/link"
	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/user"
)

// Storage is the full persistence contract of the application.
// The transaction parameters follow the database/sql model; backends
// without transaction support accept and ignore nil transactions.
type Storage interface {
	// Users

	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error

	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	GetUserByUsername(ctx context.Context, username string) (*user.User, error)

	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	UpdateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error

	DeleteUser(ctx context.Context, userID string) error

	GetActiveUsers(ctx context.Context) ([]user.User, error)

	// Links

	CreateLink(ctx context.Context, lnk *link.Link) error

	GetLinkByID(ctx context.Context, linkID string) (*link.Link, error)

	GetUserLinks(ctx context.Context, userID string, skip, limit int) ([]link.Link, error)

	GetActiveUserLinks(ctx context.Context, userID string) ([]link.Link, error)

	UpdateLink(ctx context.Context, lnk *link.Link) error

	DeleteLink(ctx context.Context, linkID string) error

	IncrementClickCount(ctx context.Context, linkID string) (*link.Link, error)

	// Click events

	InsertClickEvents(ctx context.Context, events []models.ClickEvent) error

	CountClicks(ctx context.Context, linkIDs []string, from, to time.Time) (int64, error)

	CountUniqueVisitors(ctx context.Context, linkIDs []string, from, to time.Time) (int64, error)

	GetDailyStats(
		ctx context.Context,
		linkIDs []string,
		from, to time.Time,
		onlyWithCountry bool,
	) ([]models.DailyStats, error)

	GetClicksPerLink(ctx context.Context, linkIDs []string, from, to time.Time) (map[string]int64, error)

	GetDeviceCounts(ctx context.Context, linkIDs []string, from, to time.Time) (map[string]int64, error)

	GetCountryClicks(ctx context.Context, linkIDs []string, from, to time.Time) ([]models.CountryClicks, error)

	// Password reset tokens

	CreatePasswordResetToken(ctx context.Context, token *models.PasswordResetToken, transaction *sql.Tx) error

	GetValidPasswordResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error)

	MarkPasswordResetTokenUsed(ctx context.Context, tokenID int64, transaction *sql.Tx) error

	// Email log

	InsertEmailLog(ctx context.Context, entry *models.EmailLogEntry) error

	HasAnalyticsEmailSince(ctx context.Context, userID string, since time.Time) (bool, error)

	GetAnalyticsEmailLogs(ctx context.Context, since time.Time) ([]models.EmailLogEntry, error)

	// Transactions

	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error

	Ping(ctx context.Context) error

	Close() error
}
