// Package service implements the business logic of the platform: account
// management, link CRUD with ownership checks, click tracking and the
// analytics aggregations, plus the weekly summary email job.
package service

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/mvolkov/biotap/internal/link"
	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	UpdateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error
	DeleteUser(ctx context.Context, userID string) error
	GetActiveUsers(ctx context.Context) ([]user.User, error)
}

type linkKeeper interface {
	CreateLink(ctx context.Context, lnk *link.Link) error
	GetLinkByID(ctx context.Context, linkID string) (*link.Link, error)
	GetUserLinks(ctx context.Context, userID string, skip, limit int) ([]link.Link, error)
	GetActiveUserLinks(ctx context.Context, userID string) ([]link.Link, error)
	UpdateLink(ctx context.Context, lnk *link.Link) error
	DeleteLink(ctx context.Context, linkID string) error
	IncrementClickCount(ctx context.Context, linkID string) (*link.Link, error)
}

type clickStatsKeeper interface {
	CountClicks(ctx context.Context, linkIDs []string, from, to time.Time) (int64, error)
	CountUniqueVisitors(ctx context.Context, linkIDs []string, from, to time.Time) (int64, error)
	GetDailyStats(ctx context.Context, linkIDs []string, from, to time.Time, onlyWithCountry bool) ([]models.DailyStats, error)
	GetClicksPerLink(ctx context.Context, linkIDs []string, from, to time.Time) (map[string]int64, error)
	GetDeviceCounts(ctx context.Context, linkIDs []string, from, to time.Time) (map[string]int64, error)
	GetCountryClicks(ctx context.Context, linkIDs []string, from, to time.Time) ([]models.CountryClicks, error)
}

type resetTokenKeeper interface {
	CreatePasswordResetToken(ctx context.Context, token *models.PasswordResetToken, transaction *sql.Tx) error
	GetValidPasswordResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkPasswordResetTokenUsed(ctx context.Context, tokenID int64, transaction *sql.Tx) error
}

type emailLogKeeper interface {
	HasAnalyticsEmailSince(ctx context.Context, userID string, since time.Time) (bool, error)
	GetAnalyticsEmailLogs(ctx context.Context, since time.Time) ([]models.EmailLogEntry, error)
}

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)
	RollbackTransaction(transaction *sql.Tx) error
	CommitTransaction(transaction *sql.Tx) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	linkKeeper
	clickStatsKeeper
	resetTokenKeeper
	emailLogKeeper
	transactioner
	pinger
}

type mailSender interface {
	SendWelcome(ctx context.Context, usr *user.User) error
	SendPasswordReset(ctx context.Context, usr *user.User, resetToken string) error
	SendAnalyticsSummary(
		ctx context.Context,
		usr *user.User,
		analytics *models.AnalyticsResponse,
		periodStart, periodEnd time.Time,
	) error
}

type tokenBuilder interface {
	BuildToken(userID string) (string, error)
}

type clickEnqueuer interface {
	EnqueueJob(job *models.ClickJob)
}

type countryNamer interface {
	CountryName(code string) string
}

// Service holds the application business logic on top of a storage
// backend, the mailer and the click tracker.
type Service struct {
	db            storage
	mailer        mailSender
	tokens        tokenBuilder
	clicks        clickEnqueuer
	geoNames      countryNamer
	resetTokenTTL time.Duration
}

// New assembles a Service.
func New(
	db storage,
	mailer mailSender,
	tokens tokenBuilder,
	clicks clickEnqueuer,
	geoNames countryNamer,
	resetTokenTTL time.Duration,
) *Service {
	return &Service{
		db:            db,
		mailer:        mailer,
		tokens:        tokens,
		clicks:        clicks,
		geoNames:      geoNames,
		resetTokenTTL: resetTokenTTL,
	}
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}
