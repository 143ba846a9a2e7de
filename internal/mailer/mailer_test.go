package mailer

import (
	"context"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvolkov/biotap/internal/db/memorystorage"
	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/user"
)

type stubEmailsAPI struct {
	sent    []*resend.SendEmailRequest
	sendErr error
}

func (s *stubEmailsAPI) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	s.sent = append(s.sent, params)
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &resend.SendEmailResponse{Id: "stub-id"}, nil
}

func newTestMailer(t *testing.T, opts Options) (*Mailer, *stubEmailsAPI, *memorystorage.MemoryStorage) {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	stub := &stubEmailsAPI{}
	return &Mailer{emails: stub, db: db, opts: opts}, stub, db
}

func testUser() *user.User {
	return &user.User{
		ID:       "u1",
		Username: "alice",
		Email:    "alice@example.com",
		IsActive: true,
	}
}

func TestSendWelcome(t *testing.T) {
	m, stub, db := newTestMailer(t, Options{
		FromEmail:         "noreply@example.com",
		AppName:           "BioTap",
		FrontendURL:       "https://biotap.example.com",
		SendWelcomeEmails: true,
	})

	require.NoError(t, m.SendWelcome(context.Background(), testUser()))

	require.Len(t, stub.sent, 1)
	assert.Equal(t, "noreply@example.com", stub.sent[0].From)
	assert.Equal(t, []string{"alice@example.com"}, stub.sent[0].To)
	assert.Equal(t, "Welcome to BioTap!", stub.sent[0].Subject)
	assert.Contains(t, stub.sent[0].Html, "alice")
	assert.Contains(t, stub.sent[0].Html, "https://biotap.example.com/dashboard")

	logs, err := db.GetAnalyticsEmailLogs(context.Background(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, logs, "welcome emails are not analytics summaries")
}

func TestSendWelcomeDisabled(t *testing.T) {
	m, stub, _ := newTestMailer(t, Options{SendWelcomeEmails: false})

	require.NoError(t, m.SendWelcome(context.Background(), testUser()))
	assert.Empty(t, stub.sent)
}

func TestSendPasswordResetIgnoresFeatureFlags(t *testing.T) {
	m, stub, _ := newTestMailer(t, Options{
		FromEmail:   "noreply@example.com",
		AppName:     "BioTap",
		FrontendURL: "https://biotap.example.com",
	})

	require.NoError(t, m.SendPasswordReset(context.Background(), testUser(), "raw-token"))

	require.Len(t, stub.sent, 1)
	assert.Contains(t, stub.sent[0].Html, "https://biotap.example.com/reset-password?token=raw-token")
}

func TestSendAnalyticsSummary(t *testing.T) {
	m, stub, db := newTestMailer(t, Options{
		FromEmail:           "noreply@example.com",
		AppName:             "BioTap",
		FrontendURL:         "https://biotap.example.com",
		SendAnalyticsEmails: true,
	})

	analytics := &models.AnalyticsResponse{
		TotalClicks:    42,
		UniqueVisitors: 17,
		TopLinks: []models.LinkStats{
			{LinkID: "l1", Title: "First", Clicks: 20},
			{LinkID: "l2", Title: "Second", Clicks: 12},
			{LinkID: "l3", Title: "Third", Clicks: 6},
			{LinkID: "l4", Title: "Fourth", Clicks: 4},
		},
		GrowthPercentage: 12.5,
	}
	periodEnd := time.Now()
	periodStart := periodEnd.AddDate(0, 0, -7)

	require.NoError(t, m.SendAnalyticsSummary(context.Background(), testUser(), analytics, periodStart, periodEnd))

	require.Len(t, stub.sent, 1)
	html := stub.sent[0].Html
	assert.Contains(t, html, "42")
	assert.Contains(t, html, "First")
	assert.Contains(t, html, "Third")
	assert.NotContains(t, html, "Fourth", "only the top three links are shown")
	assert.Contains(t, html, "12.5")

	logs, err := db.GetAnalyticsEmailLogs(context.Background(), periodStart)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	require.NotNil(t, logs[0].PeriodStart)

	sent, err := db.HasAnalyticsEmailSince(context.Background(), "u1", periodStart.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestSendFailureIsLogged(t *testing.T) {
	m, stub, db := newTestMailer(t, Options{
		FromEmail:           "noreply@example.com",
		AppName:             "BioTap",
		SendAnalyticsEmails: true,
	})
	stub.sendErr = assert.AnError

	periodEnd := time.Now()
	periodStart := periodEnd.AddDate(0, 0, -7)
	err := m.SendAnalyticsSummary(
		context.Background(),
		testUser(),
		&models.AnalyticsResponse{},
		periodStart,
		periodEnd,
	)
	require.Error(t, err)

	logs, err := db.GetAnalyticsEmailLogs(context.Background(), periodStart)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.NotEmpty(t, logs[0].ErrorMessage)
}
