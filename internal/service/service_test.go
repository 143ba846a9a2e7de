package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvolkov/biotap/internal/db/memorystorage"
	"github.com/mvolkov/biotap/internal/geoip"
	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/user"
)

type stubMailer struct {
	welcomeSent   []string
	resetTokens   map[string]string
	summariesSent []string
	failSummaries bool
}

func newStubMailer() *stubMailer {
	return &stubMailer{resetTokens: map[string]string{}}
}

func (m *stubMailer) SendWelcome(_ context.Context, usr *user.User) error {
	m.welcomeSent = append(m.welcomeSent, usr.ID)
	return nil
}

func (m *stubMailer) SendPasswordReset(_ context.Context, usr *user.User, resetToken string) error {
	m.resetTokens[usr.ID] = resetToken
	return nil
}

func (m *stubMailer) SendAnalyticsSummary(
	_ context.Context,
	usr *user.User,
	_ *models.AnalyticsResponse,
	_, _ time.Time,
) error {
	if m.failSummaries {
		return assert.AnError
	}
	m.summariesSent = append(m.summariesSent, usr.ID)
	return nil
}

type stubTokenBuilder struct{}

func (stubTokenBuilder) BuildToken(userID string) (string, error) {
	return "token-for-" + userID, nil
}

type stubClickQueue struct {
	jobs []*models.ClickJob
}

func (q *stubClickQueue) EnqueueJob(job *models.ClickJob) {
	q.jobs = append(q.jobs, job)
}

type testHarness struct {
	service *Service
	db      *memorystorage.MemoryStorage
	mailer  *stubMailer
	clicks  *stubClickQueue
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	geo, err := geoip.New("")
	require.NoError(t, err)

	theMailer := newStubMailer()
	clicks := &stubClickQueue{}

	return &testHarness{
		service: New(db, theMailer, stubTokenBuilder{}, clicks, geo, 30*time.Minute),
		db:      db,
		mailer:  theMailer,
		clicks:  clicks,
	}
}

func registerTestUser(t *testing.T, h *testHarness, username string) *user.User {
	t.Helper()

	usr, token, err := h.service.Register(context.Background(), &models.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password-123",
	})
	require.NoError(t, err)
	require.NotNil(t, token)

	return usr
}

func TestRegister(t *testing.T) {
	h := newTestHarness(t)

	usr, token, err := h.service.Register(context.Background(), &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password-123",
		FullName: "Alice A.",
	})
	require.NoError(t, err)
	require.NotNil(t, usr)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.Equal(t, "token-for-"+usr.ID, token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
	assert.Equal(t, []string{usr.ID}, h.mailer.welcomeSent)

	_, _, err = h.service.Register(context.Background(), &models.RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "password-123",
	})
	assert.ErrorIs(t, err, models.ErrUsernameTaken)

	_, _, err = h.service.Register(context.Background(), &models.RegisterRequest{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "password-123",
	})
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	h := newTestHarness(t)
	usr := registerTestUser(t, h, "alice")

	loggedIn, token, err := h.service.Login(context.Background(), &models.LoginRequest{
		Username: "alice",
		Password: "password-123",
	})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, loggedIn.ID)
	assert.Equal(t, "bearer", token.TokenType)

	_, _, err = h.service.Login(context.Background(), &models.LoginRequest{
		Username: "alice",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, _, err = h.service.Login(context.Background(), &models.LoginRequest{
		Username: "nobody",
		Password: "password-123",
	})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	usr.IsActive = false
	require.NoError(t, h.db.UpdateUser(context.Background(), usr, nil))
	_, _, err = h.service.Login(context.Background(), &models.LoginRequest{
		Username: "alice",
		Password: "password-123",
	})
	assert.ErrorIs(t, err, models.ErrInactiveUser)
}

func TestPasswordResetFlow(t *testing.T) {
	h := newTestHarness(t)
	usr := registerTestUser(t, h, "alice")

	// Unknown email reports success without sending anything.
	require.NoError(t, h.service.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, h.mailer.resetTokens)

	require.NoError(t, h.service.RequestPasswordReset(context.Background(), "alice@example.com"))
	rawToken := h.mailer.resetTokens[usr.ID]
	require.NotEmpty(t, rawToken)

	require.NoError(t, h.service.ConfirmPasswordReset(context.Background(), rawToken, "new-password-456"))

	_, _, err := h.service.Login(context.Background(), &models.LoginRequest{
		Username: "alice",
		Password: "new-password-456",
	})
	require.NoError(t, err)

	// The token is single-use.
	err = h.service.ConfirmPasswordReset(context.Background(), rawToken, "another-password")
	assert.ErrorIs(t, err, models.ErrInvalidResetToken)

	err = h.service.ConfirmPasswordReset(context.Background(), "bogus-token", "another-password")
	assert.ErrorIs(t, err, models.ErrInvalidResetToken)
}

func TestChangePassword(t *testing.T) {
	h := newTestHarness(t)
	usr := registerTestUser(t, h, "alice")

	err := h.service.ChangePassword(context.Background(), usr, &models.PasswordChangeRequest{
		CurrentPassword: "wrong",
		NewPassword:     "new-password-456",
	})
	assert.ErrorIs(t, err, models.ErrWrongPassword)

	require.NoError(t, h.service.ChangePassword(context.Background(), usr, &models.PasswordChangeRequest{
		CurrentPassword: "password-123",
		NewPassword:     "new-password-456",
	}))

	_, _, err = h.service.Login(context.Background(), &models.LoginRequest{
		Username: "alice",
		Password: "new-password-456",
	})
	require.NoError(t, err)
}

func TestLinkOwnership(t *testing.T) {
	h := newTestHarness(t)
	alice := registerTestUser(t, h, "alice")
	bob := registerTestUser(t, h, "bob")

	lnk, err := h.service.CreateLink(context.Background(), alice.ID, &models.LinkCreateRequest{
		Title: "My site",
		URL:   "https://example.com",
	})
	require.NoError(t, err)
	assert.True(t, lnk.IsActive)

	_, err = h.service.GetLink(context.Background(), bob.ID, lnk.ID)
	assert.ErrorIs(t, err, models.ErrNotOwner)

	_, err = h.service.UpdateLink(context.Background(), bob.ID, lnk.ID, &models.LinkUpdateRequest{})
	assert.ErrorIs(t, err, models.ErrNotOwner)

	err = h.service.DeleteLink(context.Background(), bob.ID, lnk.ID)
	assert.ErrorIs(t, err, models.ErrNotOwner)

	err = h.service.DeleteLink(context.Background(), alice.ID, lnk.ID)
	require.NoError(t, err)

	_, err = h.service.GetLink(context.Background(), alice.ID, lnk.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateLinkPartial(t *testing.T) {
	h := newTestHarness(t)
	alice := registerTestUser(t, h, "alice")

	lnk, err := h.service.CreateLink(context.Background(), alice.ID, &models.LinkCreateRequest{
		Title:       "My site",
		URL:         "https://example.com",
		Description: "original",
	})
	require.NoError(t, err)

	newTitle := "Renamed"
	inactive := false
	updated, err := h.service.UpdateLink(context.Background(), alice.ID, lnk.ID, &models.LinkUpdateRequest{
		Title:    &newTitle,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "original", updated.Description, "untouched fields stay")
	assert.Equal(t, "https://example.com", updated.URL)
}

func TestResolveClick(t *testing.T) {
	h := newTestHarness(t)
	alice := registerTestUser(t, h, "alice")

	lnk, err := h.service.CreateLink(context.Background(), alice.ID, &models.LinkCreateRequest{
		Title: "My site",
		URL:   "https://example.com",
	})
	require.NoError(t, err)

	targetURL, err := h.service.ResolveClick(context.Background(), lnk.ID, &models.ClickJob{
		IPAddress: "1.1.1.1",
		UserAgent: "test-agent",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", targetURL)

	require.Len(t, h.clicks.jobs, 1)
	assert.Equal(t, lnk.ID, h.clicks.jobs[0].LinkID)
	assert.False(t, h.clicks.jobs[0].ClickedAt.IsZero())

	stored, err := h.db.GetLinkByID(context.Background(), lnk.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ClickCount)

	inactive := false
	_, err = h.service.UpdateLink(context.Background(), alice.ID, lnk.ID, &models.LinkUpdateRequest{
		IsActive: &inactive,
	})
	require.NoError(t, err)

	_, err = h.service.ResolveClick(context.Background(), lnk.ID, &models.ClickJob{})
	assert.ErrorIs(t, err, models.ErrLinkInactive)

	_, err = h.service.ResolveClick(context.Background(), "missing", &models.ClickJob{})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetPublicProfile(t *testing.T) {
	h := newTestHarness(t)
	alice := registerTestUser(t, h, "alice")

	_, err := h.service.CreateLink(context.Background(), alice.ID, &models.LinkCreateRequest{
		Title: "Visible",
		URL:   "https://example.com/visible",
	})
	require.NoError(t, err)

	inactive := false
	_, err = h.service.CreateLink(context.Background(), alice.ID, &models.LinkCreateRequest{
		Title:    "Hidden",
		URL:      "https://example.com/hidden",
		IsActive: &inactive,
	})
	require.NoError(t, err)

	usr, links, err := h.service.GetPublicProfile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, usr.ID)
	require.Len(t, links, 1)
	assert.Equal(t, "Visible", links[0].Title)

	_, _, err = h.service.GetPublicProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)

	alice.IsActive = false
	require.NoError(t, h.db.UpdateUser(context.Background(), alice, nil))
	_, _, err = h.service.GetPublicProfile(context.Background(), "alice")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func insertClicks(t *testing.T, h *testHarness, events []models.ClickEvent) {
	t.Helper()
	require.NoError(t, h.db.InsertClickEvents(context.Background(), events))
}

func TestGetAnalytics(t *testing.T) {
	h := newTestHarness(t)
	alice := registerTestUser(t, h, "alice")

	lnk1, err := h.service.CreateLink(context.Background(), alice.ID, &models.LinkCreateRequest{
		Title: "First",
		URL:   "https://example.com/1",
	})
	require.NoError(t, err)
	lnk2, err := h.service.CreateLink(context.Background(), alice.ID, &models.LinkCreateRequest{
		Title: "Second",
		URL:   "https://example.com/2",
	})
	require.NoError(t, err)

	now := time.Now()
	insertClicks(t, h, []models.ClickEvent{
		{LinkID: lnk1.ID, ClickedAt: now.Add(-time.Hour), IPAddress: "1.1.1.1", DeviceType: "mobile"},
		{LinkID: lnk1.ID, ClickedAt: now.Add(-2 * time.Hour), IPAddress: "2.2.2.2", DeviceType: "mobile"},
		{LinkID: lnk1.ID, ClickedAt: now.Add(-3 * time.Hour), IPAddress: "1.1.1.1", DeviceType: "desktop"},
		{LinkID: lnk2.ID, ClickedAt: now.Add(-time.Hour), IPAddress: "3.3.3.3", DeviceType: "mobile"},
		// Previous period, counts only towards growth.
		{LinkID: lnk1.ID, ClickedAt: now.AddDate(0, 0, -10), IPAddress: "4.4.4.4"},
	})

	analytics, err := h.service.GetAnalytics(context.Background(), alice.ID, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(4), analytics.TotalClicks)
	assert.Equal(t, int64(3), analytics.UniqueVisitors)

	require.Len(t, analytics.TopLinks, 2)
	assert.Equal(t, lnk1.ID, analytics.TopLinks[0].LinkID)
	assert.Equal(t, int64(3), analytics.TopLinks[0].Clicks)
	assert.InDelta(t, 75.0, analytics.TopLinks[0].Percentage, 0.01)
	assert.InDelta(t, 25.0, analytics.TopLinks[1].Percentage, 0.01)

	require.Len(t, analytics.DeviceStats, 2)
	assert.Equal(t, "mobile", analytics.DeviceStats[0].DeviceType)
	assert.Equal(t, int64(3), analytics.DeviceStats[0].Count)
	assert.InDelta(t, 75.0, analytics.DeviceStats[0].Percentage, 0.01)

	// One click in the previous period, four in the current one.
	assert.InDelta(t, 300.0, analytics.GrowthPercentage, 0.01)

	require.NotEmpty(t, analytics.DailyStats)
}

func TestGetAnalyticsNoLinks(t *testing.T) {
	h := newTestHarness(t)
	alice := registerTestUser(t, h, "alice")

	analytics, err := h.service.GetAnalytics(context.Background(), alice.ID, 30)
	require.NoError(t, err)
	assert.Zero(t, analytics.TotalClicks)
	assert.Empty(t, analytics.TopLinks)
	assert.Zero(t, analytics.GrowthPercentage)
}

func TestGrowthWithEmptyPreviousPeriod(t *testing.T) {
	h := newTestHarness(t)
	alice := registerTestUser(t, h, "alice")

	lnk, err := h.service.CreateLink(context.Background(), alice.ID, &models.LinkCreateRequest{
		Title: "First",
		URL:   "https://example.com/1",
	})
	require.NoError(t, err)

	insertClicks(t, h, []models.ClickEvent{
		{LinkID: lnk.ID, ClickedAt: time.Now().Add(-time.Hour), IPAddress: "1.1.1.1"},
	})

	analytics, err := h.service.GetAnalytics(context.Background(), alice.ID, 7)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, analytics.GrowthPercentage, 0.01)
}

func TestGetGeographicAnalytics(t *testing.T) {
	h := newTestHarness(t)
	alice := registerTestUser(t, h, "alice")

	lnk, err := h.service.CreateLink(context.Background(), alice.ID, &models.LinkCreateRequest{
		Title: "First",
		URL:   "https://example.com/1",
	})
	require.NoError(t, err)

	now := time.Now()
	insertClicks(t, h, []models.ClickEvent{
		{LinkID: lnk.ID, ClickedAt: now.Add(-time.Hour), IPAddress: "1.1.1.1", Country: "US"},
		{LinkID: lnk.ID, ClickedAt: now.Add(-time.Hour), IPAddress: "2.2.2.2", Country: "US"},
		{LinkID: lnk.ID, ClickedAt: now.Add(-time.Hour), IPAddress: "3.3.3.3", Country: "DE"},
		{LinkID: lnk.ID, ClickedAt: now.Add(-time.Hour), IPAddress: "4.4.4.4"},
	})

	analytics, err := h.service.GetGeographicAnalytics(context.Background(), alice.ID, 7)
	require.NoError(t, err)

	assert.Equal(t, 2, analytics.TotalCountries)
	require.Len(t, analytics.TopCountries, 2)
	assert.Equal(t, "US", analytics.TopCountries[0].CountryCode)
	assert.Equal(t, "United States", analytics.TopCountries[0].CountryName)
	assert.Equal(t, int64(2), analytics.TopCountries[0].Clicks)
	assert.InDelta(t, 66.7, analytics.TopCountries[0].Percentage, 0.01)
	assert.Empty(t, analytics.CityBreakdown)
	require.NotEmpty(t, analytics.GeographicTrends)
}

func TestSendWeeklyAnalyticsEmails(t *testing.T) {
	h := newTestHarness(t)
	alice := registerTestUser(t, h, "alice")
	registerTestUser(t, h, "bob") // no clicks, must be skipped

	lnk, err := h.service.CreateLink(context.Background(), alice.ID, &models.LinkCreateRequest{
		Title: "First",
		URL:   "https://example.com/1",
	})
	require.NoError(t, err)
	insertClicks(t, h, []models.ClickEvent{
		{LinkID: lnk.ID, ClickedAt: time.Now().Add(-time.Hour), IPAddress: "1.1.1.1"},
	})

	result, err := h.service.SendWeeklyAnalyticsEmails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Zero(t, result.Errors)
	assert.Equal(t, []string{alice.ID}, h.mailer.summariesSent)
}

func TestSendWeeklyAnalyticsEmailsSkipsAlreadyMailed(t *testing.T) {
	h := newTestHarness(t)
	alice := registerTestUser(t, h, "alice")

	lnk, err := h.service.CreateLink(context.Background(), alice.ID, &models.LinkCreateRequest{
		Title: "First",
		URL:   "https://example.com/1",
	})
	require.NoError(t, err)
	insertClicks(t, h, []models.ClickEvent{
		{LinkID: lnk.ID, ClickedAt: time.Now().Add(-time.Hour), IPAddress: "1.1.1.1"},
	})

	periodStart := time.Now().Add(-time.Hour)
	require.NoError(t, h.db.InsertEmailLog(context.Background(), &models.EmailLogEntry{
		UserID:      alice.ID,
		EmailType:   models.EmailTypeAnalyticsSummary,
		SentAt:      time.Now(),
		Success:     true,
		PeriodStart: &periodStart,
	}))

	result, err := h.service.SendWeeklyAnalyticsEmails(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	assert.Empty(t, h.mailer.summariesSent)
}

func TestSendWeeklyAnalyticsEmailsCountsFailures(t *testing.T) {
	h := newTestHarness(t)
	alice := registerTestUser(t, h, "alice")
	h.mailer.failSummaries = true

	lnk, err := h.service.CreateLink(context.Background(), alice.ID, &models.LinkCreateRequest{
		Title: "First",
		URL:   "https://example.com/1",
	})
	require.NoError(t, err)
	insertClicks(t, h, []models.ClickEvent{
		{LinkID: lnk.ID, ClickedAt: time.Now().Add(-time.Hour), IPAddress: "1.1.1.1"},
	})

	result, err := h.service.SendWeeklyAnalyticsEmails(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	assert.Equal(t, 1, result.Errors)
}

func TestGetEmailStats(t *testing.T) {
	h := newTestHarness(t)

	now := time.Now()
	require.NoError(t, h.db.InsertEmailLog(context.Background(), &models.EmailLogEntry{
		UserID:    "u1",
		EmailType: models.EmailTypeAnalyticsSummary,
		SentAt:    now.Add(-time.Hour),
		Success:   true,
	}))
	require.NoError(t, h.db.InsertEmailLog(context.Background(), &models.EmailLogEntry{
		UserID:    "u2",
		EmailType: models.EmailTypeAnalyticsSummary,
		SentAt:    now.Add(-2 * time.Hour),
		Success:   false,
	}))

	stats, err := h.service.GetEmailStats(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalSent)
	assert.Equal(t, int64(1), stats.TotalFailed)
	assert.InDelta(t, 50.0, stats.SuccessRate, 0.01)
	require.NotNil(t, stats.LastSent)
}
