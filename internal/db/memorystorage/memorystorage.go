// Package memorystorage provides an in-memory implementation of the
// storage interface. It backs development runs without a DATABASE_URL
// and the handler/service tests.
package memorystorage

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mvolkov/biotap/internal/link"
	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/user"
)

// MemoryStorage keeps every record in process memory.
// All operations are safe for concurrent use.
type MemoryStorage struct {
	mu sync.RWMutex

	users       map[string]*user.User
	links       map[string]*link.Link
	clickEvents []models.ClickEvent
	nextClickID int64

	resetTokens map[string]*models.PasswordResetToken
	nextTokenID int64

	emailLog    []models.EmailLogEntry
	nextEmailID int64
}

// New returns an empty MemoryStorage.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users:       map[string]*user.User{},
		links:       map[string]*link.Link{},
		resetTokens: map[string]*models.PasswordResetToken{},
	}, nil
}

// CreateUser stores a new user.
func (s *MemoryStorage) CreateUser(_ context.Context, usr *user.User, _ *sql.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *usr
	s.users[usr.ID] = &clone

	return nil
}

// GetUserByID fetches a user by UUID.
func (s *MemoryStorage) GetUserByID(_ context.Context, userID string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, ok := s.users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}

	clone := *usr
	return &clone, nil
}

// GetUserByUsername fetches a user by username.
func (s *MemoryStorage) GetUserByUsername(_ context.Context, username string) (*user.User, error) {
	return s.findUser(func(usr *user.User) bool { return usr.Username == username })
}

// GetUserByEmail fetches a user by email.
func (s *MemoryStorage) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	return s.findUser(func(usr *user.User) bool { return strings.EqualFold(usr.Email, email) })
}

func (s *MemoryStorage) findUser(match func(*user.User) bool) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, usr := range s.users {
		if match(usr) {
			clone := *usr
			return &clone, nil
		}
	}

	return nil, models.ErrNotFound
}

// UpdateUser replaces the stored user record.
func (s *MemoryStorage) UpdateUser(_ context.Context, usr *user.User, _ *sql.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[usr.ID]; !ok {
		return models.ErrNotFound
	}

	clone := *usr
	s.users[usr.ID] = &clone

	return nil
}

// DeleteUser removes a user together with their links and click events.
func (s *MemoryStorage) DeleteUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return models.ErrNotFound
	}
	delete(s.users, userID)

	removed := map[string]bool{}
	for id, lnk := range s.links {
		if lnk.UserID == userID {
			removed[id] = true
			delete(s.links, id)
		}
	}

	kept := s.clickEvents[:0]
	for _, event := range s.clickEvents {
		if !removed[event.LinkID] {
			kept = append(kept, event)
		}
	}
	s.clickEvents = kept

	return nil
}

// GetActiveUsers returns every enabled account ordered by creation time.
func (s *MemoryStorage) GetActiveUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []user.User
	for _, usr := range s.users {
		if usr.IsActive {
			result = append(result, *usr)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// CreateLink stores a new link.
func (s *MemoryStorage) CreateLink(_ context.Context, lnk *link.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *lnk
	s.links[lnk.ID] = &clone

	return nil
}

// GetLinkByID fetches a single link.
func (s *MemoryStorage) GetLinkByID(_ context.Context, linkID string) (*link.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lnk, ok := s.links[linkID]
	if !ok {
		return nil, models.ErrNotFound
	}

	clone := *lnk
	return &clone, nil
}

// GetUserLinks returns a page of the user's links.
func (s *MemoryStorage) GetUserLinks(_ context.Context, userID string, skip, limit int) ([]link.Link, error) {
	all := s.collectUserLinks(userID, false)

	if skip >= len(all) {
		return []link.Link{}, nil
	}
	all = all[skip:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	return all, nil
}

// GetActiveUserLinks returns the user's active links.
func (s *MemoryStorage) GetActiveUserLinks(_ context.Context, userID string) ([]link.Link, error) {
	return s.collectUserLinks(userID, true), nil
}

func (s *MemoryStorage) collectUserLinks(userID string, onlyActive bool) []link.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []link.Link{}
	for _, lnk := range s.links {
		if lnk.UserID != userID {
			continue
		}
		if onlyActive && !lnk.IsActive {
			continue
		}
		result = append(result, *lnk)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DisplayOrder != result[j].DisplayOrder {
			return result[i].DisplayOrder < result[j].DisplayOrder
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result
}

// UpdateLink replaces the stored link record.
func (s *MemoryStorage) UpdateLink(_ context.Context, lnk *link.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[lnk.ID]; !ok {
		return models.ErrNotFound
	}

	clone := *lnk
	s.links[lnk.ID] = &clone

	return nil
}

// DeleteLink removes a link and its click events.
func (s *MemoryStorage) DeleteLink(_ context.Context, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[linkID]; !ok {
		return models.ErrNotFound
	}
	delete(s.links, linkID)

	kept := s.clickEvents[:0]
	for _, event := range s.clickEvents {
		if event.LinkID != linkID {
			kept = append(kept, event)
		}
	}
	s.clickEvents = kept

	return nil
}

// IncrementClickCount bumps the lifetime counter of a link.
func (s *MemoryStorage) IncrementClickCount(_ context.Context, linkID string) (*link.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lnk, ok := s.links[linkID]
	if !ok {
		return nil, models.ErrNotFound
	}

	lnk.ClickCount++
	now := time.Now().UTC()
	lnk.UpdatedAt = &now

	clone := *lnk
	return &clone, nil
}

// InsertClickEvents stores a batch of click events.
func (s *MemoryStorage) InsertClickEvents(_ context.Context, events []models.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range events {
		s.nextClickID++
		event.ID = s.nextClickID
		s.clickEvents = append(s.clickEvents, event)
	}

	return nil
}

func (s *MemoryStorage) eventsInPeriod(linkIDs []string, from, to time.Time) []models.ClickEvent {
	wanted := map[string]bool{}
	for _, id := range linkIDs {
		wanted[id] = true
	}

	result := []models.ClickEvent{}
	for _, event := range s.clickEvents {
		if !wanted[event.LinkID] {
			continue
		}
		if event.ClickedAt.Before(from) || !event.ClickedAt.Before(to) {
			continue
		}
		result = append(result, event)
	}

	return result
}

// CountClicks returns the number of clicks within the period.
func (s *MemoryStorage) CountClicks(_ context.Context, linkIDs []string, from, to time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.eventsInPeriod(linkIDs, from, to))), nil
}

// CountUniqueVisitors returns the number of distinct IPs within the period.
func (s *MemoryStorage) CountUniqueVisitors(_ context.Context, linkIDs []string, from, to time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ips := map[string]bool{}
	for _, event := range s.eventsInPeriod(linkIDs, from, to) {
		if event.IPAddress != "" {
			ips[event.IPAddress] = true
		}
	}

	return int64(len(ips)), nil
}

// GetDailyStats returns per-day click counts ordered by date.
func (s *MemoryStorage) GetDailyStats(
	_ context.Context,
	linkIDs []string,
	from, to time.Time,
	onlyWithCountry bool,
) ([]models.DailyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perDay := map[string]int64{}
	for _, event := range s.eventsInPeriod(linkIDs, from, to) {
		if onlyWithCountry && event.Country == "" {
			continue
		}
		perDay[event.ClickedAt.UTC().Format("2006-01-02")]++
	}

	result := []models.DailyStats{}
	for day, clicks := range perDay {
		result = append(result, models.DailyStats{Date: day, Clicks: clicks})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })

	return result, nil
}

// GetClicksPerLink returns click counts grouped by link.
func (s *MemoryStorage) GetClicksPerLink(
	_ context.Context,
	linkIDs []string,
	from, to time.Time,
) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := map[string]int64{}
	for _, event := range s.eventsInPeriod(linkIDs, from, to) {
		result[event.LinkID]++
	}

	return result, nil
}

// GetDeviceCounts returns click counts grouped by device type.
func (s *MemoryStorage) GetDeviceCounts(
	_ context.Context,
	linkIDs []string,
	from, to time.Time,
) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := map[string]int64{}
	for _, event := range s.eventsInPeriod(linkIDs, from, to) {
		if event.DeviceType != "" {
			result[event.DeviceType]++
		}
	}

	return result, nil
}

// GetCountryClicks returns per-country click and unique visitor counts,
// most clicked countries first.
func (s *MemoryStorage) GetCountryClicks(
	_ context.Context,
	linkIDs []string,
	from, to time.Time,
) ([]models.CountryClicks, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clicks := map[string]int64{}
	visitors := map[string]map[string]bool{}
	for _, event := range s.eventsInPeriod(linkIDs, from, to) {
		if event.Country == "" {
			continue
		}
		clicks[event.Country]++
		if visitors[event.Country] == nil {
			visitors[event.Country] = map[string]bool{}
		}
		if event.IPAddress != "" {
			visitors[event.Country][event.IPAddress] = true
		}
	}

	result := []models.CountryClicks{}
	for country, count := range clicks {
		result = append(result, models.CountryClicks{
			Country:        country,
			Clicks:         count,
			UniqueVisitors: int64(len(visitors[country])),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Clicks > result[j].Clicks })

	return result, nil
}

// CreatePasswordResetToken stores a new reset token.
func (s *MemoryStorage) CreatePasswordResetToken(
	_ context.Context,
	token *models.PasswordResetToken,
	_ *sql.Tx,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTokenID++
	token.ID = s.nextTokenID
	clone := *token
	s.resetTokens[token.Token] = &clone

	return nil
}

// GetValidPasswordResetToken returns an unused, unexpired token record.
func (s *MemoryStorage) GetValidPasswordResetToken(_ context.Context, token string) (*models.PasswordResetToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.resetTokens[token]
	if !ok || record.IsUsed || !record.ExpiresAt.After(time.Now()) {
		return nil, models.ErrInvalidResetToken
	}

	clone := *record
	return &clone, nil
}

// MarkPasswordResetTokenUsed burns a token so it cannot be replayed.
func (s *MemoryStorage) MarkPasswordResetTokenUsed(_ context.Context, tokenID int64, _ *sql.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.resetTokens {
		if record.ID == tokenID {
			record.IsUsed = true
			return nil
		}
	}

	return models.ErrNotFound
}

// InsertEmailLog records an outbound email attempt.
func (s *MemoryStorage) InsertEmailLog(_ context.Context, entry *models.EmailLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEmailID++
	entry.ID = s.nextEmailID
	s.emailLog = append(s.emailLog, *entry)

	return nil
}

// HasAnalyticsEmailSince reports whether the user already received a
// successful analytics summary for a period starting at or after since.
func (s *MemoryStorage) HasAnalyticsEmailSince(_ context.Context, userID string, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.emailLog {
		if entry.UserID == userID &&
			entry.EmailType == models.EmailTypeAnalyticsSummary &&
			entry.Success &&
			entry.PeriodStart != nil &&
			!entry.PeriodStart.Before(since) {
			return true, nil
		}
	}

	return false, nil
}

// GetAnalyticsEmailLogs returns analytics summary entries sent since the
// given time, newest first.
func (s *MemoryStorage) GetAnalyticsEmailLogs(_ context.Context, since time.Time) ([]models.EmailLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.EmailLogEntry{}
	for _, entry := range s.emailLog {
		if entry.EmailType == models.EmailTypeAnalyticsSummary && !entry.SentAt.Before(since) {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SentAt.After(result[j].SentAt) })

	return result, nil
}

// BeginTransaction is a no-op for the in-memory backend.
func (s *MemoryStorage) BeginTransaction() (*sql.Tx, error) {
	return nil, nil
}

// RollbackTransaction is a no-op for the in-memory backend.
func (s *MemoryStorage) RollbackTransaction(_ *sql.Tx) error {
	return nil
}

// CommitTransaction is a no-op for the in-memory backend.
func (s *MemoryStorage) CommitTransaction(_ *sql.Tx) error {
	return nil
}

// Ping always succeeds.
func (s *MemoryStorage) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStorage) Close() error {
	return nil
}
