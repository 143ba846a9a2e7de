package clicktracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvolkov/biotap/internal/models"
)

type recordingStorage struct {
	mu     sync.Mutex
	events []models.ClickEvent
}

func (s *recordingStorage) InsertClickEvents(_ context.Context, events []models.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *recordingStorage) snapshot() []models.ClickEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ClickEvent(nil), s.events...)
}

type fixedGeo struct {
	country string
}

func (g fixedGeo) CountryCode(_ string) string { return g.country }

func TestTrackerFlushesBatch(t *testing.T) {
	db := &recordingStorage{}
	tracker := New(db, fixedGeo{country: "US"}, 16, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tracker.Run(ctx)

	tracker.EnqueueJob(&models.ClickJob{
		LinkID:    "l1",
		ClickedAt: time.Now(),
		IPAddress: "1.1.1.1",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
		Referer:   "https://ref.example.com",
	})
	tracker.EnqueueJob(&models.ClickJob{
		LinkID:    "l2",
		ClickedAt: time.Now(),
		IPAddress: "2.2.2.2",
	})

	require.Eventually(t, func() bool {
		return len(db.snapshot()) == 2
	}, time.Second, 10*time.Millisecond)

	events := db.snapshot()
	assert.Equal(t, "l1", events[0].LinkID)
	assert.Equal(t, "US", events[0].Country)
	assert.Equal(t, "mobile", events[0].DeviceType)
	assert.Equal(t, "Safari", events[0].Browser)
	assert.Equal(t, "https://ref.example.com", events[0].Referer)
	assert.Equal(t, "l2", events[1].LinkID)
}

func TestTrackerFlushesOnShutdown(t *testing.T) {
	db := &recordingStorage{}
	// Long interval so only the shutdown path can flush.
	tracker := New(db, fixedGeo{}, 16, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	tracker.Run(ctx)

	tracker.EnqueueJob(&models.ClickJob{LinkID: "l1", ClickedAt: time.Now()})
	cancel()

	require.Eventually(t, func() bool {
		return len(db.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestTrackerDropsWhenQueueFull(t *testing.T) {
	db := &recordingStorage{}
	tracker := New(db, fixedGeo{}, 1, time.Hour)

	// Worker not running, the queue holds one job, the rest are dropped.
	tracker.EnqueueJob(&models.ClickJob{LinkID: "l1", ClickedAt: time.Now()})
	tracker.EnqueueJob(&models.ClickJob{LinkID: "l2", ClickedAt: time.Now()})
	tracker.EnqueueJob(&models.ClickJob{LinkID: "l3", ClickedAt: time.Now()})

	assert.Len(t, tracker.queue, 1)
}
