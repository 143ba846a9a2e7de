// Package scheduler runs the recurring background jobs, currently only
// the weekly analytics summary mailing.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mvolkov/biotap/internal/logger"
	"github.com/mvolkov/biotap/internal/models"
)

// Mondays at 09:00 UTC.
const weeklySummarySchedule = "0 9 * * 1"

type weeklySummarySender interface {
	SendWeeklyAnalyticsEmails(ctx context.Context) (*models.WeeklyJobResult, error)
}

type Scheduler struct {
	cron    *cron.Cron
	service weeklySummarySender
}

// New registers the weekly summary job. The cron runs in UTC so the
// send time does not depend on the server timezone.
func New(service weeklySummarySender) (*Scheduler, error) {
	scheduler := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		service: service,
	}

	if _, err := scheduler.cron.AddFunc(weeklySummarySchedule, scheduler.runWeeklySummary); err != nil {
		return nil, fmt.Errorf(
			"in internal/scheduler/scheduler.go/New(): error while `scheduler.cron.AddFunc()` calling: %w",
			err,
		)
	}

	return scheduler, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Log.Infoln("scheduler started", "weeklySummarySchedule", weeklySummarySchedule)
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runWeeklySummary() {
	result, err := s.service.SendWeeklyAnalyticsEmails(context.Background())
	if err != nil {
		logger.Log.Errorln("weekly summary job failed", "error", err)

		return
	}
	logger.Log.Infoln("weekly summary job finished", "sent", result.Sent, "errors", result.Errors)
}
