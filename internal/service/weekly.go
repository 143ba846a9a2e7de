package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mvolkov/biotap/internal/logger"
	"github.com/mvolkov/biotap/internal/models"
)

const weeklySummaryPeriodDays = 7

// SendWeeklyAnalyticsEmails delivers the weekly summary to every active
// user. Users already mailed within the current period and users with
// zero clicks are skipped. One failing user does not stop the run.
func (s *Service) SendWeeklyAnalyticsEmails(ctx context.Context) (*models.WeeklyJobResult, error) {
	periodEnd := time.Now()
	periodStart := periodEnd.AddDate(0, 0, -weeklySummaryPeriodDays)

	users, err := s.db.GetActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/weekly.go/SendWeeklyAnalyticsEmails(): error while `s.db.GetActiveUsers()` calling: %w",
			err,
		)
	}

	result := &models.WeeklyJobResult{}
	for i := range users {
		usr := &users[i]

		alreadySent, err := s.db.HasAnalyticsEmailSince(ctx, usr.ID, periodStart)
		if err != nil {
			logger.Log.Errorln("weekly summary: email log check failed", "userID", usr.ID, "error", err)
			result.Errors++
			continue
		}
		if alreadySent {
			continue
		}

		analytics, err := s.GetAnalytics(ctx, usr.ID, weeklySummaryPeriodDays)
		if err != nil {
			logger.Log.Errorln("weekly summary: analytics aggregation failed", "userID", usr.ID, "error", err)
			result.Errors++
			continue
		}
		if analytics.TotalClicks == 0 {
			continue
		}

		if err := s.mailer.SendAnalyticsSummary(ctx, usr, analytics, periodStart, periodEnd); err != nil {
			logger.Log.Errorln("weekly summary: sending failed", "userID", usr.ID, "error", err)
			result.Errors++
			continue
		}
		result.Sent++
	}

	logger.Log.Infoln("weekly summary run finished", "sent", result.Sent, "errors", result.Errors)

	return result, nil
}

// GetEmailStats summarizes analytics email delivery over the last
// `days` days.
func (s *Service) GetEmailStats(ctx context.Context, days int) (*models.EmailStatsResponse, error) {
	since := time.Now().AddDate(0, 0, -days)

	logs, err := s.db.GetAnalyticsEmailLogs(ctx, since)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/weekly.go/GetEmailStats(): error while `s.db.GetAnalyticsEmailLogs()` calling: %w",
			err,
		)
	}

	response := &models.EmailStatsResponse{}
	for i := range logs {
		entry := &logs[i]
		if entry.Success {
			response.TotalSent++
			if response.LastSent == nil || entry.SentAt.After(*response.LastSent) {
				sentAt := entry.SentAt
				response.LastSent = &sentAt
			}
		} else {
			response.TotalFailed++
		}
	}

	if total := response.TotalSent + response.TotalFailed; total > 0 {
		response.SuccessRate = round1(float64(response.TotalSent) / float64(total) * 100)
	}

	return response, nil
}
