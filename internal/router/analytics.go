package router

import (
	"fmt"
	"net/http"

	"github.com/mvolkov/biotap/internal/auth"
)

const (
	defaultAnalyticsPeriodDays = 30
	maxAnalyticsPeriodDays     = 365
)

// GetAnalytics returns the click dashboard aggregation for the
// authenticated user over the last `days` days (1..365, default 30).
func (r *Router) GetAnalytics(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		http.Error(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	days, err := analyticsPeriodDays(req)
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	analytics, err := r.service.GetAnalytics(req.Context(), usr.ID, days)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, analytics)
}

// GetGeographicAnalytics returns the per-country breakdown for the
// authenticated user.
func (r *Router) GetGeographicAnalytics(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		http.Error(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	days, err := analyticsPeriodDays(req)
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	analytics, err := r.service.GetGeographicAnalytics(req.Context(), usr.ID, days)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, analytics)
}

// PostSendWeeklyAnalytics triggers the weekly summary mailing outside
// of its schedule.
func (r *Router) PostSendWeeklyAnalytics(res http.ResponseWriter, req *http.Request) {
	result, err := r.service.SendWeeklyAnalyticsEmails(req.Context())
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, result)
}

// GetEmailStats reports analytics email delivery counts and success
// rate over the last `days` days.
func (r *Router) GetEmailStats(res http.ResponseWriter, req *http.Request) {
	days, err := analyticsPeriodDays(req)
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := r.service.GetEmailStats(req.Context(), days)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, stats)
}

func analyticsPeriodDays(req *http.Request) (int, error) {
	days, err := queryInt(req, "days", defaultAnalyticsPeriodDays)
	if err != nil {
		return 0, err
	}
	if days < 1 || days > maxAnalyticsPeriodDays {
		return 0, fmt.Errorf("days must be between 1 and %d", maxAnalyticsPeriodDays)
	}

	return days, nil
}
