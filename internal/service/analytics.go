package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/thoas/go-funk"

	"github.com/mvolkov/biotap/internal/link"
	"github.com/mvolkov/biotap/internal/models"
)

const topLinksCount = 5

const topCountriesCount = 10

// GetAnalytics aggregates the click activity of all links of the user
// over the last `days` days: totals, daily breakdown, top links, device
// split and the growth against the preceding period of the same length.
func (s *Service) GetAnalytics(ctx context.Context, userID string, days int) (*models.AnalyticsResponse, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -days)

	links, linkIDs, err := s.getLinksWithIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	response := &models.AnalyticsResponse{
		DailyStats:  []models.DailyStats{},
		TopLinks:    []models.LinkStats{},
		DeviceStats: []models.DeviceStats{},
	}
	if len(linkIDs) == 0 {
		return response, nil
	}

	totalClicks, err := s.db.CountClicks(ctx, linkIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/analytics.go/GetAnalytics(): error while `s.db.CountClicks()` calling: %w",
			err,
		)
	}
	response.TotalClicks = totalClicks

	uniqueVisitors, err := s.db.CountUniqueVisitors(ctx, linkIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/analytics.go/GetAnalytics(): error while `s.db.CountUniqueVisitors()` calling: %w",
			err,
		)
	}
	response.UniqueVisitors = uniqueVisitors

	dailyStats, err := s.db.GetDailyStats(ctx, linkIDs, from, to, false)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/analytics.go/GetAnalytics(): error while `s.db.GetDailyStats()` calling: %w",
			err,
		)
	}
	response.DailyStats = dailyStats

	topLinks, err := s.getTopLinks(ctx, links, linkIDs, from, to, totalClicks)
	if err != nil {
		return nil, err
	}
	response.TopLinks = topLinks

	deviceStats, err := s.getDeviceStats(ctx, linkIDs, from, to)
	if err != nil {
		return nil, err
	}
	response.DeviceStats = deviceStats

	growth, err := s.getGrowthPercentage(ctx, linkIDs, from, to, totalClicks)
	if err != nil {
		return nil, err
	}
	response.GrowthPercentage = growth

	return response, nil
}

// GetGeographicAnalytics breaks the click activity of the user down by
// country over the last `days` days. City level data is not collected,
// the city breakdown is always empty.
func (s *Service) GetGeographicAnalytics(ctx context.Context, userID string, days int) (*models.GeographicResponse, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -days)

	_, linkIDs, err := s.getLinksWithIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	response := &models.GeographicResponse{
		TopCountries:     []models.CountryStats{},
		CityBreakdown:    []models.CityStats{},
		GeographicTrends: []models.DailyStats{},
	}
	if len(linkIDs) == 0 {
		return response, nil
	}

	countryClicks, err := s.db.GetCountryClicks(ctx, linkIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/analytics.go/GetGeographicAnalytics(): error while `s.db.GetCountryClicks()` calling: %w",
			err,
		)
	}
	response.TotalCountries = len(countryClicks)

	var totalClicks int64
	for _, item := range countryClicks {
		totalClicks += item.Clicks
	}

	if len(countryClicks) > topCountriesCount {
		countryClicks = countryClicks[:topCountriesCount]
	}
	for _, item := range countryClicks {
		countryStats := models.CountryStats{
			CountryCode:    item.Country,
			CountryName:    s.geoNames.CountryName(item.Country),
			Clicks:         item.Clicks,
			UniqueVisitors: item.UniqueVisitors,
		}
		if totalClicks > 0 {
			countryStats.Percentage = round1(float64(item.Clicks) / float64(totalClicks) * 100)
		}
		response.TopCountries = append(response.TopCountries, countryStats)
	}

	geoTrends, err := s.db.GetDailyStats(ctx, linkIDs, from, to, true)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/analytics.go/GetGeographicAnalytics(): error while `s.db.GetDailyStats()` calling: %w",
			err,
		)
	}
	response.GeographicTrends = geoTrends

	return response, nil
}

func (s *Service) getLinksWithIDs(ctx context.Context, userID string) ([]link.Link, []string, error) {
	links, err := s.db.GetUserLinks(ctx, userID, 0, 0)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"in internal/service/analytics.go/getLinksWithIDs(): error while `s.db.GetUserLinks()` calling: %w",
			err,
		)
	}

	linkIDs := funk.Map(links, func(lnk link.Link) string { return lnk.ID }).([]string)

	return links, linkIDs, nil
}

func (s *Service) getTopLinks(
	ctx context.Context,
	links []link.Link,
	linkIDs []string,
	from, to time.Time,
	totalClicks int64,
) ([]models.LinkStats, error) {
	clicksPerLink, err := s.db.GetClicksPerLink(ctx, linkIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/analytics.go/getTopLinks(): error while `s.db.GetClicksPerLink()` calling: %w",
			err,
		)
	}

	topLinks := make([]models.LinkStats, 0, len(links))
	for _, lnk := range links {
		topLinks = append(topLinks, models.LinkStats{
			LinkID: lnk.ID,
			Title:  lnk.Title,
			Clicks: clicksPerLink[lnk.ID],
		})
	}
	sort.SliceStable(topLinks, func(i, j int) bool {
		return topLinks[i].Clicks > topLinks[j].Clicks
	})
	if len(topLinks) > topLinksCount {
		topLinks = topLinks[:topLinksCount]
	}

	if totalClicks > 0 {
		for i := range topLinks {
			topLinks[i].Percentage = round1(float64(topLinks[i].Clicks) / float64(totalClicks) * 100)
		}
	}

	return topLinks, nil
}

func (s *Service) getDeviceStats(ctx context.Context, linkIDs []string, from, to time.Time) ([]models.DeviceStats, error) {
	deviceCounts, err := s.db.GetDeviceCounts(ctx, linkIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/analytics.go/getDeviceStats(): error while `s.db.GetDeviceCounts()` calling: %w",
			err,
		)
	}

	var totalClicks int64
	for _, count := range deviceCounts {
		totalClicks += count
	}

	deviceStats := make([]models.DeviceStats, 0, len(deviceCounts))
	for deviceType, count := range deviceCounts {
		stats := models.DeviceStats{
			DeviceType: deviceType,
			Count:      count,
		}
		if totalClicks > 0 {
			stats.Percentage = round1(float64(count) / float64(totalClicks) * 100)
		}
		deviceStats = append(deviceStats, stats)
	}
	sort.SliceStable(deviceStats, func(i, j int) bool {
		return deviceStats[i].Count > deviceStats[j].Count
	})

	return deviceStats, nil
}

func (s *Service) getGrowthPercentage(
	ctx context.Context,
	linkIDs []string,
	from, to time.Time,
	currentClicks int64,
) (float64, error) {
	previousFrom := from.Add(-to.Sub(from))
	previousClicks, err := s.db.CountClicks(ctx, linkIDs, previousFrom, from)
	if err != nil {
		return 0, fmt.Errorf(
			"in internal/service/analytics.go/getGrowthPercentage(): error while `s.db.CountClicks()` calling: %w",
			err,
		)
	}

	if previousClicks == 0 {
		if currentClicks > 0 {
			return 100, nil
		}
		return 0, nil
	}

	return round1(float64(currentClicks-previousClicks) / float64(previousClicks) * 100), nil
}
