package postgresdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"time"

	"github.com/mvolkov/biotap/internal/models"
)

// InsertClickEvents stores a batch of click events in a single statement.
func (db *PostgresDB) InsertClickEvents(ctx context.Context, events []models.ClickEvent) error {
	if len(events) == 0 {
		return nil
	}

	const fieldsPerEvent = 8
	placeholders := make([]string, len(events))
	args := make([]interface{}, 0, len(events)*fieldsPerEvent)
	for i, event := range events {
		base := i * fieldsPerEvent
		placeholders[i] = fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		)
		args = append(
			args,
			event.LinkID,
			event.ClickedAt,
			nullable(event.IPAddress),
			nullable(event.UserAgent),
			nullable(event.Referer),
			nullable(event.Country),
			nullable(event.DeviceType),
			nullable(event.Browser),
		)
	}

	_, err := db.database.ExecContext(
		ctx,
		fmt.Sprintf(
			`
				INSERT INTO click_events (link_id, clicked_at, ip_address, user_agent, referer, country, device_type, browser)
					VALUES %s
			`,
			strings.Join(placeholders, ","),
		),
		args...,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/analytics.go/InsertClickEvents(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}

	return nil
}

// CountClicks returns the number of clicks over the given links within
// the period.
func (db *PostgresDB) CountClicks(ctx context.Context, linkIDs []string, from, to time.Time) (int64, error) {
	if len(linkIDs) == 0 {
		return 0, nil
	}

	row := db.database.QueryRowContext(
		ctx,
		fmt.Sprintf(
			`
				SELECT COUNT(*) FROM click_events
					WHERE link_id IN (%s) AND clicked_at >= $%d AND clicked_at < $%d
			`,
			buildPlaceholders(1, len(linkIDs)),
			len(linkIDs)+1,
			len(linkIDs)+2,
		),
		stringsToArgs(linkIDs, from, to)...,
	)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf(
			"in internal/db/postgresdb/analytics.go/CountClicks(): error while `row.Scan()` calling: %w",
			err,
		)
	}

	return count, nil
}

// CountUniqueVisitors returns the number of distinct non-empty IP
// addresses that clicked the given links within the period.
func (db *PostgresDB) CountUniqueVisitors(ctx context.Context, linkIDs []string, from, to time.Time) (int64, error) {
	if len(linkIDs) == 0 {
		return 0, nil
	}

	row := db.database.QueryRowContext(
		ctx,
		fmt.Sprintf(
			`
				SELECT COUNT(DISTINCT ip_address) FROM click_events
					WHERE link_id IN (%s)
						AND clicked_at >= $%d AND clicked_at < $%d
						AND ip_address IS NOT NULL
			`,
			buildPlaceholders(1, len(linkIDs)),
			len(linkIDs)+1,
			len(linkIDs)+2,
		),
		stringsToArgs(linkIDs, from, to)...,
	)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf(
			"in internal/db/postgresdb/analytics.go/CountUniqueVisitors(): error while `row.Scan()` calling: %w",
			err,
		)
	}

	return count, nil
}

// GetDailyStats returns per-day click counts over the period, ordered by
// date. With onlyWithCountry set, only geo-resolved clicks are counted.
func (db *PostgresDB) GetDailyStats(
	ctx context.Context,
	linkIDs []string,
	from, to time.Time,
	onlyWithCountry bool,
) ([]models.DailyStats, error) {
	if len(linkIDs) == 0 {
		return []models.DailyStats{}, nil
	}

	countryFilter := ""
	if onlyWithCountry {
		countryFilter = "AND country IS NOT NULL"
	}

	rows, err := db.database.QueryContext(
		ctx,
		fmt.Sprintf(
			`
				SELECT to_char(clicked_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
					FROM click_events
					WHERE link_id IN (%s)
						AND clicked_at >= $%d AND clicked_at < $%d
						%s
					GROUP BY day
					ORDER BY day
			`,
			buildPlaceholders(1, len(linkIDs)),
			len(linkIDs)+1,
			len(linkIDs)+2,
			countryFilter,
		),
		stringsToArgs(linkIDs, from, to)...,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/analytics.go/GetDailyStats(): error while `db.database.QueryContext()` calling: %w",
			err,
		)
	}
	defer rows.Close()

	result := []models.DailyStats{}
	for rows.Next() {
		var stats models.DailyStats
		if err := rows.Scan(&stats.Date, &stats.Clicks); err != nil {
			return nil, fmt.Errorf(
				"in internal/db/postgresdb/analytics.go/GetDailyStats(): error while `rows.Scan()` calling: %w",
				err,
			)
		}
		result = append(result, stats)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/analytics.go/GetDailyStats(): error while `rows.Err()` calling: %w",
			err,
		)
	}

	return result, nil
}

// GetClicksPerLink returns click counts grouped by link for the period.
func (db *PostgresDB) GetClicksPerLink(
	ctx context.Context,
	linkIDs []string,
	from, to time.Time,
) (map[string]int64, error) {
	if len(linkIDs) == 0 {
		return map[string]int64{}, nil
	}

	rows, err := db.database.QueryContext(
		ctx,
		fmt.Sprintf(
			`
				SELECT link_id, COUNT(*) FROM click_events
					WHERE link_id IN (%s) AND clicked_at >= $%d AND clicked_at < $%d
					GROUP BY link_id
			`,
			buildPlaceholders(1, len(linkIDs)),
			len(linkIDs)+1,
			len(linkIDs)+2,
		),
		stringsToArgs(linkIDs, from, to)...,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/analytics.go/GetClicksPerLink(): error while `db.database.QueryContext()` calling: %w",
			err,
		)
	}
	defer rows.Close()

	result := map[string]int64{}
	for rows.Next() {
		var linkID string
		var count int64
		if err := rows.Scan(&linkID, &count); err != nil {
			return nil, fmt.Errorf(
				"in internal/db/postgresdb/analytics.go/GetClicksPerLink(): error while `rows.Scan()` calling: %w",
				err,
			)
		}
		result[linkID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/analytics.go/GetClicksPerLink(): error while `rows.Err()` calling: %w",
			err,
		)
	}

	return result, nil
}

// GetDeviceCounts returns click counts grouped by device type.
func (db *PostgresDB) GetDeviceCounts(
	ctx context.Context,
	linkIDs []string,
	from, to time.Time,
) (map[string]int64, error) {
	if len(linkIDs) == 0 {
		return map[string]int64{}, nil
	}

	rows, err := db.database.QueryContext(
		ctx,
		fmt.Sprintf(
			`
				SELECT device_type, COUNT(*) FROM click_events
					WHERE link_id IN (%s)
						AND clicked_at >= $%d AND clicked_at < $%d
						AND device_type IS NOT NULL
					GROUP BY device_type
			`,
			buildPlaceholders(1, len(linkIDs)),
			len(linkIDs)+1,
			len(linkIDs)+2,
		),
		stringsToArgs(linkIDs, from, to)...,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/analytics.go/GetDeviceCounts(): error while `db.database.QueryContext()` calling: %w",
			err,
		)
	}
	defer rows.Close()

	result := map[string]int64{}
	for rows.Next() {
		var deviceType string
		var count int64
		if err := rows.Scan(&deviceType, &count); err != nil {
			return nil, fmt.Errorf(
				"in internal/db/postgresdb/analytics.go/GetDeviceCounts(): error while `rows.Scan()` calling: %w",
				err,
			)
		}
		result[deviceType] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/analytics.go/GetDeviceCounts(): error while `rows.Err()` calling: %w",
			err,
		)
	}

	return result, nil
}

// GetCountryClicks returns per-country click and unique visitor counts,
// most clicked countries first.
func (db *PostgresDB) GetCountryClicks(
	ctx context.Context,
	linkIDs []string,
	from, to time.Time,
) ([]models.CountryClicks, error) {
	if len(linkIDs) == 0 {
		return []models.CountryClicks{}, nil
	}

	rows, err := db.database.QueryContext(
		ctx,
		fmt.Sprintf(
			`
				SELECT country, COUNT(*), COUNT(DISTINCT ip_address)
					FROM click_events
					WHERE link_id IN (%s)
						AND clicked_at >= $%d AND clicked_at < $%d
						AND country IS NOT NULL
					GROUP BY country
					ORDER BY COUNT(*) DESC
			`,
			buildPlaceholders(1, len(linkIDs)),
			len(linkIDs)+1,
			len(linkIDs)+2,
		),
		stringsToArgs(linkIDs, from, to)...,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/analytics.go/GetCountryClicks(): error while `db.database.QueryContext()` calling: %w",
			err,
		)
	}
	defer rows.Close()

	result := []models.CountryClicks{}
	for rows.Next() {
		var row models.CountryClicks
		if err := rows.Scan(&row.Country, &row.Clicks, &row.UniqueVisitors); err != nil {
			return nil, fmt.Errorf(
				"in internal/db/postgresdb/analytics.go/GetCountryClicks(): error while `rows.Scan()` calling: %w",
				err,
			)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/analytics.go/GetCountryClicks(): error while `rows.Err()` calling: %w",
			err,
		)
	}

	return result, nil
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
