package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mvolkov/biotap/internal/link"
	"github.com/mvolkov/biotap/internal/models"
)

const linkColumns = `id, user_id, title, url, description, icon, is_active, display_order, click_count, created_at, updated_at`

// CreateLink inserts a new link record.
func (db *PostgresDB) CreateLink(ctx context.Context, lnk *link.Link) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO links (id, user_id, title, url, description, icon, is_active, display_order, click_count, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
		lnk.ID,
		lnk.UserID,
		lnk.Title,
		lnk.URL,
		lnk.Description,
		lnk.Icon,
		lnk.IsActive,
		lnk.DisplayOrder,
		lnk.ClickCount,
		lnk.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/links.go/CreateLink(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}

	return nil
}

// GetLinkByID fetches a single link.
// Returns models.ErrNotFound when no such link exists.
func (db *PostgresDB) GetLinkByID(ctx context.Context, linkID string) (*link.Link, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT `+linkColumns+` FROM links WHERE id = $1`,
		linkID,
	)

	lnk, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/links.go/GetLinkByID(): error while `scanLink()` calling: %w",
			err,
		)
	}

	return lnk, nil
}

// GetUserLinks returns the links of a user ordered by display order and
// recency, with pagination.
func (db *PostgresDB) GetUserLinks(ctx context.Context, userID string, skip, limit int) ([]link.Link, error) {
	// limit <= 0 means "no limit"; NULLIF turns it into LIMIT ALL.
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT `+linkColumns+` FROM links
				WHERE user_id = $1
				ORDER BY display_order, created_at DESC
				OFFSET $2 LIMIT NULLIF($3, 0)
		`,
		userID,
		skip,
		max(limit, 0),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/links.go/GetUserLinks(): error while `db.database.QueryContext()` calling: %w",
			err,
		)
	}

	return collectLinks(rows)
}

// GetActiveUserLinks returns the active links of a user for the public
// profile view.
func (db *PostgresDB) GetActiveUserLinks(ctx context.Context, userID string) ([]link.Link, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT `+linkColumns+` FROM links
				WHERE user_id = $1 AND is_active = TRUE
				ORDER BY display_order, created_at DESC
		`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/links.go/GetActiveUserLinks(): error while `db.database.QueryContext()` calling: %w",
			err,
		)
	}

	return collectLinks(rows)
}

// UpdateLink persists the mutable fields of a link.
func (db *PostgresDB) UpdateLink(ctx context.Context, lnk *link.Link) error {
	result, err := db.database.ExecContext(
		ctx,
		`
			UPDATE links
				SET title = $2,
					url = $3,
					description = $4,
					icon = $5,
					is_active = $6,
					display_order = $7,
					updated_at = $8
				WHERE id = $1
		`,
		lnk.ID,
		lnk.Title,
		lnk.URL,
		lnk.Description,
		lnk.Icon,
		lnk.IsActive,
		lnk.DisplayOrder,
		lnk.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/links.go/UpdateLink(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/links.go/UpdateLink(): error while `result.RowsAffected()` calling: %w",
			err,
		)
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteLink removes a link and its click events.
func (db *PostgresDB) DeleteLink(ctx context.Context, linkID string) error {
	result, err := db.database.ExecContext(ctx, `DELETE FROM links WHERE id = $1`, linkID)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/links.go/DeleteLink(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/links.go/DeleteLink(): error while `result.RowsAffected()` calling: %w",
			err,
		)
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// IncrementClickCount bumps the lifetime counter of a link and returns
// the updated record.
func (db *PostgresDB) IncrementClickCount(ctx context.Context, linkID string) (*link.Link, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			UPDATE links
				SET click_count = click_count + 1,
					updated_at = now()
				WHERE id = $1
				RETURNING `+linkColumns,
		linkID,
	)

	lnk, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/links.go/IncrementClickCount(): error while `scanLink()` calling: %w",
			err,
		)
	}

	return lnk, nil
}

func collectLinks(rows *sql.Rows) ([]link.Link, error) {
	defer rows.Close()

	result := []link.Link{}
	for rows.Next() {
		lnk, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf(
				"in internal/db/postgresdb/links.go/collectLinks(): error while `scanLink()` calling: %w",
				err,
			)
		}
		result = append(result, *lnk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/links.go/collectLinks(): error while `rows.Err()` calling: %w",
			err,
		)
	}

	return result, nil
}

func scanLink(row rowScanner) (*link.Link, error) {
	var lnk link.Link
	var description, icon sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&lnk.ID,
		&lnk.UserID,
		&lnk.Title,
		&lnk.URL,
		&description,
		&icon,
		&lnk.IsActive,
		&lnk.DisplayOrder,
		&lnk.ClickCount,
		&lnk.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	lnk.Description = description.String
	lnk.Icon = icon.String
	if updatedAt.Valid {
		lnk.UpdatedAt = &updatedAt.Time
	}

	return &lnk, nil
}
