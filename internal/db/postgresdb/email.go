package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mvolkov/biotap/internal/models"
)

// CreatePasswordResetToken stores a new reset token.
func (db *PostgresDB) CreatePasswordResetToken(
	ctx context.Context,
	token *models.PasswordResetToken,
	transaction *sql.Tx,
) error {
	row := db.queryerOrTx(transaction).QueryRowContext(
		ctx,
		`
			INSERT INTO password_reset_tokens (user_id, token, created_at, expires_at, is_used)
				VALUES ($1, $2, $3, $4, FALSE)
				RETURNING id
		`,
		token.UserID,
		token.Token,
		token.CreatedAt,
		token.ExpiresAt,
	)

	if err := row.Scan(&token.ID); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/email.go/CreatePasswordResetToken(): error while `row.Scan()` calling: %w",
			err,
		)
	}

	return nil
}

// GetValidPasswordResetToken returns an unused, unexpired token record.
// Returns models.ErrInvalidResetToken otherwise.
func (db *PostgresDB) GetValidPasswordResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, user_id, token, created_at, expires_at, is_used
				FROM password_reset_tokens
				WHERE token = $1 AND is_used = FALSE AND expires_at > now()
		`,
		token,
	)

	var result models.PasswordResetToken
	err := row.Scan(
		&result.ID,
		&result.UserID,
		&result.Token,
		&result.CreatedAt,
		&result.ExpiresAt,
		&result.IsUsed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrInvalidResetToken
		}
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/email.go/GetValidPasswordResetToken(): error while `row.Scan()` calling: %w",
			err,
		)
	}

	return &result, nil
}

// MarkPasswordResetTokenUsed burns a token so it cannot be replayed.
func (db *PostgresDB) MarkPasswordResetTokenUsed(ctx context.Context, tokenID int64, transaction *sql.Tx) error {
	_, err := db.executorOrTx(transaction).ExecContext(
		ctx,
		`UPDATE password_reset_tokens SET is_used = TRUE WHERE id = $1`,
		tokenID,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/email.go/MarkPasswordResetTokenUsed(): error while `ExecContext()` calling: %w",
			err,
		)
	}

	return nil
}

// InsertEmailLog records an outbound email attempt.
func (db *PostgresDB) InsertEmailLog(ctx context.Context, entry *models.EmailLogEntry) error {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO email_log (user_id, email_type, recipient_email, subject, sent_at, success, error_message, analytics_period_start, analytics_period_end)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING id
		`,
		entry.UserID,
		string(entry.EmailType),
		entry.RecipientEmail,
		entry.Subject,
		entry.SentAt,
		entry.Success,
		nullable(entry.ErrorMessage),
		entry.PeriodStart,
		entry.PeriodEnd,
	)

	if err := row.Scan(&entry.ID); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/email.go/InsertEmailLog(): error while `row.Scan()` calling: %w",
			err,
		)
	}

	return nil
}

// HasAnalyticsEmailSince reports whether the user already received a
// successful analytics summary covering a period starting at or after
// the given time.
func (db *PostgresDB) HasAnalyticsEmailSince(ctx context.Context, userID string, since time.Time) (bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT COUNT(*) FROM email_log
				WHERE user_id = $1
					AND email_type = $2
					AND success = TRUE
					AND analytics_period_start >= $3
		`,
		userID,
		string(models.EmailTypeAnalyticsSummary),
		since,
	)

	var count int64
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf(
			"in internal/db/postgresdb/email.go/HasAnalyticsEmailSince(): error while `row.Scan()` calling: %w",
			err,
		)
	}

	return count > 0, nil
}

// GetAnalyticsEmailLogs returns analytics summary log entries sent since
// the given time, newest first.
func (db *PostgresDB) GetAnalyticsEmailLogs(ctx context.Context, since time.Time) ([]models.EmailLogEntry, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, user_id, email_type, recipient_email, subject, sent_at, success, error_message, analytics_period_start, analytics_period_end
				FROM email_log
				WHERE email_type = $1 AND sent_at >= $2
				ORDER BY sent_at DESC
		`,
		string(models.EmailTypeAnalyticsSummary),
		since,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/email.go/GetAnalyticsEmailLogs(): error while `db.database.QueryContext()` calling: %w",
			err,
		)
	}
	defer rows.Close()

	result := []models.EmailLogEntry{}
	for rows.Next() {
		var entry models.EmailLogEntry
		var errorMessage sql.NullString
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.EmailType,
			&entry.RecipientEmail,
			&entry.Subject,
			&entry.SentAt,
			&entry.Success,
			&errorMessage,
			&entry.PeriodStart,
			&entry.PeriodEnd,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"in internal/db/postgresdb/email.go/GetAnalyticsEmailLogs(): error while `rows.Scan()` calling: %w",
				err,
			)
		}
		entry.ErrorMessage = errorMessage.String
		result = append(result, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/email.go/GetAnalyticsEmailLogs(): error while `rows.Err()` calling: %w",
			err,
		)
	}

	return result, nil
}
