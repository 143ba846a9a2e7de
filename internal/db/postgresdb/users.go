package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/user"
)

const userColumns = `id, username, email, full_name, hashed_password, is_active, created_at, updated_at`

// CreateUser inserts a new user record into the database.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error {
	_, err := db.executorOrTx(transaction).ExecContext(
		ctx,
		`
			INSERT INTO users (id, username, email, full_name, hashed_password, is_active, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
		usr.ID,
		usr.Username,
		usr.Email,
		usr.FullName,
		usr.HashedPassword,
		usr.IsActive,
		usr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/users.go/CreateUser(): error while `ExecContext()` calling: %w",
			err,
		)
	}

	return nil
}

// GetUserByID fetches a user by their UUID.
// Returns models.ErrNotFound when no such user exists.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	return db.getUserByField(ctx, "id", userID)
}

// GetUserByUsername fetches a user by username.
func (db *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return db.getUserByField(ctx, "username", username)
}

// GetUserByEmail fetches a user by email.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return db.getUserByField(ctx, "email", email)
}

func (db *PostgresDB) getUserByField(ctx context.Context, field, value string) (*user.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE `+field+` = $1`,
		value,
	)

	usr, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/users.go/getUserByField(): error while `scanUser()` calling: %w",
			err,
		)
	}

	return usr, nil
}

// UpdateUser persists the mutable fields of a user.
func (db *PostgresDB) UpdateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error {
	result, err := db.executorOrTx(transaction).ExecContext(
		ctx,
		`
			UPDATE users
				SET email = $2,
					full_name = $3,
					hashed_password = $4,
					is_active = $5,
					updated_at = $6
				WHERE id = $1
		`,
		usr.ID,
		usr.Email,
		usr.FullName,
		usr.HashedPassword,
		usr.IsActive,
		usr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/users.go/UpdateUser(): error while `ExecContext()` calling: %w",
			err,
		)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/users.go/UpdateUser(): error while `result.RowsAffected()` calling: %w",
			err,
		)
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteUser removes a user and, via cascading constraints, their links,
// click events, reset tokens and email log entries.
func (db *PostgresDB) DeleteUser(ctx context.Context, userID string) error {
	result, err := db.database.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/users.go/DeleteUser(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/users.go/DeleteUser(): error while `result.RowsAffected()` calling: %w",
			err,
		)
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// GetActiveUsers returns every enabled account. Used by the weekly
// analytics email job.
func (db *PostgresDB) GetActiveUsers(ctx context.Context) ([]user.User, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE is_active = TRUE ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/users.go/GetActiveUsers(): error while `db.database.QueryContext()` calling: %w",
			err,
		)
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		usr, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf(
				"in internal/db/postgresdb/users.go/GetActiveUsers(): error while `scanUser()` calling: %w",
				err,
			)
		}
		result = append(result, *usr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(
			"in internal/db/postgresdb/users.go/GetActiveUsers(): error while `rows.Err()` calling: %w",
			err,
		)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*user.User, error) {
	var usr user.User
	var fullName sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&usr.ID,
		&usr.Username,
		&usr.Email,
		&fullName,
		&usr.HashedPassword,
		&usr.IsActive,
		&usr.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	usr.FullName = fullName.String
	if updatedAt.Valid {
		usr.UpdatedAt = &updatedAt.Time
	}

	return &usr, nil
}
