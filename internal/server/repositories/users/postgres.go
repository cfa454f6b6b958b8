// Package users provides a PostgreSQL-backed repository for user records.
// The activity history is embedded in the user row as jsonb so a login's
// read-modify-write stays a single-row operation.
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/univx/authcore/internal/common"
	"github.com/univx/authcore/internal/dbx"
	"github.com/univx/authcore/internal/server/models"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, username, email, password_hash, activity)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	activity, err := json.Marshal(user.Activity)
	if err != nil {
		return nil, fmt.Errorf("error encoding activity: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, activity).Scan(&user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, username, email, password_hash, activity, created_at FROM users
		 WHERE email = $1
		 `
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, username, email, password_hash, activity, created_at FROM users
		 WHERE email = $1
		 FOR UPDATE
		 `
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, username, email, password_hash, activity, created_at FROM users
		 WHERE id = $1
		 `
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateActivity(ctx context.Context, id string, activity []models.ActivityEntry) error {
	query :=
		`UPDATE users SET activity = $2
		 WHERE id = $1
		 `

	encoded, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("error encoding activity: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, id, encoded); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var activity []byte

	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &activity, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if len(activity) > 0 {
		if err := json.Unmarshal(activity, &user.Activity); err != nil {
			return nil, fmt.Errorf("error decoding activity: %w", err)
		}
	}

	return user, nil
}
