package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/earnings-tracker/internal/models"
	"github.com/jackc/pgx/v5"
)

// UserRepository handles user accounts
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `user_id, username, email, password_hash, currency, timezone, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Currency,
		&user.Timezone,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ExistsByEmail checks if a user exists by email
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	err := r.db.Pool().QueryRow(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence by email: %w", err)
	}

	return exists, nil
}

// CreateAccount inserts the user, each of their jobs and an empty stats row
// in a single transaction. On success user.ID and user.CreatedAt are populated.
func (r *UserRepository) CreateAccount(ctx context.Context, user *models.User, jobs []models.NewJob) (err error) {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx) // nolint:errcheck // original error is returned
		}
	}()

	if user.Currency == "" {
		user.Currency = models.DefaultCurrency
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, currency, timezone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING user_id, created_at
	`, user.Username, user.Email, user.PasswordHash, user.Currency, user.Timezone).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	// Jobs are inserted one at a time so job ids follow the submitted order
	for _, job := range jobs {
		_, err = tx.Exec(ctx, `
			INSERT INTO jobs (user_id, job_title, hourly_rate, break_hours, is_current)
			VALUES ($1, $2, $3, $4, 1)
		`, user.ID, job.Title, job.HourlyRate, job.BreakHours)
		if err != nil {
			return fmt.Errorf("failed to create job %q: %w", job.Title, err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_stats (user_id, total_hours, total_earnings, last_updated)
		VALUES ($1, 0, 0, NOW())
	`, user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user stats: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit account: %w", err)
	}

	return nil
}
