package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/earnings-tracker/internal/models"
	"github.com/jackc/pgx/v5"
)

// JobRepository reads the jobs a user holds
type JobRepository struct {
	db *PostgresDB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *PostgresDB) *JobRepository {
	return &JobRepository{db: db}
}

// ListActive returns the user's current jobs ordered by job id
func (r *JobRepository) ListActive(ctx context.Context, userID int64) ([]models.Job, error) {
	query := `
		SELECT job_id, user_id, job_title, hourly_rate::float8, break_hours::float8, is_current = 1
		FROM jobs
		WHERE user_id = $1 AND is_current = 1
		ORDER BY job_id
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var job models.Job
		if err := rows.Scan(&job.ID, &job.UserID, &job.Title, &job.HourlyRate, &job.BreakHours, &job.IsCurrent); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}

	return jobs, nil
}

// GetForUser returns the job only if it belongs to the user, active or not
func (r *JobRepository) GetForUser(ctx context.Context, jobID, userID int64) (*models.Job, error) {
	query := `
		SELECT job_id, user_id, job_title, hourly_rate::float8, break_hours::float8, is_current = 1
		FROM jobs
		WHERE job_id = $1 AND user_id = $2
	`

	var job models.Job
	err := r.db.Pool().QueryRow(ctx, query, jobID, userID).Scan(
		&job.ID, &job.UserID, &job.Title, &job.HourlyRate, &job.BreakHours, &job.IsCurrent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job %d for user %d: %w", jobID, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}
