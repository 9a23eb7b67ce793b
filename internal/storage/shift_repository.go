package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/earnings-tracker/internal/models"
)

// bucketExpressions maps a period to the SQL expression yielding the first
// day of its bucket. date_trunc('week') starts weeks on Monday and
// EXTRACT(WEEK) is the ISO week number, so even weeks step back to pair with
// the preceding odd week while week 53 stays on its own.
var bucketExpressions = map[models.Period]string{
	models.PeriodDay:      `date_trunc('day', start_time)`,
	models.PeriodWeek:     `date_trunc('week', start_time)`,
	models.PeriodBiWeekly: `date_trunc('week', start_time) - ((EXTRACT(WEEK FROM start_time)::int + 1) % 2) * INTERVAL '7 days'`,
	models.PeriodMonth:    `date_trunc('month', start_time)`,
	models.PeriodYear:     `date_trunc('year', start_time)`,
}

// ShiftRepository reads recorded shifts
type ShiftRepository struct {
	db *PostgresDB
}

// NewShiftRepository creates a new shift repository
func NewShiftRepository(db *PostgresDB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// RecentActivities returns up to limit shifts of the job, newest first.
// A zero window.End leaves the window open ended.
func (r *ShiftRepository) RecentActivities(ctx context.Context, userID, jobID int64, window models.DateRange, limit int) ([]models.Activity, error) {
	query := `
		SELECT shift_id,
		       to_char(start_time, 'YYYY-MM-DD HH24:MI:SS'),
		       to_char(end_time, 'YYYY-MM-DD HH24:MI:SS'),
		       COALESCE(total_hours, 0)::float8,
		       COALESCE(total_earnings, 0)::float8
		FROM shifts
		WHERE user_id = $1 AND job_id = $2
		  AND start_time >= $3::timestamp
		  AND ($4::timestamp IS NULL OR start_time < $4::timestamp)
		ORDER BY start_time DESC
		LIMIT $5
	`

	// shifts hold wall-clock timestamps; pgx writes time.Time to a timestamp column by its wall clock
	var end *time.Time
	if !window.End.IsZero() {
		end = &window.End
	}

	rows, err := r.db.Pool().Query(ctx, query, userID, jobID, window.Start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent activities: %w", err)
	}
	defer rows.Close()

	activities := make([]models.Activity, 0, limit)
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ShiftID, &a.StartTime, &a.EndTime, &a.TotalHours, &a.TotalEarnings); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.TotalHours = models.Round2(a.TotalHours)
		a.TotalEarnings = models.Round2(a.TotalEarnings)
		activities = append(activities, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	return activities, nil
}

// PeriodTotals sums the job's shifts inside window, grouped by period
// buckets and ordered newest bucket first.
func (r *ShiftRepository) PeriodTotals(ctx context.Context, userID, jobID int64, period models.Period, window models.DateRange) ([]models.PeriodBucket, error) {
	expr, ok := bucketExpressions[period]
	if !ok {
		return nil, fmt.Errorf("unsupported period %q", period)
	}

	query := fmt.Sprintf(`
		SELECT %s AS bucket_start,
		       COALESCE(SUM(total_hours), 0)::float8,
		       COALESCE(SUM(total_earnings), 0)::float8,
		       COUNT(*)
		FROM shifts
		WHERE user_id = $1 AND job_id = $2
		  AND start_time >= $3::timestamp
		  AND start_time < $4::timestamp
		GROUP BY bucket_start
		ORDER BY bucket_start DESC
	`, expr)

	rows, err := r.db.Pool().Query(ctx, query,
		userID,
		jobID,
		window.Start,
		window.End,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query period totals: %w", err)
	}
	defer rows.Close()

	loc := window.Start.Location()
	buckets := []models.PeriodBucket{}
	for rows.Next() {
		var (
			start    time.Time
			hours    float64
			earnings float64
			shifts   int64
		)
		if err := rows.Scan(&start, &hours, &earnings, &shifts); err != nil {
			return nil, fmt.Errorf("failed to scan period bucket: %w", err)
		}
		// naive timestamps come back as UTC; keep the calendar date in the window's zone
		local := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		buckets = append(buckets, period.NewBucket(local, hours, earnings, int(shifts)))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating period buckets: %w", err)
	}

	return buckets, nil
}
