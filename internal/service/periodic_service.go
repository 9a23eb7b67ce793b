package service

import (
	"context"
	"time"

	apperrors "github.com/earnings-tracker/internal/errors"
	"github.com/earnings-tracker/internal/models"
	"golang.org/x/sync/errgroup"
)

// PeriodicService serves earnings totals grouped by calendar period
type PeriodicService struct {
	jobs   *JobService
	shifts ShiftRepository
	cal    calendar
}

// NewPeriodicService creates a new periodic totals service
func NewPeriodicService(jobs *JobService, shifts ShiftRepository, now Clock, loc *time.Location) *PeriodicService {
	return &PeriodicService{jobs: jobs, shifts: shifts, cal: newCalendar(now, loc)}
}

// parse validates the period keyword and resolves the window to aggregate over
func (s *PeriodicService) parse(q ShiftQuery) (models.Period, models.DateRange, error) {
	period, err := models.ParsePeriod(q.Period)
	if err != nil {
		return "", models.DateRange{}, apperrors.NewInvalidParameterError("period", err.Error())
	}

	explicit, err := s.cal.explicitRange(q)
	if err != nil {
		return "", models.DateRange{}, err
	}
	if explicit != nil {
		return period, *explicit, nil
	}
	return period, period.DefaultWindow(s.cal.today()), nil
}

// PeriodicTotals returns bucketed totals for one job
func (s *PeriodicService) PeriodicTotals(ctx context.Context, q ShiftQuery) (*models.JobTotals, error) {
	period, window, err := s.parse(q)
	if err != nil {
		return nil, err
	}

	sel, err := s.jobs.ResolveJob(ctx, q.UserID, q.JobID)
	if err != nil {
		return nil, err
	}

	buckets, err := s.BucketTotals(ctx, q.UserID, []int64{sel.Job.ID}, period, window)
	if err != nil {
		return nil, err
	}

	view := newJobTotals(sel.Job, period, buckets[sel.Job.ID])
	return &view, nil
}

// PeriodicTotalsAllJobs returns bucketed totals for every active job. As with
// recent activities, one active job yields the single job view, so the
// result is either *models.JobTotals or *models.AllJobsTotals.
func (s *PeriodicService) PeriodicTotalsAllJobs(ctx context.Context, q ShiftQuery) (interface{}, error) {
	period, window, err := s.parse(q)
	if err != nil {
		return nil, err
	}

	jobs, err := s.jobs.activeJobs(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}

	buckets, err := s.BucketTotals(ctx, q.UserID, ids, period, window)
	if err != nil {
		return nil, err
	}

	if len(jobs) == 1 {
		view := newJobTotals(jobs[0], period, buckets[jobs[0].ID])
		return &view, nil
	}

	views := make([]models.JobTotals, len(jobs))
	var total models.Summary
	for i, job := range jobs {
		views[i] = newJobTotals(job, period, buckets[job.ID])
		total = total.Add(views[i].Summary)
	}

	return &models.AllJobsTotals{
		Period:         period,
		Jobs:           views,
		OverallSummary: models.NewOverallSummary(len(views), total),
	}, nil
}

// BucketTotals aggregates each job's shifts in window by period. Jobs are
// queried concurrently; every requested job id has an entry in the result,
// empty when it has no shifts in the window.
func (s *PeriodicService) BucketTotals(ctx context.Context, userID int64, jobIDs []int64, period models.Period, window models.DateRange) (map[int64][]models.PeriodBucket, error) {
	results := make([][]models.PeriodBucket, len(jobIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, jobID := range jobIDs {
		g.Go(func() error {
			buckets, err := s.shifts.PeriodTotals(gctx, userID, jobID, period, window)
			if err != nil {
				return apperrors.NewDatabaseError("periodic totals", err)
			}
			results[i] = buckets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byJob := make(map[int64][]models.PeriodBucket, len(jobIDs))
	for i, jobID := range jobIDs {
		if results[i] == nil {
			results[i] = []models.PeriodBucket{}
		}
		byJob[jobID] = results[i]
	}
	return byJob, nil
}

func newJobTotals(job models.Job, period models.Period, buckets []models.PeriodBucket) models.JobTotals {
	if buckets == nil {
		buckets = []models.PeriodBucket{}
	}
	return models.JobTotals{
		JobID:    job.ID,
		JobTitle: job.Title,
		IsActive: job.IsCurrent,
		Period:   period,
		Totals:   buckets,
		Summary:  models.SummarizeBuckets(buckets),
	}
}
