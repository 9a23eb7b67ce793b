package service

import (
	"context"
	"time"

	apperrors "github.com/earnings-tracker/internal/errors"
	"github.com/earnings-tracker/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	// RecentActivityLimit caps the shifts returned per job
	RecentActivityLimit = 7
	// recentLookbackDays is the default activity window
	recentLookbackDays = 7
)

// ActivityService serves the recent activities views
type ActivityService struct {
	jobs   *JobService
	shifts ShiftRepository
	cal    calendar
}

// NewActivityService creates a new activity service
func NewActivityService(jobs *JobService, shifts ShiftRepository, now Clock, loc *time.Location) *ActivityService {
	return &ActivityService{jobs: jobs, shifts: shifts, cal: newCalendar(now, loc)}
}

// RecentActivities returns the latest shifts of one job
func (s *ActivityService) RecentActivities(ctx context.Context, q ShiftQuery) (*models.JobActivities, error) {
	explicit, err := s.cal.explicitRange(q)
	if err != nil {
		return nil, err
	}

	sel, err := s.jobs.ResolveJob(ctx, q.UserID, q.JobID)
	if err != nil {
		return nil, err
	}

	return s.forJob(ctx, q.UserID, sel.Job, explicit)
}

// RecentActivitiesAllJobs returns the latest shifts of every active job.
// A user with exactly one active job gets the single job view, so the
// result is either *models.JobActivities or *models.AllJobsActivities.
func (s *ActivityService) RecentActivitiesAllJobs(ctx context.Context, q ShiftQuery) (interface{}, error) {
	explicit, err := s.cal.explicitRange(q)
	if err != nil {
		return nil, err
	}

	jobs, err := s.jobs.activeJobs(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 1 {
		return s.forJob(ctx, q.UserID, jobs[0], explicit)
	}

	views := make([]models.JobActivities, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		g.Go(func() error {
			view, err := s.forJob(gctx, q.UserID, job, explicit)
			if err != nil {
				return err
			}
			views[i] = *view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total models.Summary
	for _, v := range views {
		total = total.Add(v.Summary)
	}

	return &models.AllJobsActivities{
		Jobs:           views,
		OverallSummary: models.NewOverallSummary(len(views), total),
	}, nil
}

func (s *ActivityService) forJob(ctx context.Context, userID int64, job models.Job, explicit *models.DateRange) (*models.JobActivities, error) {
	var window models.DateRange
	var periodStart, periodEnd string

	if explicit != nil {
		window = *explicit
		periodStart = explicit.Start.Format(models.DateLayout)
		periodEnd = explicit.LastDay().Format(models.DateLayout)
	} else {
		today := s.cal.today()
		// open ended so shifts logged later today are included
		window = models.DateRange{Start: today.AddDate(0, 0, -recentLookbackDays)}
		periodStart = window.Start.Format(models.DateLayout)
		periodEnd = today.Format(models.DateLayout)
	}

	activities, err := s.shifts.RecentActivities(ctx, userID, job.ID, window, RecentActivityLimit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("recent activities", err)
	}
	if activities == nil {
		activities = []models.Activity{}
	}

	return &models.JobActivities{
		JobID:       job.ID,
		JobTitle:    job.Title,
		IsActive:    job.IsCurrent,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Summary:     models.SummarizeActivities(activities),
		Activities:  activities,
	}, nil
}
