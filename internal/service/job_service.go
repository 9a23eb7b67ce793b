package service

import (
	"context"
	"errors"

	apperrors "github.com/earnings-tracker/internal/errors"
	"github.com/earnings-tracker/internal/models"
	"github.com/earnings-tracker/internal/storage"
)

// JobService lists a user's jobs and decides which job a request is about
type JobService struct {
	jobs JobRepository
}

// NewJobService creates a new job service
func NewJobService(jobs JobRepository) *JobService {
	return &JobService{jobs: jobs}
}

// ListActive returns the job selector entries for the user
func (s *JobService) ListActive(ctx context.Context, userID int64) ([]models.JobSummary, error) {
	jobs, err := s.activeJobs(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.JobSummary, len(jobs))
	for i, j := range jobs {
		summaries[i] = models.JobSummary{ID: j.ID, Title: j.Title}
	}
	return summaries, nil
}

// ResolveJob returns the named job when jobID is set, otherwise the user's
// only active job. Several active jobs without a job id is ambiguous.
func (s *JobService) ResolveJob(ctx context.Context, userID int64, jobID *int64) (models.JobSelection, error) {
	if jobID != nil {
		job, err := s.jobs.GetForUser(ctx, *jobID, userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return models.JobSelection{}, apperrors.NewNotFoundError("Job not found")
			}
			return models.JobSelection{}, apperrors.NewDatabaseError("get job", err)
		}
		return models.JobSelection{Job: *job}, nil
	}

	jobs, err := s.activeJobs(ctx, userID)
	if err != nil {
		return models.JobSelection{}, err
	}
	if len(jobs) > 1 {
		return models.JobSelection{}, apperrors.NewAmbiguousJobError(len(jobs))
	}
	return models.JobSelection{Job: jobs[0], Inferred: true}, nil
}

// activeJobs loads the user's active jobs, reporting none as not found
func (s *JobService) activeJobs(ctx context.Context, userID int64) ([]models.Job, error) {
	jobs, err := s.jobs.ListActive(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list jobs", err)
	}
	if len(jobs) == 0 {
		return nil, apperrors.NewNotFoundError("No active jobs found")
	}
	return jobs, nil
}
