// Package service implements authentication, job selection, recent activities
// and periodic earnings totals on top of the storage repositories.
package service

import (
	"context"
	"time"

	"github.com/earnings-tracker/internal/models"
)

// Repository interfaces for dependency injection

// UserRepository interface for account data operations
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CreateAccount(ctx context.Context, user *models.User, jobs []models.NewJob) error
}

// JobRepository interface for job lookups
type JobRepository interface {
	ListActive(ctx context.Context, userID int64) ([]models.Job, error)
	GetForUser(ctx context.Context, jobID, userID int64) (*models.Job, error)
}

// ShiftRepository interface for shift reads
type ShiftRepository interface {
	RecentActivities(ctx context.Context, userID, jobID int64, window models.DateRange, limit int) ([]models.Activity, error)
	PeriodTotals(ctx context.Context, userID, jobID int64, period models.Period, window models.DateRange) ([]models.PeriodBucket, error)
}

// TokenIssuer mints login tokens
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// Clock returns the current time
type Clock func() time.Time
