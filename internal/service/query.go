package service

import (
	"time"

	apperrors "github.com/earnings-tracker/internal/errors"
	"github.com/earnings-tracker/internal/models"
)

// ShiftQuery selects the shifts a read operation covers
type ShiftQuery struct {
	UserID int64
	// JobID is nil when the caller relies on single-job inference
	JobID *int64
	// Period is the raw period keyword; ignored by recent activities
	Period string
	// StartDate and EndDate are an optional inclusive YYYY-MM-DD range
	StartDate string
	EndDate   string
}

// calendar knows what "today" is for the deployment
type calendar struct {
	now Clock
	loc *time.Location
}

func newCalendar(now Clock, loc *time.Location) calendar {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return calendar{now: now, loc: loc}
}

func (c calendar) today() time.Time {
	n := c.now().In(c.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc)
}

// explicitRange parses the optional date range of a query
func (c calendar) explicitRange(q ShiftQuery) (*models.DateRange, error) {
	r, err := models.ParseDateRange(q.StartDate, q.EndDate, c.loc)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return r, nil
}
