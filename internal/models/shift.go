package models

import "math"

// ShiftTimeLayout is the wire format for shift timestamps
const ShiftTimeLayout = "2006-01-02 15:04:05"

// Activity is one recorded shift as returned by the recent activities endpoints
type Activity struct {
	ShiftID       int64   `json:"shift_id"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	TotalHours    float64 `json:"total_hours"`
	TotalEarnings float64 `json:"total_earnings"`
}

// Summary sums hours, earnings and shift count
type Summary struct {
	TotalHours    float64 `json:"total_hours"`
	TotalEarnings float64 `json:"total_earnings"`
	TotalShifts   int     `json:"total_shifts"`
}

// Add accumulates another summary without rounding
func (s Summary) Add(other Summary) Summary {
	return Summary{
		TotalHours:    s.TotalHours + other.TotalHours,
		TotalEarnings: s.TotalEarnings + other.TotalEarnings,
		TotalShifts:   s.TotalShifts + other.TotalShifts,
	}
}

// Rounded returns the summary with money and hours rounded to cents
func (s Summary) Rounded() Summary {
	return Summary{
		TotalHours:    Round2(s.TotalHours),
		TotalEarnings: Round2(s.TotalEarnings),
		TotalShifts:   s.TotalShifts,
	}
}

// OverallSummary aggregates across every active job
type OverallSummary struct {
	TotalJobs     int     `json:"total_jobs"`
	TotalHours    float64 `json:"total_hours"`
	TotalEarnings float64 `json:"total_earnings"`
	TotalShifts   int     `json:"total_shifts"`
}

// NewOverallSummary rounds an accumulated summary for output
func NewOverallSummary(jobs int, s Summary) OverallSummary {
	r := s.Rounded()
	return OverallSummary{
		TotalJobs:     jobs,
		TotalHours:    r.TotalHours,
		TotalEarnings: r.TotalEarnings,
		TotalShifts:   r.TotalShifts,
	}
}

// SummarizeActivities sums a list of shifts
func SummarizeActivities(activities []Activity) Summary {
	var s Summary
	for _, a := range activities {
		s.TotalHours += a.TotalHours
		s.TotalEarnings += a.TotalEarnings
	}
	s.TotalShifts = len(activities)
	return s.Rounded()
}

// JobActivities is the recent activity view for one job
type JobActivities struct {
	JobID       int64      `json:"job_id"`
	JobTitle    string     `json:"job_title"`
	IsActive    bool       `json:"is_active"`
	PeriodStart string     `json:"period_start,omitempty"`
	PeriodEnd   string     `json:"period_end,omitempty"`
	Summary     Summary    `json:"summary"`
	Activities  []Activity `json:"activities"`
}

// AllJobsActivities is the recent activity view across active jobs
type AllJobsActivities struct {
	Jobs           []JobActivities `json:"jobs"`
	OverallSummary OverallSummary  `json:"overall_summary"`
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
