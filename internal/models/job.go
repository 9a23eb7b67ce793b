package models

// Job represents a job held by a user
type Job struct {
	ID         int64   `json:"job_id" db:"job_id"`
	UserID     int64   `json:"user_id" db:"user_id"`
	Title      string  `json:"job_title" db:"job_title"`
	HourlyRate float64 `json:"hourly_rate" db:"hourly_rate"`
	BreakHours float64 `json:"break_hours" db:"break_hours"`
	IsCurrent  bool    `json:"is_current" db:"is_current"`
}

// JobSummary is the compact form returned by the job selector
type JobSummary struct {
	ID    int64  `json:"job_id"`
	Title string `json:"job_title"`
}

// NewJob is a job supplied at signup
type NewJob struct {
	Title      string
	HourlyRate float64
	BreakHours float64
}

// JobSelection is the job a request operates on, either named by the caller
// or inferred because the user has exactly one active job.
type JobSelection struct {
	Job      Job
	Inferred bool
}
