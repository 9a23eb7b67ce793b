package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// Period is the calendar unit shifts are bucketed by
type Period string

const (
	PeriodDay      Period = "day"
	PeriodWeek     Period = "week"
	PeriodBiWeekly Period = "bi-weekly"
	PeriodMonth    Period = "month"
	PeriodYear     Period = "year"
)

// DefaultPeriod applies when the caller does not name one
const DefaultPeriod = PeriodWeek

// yearLookback is how far the default year window reaches back
const yearLookback = 5

// Periods lists every supported period
var Periods = []Period{PeriodDay, PeriodWeek, PeriodBiWeekly, PeriodMonth, PeriodYear}

// ParsePeriod normalizes a period keyword. An empty keyword yields DefaultPeriod
// and "biweekly" is accepted as an alias of "bi-weekly".
func ParsePeriod(raw string) (Period, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return DefaultPeriod, nil
	case "biweekly":
		return PeriodBiWeekly, nil
	}
	for _, p := range Periods {
		if Period(raw) == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported period %q (expected day, week, bi-weekly, month or year)", raw)
}

// BucketStart returns the first day of the bucket containing t, at midnight in t's location.
// Weeks start on Monday; bi-weekly buckets pair ISO weeks (1,2), (3,4), ... of the ISO year.
func (p Period) BucketStart(t time.Time) time.Time {
	day := startOfDay(t)
	switch p {
	case PeriodWeek:
		return weekStart(day)
	case PeriodBiWeekly:
		ws := weekStart(day)
		if _, week := ws.ISOWeek(); week%2 == 0 {
			ws = ws.AddDate(0, 0, -7)
		}
		return ws
	case PeriodMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	case PeriodYear:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

// BucketEnd returns the last calendar day (inclusive) of the bucket starting at start
func (p Period) BucketEnd(start time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return start.AddDate(0, 0, 6)
	case PeriodBiWeekly:
		// ISO week 53 has no partner week
		if _, week := start.ISOWeek(); week == 53 {
			return start.AddDate(0, 0, 6)
		}
		return start.AddDate(0, 0, 13)
	case PeriodMonth:
		return start.AddDate(0, 1, -1)
	case PeriodYear:
		return start.AddDate(1, 0, -1)
	default:
		return start
	}
}

// Label renders the human readable name of the bucket starting at start
func (p Period) Label(start time.Time) string {
	switch p {
	case PeriodWeek:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case PeriodBiWeekly:
		year, week := start.ISOWeek()
		if _, last := p.BucketEnd(start).ISOWeek(); last != week {
			return fmt.Sprintf("%d-W%02d/%02d", year, week, last)
		}
		return fmt.Sprintf("%d-W%02d", year, week)
	case PeriodMonth:
		return start.Format("2006-01")
	case PeriodYear:
		return start.Format("2006")
	default:
		return start.Format(DateLayout)
	}
}

// DefaultWindow is the lookback window used when no explicit range is supplied:
// the current bucket for day/week/bi-weekly/month, the trailing five years for year.
func (p Period) DefaultWindow(now time.Time) DateRange {
	today := startOfDay(now)
	if p == PeriodYear {
		return DateRange{Start: today.AddDate(-yearLookback, 0, 0), End: today.AddDate(0, 0, 1)}
	}
	start := p.BucketStart(today)
	return DateRange{Start: start, End: p.BucketEnd(start).AddDate(0, 0, 1)}
}

// NewBucket builds an output bucket for the bucket starting on the given day
func (p Period) NewBucket(start time.Time, hours, earnings float64, shifts int) PeriodBucket {
	return PeriodBucket{
		Period:        p.Label(start),
		TotalHours:    Round2(hours),
		TotalEarnings: Round2(earnings),
		TotalShifts:   shifts,
		PeriodStart:   start.Format(DateLayout),
		PeriodEnd:     p.BucketEnd(start).Format(DateLayout),
		Start:         start,
	}
}

// DateRange is a half-open [Start, End) interval of local time
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange reads an inclusive start_date/end_date pair (YYYY-MM-DD).
// Both empty means no explicit range and returns nil.
func ParseDateRange(startDate, endDate string, loc *time.Location) (*DateRange, error) {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)
	if startDate == "" && endDate == "" {
		return nil, nil
	}
	if startDate == "" || endDate == "" {
		return nil, fmt.Errorf("start_date and end_date must be supplied together")
	}

	start, err := time.ParseInLocation(DateLayout, startDate, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", startDate)
	}
	end, err := time.ParseInLocation(DateLayout, endDate, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", endDate)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end_date %s is before start_date %s", endDate, startDate)
	}

	return &DateRange{Start: start, End: end.AddDate(0, 0, 1)}, nil
}

// LastDay is the inclusive last calendar day of the range
func (r DateRange) LastDay() time.Time {
	return r.End.AddDate(0, 0, -1)
}

// PeriodBucket is one aggregated calendar period
type PeriodBucket struct {
	Period        string    `json:"period"`
	TotalHours    float64   `json:"total_hours"`
	TotalEarnings float64   `json:"total_earnings"`
	TotalShifts   int       `json:"total_shifts"`
	PeriodStart   string    `json:"period_start"`
	PeriodEnd     string    `json:"period_end"`
	Start         time.Time `json:"-"`
}

// SummarizeBuckets sums buckets and rounds the result
func SummarizeBuckets(buckets []PeriodBucket) Summary {
	var s Summary
	for _, b := range buckets {
		s.TotalHours += b.TotalHours
		s.TotalEarnings += b.TotalEarnings
		s.TotalShifts += b.TotalShifts
	}
	return s.Rounded()
}

// JobTotals is the periodic totals view for one job
type JobTotals struct {
	JobID    int64          `json:"job_id"`
	JobTitle string         `json:"job_title"`
	IsActive bool           `json:"is_active"`
	Period   Period         `json:"period"`
	Totals   []PeriodBucket `json:"totals"`
	Summary  Summary        `json:"summary"`
}

// AllJobsTotals is the periodic totals view across active jobs
type AllJobsTotals struct {
	Period         Period         `json:"period"`
	Jobs           []JobTotals    `json:"jobs"`
	OverallSummary OverallSummary `json:"overall_summary"`
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
