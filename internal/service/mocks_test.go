package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/earnings-tracker/internal/models"
	"github.com/earnings-tracker/internal/storage"
)

// Mock repositories for testing

type mockUserRepo struct {
	mu        sync.Mutex
	users     map[string]*models.User
	jobs      map[int64][]models.NewJob
	nextID    int64
	createErr error
	getErr    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{}, jobs: map[int64][]models.NewJob{}, nextID: 1}
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[email]
	return ok, nil
}

func (m *mockUserRepo) CreateAccount(ctx context.Context, user *models.User, jobs []models.NewJob) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	m.nextID++
	m.users[user.Email] = user
	m.jobs[user.ID] = jobs
	return nil
}

type mockJobRepo struct {
	jobs    []models.Job
	listErr error
}

func (m *mockJobRepo) ListActive(ctx context.Context, userID int64) ([]models.Job, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Job
	for _, j := range m.jobs {
		if j.UserID == userID && j.IsCurrent {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *mockJobRepo) GetForUser(ctx context.Context, jobID, userID int64) (*models.Job, error) {
	for _, j := range m.jobs {
		if j.ID == jobID && j.UserID == userID {
			job := j
			return &job, nil
		}
	}
	return nil, fmt.Errorf("job %d: %w", jobID, storage.ErrNotFound)
}

type mockShift struct {
	userID, jobID int64
	start         time.Time
	hours         float64
	earnings      float64
}

// mockShiftRepo evaluates the repository contract in memory
type mockShiftRepo struct {
	mu      sync.Mutex
	shifts  []mockShift
	err     error
	windows []models.DateRange
}

func (m *mockShiftRepo) record(w models.DateRange) {
	m.mu.Lock()
	m.windows = append(m.windows, w)
	m.mu.Unlock()
}

func inWindow(t time.Time, w models.DateRange) bool {
	return !t.Before(w.Start) && (w.End.IsZero() || t.Before(w.End))
}

func (m *mockShiftRepo) RecentActivities(ctx context.Context, userID, jobID int64, window models.DateRange, limit int) ([]models.Activity, error) {
	m.record(window)
	if m.err != nil {
		return nil, m.err
	}
	var matched []mockShift
	for _, s := range m.shifts {
		if s.userID == userID && s.jobID == jobID && inWindow(s.start, window) {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].start.After(matched[j].start) })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]models.Activity, len(matched))
	for i, s := range matched {
		out[i] = models.Activity{
			ShiftID:       int64(i + 1),
			StartTime:     s.start.Format(models.ShiftTimeLayout),
			EndTime:       s.start.Add(time.Duration(s.hours * float64(time.Hour))).Format(models.ShiftTimeLayout),
			TotalHours:    s.hours,
			TotalEarnings: s.earnings,
		}
	}
	return out, nil
}

func (m *mockShiftRepo) PeriodTotals(ctx context.Context, userID, jobID int64, period models.Period, window models.DateRange) ([]models.PeriodBucket, error) {
	m.record(window)
	if m.err != nil {
		return nil, m.err
	}
	type agg struct {
		hours, earnings float64
		count           int
	}
	byStart := map[time.Time]*agg{}
	for _, s := range m.shifts {
		if s.userID != userID || s.jobID != jobID || !inWindow(s.start, window) {
			continue
		}
		start := period.BucketStart(s.start)
		if byStart[start] == nil {
			byStart[start] = &agg{}
		}
		byStart[start].hours += s.hours
		byStart[start].earnings += s.earnings
		byStart[start].count++
	}
	var out []models.PeriodBucket
	for start, a := range byStart {
		out = append(out, period.NewBucket(start, a.hours, a.earnings, a.count))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out, nil
}

type mockTokens struct {
	err error
}

func (m *mockTokens) Issue(userID int64) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return fmt.Sprintf("token-%d", userID), nil
}

func int64Ptr(v int64) *int64 { return &v }

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
