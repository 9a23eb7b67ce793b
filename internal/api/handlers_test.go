package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/earnings-tracker/internal/errors"
	"github.com/earnings-tracker/internal/models"
	"github.com/earnings-tracker/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer good-token")
	return req
}

func TestLogin_Success(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do(jsonRequest(t, "POST", "/api/auth/login", map[string]string{
		"email": "dana@example.com", "password": "correct horse",
	}))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool                `json:"success"`
		Message string              `json:"message"`
		Data    service.LoginResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Login successful", resp.Message)
	assert.Equal(t, "dana@example.com", resp.Data.Email)
	assert.Equal(t, "token-1", resp.Data.Token)
}

func TestLogin_InvalidJSON(t *testing.T) {
	ts := createTestServer(t)

	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader("invalid json"))
	w := ts.do(req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	ts := createTestServer(t)
	ts.auth.loginFunc = func(ctx context.Context, input service.LoginInput) (*service.LoginResult, error) {
		return nil, apperrors.NewUnauthorizedError("Invalid email or password")
	}

	w := ts.do(jsonRequest(t, "POST", "/api/auth/login", map[string]string{"email": "a@b.c", "password": "nope"}))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid email or password", env.Message)
}

func TestSignup_Created(t *testing.T) {
	ts := createTestServer(t)
	var got service.SignupInput
	ts.auth.signupFunc = func(ctx context.Context, input service.SignupInput) (*service.SignupResult, error) {
		got = input
		return &service.SignupResult{UserID: 9, Email: input.Email}, nil
	}

	w := ts.do(jsonRequest(t, "POST", "/api/auth/signup", map[string]interface{}{
		"name":     "Dana",
		"email":    "dana@example.com",
		"password": "correct horse",
		"timezone": "America/Toronto",
		"jobs":     []map[string]interface{}{{"title": "Barista", "hourlyRate": 15, "breakTime": 0.5}},
	}))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "User registered successfully", decodeEnvelope(t, w).Message)
	require.Len(t, got.Jobs, 1)
	assert.Equal(t, 15.0, got.Jobs[0].HourlyRate)
	assert.Equal(t, 0.5, got.Jobs[0].BreakTime)
}

func TestSignup_InternalErrorIsHidden(t *testing.T) {
	ts := createTestServer(t)
	ts.auth.signupFunc = func(ctx context.Context, input service.SignupInput) (*service.SignupResult, error) {
		return nil, apperrors.NewDatabaseError("create account", assert.AnError)
	}

	w := ts.do(jsonRequest(t, "POST", "/api/auth/signup", map[string]string{"email": "x@y.z"}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, apperrors.InternalMessage, env.Message)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestListJobs(t *testing.T) {
	tests := []struct {
		name        string
		allowHeader bool
		prepare     func(req *http.Request)
		target      string
		wantStatus  int
		wantUser    int64
	}{
		{name: "token identity", target: "/api/jobs/list", prepare: func(r *http.Request) { authed(r) }, wantStatus: http.StatusOK, wantUser: 42},
		{name: "no user", target: "/api/jobs/list", wantStatus: http.StatusBadRequest},
		{name: "query without trust", target: "/api/jobs/list?userId=7", wantStatus: http.StatusUnauthorized},
		{name: "query for another user", target: "/api/jobs/list?userId=7", prepare: func(r *http.Request) { authed(r) }, wantStatus: http.StatusForbidden},
		{name: "query for self", target: "/api/jobs/list?userId=42", prepare: func(r *http.Request) { authed(r) }, wantStatus: http.StatusOK, wantUser: 42},
		{name: "trusted query", allowHeader: true, target: "/api/jobs/list?userId=7", wantStatus: http.StatusOK, wantUser: 7},
		{name: "trusted header", allowHeader: true, target: "/api/jobs/list", prepare: func(r *http.Request) { r.Header.Set("X-User-Id", "8") }, wantStatus: http.StatusOK, wantUser: 8},
		{name: "bad query", allowHeader: true, target: "/api/jobs/list?userId=abc", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := createTestServer(t, func(c *ServerConfig) { c.AllowUserHeader = tt.allowHeader })
			var gotUser int64
			ts.jobs.listFunc = func(ctx context.Context, userID int64) ([]models.JobSummary, error) {
				gotUser = userID
				return []models.JobSummary{{ID: 5, Title: "Barista"}}, nil
			}

			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.prepare != nil {
				tt.prepare(req)
			}
			w := ts.do(req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantUser, gotUser)
		})
	}
}

func TestListJobs_NoActiveJobs(t *testing.T) {
	ts := createTestServer(t)
	ts.jobs.listFunc = func(ctx context.Context, userID int64) ([]models.JobSummary, error) {
		return nil, apperrors.NewNotFoundError("No active jobs found")
	}

	w := ts.do(authed(httptest.NewRequest("GET", "/api/jobs/list", nil)))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No active jobs found", decodeEnvelope(t, w).Message)
}

func TestShiftRoutes_RequireIdentity(t *testing.T) {
	ts := createTestServer(t)

	for _, target := range []string{"/api/activities", "/api/activities/5", "/api/activities/all", "/api/periodic", "/api/periodic/all"} {
		w := ts.do(httptest.NewRequest("GET", target, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)

		req := httptest.NewRequest("GET", target, nil)
		req.Header.Set("Authorization", "Bearer expired")
		assert.Equal(t, http.StatusUnauthorized, ts.do(req).Code, target)

		// The header is ignored unless trusted mode is on
		req = httptest.NewRequest("GET", target, nil)
		req.Header.Set("X-User-Id", "42")
		assert.Equal(t, http.StatusUnauthorized, ts.do(req).Code, target)
	}
}

func TestRecentActivities_ForwardsQuery(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do(authed(httptest.NewRequest("GET", "/api/activities/5?start_date=2025-10-01&end_date=2025-10-31", nil)))

	require.Equal(t, http.StatusOK, w.Code)
	q := ts.activities.lastQuery
	assert.Equal(t, int64(42), q.UserID)
	require.NotNil(t, q.JobID)
	assert.Equal(t, int64(5), *q.JobID)
	assert.Equal(t, "2025-10-01", q.StartDate)
	assert.Equal(t, "2025-10-31", q.EndDate)
}

func TestRecentActivities_InferredJob(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do(authed(httptest.NewRequest("GET", "/api/activities", nil)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, ts.activities.lastQuery.JobID)
}

func TestRecentActivities_AmbiguousJob(t *testing.T) {
	ts := createTestServer(t)
	ts.activities.err = apperrors.NewAmbiguousJobError(2)

	w := ts.do(authed(httptest.NewRequest("GET", "/api/activities", nil)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, apperrors.CodeJobRequired, env.Code)
	assert.Equal(t, "Job ID is required as you have multiple jobs", env.Message)
}

func TestRecentActivities_InvalidJobID(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do(authed(httptest.NewRequest("GET", "/api/activities/abc", nil)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecentActivitiesAll(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do(authed(httptest.NewRequest("GET", "/api/activities/all", nil)))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data models.AllJobsActivities `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.OverallSummary.TotalJobs)
	assert.Nil(t, ts.activities.lastQuery.JobID)
}

func TestPeriodicTotals_ForwardsPeriod(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do(authed(httptest.NewRequest("GET", "/api/periodic/5?period=month", nil)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "month", ts.periodic.lastQuery.Period)
	require.NotNil(t, ts.periodic.lastQuery.JobID)
	assert.Equal(t, int64(5), *ts.periodic.lastQuery.JobID)
}

func TestPeriodicTotals_InvalidPeriod(t *testing.T) {
	ts := createTestServer(t)
	ts.periodic.err = apperrors.NewInvalidParameterError("period", "unsupported period")

	w := ts.do(authed(httptest.NewRequest("GET", "/api/periodic?period=quarter", nil)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPeriodicTotalsAll_TrustedHeader(t *testing.T) {
	ts := createTestServer(t, func(c *ServerConfig) { c.AllowUserHeader = true })

	req := httptest.NewRequest("GET", "/api/periodic/all?period=biweekly", nil)
	req.Header.Set("X-User-Id", "3")
	w := ts.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), ts.periodic.lastQuery.UserID)
	assert.Equal(t, "biweekly", ts.periodic.lastQuery.Period)
}

func TestGenerateShortcut_Streams(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do(jsonRequest(t, "POST", "/api/shortcuts/generate", map[string]interface{}{
		"templateName": "TemplateIn", "userId": 12, "jobId": "34", "fileName": "clock-in.shortcut",
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="clock-in.shortcut"`, w.Header().Get("Content-Disposition"))

	var root map[string]interface{}
	format, err := plist.Unmarshal(w.Body.Bytes(), &root)
	require.NoError(t, err)
	assert.Equal(t, plist.BinaryFormat, format)
	assert.Contains(t, w.Body.String(), "12")

	path := filepath.Join(ts.tempDir, "clock-in.shortcut")
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond, "streamed file should be removed")
}

func TestGenerateShortcut_URLMode(t *testing.T) {
	ts := createTestServer(t, func(c *ServerConfig) { c.PublicBaseURL = "https://api.example.com/" })

	w := ts.do(jsonRequest(t, "POST", "/api/shortcuts/generate?shortcutUrl=true", map[string]interface{}{
		"templateName": "templatein", "userId": 12, "jobId": 34, "fileName": "my file.shortcut",
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Success bool          `json:"success"`
		Data    shortcutLinks `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://api.example.com/api/shortcuts/download/my%20file.shortcut", resp.Data.DownloadURL)
	assert.True(t, strings.HasPrefix(resp.Data.ShortcutURL, "shortcuts://import-shortcut?url=https%3A%2F%2Fapi.example.com"))

	// The file stays available for the download route
	w = ts.do(httptest.NewRequest("GET", "/api/shortcuts/download/my%20file.shortcut", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.Bytes())
	assert.Equal(t, `attachment; filename="my file.shortcut"`, w.Header().Get("Content-Disposition"))

	w = ts.do(httptest.NewRequest("GET", "/api/shortcuts/temp/my%20file.shortcut", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerateShortcut_DerivedBaseURL(t *testing.T) {
	ts := createTestServer(t)

	req := jsonRequest(t, "POST", "/api/shortcuts/generate?shortcutUrl=true", map[string]interface{}{
		"templateName": "TemplateIn", "userId": 1, "jobId": 2, "fileName": "a.shortcut",
	})
	req.Host = "tracker.example.com"
	req.Header.Set("X-Forwarded-Proto", "https")
	w := ts.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://tracker.example.com/api/shortcuts/download/a.shortcut")
}

func TestGenerateShortcut_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed body", "{", http.StatusBadRequest},
		{"missing ids", `{"templateName":"TemplateIn"}`, http.StatusBadRequest},
		{"non numeric id", `{"templateName":"TemplateIn","userId":"abc","jobId":1}`, http.StatusBadRequest},
		{"unknown template", `{"templateName":"Other","userId":1,"jobId":1}`, http.StatusBadRequest},
		{"missing template file", `{"templateName":"TemplateOut","userId":1,"jobId":1}`, http.StatusNotFound},
		{"hidden file name", `{"templateName":"TemplateIn","userId":1,"jobId":1,"fileName":".env"}`, http.StatusBadRequest},
	}

	ts := createTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/shortcuts/generate", strings.NewReader(tt.body))
			w := ts.do(req)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.False(t, decodeEnvelope(t, w).Success)
		})
	}
}

func TestDownloadShortcut_NotFound(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do(httptest.NewRequest("GET", "/api/shortcuts/download/missing.shortcut", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "File not found", decodeEnvelope(t, w).Message)
}

func TestTestEndpoint_EchoesRequest(t *testing.T) {
	ts := createTestServer(t)

	req := httptest.NewRequest("GET", "/test?foo=bar", nil)
	req.Header.Set("X-Custom", "value")
	req.Header.Set("Authorization", "Bearer secret")
	w := ts.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"foo":"bar"`)
	assert.Contains(t, body, `"X-Custom":"value"`)
	assert.NotContains(t, body, "secret")
}
