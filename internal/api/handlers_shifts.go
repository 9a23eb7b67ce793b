package api

import (
	"net/http"

	"github.com/earnings-tracker/internal/service"
)

// shiftQuery builds the service query from the caller identity, the path and the query string
func shiftQuery(r *http.Request) (service.ShiftQuery, error) {
	userID, _ := UserIDFromContext(r.Context())
	jobID, err := pathJobID(r)
	if err != nil {
		return service.ShiftQuery{}, err
	}

	query := r.URL.Query()
	return service.ShiftQuery{
		UserID:    userID,
		JobID:     jobID,
		Period:    query.Get("period"),
		StartDate: query.Get("start_date"),
		EndDate:   query.Get("end_date"),
	}, nil
}

// handleRecentActivities handles GET /api/activities and /api/activities/{jobId}
func (s *Server) handleRecentActivities(w http.ResponseWriter, r *http.Request) {
	q, err := shiftQuery(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	activities, err := s.services.Activities.RecentActivities(r.Context(), q)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", activities)
}

// handleRecentActivitiesAll handles GET /api/activities/all
func (s *Server) handleRecentActivitiesAll(w http.ResponseWriter, r *http.Request) {
	q, err := shiftQuery(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	activities, err := s.services.Activities.RecentActivitiesAllJobs(r.Context(), q)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", activities)
}

// handlePeriodicTotals handles GET /api/periodic and /api/periodic/{jobId}
func (s *Server) handlePeriodicTotals(w http.ResponseWriter, r *http.Request) {
	q, err := shiftQuery(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	totals, err := s.services.Periodic.PeriodicTotals(r.Context(), q)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", totals)
}

// handlePeriodicTotalsAll handles GET /api/periodic/all
func (s *Server) handlePeriodicTotalsAll(w http.ResponseWriter, r *http.Request) {
	q, err := shiftQuery(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	totals, err := s.services.Periodic.PeriodicTotalsAllJobs(r.Context(), q)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", totals)
}
