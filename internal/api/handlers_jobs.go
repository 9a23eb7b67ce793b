package api

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/earnings-tracker/internal/errors"
	"github.com/gorilla/mux"
)

// handleListJobs handles GET /api/jobs/list - active jobs for the job selector.
// The userId query parameter is honored only in trusted header mode.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())

	if raw := strings.TrimSpace(r.URL.Query().Get("userId")); raw != "" {
		if !s.config.AllowUserHeader && !ok {
			respondError(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Authentication required")
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "Invalid user ID")
			return
		}
		if ok && id != userID && !s.config.AllowUserHeader {
			respondError(w, http.StatusForbidden, "FORBIDDEN", "Cannot list jobs of another user")
			return
		}
		userID, ok = id, true
	}

	if !ok {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "User ID is required")
		return
	}

	jobs, err := s.services.Jobs.ListActive(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", jobs)
}

// pathJobID reads the optional {jobId} path variable
func pathJobID(r *http.Request) (*int64, error) {
	raw, ok := mux.Vars(r)["jobId"]
	if !ok || raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperrors.NewInvalidParameterError("jobId", "must be a positive integer")
	}
	return &id, nil
}
