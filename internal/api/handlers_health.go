package api

import (
	"context"
	"net/http"
	"time"
)

// healthTimeout bounds the database ping
const healthTimeout = 2 * time.Second

type healthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Success:   true,
		Message:   "Server is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if s.services.Database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := s.services.Database.Ping(ctx); err != nil {
			resp.Success = false
			resp.Message = "Database unavailable"
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleTest handles GET /test - echoes the query and headers
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		if name == "Authorization" || name == "Cookie" {
			continue
		}
		headers[name] = r.Header.Get(name)
	}

	query := make(map[string]string, len(r.URL.Query()))
	for name, values := range r.URL.Query() {
		query[name] = values[0]
	}

	respondSuccess(w, http.StatusOK, "Test endpoint working", map[string]interface{}{
		"query":   query,
		"headers": headers,
	})
}
