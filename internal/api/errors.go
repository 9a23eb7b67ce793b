package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/earnings-tracker/internal/errors"
	"github.com/earnings-tracker/internal/logging"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// Envelope is the shape of every JSON response
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Common error codes not produced by services
const (
	ErrCodeRouteNotFound     = "ROUTE_NOT_FOUND"
	ErrCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnavailable       = "SERVICE_UNAVAILABLE"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data) // nolint:errcheck // client went away
	}
}

// respondSuccess sends a successful envelope.
func respondSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	respondJSON(w, statusCode, Envelope{Success: true, Message: message, Data: data})
}

// respondError sends an error envelope.
func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, Envelope{Success: false, Message: message, Code: code})
}

// respondServiceError maps a service error to its HTTP response. Causes of
// 5xx errors are logged and never sent to the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)
	logger := logging.FromContext(r.Context()).WithFields(map[string]interface{}{
		"error_code":     catErr.Code,
		"error_category": string(catErr.Category),
	})

	if catErr.StatusCode >= http.StatusInternalServerError {
		logger.WithError(err).Error("Request failed")
	} else {
		logger.WithField("reason", catErr.Message).Debug("Request rejected")
	}

	respondError(w, catErr.StatusCode, catErr.Code, catErr.PublicMessage())
}

// parseJSONBody parses JSON request body.
func parseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return decoder.Decode(v)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, ErrCodeRouteNotFound, "Route not found")
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
}
