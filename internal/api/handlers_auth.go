package api

import (
	"net/http"

	apperrors "github.com/earnings-tracker/internal/errors"
	"github.com/earnings-tracker/internal/service"
)

// handleLogin handles POST /api/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "Invalid request body")
		return
	}

	result, err := s.services.Auth.Login(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Login successful", result)
}

// handleSignup handles POST /api/auth/signup
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupInput
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "Invalid request body")
		return
	}

	result, err := s.services.Auth.Signup(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "User registered successfully", result)
}
