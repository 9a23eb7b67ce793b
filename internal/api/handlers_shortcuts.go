package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/earnings-tracker/internal/errors"
	"github.com/earnings-tracker/internal/logging"
	"github.com/earnings-tracker/internal/shortcut"
	"github.com/gorilla/mux"
)

// shortcutLinks is returned when the caller asks for URLs instead of the file
type shortcutLinks struct {
	ShortcutURL string `json:"shortcutUrl"`
	DownloadURL string `json:"downloadUrl"`
}

// handleGenerateShortcut handles POST /api/shortcuts/generate
func (s *Server) handleGenerateShortcut(w http.ResponseWriter, r *http.Request) {
	var req shortcut.Request
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "Invalid request body")
		return
	}

	result, err := s.services.Shortcuts.Generate(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	logger := logging.FromContext(r.Context()).WithField(logging.FieldFileName, result.FileName)

	if wantsShortcutURL(r) {
		if err := s.services.Shortcuts.Publish(r.Context(), result); err != nil {
			logger.WithError(err).Warn("Failed to register shortcut download expiry")
		}
		downloadURL := shortcut.DownloadURL(s.baseURL(r), result.FileName)
		respondSuccess(w, http.StatusOK, "", shortcutLinks{
			ShortcutURL: shortcut.ImportURL(downloadURL),
			DownloadURL: downloadURL,
		})
		return
	}

	f, info, err := s.services.Shortcuts.Open(result.FileName)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer s.services.Shortcuts.ScheduleRemoval(r.Context(), result)

	serveShortcut(w, r, f, info, result.FileName)
}

// handleDownloadShortcut handles GET /api/shortcuts/download/{fileName}
func (s *Server) handleDownloadShortcut(w http.ResponseWriter, r *http.Request) {
	fileName := mux.Vars(r)["fileName"]

	f, info, err := s.services.Shortcuts.Open(fileName)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	serveShortcut(w, r, f, info, info.Name())
}

// serveShortcut streams a shortcut file as an attachment and closes it
func serveShortcut(w http.ResponseWriter, r *http.Request, f *os.File, info os.FileInfo, fileName string) {
	defer f.Close()

	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		logging.FromContext(r.Context()).WithError(err).WithField(logging.FieldFileName, fileName).Warn("Failed to stream shortcut")
	}
}

func wantsShortcutURL(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("shortcutUrl"))
	return err == nil && v
}

// baseURL is the configured public URL or one derived from the request
func (s *Server) baseURL(r *http.Request) string {
	if s.config.PublicBaseURL != "" {
		return strings.TrimRight(s.config.PublicBaseURL, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme, _, _ = strings.Cut(proto, ",")
		scheme = strings.TrimSpace(scheme)
	}
	return scheme + "://" + r.Host
}
