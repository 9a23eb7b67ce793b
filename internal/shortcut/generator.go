package shortcut

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/earnings-tracker/internal/errors"
	"github.com/earnings-tracker/internal/logging"
	"github.com/google/uuid"
)

// ID is a positive identifier that clients may send as a JSON number or a
// numeric string
type ID int64

// UnmarshalJSON accepts 12, "12" and null
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
		if len(data) == 0 {
			*id = 0
			return nil
		}
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("identifier must be an integer, got %s", data)
	}
	*id = ID(v)
	return nil
}

// Request is the shortcut generation request body
type Request struct {
	TemplateName string `json:"templateName"`
	UserID       ID     `json:"userId"`
	JobID        ID     `json:"jobId"`
	FileName     string `json:"fileName"`
}

// Result describes a generated shortcut file
type Result struct {
	FileName string
	Path     string
	Size     int
}

// DownloadRegistry records how long URL-mode files stay downloadable
type DownloadRegistry interface {
	Register(ctx context.Context, fileName string, expiresAt time.Time) error
}

// GeneratorConfig holds generator settings
type GeneratorConfig struct {
	Templates    *TemplateStore
	TempDir      string
	CleanupDelay time.Duration
	DownloadTTL  time.Duration
	// Registry is optional; without it published files are not swept
	Registry DownloadRegistry
}

// Generator produces patched shortcut files in a temp directory
type Generator struct {
	templates    *TemplateStore
	tempDir      string
	cleanupDelay time.Duration
	downloadTTL  time.Duration
	registry     DownloadRegistry
	now          func() time.Time
}

// NewGenerator creates a generator
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.Templates == nil {
		return nil, errors.New("template store is required")
	}
	if cfg.TempDir == "" {
		return nil, errors.New("temp directory is required")
	}
	return &Generator{
		templates:    cfg.Templates,
		tempDir:      cfg.TempDir,
		cleanupDelay: cfg.CleanupDelay,
		downloadTTL:  cfg.DownloadTTL,
		registry:     cfg.Registry,
		now:          time.Now,
	}, nil
}

// Generate patches the requested template and writes it to the temp
// directory. An existing file of the same name is overwritten.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.TemplateName) == "" || req.UserID == 0 || req.JobID == 0 {
		return nil, apperrors.NewValidationError("Template name, user ID, and job ID are required")
	}
	if req.UserID < 0 {
		return nil, apperrors.NewInvalidParameterError("userId", "must be a positive integer")
	}
	if req.JobID < 0 {
		return nil, apperrors.NewInvalidParameterError("jobId", "must be a positive integer")
	}

	category, err := ResolveCategory(req.TemplateName)
	if err != nil {
		return nil, err
	}

	fileName, err := SanitizeFileName(req.FileName, category)
	if err != nil {
		return nil, err
	}

	tmpl, err := g.templates.Resolve(category)
	if err != nil {
		return nil, err
	}
	data, err := g.templates.Load(tmpl)
	if err != nil {
		return nil, err
	}

	ids := Identifiers{UserID: int64(req.UserID), JobID: int64(req.JobID)}
	var patched []byte
	if tmpl.JSON {
		patched, err = PatchJSONTemplate(data, ids)
	} else {
		patched, err = PatchBinaryTemplate(data, ids)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to patch shortcut template", err)
	}

	if err := os.MkdirAll(g.tempDir, 0o750); err != nil {
		return nil, apperrors.NewInternalError("failed to create temp directory", err)
	}
	outPath := filepath.Join(g.tempDir, fileName)
	if err := os.WriteFile(outPath, patched, 0o600); err != nil {
		return nil, apperrors.NewInternalError("failed to write shortcut", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		logging.FieldUserID:   ids.UserID,
		logging.FieldJobID:    ids.JobID,
		logging.FieldFileName: fileName,
		"template":            filepath.Base(tmpl.Path),
	}).Debug("Shortcut generated")

	return &Result{FileName: fileName, Path: outPath, Size: len(patched)}, nil
}

// ScheduleRemoval deletes a streamed file after the cleanup delay
func (g *Generator) ScheduleRemoval(ctx context.Context, res *Result) {
	logger := logging.FromContext(ctx)
	time.AfterFunc(g.cleanupDelay, func() {
		if err := os.Remove(res.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WithError(err).WithField(logging.FieldFileName, res.FileName).Warn("Failed to delete temporary shortcut")
		}
	})
}

// Publish keeps a file available for download until the download TTL passes.
// Without a registry the file simply stays until removed by hand.
func (g *Generator) Publish(ctx context.Context, res *Result) error {
	if g.registry == nil {
		return nil
	}
	return g.registry.Register(ctx, res.FileName, g.now().Add(g.downloadTTL))
}

// Open returns a transient file for download
func (g *Generator) Open(fileName string) (*os.File, os.FileInfo, error) {
	name, err := SanitizeFileName(fileName, "")
	if err != nil {
		return nil, nil, err
	}
	if name == "" {
		return nil, nil, apperrors.NewValidationError("File name is required")
	}

	f, err := os.Open(filepath.Join(g.tempDir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, apperrors.NewNotFoundError("File not found")
		}
		return nil, nil, apperrors.NewInternalError("failed to open shortcut", err)
	}
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, apperrors.NewNotFoundError("File not found")
	}
	return f, info, nil
}

// SanitizeFileName reduces a client supplied name to a plain base name. An
// empty name becomes <category>-<uuid>.shortcut, or stays empty when no
// category is given.
func SanitizeFileName(name string, category Category) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if category == "" {
			return "", nil
		}
		return fmt.Sprintf("%s-%s.shortcut", category, uuid.NewString()), nil
	}

	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == ".." || base == "/" || strings.HasPrefix(base, ".") || strings.ContainsRune(base, 0) {
		return "", apperrors.NewInvalidParameterError("fileName", "not a valid file name")
	}
	return base, nil
}

// DownloadURL is where a published file can be fetched
func DownloadURL(baseURL, fileName string) string {
	return strings.TrimRight(baseURL, "/") + "/api/shortcuts/download/" + url.PathEscape(fileName)
}

// ImportURL is the shortcuts:// link that makes iOS import a published file
func ImportURL(downloadURL string) string {
	return "shortcuts://import-shortcut?url=" + url.QueryEscape(downloadURL)
}
