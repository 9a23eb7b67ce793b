// Package shortcut embeds user and job identifiers into the iOS Shortcut
// templates served by the API.
package shortcut

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	apperrors "github.com/earnings-tracker/internal/errors"
)

// Category selects the clock-in or clock-out shortcut
type Category string

const (
	CategoryIn  Category = "in"
	CategoryOut Category = "out"
)

// templateFiles lists the candidate files per category in preference order.
// The JSON sources are patched structurally; the others are compiled shortcuts.
var templateFiles = map[Category][]string{
	CategoryIn:  {"TemplateInJson.shortcut", "Templatein.shortcut"},
	CategoryOut: {"TemplateOutJson.shortcut", "Templateout.shortcut"},
}

// ResolveCategory maps the client supplied template name to a category.
// Only the base name matters and matching is case-insensitive.
func ResolveCategory(templateName string) (Category, error) {
	base := strings.ToLower(path.Base(strings.ReplaceAll(strings.TrimSpace(templateName), `\`, "/")))
	switch {
	case strings.Contains(base, "templatein"):
		return CategoryIn, nil
	case strings.Contains(base, "templateout"):
		return CategoryOut, nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("Invalid template name: %s", templateName))
	}
}

// Template is a resolved template file
type Template struct {
	Category Category
	Path     string
	// JSON is set for uncompiled JSON sources
	JSON bool
}

// TemplateStore locates templates in a directory
type TemplateStore struct {
	dir string
}

// NewTemplateStore creates a store rooted at dir
func NewTemplateStore(dir string) *TemplateStore {
	return &TemplateStore{dir: dir}
}

// Resolve returns the preferred existing template of the category
func (s *TemplateStore) Resolve(category Category) (*Template, error) {
	candidates, ok := templateFiles[category]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Invalid template category: %s", category))
	}

	for _, name := range candidates {
		p := filepath.Join(s.dir, name)
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return &Template{Category: category, Path: p, JSON: strings.Contains(name, "Json")}, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewInternalError("failed to stat template", err)
		}
	}

	return nil, apperrors.NewNotFoundError(fmt.Sprintf("Template file not found: %s", candidates[len(candidates)-1]))
}

// Load reads the template bytes
func (s *TemplateStore) Load(t *Template) ([]byte, error) {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("Template file not found: %s", filepath.Base(t.Path)))
		}
		return nil, apperrors.NewInternalError("failed to read template", err)
	}
	return data, nil
}
