// Package importer loads layout input (entities and relationships) from the
// supported document formats.
package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"hcanvas/layout"
)

// ErrUnknownFormat is returned when no importer accepts the content.
var ErrUnknownFormat = errors.New("unknown import format")

// Graph is imported layout input.
type Graph struct {
	Entities      []layout.Entity
	Relationships []layout.Relationship
}

// Len returns the number of entities.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Entities)
}

// Importer reads one document format.
type Importer interface {
	// CanImport checks if the given content can be imported by this importer
	CanImport(content string) bool

	// Import converts the content into layout input
	Import(content string) (*Graph, error)

	// GetFormatName returns the human-readable name of the format
	GetFormatName() string

	// GetFileExtensions returns common file extensions for this format
	GetFileExtensions() []string
}

// Registry manages available importers. Detection tries them in
// registration order, so the stricter formats come first.
type Registry struct {
	importers []Importer
}

// NewRegistry creates a registry with every built-in importer.
func NewRegistry() *Registry {
	return &Registry{
		importers: []Importer{
			NewGraphResponseImporter(),
			NewJSONImporter(),
			NewYAMLImporter(),
			NewMarkdownImporter(),
			NewMermaidImporter(),
			NewD2Importer(),
		},
	}
}

// Register adds a new importer to the registry.
func (r *Registry) Register(imp Importer) {
	r.importers = append(r.importers, imp)
}

// DetectFormat returns the first importer that accepts content.
func (r *Registry) DetectFormat(content string) (Importer, error) {
	for _, imp := range r.importers {
		if imp.CanImport(content) {
			return imp, nil
		}
	}
	return nil, ErrUnknownFormat
}

// Import imports content using auto-detection.
func (r *Registry) Import(content string) (*Graph, error) {
	imp, err := r.DetectFormat(content)
	if err != nil {
		return nil, err
	}
	return imp.Import(content)
}

// ImportWithFormat imports content using the named format.
func (r *Registry) ImportWithFormat(content, format string) (*Graph, error) {
	for _, imp := range r.importers {
		if strings.EqualFold(imp.GetFormatName(), format) {
			return imp.Import(content)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// ImportFile imports content read from path, choosing the importer by file
// extension and falling back to detection.
func (r *Registry) ImportFile(path, content string) (*Graph, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, imp := range r.importers {
		if slices.Contains(imp.GetFileExtensions(), ext) && imp.CanImport(content) {
			return imp.Import(content)
		}
	}
	return r.Import(content)
}

// GetAvailableFormats returns the names of the registered formats.
func (r *Registry) GetAvailableFormats() []string {
	formats := make([]string, len(r.importers))
	for i, imp := range r.importers {
		formats[i] = imp.GetFormatName()
	}
	return formats
}
