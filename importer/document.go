package importer

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"hcanvas/layout"
)

// Document is the native input file: flat entity and relationship lists.
type Document struct {
	Entities      []layout.Entity       `json:"entities" yaml:"entities"`
	Relationships []layout.Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

func (d Document) graph() *Graph {
	return &Graph{Entities: d.Entities, Relationships: d.Relationships}
}

// JSONImporter reads a Document encoded as JSON.
type JSONImporter struct{}

// NewJSONImporter creates a new JSON document importer.
func NewJSONImporter() *JSONImporter {
	return &JSONImporter{}
}

// CanImport reports whether content is a JSON object with an entities list.
func (j *JSONImporter) CanImport(content string) bool {
	if !strings.HasPrefix(strings.TrimSpace(content), "{") {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &probe); err != nil {
		return false
	}
	_, ok := probe["entities"]
	return ok
}

// Import decodes the document.
func (j *JSONImporter) Import(content string) (*Graph, error) {
	var doc Document
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("decode json document: %w", err)
	}
	return doc.graph(), nil
}

// GetFormatName returns the format name
func (j *JSONImporter) GetFormatName() string { return "JSON" }

// GetFileExtensions returns common file extensions
func (j *JSONImporter) GetFileExtensions() []string { return []string{".json"} }

// YAMLImporter reads a Document encoded as YAML.
type YAMLImporter struct{}

// NewYAMLImporter creates a new YAML document importer.
func NewYAMLImporter() *YAMLImporter {
	return &YAMLImporter{}
}

// CanImport reports whether content is a YAML mapping with an entities key.
func (y *YAMLImporter) CanImport(content string) bool {
	var probe map[string]yaml.Node
	if err := yaml.Unmarshal([]byte(content), &probe); err != nil {
		return false
	}
	_, ok := probe["entities"]
	return ok
}

// Import decodes the document.
func (y *YAMLImporter) Import(content string) (*Graph, error) {
	var doc Document
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("decode yaml document: %w", err)
	}
	return doc.graph(), nil
}

// GetFormatName returns the format name
func (y *YAMLImporter) GetFormatName() string { return "YAML" }

// GetFileExtensions returns common file extensions
func (y *YAMLImporter) GetFileExtensions() []string { return []string{".yaml", ".yml"} }
