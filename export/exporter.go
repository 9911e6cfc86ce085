// Package export writes a resolved canvas view to files: the JSON snapshot,
// rendered images (SVG, PNG, terminal text) and diagram source (Mermaid, D2,
// Graphviz DOT).
package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"hcanvas/diagram"
	"hcanvas/geometry"
	"hcanvas/render"
)

// Format represents an export format
type Format string

const (
	FormatJSON    Format = "json"
	FormatSVG     Format = "svg"
	FormatPNG     Format = "png"
	FormatText    Format = "text"
	FormatMermaid Format = "mermaid"
	FormatD2      Format = "d2"
	FormatDOT     Format = "dot"
)

// ErrEmpty is returned by the source formats for a view without nodes.
var ErrEmpty = errors.New("export: view has no nodes")

// Exporter writes a view in one format.
type Exporter interface {
	// Export writes view to w. The view is not modified.
	Export(w io.Writer, view *diagram.CanvasData) error
	// GetFileExtension returns the recommended file extension for this format
	GetFileExtension() string
	// GetFormatName returns a human-readable name for this format
	GetFormatName() string
}

// Options configures the image formats.
type Options struct {
	Render render.Options
	// Size of the image in pixels. Zero fits the whole scene at zoom 1.
	Size geometry.Size
	// Margin around the scene when fitting.
	Margin float64
	// Caps selects the glyphs and colours of the text format.
	Caps render.TerminalCapabilities
	// Indent pretty-prints JSON.
	Indent bool
}

// DefaultOptions fits the scene with a 24px margin.
func DefaultOptions() Options {
	return Options{
		Render: render.DefaultOptions(),
		Margin: 24,
		Caps:   render.ForceUnicode(),
		Indent: true,
	}
}

// NewExporter creates an exporter for the specified format
func NewExporter(format Format, opts Options) (Exporter, error) {
	switch format {
	case FormatJSON:
		return &JSONExporter{indent: opts.Indent}, nil
	case FormatSVG:
		return &SVGExporter{opts: opts}, nil
	case FormatPNG:
		return &PNGExporter{opts: opts}, nil
	case FormatText:
		return &TextExporter{opts: opts}, nil
	case FormatMermaid:
		return NewMermaidExporter(), nil
	case FormatD2:
		return NewD2Exporter(), nil
	case FormatDOT:
		return NewGraphvizExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// ParseFormat converts a string to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	case "text", "txt", "ascii":
		return FormatText, nil
	case "mermaid", "mmd":
		return FormatMermaid, nil
	case "d2":
		return FormatD2, nil
	case "dot", "gv", "graphviz":
		return FormatDOT, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// FormatForPath picks the format from a file name's extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("no extension in %q", path)
	}
	return ParseFormat(ext)
}

// GetAvailableFormats returns a list of all available export formats
func GetAvailableFormats() []Format {
	return []Format{FormatJSON, FormatSVG, FormatPNG, FormatText, FormatMermaid, FormatD2, FormatDOT}
}

// GetFormatDescriptions returns human-readable descriptions of all formats
func GetFormatDescriptions() map[Format]string {
	return map[Format]string{
		FormatJSON:    "Canvas snapshot (nodes, edges, camera)",
		FormatSVG:     "Scalable vector image",
		FormatPNG:     "Raster image",
		FormatText:    "Terminal box drawing",
		FormatMermaid: "Mermaid flowchart with subgraphs",
		FormatD2:      "D2 diagram with containers",
		FormatDOT:     "Graphviz DOT with clusters",
	}
}

// frame returns the view to paint and the image size. A zero opts.Size
// sizes the image to the content and places the camera at its corner.
func frame(view *diagram.CanvasData, opts Options) (*diagram.CanvasData, geometry.Size) {
	if opts.Size.Width > 0 && opts.Size.Height > 0 {
		return view, opts.Size
	}
	out := *view
	bounds, ok := diagram.ContentBounds(view.Nodes, opts.Render.Frames)
	if !ok {
		out.Camera = diagram.DefaultCamera()
		return &out, geometry.Size{Width: 2 * opts.Margin, Height: 2 * opts.Margin}
	}
	for _, e := range view.Edges {
		for _, p := range e.Waypoints {
			if p.IsFinite() {
				bounds = bounds.Union(geometry.Rect{X: p.X, Y: p.Y})
			}
		}
	}
	out.Camera = diagram.Camera{X: bounds.X - opts.Margin, Y: bounds.Y - opts.Margin, Zoom: 1}
	return &out, geometry.Size{
		Width:  bounds.Width + 2*opts.Margin,
		Height: bounds.Height + 2*opts.Margin,
	}
}
