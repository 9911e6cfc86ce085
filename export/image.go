package export

import (
	"bufio"
	"fmt"
	"io"
	"math"

	json "github.com/goccy/go-json"

	"hcanvas/diagram"
	"hcanvas/render"
)

// JSONExporter writes the snapshot itself.
type JSONExporter struct {
	indent bool
}

// NewJSONExporter creates a new JSON exporter
func NewJSONExporter(indent bool) *JSONExporter {
	return &JSONExporter{indent: indent}
}

func (e *JSONExporter) Export(w io.Writer, view *diagram.CanvasData) error {
	enc := json.NewEncoder(w)
	if e.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func (e *JSONExporter) GetFileExtension() string { return ".json" }
func (e *JSONExporter) GetFormatName() string    { return "JSON" }

// SVGExporter paints the view as SVG.
type SVGExporter struct {
	opts Options
}

func (e *SVGExporter) Export(w io.Writer, view *diagram.CanvasData) error {
	view, size := frame(view, e.opts)
	bw := bufio.NewWriter(w)
	s := render.NewSVGSurface(bw, size, "")
	render.Paint(s, view, e.opts.Render)
	if err := s.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

func (e *SVGExporter) GetFileExtension() string { return ".svg" }
func (e *SVGExporter) GetFormatName() string    { return "SVG" }

// PNGExporter paints the view into a raster image.
type PNGExporter struct {
	opts Options
}

func (e *PNGExporter) Export(w io.Writer, view *diagram.CanvasData) error {
	view, size := frame(view, e.opts)
	s := render.NewRasterSurface(int(math.Ceil(size.Width)), int(math.Ceil(size.Height)))
	render.Paint(s, view, e.opts.Render)
	if err := s.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (e *PNGExporter) GetFileExtension() string { return ".png" }
func (e *PNGExporter) GetFormatName() string    { return "PNG" }

// TextExporter paints the view onto a character grid.
type TextExporter struct {
	opts Options
}

func (e *TextExporter) Export(w io.Writer, view *diagram.CanvasData) error {
	view, size := frame(view, e.opts)
	cols := int(math.Ceil(size.Width / render.CellWidth))
	rows := int(math.Ceil(size.Height / render.CellHeight))
	s := render.NewTextSurface(cols, rows, e.opts.Caps)
	opts := e.opts.Render
	opts.Background = ""
	render.Paint(s, view, opts)
	_, err := fmt.Fprintln(w, s.String())
	return err
}

func (e *TextExporter) GetFileExtension() string { return ".txt" }
func (e *TextExporter) GetFormatName() string    { return "Text" }
