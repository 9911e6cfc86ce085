package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"hcanvas/config"
	"hcanvas/diagram"
	"hcanvas/engine"
	"hcanvas/importer"
	"hcanvas/telemetry"
)

// input selects and shapes the scene a command works on.
type input struct {
	path     string // "-" reads stdin
	format   string // importer format name; empty detects
	collapse int    // collapse to this depth; negative keeps everything open
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" || path == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

// isSnapshot reports whether content is a saved canvas snapshot rather than
// layout input. Snapshots carry a camera or an original edge list.
func isSnapshot(content string) bool {
	if !strings.HasPrefix(strings.TrimSpace(content), "{") {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &probe); err != nil {
		return false
	}
	_, camera := probe["camera"]
	_, original := probe["originalEdges"]
	return camera || original
}

func newEngine(c *config.Config) (*engine.Engine, error) {
	o := c.Engine()
	o.Logger = logger
	o.Layout.Logger = logger
	if in, err := telemetry.Global(); err == nil {
		o.Telemetry = in
	} else {
		logger.Warn("telemetry disabled", "err", err)
	}
	return engine.NewWith(o)
}

// load builds an engine holding the scene described by in.
func load(in input, stdin io.Reader) (*engine.Engine, error) {
	content, err := readInput(in.path, stdin)
	if err != nil {
		return nil, err
	}
	e, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	if err := populate(e, in, content); err != nil {
		e.Destroy()
		return nil, err
	}
	return e, nil
}

// populate replaces e's scene with content.
func populate(e *engine.Engine, in input, content string) error {
	if in.format == "" && isSnapshot(content) {
		var data diagram.CanvasData
		if err := json.Unmarshal([]byte(content), &data); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		e.LoadSnapshot(&data)
	} else {
		reg := importer.NewRegistry()
		var g *importer.Graph
		var err error
		switch {
		case in.format != "":
			g, err = reg.ImportWithFormat(content, in.format)
		default:
			g, err = reg.ImportFile(in.path, content)
		}
		if err != nil {
			return fmt.Errorf("import %s: %w", displayPath(in.path), err)
		}
		logger.Debug("imported", "entities", len(g.Entities), "relationships", len(g.Relationships))
		e.SetData(g.Entities, g.Relationships)
	}
	if in.collapse >= 0 {
		e.CollapseToLevel(in.collapse)
	}
	return nil
}

func displayPath(p string) string {
	if p == "" || p == "-" {
		return "stdin"
	}
	return p
}
