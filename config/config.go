// Package config loads hcanvas configuration from YAML or TOML files.
//
// The default location follows the XDG Base Directory specification:
// ~/.config/hcanvas/config.yaml (or config.toml).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"hcanvas/diagram"
	"hcanvas/engine"
	"hcanvas/geometry"
	"hcanvas/layout"
	"hcanvas/routing"
)

// ErrInvalid is returned for configuration that fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// LayoutConfig holds layout sizing rules.
type LayoutConfig struct {
	Engine          string  `yaml:"engine" toml:"engine"`
	Padding         float64 `yaml:"padding" toml:"padding"`
	Gap             float64 `yaml:"gap" toml:"gap"`
	Header          float64 `yaml:"header" toml:"header"`
	LeafWidth       float64 `yaml:"leaf_width" toml:"leaf_width"`
	LeafHeight      float64 `yaml:"leaf_height" toml:"leaf_height"`
	LevelSpacing    float64 `yaml:"level_spacing" toml:"level_spacing"`
	SiblingSpacing  float64 `yaml:"sibling_spacing" toml:"sibling_spacing"`
	FitMargin       float64 `yaml:"fit_margin" toml:"fit_margin"`
	ForceIterations int     `yaml:"force_iterations" toml:"force_iterations"`
	ForceChunk      int     `yaml:"force_chunk" toml:"force_chunk"`
}

// ViewportConfig is the initial viewport size in pixels.
type ViewportConfig struct {
	Width  float64 `yaml:"width" toml:"width"`
	Height float64 `yaml:"height" toml:"height"`
}

// RoutingConfig controls orthogonal edge routing.
type RoutingConfig struct {
	Margin    float64 `yaml:"margin" toml:"margin"`
	TurnCost  float64 `yaml:"turn_cost" toml:"turn_cost"`
	MaxNodes  int     `yaml:"max_nodes" toml:"max_nodes"` // above this, edges are straight
	MaxEdges  int     `yaml:"max_edges" toml:"max_edges"`
	CacheSize int     `yaml:"cache_size" toml:"cache_size"` // negative disables the path cache
}

// CollapseConfig controls how collapsed nodes are framed.
type CollapseConfig struct {
	Mode   string  `yaml:"mode" toml:"mode"` // shrink, full
	Width  float64 `yaml:"width" toml:"width"`
	Height float64 `yaml:"height" toml:"height"`
}

// HistoryConfig bounds the undo history.
type HistoryConfig struct {
	Capacity int `yaml:"capacity" toml:"capacity"`
}

// HitTestConfig controls the spatial index.
type HitTestConfig struct {
	IndexThreshold int `yaml:"index_threshold" toml:"index_threshold"`
	MaxObjects     int `yaml:"max_objects" toml:"max_objects"`
	MaxDepth       int `yaml:"max_depth" toml:"max_depth"`
}

// RenderConfig holds output preferences for the CLI.
type RenderConfig struct {
	Terminal string  `yaml:"terminal" toml:"terminal"` // auto, ascii, unicode
	Margin   float64 `yaml:"margin" toml:"margin"`
	Arrows   bool    `yaml:"arrows" toml:"arrows"`
}

// RedisConfig configures the collaboration bridge.
type RedisConfig struct {
	URL    string `yaml:"url,omitempty" toml:"url,omitempty"`
	Stream string `yaml:"stream,omitempty" toml:"stream,omitempty"`
	MaxLen int64  `yaml:"max_len,omitempty" toml:"max_len,omitempty"`
}

// StoreConfig locates the snapshot database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty" toml:"path,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Layout   LayoutConfig   `yaml:"layout" toml:"layout"`
	Viewport ViewportConfig `yaml:"viewport" toml:"viewport"`
	Routing  RoutingConfig  `yaml:"routing" toml:"routing"`
	Collapse CollapseConfig `yaml:"collapse" toml:"collapse"`
	History  HistoryConfig  `yaml:"history" toml:"history"`
	HitTest  HitTestConfig  `yaml:"hit_test" toml:"hit_test"`
	Render   RenderConfig   `yaml:"render" toml:"render"`
	Redis    RedisConfig    `yaml:"redis,omitempty" toml:"redis,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty" toml:"store,omitempty"`
	LogLevel string         `yaml:"log_level,omitempty" toml:"log_level,omitempty"`
}

// Default returns the stock configuration.
func Default() *Config {
	lo := layout.DefaultOptions()
	ro := routing.DefaultOptions()
	fr := diagram.DefaultFrames()
	eo := engine.DefaultOptions()
	return &Config{
		Layout: LayoutConfig{
			Engine:          eo.Engine,
			Padding:         lo.Padding,
			Gap:             lo.Gap,
			Header:          lo.Header,
			LeafWidth:       lo.LeafSize.Width,
			LeafHeight:      lo.LeafSize.Height,
			LevelSpacing:    lo.LevelSpacing,
			SiblingSpacing:  lo.SiblingSpacing,
			FitMargin:       lo.FitMargin,
			ForceIterations: lo.ForceIterations,
			ForceChunk:      lo.ForceChunk,
		},
		Viewport: ViewportConfig{Width: lo.Viewport.Width, Height: lo.Viewport.Height},
		Routing: RoutingConfig{
			Margin:    ro.Margin,
			TurnCost:  ro.Costs.TurnCost,
			MaxNodes:  ro.MaxNodes,
			MaxEdges:  ro.MaxEdges,
			CacheSize: ro.CacheSize,
		},
		Collapse: CollapseConfig{
			Mode:   string(fr.Mode),
			Width:  fr.CollapsedSize.Width,
			Height: fr.CollapsedSize.Height,
		},
		History: HistoryConfig{Capacity: eo.HistoryCapacity},
		HitTest: HitTestConfig{
			IndexThreshold: eo.IndexThreshold,
			MaxObjects:     eo.IndexMaxObjects,
			MaxDepth:       eo.IndexMaxDepth,
		},
		Render:   RenderConfig{Terminal: "auto", Margin: 24, Arrows: true},
		LogLevel: "warn",
	}
}

// Dir returns the XDG config directory for hcanvas.
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "hcanvas")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hcanvas")
}

// DefaultPath returns the first existing config file in Dir, preferring
// YAML, or the YAML path when neither exists.
func DefaultPath() string {
	dir := Dir()
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, "config.yaml")
}

// FormatFor picks the syntax from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: unsupported config file %q", ErrInvalid, path)
}

// Load reads path over the defaults and validates the result. A missing
// file yields the defaults when optional is set.
func Load(path string, optional bool) (*Config, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result. Fields
// absent from data keep their default values.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := Default()
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalid, format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path in the syntax its extension names.
func Save(cfg *Config, path string) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Validate rejects unknown names and non-positive sizes.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !slices.Contains(layout.NewRegistry().Names(), c.Layout.Engine) {
		bad("unknown layout engine %q", c.Layout.Engine)
	}
	positive := []struct {
		name  string
		value float64
	}{
		{"layout.leaf_width", c.Layout.LeafWidth},
		{"layout.leaf_height", c.Layout.LeafHeight},
		{"layout.level_spacing", c.Layout.LevelSpacing},
		{"viewport.width", c.Viewport.Width},
		{"viewport.height", c.Viewport.Height},
		{"collapse.width", c.Collapse.Width},
		{"collapse.height", c.Collapse.Height},
	}
	for _, p := range positive {
		if !geometry.IsFinite(p.value) || p.value <= 0 {
			bad("%s must be positive, got %g", p.name, p.value)
		}
	}
	nonNegative := []struct {
		name  string
		value float64
	}{
		{"layout.padding", c.Layout.Padding},
		{"layout.gap", c.Layout.Gap},
		{"layout.header", c.Layout.Header},
		{"layout.sibling_spacing", c.Layout.SiblingSpacing},
		{"layout.fit_margin", c.Layout.FitMargin},
		{"routing.margin", c.Routing.Margin},
		{"routing.turn_cost", c.Routing.TurnCost},
		{"render.margin", c.Render.Margin},
	}
	for _, p := range nonNegative {
		if !geometry.IsFinite(p.value) || p.value < 0 {
			bad("%s must not be negative, got %g", p.name, p.value)
		}
	}
	if c.Layout.ForceIterations <= 0 || c.Layout.ForceChunk <= 0 {
		bad("layout.force_iterations and layout.force_chunk must be positive")
	}
	if c.History.Capacity <= 0 {
		bad("history.capacity must be positive, got %d", c.History.Capacity)
	}
	if c.HitTest.IndexThreshold < 0 || c.HitTest.MaxObjects <= 0 || c.HitTest.MaxDepth <= 0 {
		bad("hit_test values out of range")
	}
	switch diagram.CollapseMode(c.Collapse.Mode) {
	case diagram.CollapseShrink, diagram.CollapseFull:
	default:
		bad("unknown collapse mode %q", c.Collapse.Mode)
	}
	switch c.Render.Terminal {
	case "auto", "ascii", "unicode":
	default:
		bad("unknown terminal mode %q", c.Render.Terminal)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		bad("unknown log level %q", c.LogLevel)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Frames returns the collapsed-node framing.
func (c *Config) Frames() diagram.FrameOptions {
	return diagram.FrameOptions{
		Mode:          diagram.CollapseMode(c.Collapse.Mode),
		CollapsedSize: geometry.Size{Width: c.Collapse.Width, Height: c.Collapse.Height},
	}
}

// Engine maps the configuration onto engine options.
func (c *Config) Engine() engine.Options {
	o := engine.DefaultOptions()
	o.Engine = c.Layout.Engine
	o.Frames = c.Frames()
	o.HistoryCapacity = c.History.Capacity
	o.IndexThreshold = c.HitTest.IndexThreshold
	o.IndexMaxObjects = c.HitTest.MaxObjects
	o.IndexMaxDepth = c.HitTest.MaxDepth

	lo := &o.Layout
	lo.Padding = c.Layout.Padding
	lo.Gap = c.Layout.Gap
	lo.Header = c.Layout.Header
	lo.LeafSize = geometry.Size{Width: c.Layout.LeafWidth, Height: c.Layout.LeafHeight}
	lo.LevelSpacing = c.Layout.LevelSpacing
	lo.SiblingSpacing = c.Layout.SiblingSpacing
	lo.FitMargin = c.Layout.FitMargin
	lo.ForceIterations = c.Layout.ForceIterations
	lo.ForceChunk = c.Layout.ForceChunk
	lo.Viewport = geometry.Size{Width: c.Viewport.Width, Height: c.Viewport.Height}

	lo.Routing.Margin = c.Routing.Margin
	lo.Routing.Costs.TurnCost = c.Routing.TurnCost
	lo.Routing.MaxNodes = c.Routing.MaxNodes
	lo.Routing.MaxEdges = c.Routing.MaxEdges
	lo.Routing.CacheSize = c.Routing.CacheSize
	lo.Routing.Frames = o.Frames
	return o
}
