package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hcanvas/diagram"
	"hcanvas/layout"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, layout.EngineContainmentGrid, cfg.Layout.Engine)
	assert.Equal(t, 160.0, cfg.Layout.LeafWidth)
	assert.Equal(t, 64.0, cfg.Layout.LeafHeight)
	assert.Equal(t, 100, cfg.History.Capacity)
	assert.Equal(t, 500, cfg.HitTest.IndexThreshold)
	assert.Equal(t, "shrink", cfg.Collapse.Mode)
	assert.Equal(t, 40.0, cfg.Routing.TurnCost)
}

func TestParseYAMLOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
layout:
  engine: tree
  padding: 12
collapse:
  mode: full
history:
  capacity: 10
`), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, layout.EngineTree, cfg.Layout.Engine)
	assert.Equal(t, 12.0, cfg.Layout.Padding)
	assert.Equal(t, "full", cfg.Collapse.Mode)
	assert.Equal(t, 10, cfg.History.Capacity)
	// untouched keys keep their defaults
	assert.Equal(t, 24.0, cfg.Layout.Gap)
	assert.Equal(t, 1280.0, cfg.Viewport.Width)
}

func TestParseTOML(t *testing.T) {
	cfg, err := Parse([]byte(`
log_level = "debug"

[layout]
engine = "force-directed"
force_iterations = 50

[redis]
url = "redis://localhost:6379"
`), FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, layout.EngineForce, cfg.Layout.Engine)
	assert.Equal(t, 50, cfg.Layout.ForceIterations)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown engine", func(c *Config) { c.Layout.Engine = "spiral" }},
		{"zero leaf width", func(c *Config) { c.Layout.LeafWidth = 0 }},
		{"negative padding", func(c *Config) { c.Layout.Padding = -1 }},
		{"unknown collapse mode", func(c *Config) { c.Collapse.Mode = "fold" }},
		{"zero history", func(c *Config) { c.History.Capacity = 0 }},
		{"zero viewport", func(c *Config) { c.Viewport.Height = 0 }},
		{"bad terminal", func(c *Config) { c.Render.Terminal = "vt52" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	_, err := Parse([]byte("layout:\n  engine: spiral\n"), FormatYAML)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Parse([]byte("layout: [unclosed"), FormatYAML)
	assert.Error(t, err)
}

func TestFormatFor(t *testing.T) {
	f, err := FormatFor("a/config.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = FormatFor("config.toml")
	require.NoError(t, err)
	assert.Equal(t, FormatTOML, f)

	_, err = FormatFor("config.json")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			cfg := Default()
			cfg.Layout.Engine = layout.EngineFlat
			cfg.Collapse.Width = 200
			require.NoError(t, Save(cfg, path))

			got, err := Load(path, false)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.yaml")
	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(path, false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultPathUsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "hcanvas", "config.yaml"), DefaultPath())

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "hcanvas"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hcanvas", "config.toml"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "hcanvas", "config.toml"), DefaultPath())
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	cfg.Layout.Engine = layout.EngineTree
	cfg.Layout.LeafWidth = 120
	cfg.Collapse.Mode = "full"
	cfg.Routing.TurnCost = 10
	cfg.HitTest.IndexThreshold = 0

	o := cfg.Engine()
	assert.Equal(t, layout.EngineTree, o.Engine)
	assert.Equal(t, 120.0, o.Layout.LeafSize.Width)
	assert.Equal(t, diagram.CollapseFull, o.Frames.Mode)
	assert.Equal(t, diagram.CollapseFull, o.Layout.Routing.Frames.Mode)
	assert.Equal(t, 10.0, o.Layout.Routing.Costs.TurnCost)
	assert.Equal(t, 1.0, o.Layout.Routing.Costs.StraightCost)
	assert.Equal(t, 0, o.IndexThreshold)
}
