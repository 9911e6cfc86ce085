package engine

import (
	"log/slog"

	"hcanvas/diagram"
	"hcanvas/geometry"
	"hcanvas/history"
	"hcanvas/hittest"
	"hcanvas/inherit"
	"hcanvas/layout"
	"hcanvas/telemetry"
)

// Options configures an Engine.
type Options struct {
	Layout  layout.Options
	Engine  string // initial layout engine
	Frames  diagram.FrameOptions
	Inherit inherit.Options

	HistoryCapacity int

	// Hit testing switches to the quadtree once the scene has at least
	// IndexThreshold nodes; zero keeps the hierarchical tester.
	IndexThreshold  int
	IndexMaxObjects int
	IndexMaxDepth   int

	// Origin identifies this canvas in published events.
	Origin    string
	Logger    *slog.Logger
	Telemetry *telemetry.Instruments
}

// Option adjusts Options.
type Option func(*Options)

// DefaultOptions returns the stock engine configuration.
func DefaultOptions() Options {
	return Options{
		Layout:          layout.DefaultOptions(),
		Engine:          layout.EngineContainmentGrid,
		Frames:          diagram.DefaultFrames(),
		Inherit:         inherit.DefaultOptions(),
		HistoryCapacity: history.DefaultCapacity,
		IndexThreshold:  500,
		IndexMaxObjects: hittest.DefaultMaxObjects,
		IndexMaxDepth:   hittest.DefaultMaxDepth,
	}
}

// WithLogger routes engine and layout diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
		o.Layout.Logger = l
	}
}

// WithEngine selects the initial layout engine.
func WithEngine(name string) Option {
	return func(o *Options) { o.Engine = name }
}

// WithOrigin sets the canvas id stamped on published events.
func WithOrigin(origin string) Option {
	return func(o *Options) { o.Origin = origin }
}

// WithTelemetry records layout spans and command counts.
func WithTelemetry(in *telemetry.Instruments) Option {
	return func(o *Options) { o.Telemetry = in }
}

// WithLayoutOptions replaces the layout sizing rules.
func WithLayoutOptions(lo layout.Options) Option {
	return func(o *Options) { o.Layout = lo }
}

// WithHistoryCapacity bounds the undo history.
func WithHistoryCapacity(n int) Option {
	return func(o *Options) { o.HistoryCapacity = n }
}

// WithFrames sets how collapsed nodes are framed.
func WithFrames(f diagram.FrameOptions) Option {
	return func(o *Options) { o.Frames = f }
}

// WithViewport sets the initial viewport size.
func WithViewport(vp geometry.Size) Option {
	return func(o *Options) { o.Layout.Viewport = vp }
}

// WithIndexThreshold sets the scene size at which hit testing uses the
// spatial index. Zero disables the index.
func WithIndexThreshold(n int) Option {
	return func(o *Options) { o.IndexThreshold = n }
}
