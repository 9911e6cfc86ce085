// Package layout turns flat entity and relationship lists into positioned
// node trees. Each Engine is a pure function of its input.
package layout

import (
	"log/slog"

	"hcanvas/diagram"
	"hcanvas/geometry"
	"hcanvas/routing"
)

// RelContains is the relationship type that nests its target inside its source.
const RelContains = "CONTAINS"

// Entity is one input record.
type Entity struct {
	ID         string         `json:"id" yaml:"id"`
	GUID       string         `json:"guid,omitempty" yaml:"guid,omitempty"`
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	Type       string         `json:"type,omitempty" yaml:"type,omitempty"`
	Parent     string         `json:"parent,omitempty" yaml:"parent,omitempty"` // containment key
	Width      float64        `json:"width,omitempty" yaml:"width,omitempty"`
	Height     float64        `json:"height,omitempty" yaml:"height,omitempty"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Relationship is a typed link between two entities, by ID or GUID.
type Relationship struct {
	ID         string         `json:"id,omitempty" yaml:"id,omitempty"`
	Type       string         `json:"type" yaml:"type"`
	From       string         `json:"from" yaml:"from"`
	To         string         `json:"to" yaml:"to"`
	Label      string         `json:"label,omitempty" yaml:"label,omitempty"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Traits describes an engine's behaviour.
type Traits struct {
	Deterministic bool // same input yields identical offsets
	Containment   bool // children are nested inside parent bounds
	Routed        bool // edges carry orthogonal waypoints
}

// Result is the output of a layout run.
type Result struct {
	Nodes  []*diagram.Node
	Edges  []*diagram.Edge
	Camera *diagram.Camera
}

// Engine positions entities.
type Engine interface {
	Name() string
	Traits() Traits
	// Apply lays out the input. Malformed input never fails: orphans are
	// dropped and empty input yields an empty result.
	Apply(entities []Entity, relationships []Relationship) Result
}

// Session is an in-flight layout that advances in bounded steps, so a host
// can spread the work over frames and stop at any point.
type Session interface {
	// Step runs up to n units of work and reports whether the layout is done.
	Step(n int) bool
	// Result returns the layout as of the last step.
	Result() Result
}

// Stepper is implemented by engines that can run incrementally.
type Stepper interface {
	Engine
	Start(entities []Entity, relationships []Relationship) Session
}

// Options holds the sizing rules shared by the built-in engines.
type Options struct {
	Padding        float64
	Gap            float64
	Header         float64
	LeafSize       geometry.Size
	LevelSpacing   float64
	SiblingSpacing float64
	Viewport       geometry.Size
	FitMargin      float64

	ForceIterations int
	ForceChunk      int

	Routing routing.Options
	Logger  *slog.Logger
}

// Option adjusts Options.
type Option func(*Options)

// DefaultOptions returns the stock sizing rules.
func DefaultOptions() Options {
	return Options{
		Padding:         diagram.DefaultPadding,
		Gap:             24,
		Header:          32,
		LeafSize:        geometry.Size{Width: 160, Height: 64},
		LevelSpacing:    220,
		SiblingSpacing:  24,
		Viewport:        geometry.Size{Width: 1280, Height: 800},
		FitMargin:       40,
		ForceIterations: 300,
		ForceChunk:      10,
		Routing:         routing.DefaultOptions(),
	}
}

// WithLogger routes engine diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithViewport sets the viewport used to fit the initial camera.
func WithViewport(vp geometry.Size) Option {
	return func(o *Options) { o.Viewport = vp }
}

// WithRouting replaces the routing options.
func WithRouting(r routing.Options) Option {
	return func(o *Options) { o.Routing = r }
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// oneShot adapts a plain Engine to a Session that finishes in one step.
type oneShot struct {
	engine        Engine
	entities      []Entity
	relationships []Relationship
	result        Result
	done          bool
}

func (s *oneShot) Step(int) bool {
	if !s.done {
		s.result = s.engine.Apply(s.entities, s.relationships)
		s.done = true
	}
	return true
}

func (s *oneShot) Result() Result { return s.result }

// Start begins a layout run with e, stepwise when e supports it.
func Start(e Engine, entities []Entity, relationships []Relationship) Session {
	if st, ok := e.(Stepper); ok {
		return st.Start(entities, relationships)
	}
	return &oneShot{engine: e, entities: entities, relationships: relationships}
}
