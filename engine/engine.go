// Package engine is the canvas orchestrator. It owns the scene snapshot, the
// camera, selection and interaction state, and wires layout, edge
// inheritance, overlays, history and change notification into one command
// surface.
//
// An Engine is not safe for concurrent use. Commands run synchronously on
// the caller's goroutine, and observers are notified before the command
// returns.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"hcanvas/diagram"
	"hcanvas/events"
	"hcanvas/geometry"
	"hcanvas/history"
	"hcanvas/hittest"
	"hcanvas/inherit"
	"hcanvas/layout"
	"hcanvas/overlay"
	"hcanvas/telemetry"
)

var (
	// ErrDestroyed is the panic value for calls on a destroyed engine.
	ErrDestroyed = errors.New("canvas engine destroyed")
	// ErrUnknownEngine is returned for an unregistered layout engine name.
	ErrUnknownEngine = errors.New("unknown layout engine")
	// ErrNodeNotFound is returned when a GUID is not in the scene.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNotInteractive is returned when dragging or resizing a
	// non-interactive node.
	ErrNotInteractive = errors.New("node is not interactive")
	// ErrBusy is returned when an interaction starts while another is active.
	ErrBusy = errors.New("interaction already in progress")
	// ErrInvalidEvent is returned for remote events missing their payload.
	ErrInvalidEvent = errors.New("invalid remote event")
)

// Engine is one canvas instance.
type Engine struct {
	opts    Options
	log     *slog.Logger
	tel     *telemetry.Instruments
	ctx     context.Context
	layouts *layout.Registry
	active  layout.Engine

	entities      []layout.Entity
	relationships []layout.Relationship

	data      *diagram.CanvasData
	viewport  geometry.Size
	selection []string // GUIDs in selection order

	overlays *overlay.Store
	history  *history.Manager[*diagram.CanvasData]
	changes  *events.Subject[events.Change]

	hier    *hittest.Hierarchical
	indexed *hittest.Indexed
	gen     uint64 // bumped on every geometry change
	index   *diagram.Index
	hits    hitCache

	state   State
	gesture *gesture
	task    *LayoutTask

	remote    bool // applying a remote event
	destroyed bool
}

// New creates an engine with an empty scene.
func New(opts ...Option) (*Engine, error) {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return NewWith(o)
}

// NewWith is New for a fully specified Options value.
func NewWith(o Options) (*Engine, error) {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Layout.Logger == nil {
		o.Layout.Logger = o.Logger
	}
	if o.Telemetry == nil {
		o.Telemetry = telemetry.Noop()
	}
	if o.Origin == "" {
		o.Origin = diagram.NewGUID()
	}
	o.Layout.Routing.Frames = o.Frames

	e := &Engine{
		opts:     o,
		log:      o.Logger.With("component", "engine", "origin", o.Origin),
		tel:      o.Telemetry,
		ctx:      context.Background(),
		layouts:  layout.NewRegistryWith(o.Layout),
		data:     &diagram.CanvasData{Camera: diagram.DefaultCamera()},
		viewport: o.Layout.Viewport,
		overlays: overlay.NewStore(),
		history:  history.New[*diagram.CanvasData](o.HistoryCapacity),
		changes:  events.NewSubject[events.Change](),
	}
	hopts := hittest.DefaultOptions()
	hopts.Frames = o.Frames
	e.hier = hittest.NewHierarchical(hopts)
	e.indexed = hittest.NewIndexed(hopts, o.IndexMaxObjects, o.IndexMaxDepth)

	active, ok := e.layouts.Get(o.Engine)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, o.Engine)
	}
	e.active = active
	return e, nil
}

// check panics when the engine has been destroyed.
func (e *Engine) check() {
	if e.destroyed {
		panic(ErrDestroyed)
	}
}

// Destroy releases the engine. Every later call panics with ErrDestroyed.
func (e *Engine) Destroy() {
	if e.destroyed {
		return
	}
	e.cancelTask()
	e.changes.Close()
	e.history.Clear()
	e.data = nil
	e.destroyed = true
}

// Subscribe registers an observer of committed changes. A new observer
// immediately receives the latest change, if any.
func (e *Engine) Subscribe(fn func(events.Change)) (unsubscribe func()) {
	e.check()
	return e.changes.Subscribe(fn)
}

// Snapshot returns a copy of the current scene.
func (e *Engine) Snapshot() *diagram.CanvasData {
	e.check()
	return e.data.Clone()
}

// Camera returns the current camera.
func (e *Engine) Camera() diagram.Camera {
	e.check()
	return e.data.Camera
}

// Viewport returns the viewport size.
func (e *Engine) Viewport() geometry.Size {
	e.check()
	return e.viewport
}

// ActiveEngine returns the name of the active layout engine.
func (e *Engine) ActiveEngine() string {
	e.check()
	return e.active.Name()
}

// Engines returns the registered layout engine names.
func (e *Engine) Engines() []string {
	e.check()
	return e.layouts.Names()
}

// Layouts exposes the layout registry so callers can register engines.
func (e *Engine) Layouts() *layout.Registry {
	e.check()
	return e.layouts
}

// Overlays exposes the overlay store.
func (e *Engine) Overlays() *overlay.Store {
	e.check()
	return e.overlays
}

// Origin returns the id stamped on this engine's events.
func (e *Engine) Origin() string { return e.opts.Origin }

// Frames returns the collapse framing options.
func (e *Engine) Frames() diagram.FrameOptions { return e.opts.Frames }

// History returns the 1-based position in the undo history and its length.
func (e *Engine) History() (current, total int) {
	e.check()
	return e.history.Stats()
}

// CanUndo reports whether Undo would change the scene.
func (e *Engine) CanUndo() bool {
	e.check()
	return e.history.CanUndo()
}

// CanRedo reports whether Redo would change the scene.
func (e *Engine) CanRedo() bool {
	e.check()
	return e.history.CanRedo()
}

// Entities returns a copy of the current layout input.
func (e *Engine) Entities() ([]layout.Entity, []layout.Relationship) {
	e.check()
	return slices.Clone(e.entities), slices.Clone(e.relationships)
}

// containment reports whether constraints apply under the active layout.
func (e *Engine) containment() bool {
	return e.active.Traits().Containment
}

func (e *Engine) padding() float64 {
	return e.opts.Layout.Padding
}

func (e *Engine) find(guid string) []*diagram.Node {
	if e.index == nil {
		e.index = diagram.NewIndex(e.data.Nodes)
	}
	return e.index.Path(e.data.Nodes, guid)
}

// refreshEdges recomputes the live edge list from the original edges and the
// current collapse state, rerouting when the active layout routes edges.
func (e *Engine) refreshEdges() {
	e.data.Edges = inherit.Resolve(e.data.Nodes, e.data.OriginalEdges, e.opts.Inherit)
	if r, ok := e.active.(*layout.Routed); ok {
		r.Router().Route(e.data.Nodes, e.data.Edges)
	}
}

type commitOpts struct {
	edges  bool // collapse or structure changed
	record bool // store a history checkpoint
}

// commit finishes a mutation: edges are recomputed when needed, the hit
// index is invalidated, a checkpoint is recorded unless replaying, and
// observers are notified.
func (e *Engine) commit(ev events.Event, c commitOpts) *diagram.CanvasData {
	if c.edges {
		e.refreshEdges()
	}
	e.touch()

	if c.record {
		if _, err := e.history.Record(e.data); err != nil {
			e.log.Error("history checkpoint failed", "kind", ev.Kind, "err", err)
		}
	}
	e.tel.Command(e.ctx, string(ev.Kind))

	ev.Origin = e.opts.Origin
	snap := e.data.Clone()
	e.changes.Publish(events.Change{Event: ev, Snapshot: snap, Remote: e.remote})
	return snap
}

// touch marks cached hit-test state and the path index stale after a
// geometry change.
func (e *Engine) touch() {
	e.gen++
	e.index = nil
	e.indexed.Invalidate()
}

// recenter frames the current content, or resets the camera when there is
// none.
func (e *Engine) recenter() diagram.Camera {
	bounds, ok := diagram.ContentBounds(e.data.Nodes, e.opts.Frames)
	if !ok {
		return diagram.DefaultCamera()
	}
	return diagram.Fit(bounds, e.viewport, e.opts.Layout.FitMargin)
}
