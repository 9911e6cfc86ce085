package engine

import (
	"slices"

	"hcanvas/diagram"
	"hcanvas/events"
	"hcanvas/geometry"
	"hcanvas/hittest"
	"hcanvas/inherit"
	"hcanvas/layout"
	"hcanvas/overlay"
)

// SetNodeCollapsed collapses or expands a node and recomputes inherited
// edges. It reports false, leaving the scene alone, when the node is unknown,
// already in the requested state, or has no children to hide.
func (e *Engine) SetNodeCollapsed(guid string, collapsed bool) (*diagram.CanvasData, bool) {
	e.check()
	path := e.find(guid)
	if path == nil || !diagram.SetCollapsed(path[len(path)-1], collapsed) {
		return e.data.Clone(), false
	}
	ev := events.New(events.KindCollapse)
	ev.GUID = guid
	ev.Collapsed = &collapsed
	return e.commit(ev, commitOpts{edges: true, record: true}), true
}

// ToggleCollapsed flips a node's collapse state.
func (e *Engine) ToggleCollapsed(guid string) (*diagram.CanvasData, bool) {
	e.check()
	n := diagram.FindByGUID(e.data.Nodes, guid)
	if n == nil {
		return e.data.Clone(), false
	}
	return e.SetNodeCollapsed(guid, !n.Collapsed)
}

// CollapseToLevel collapses every node with children at depth >= level and
// expands the rest. Roots are at depth 0.
func (e *Engine) CollapseToLevel(level int) (*diagram.CanvasData, bool) {
	e.check()
	if diagram.CollapseToLevel(e.data.Nodes, max(level, 0)) == 0 {
		return e.data.Clone(), false
	}
	ev := events.New(events.KindCollapse)
	ev.Level = &level
	return e.commit(ev, commitOpts{edges: true, record: true}), true
}

// SetCamera replaces the camera. A non-finite camera is replaced by one
// framing the current content; zoom is clamped to the supported range.
func (e *Engine) SetCamera(c diagram.Camera) *diagram.CanvasData {
	e.check()
	if !c.Valid() {
		e.log.Warn("camera recentered", "reason", "non-finite camera", "x", c.X, "y", c.Y, "zoom", c.Zoom)
		c = e.recenter()
	}
	c.Zoom = geometry.Clamp(c.Zoom, diagram.MinZoom, diagram.MaxZoom)
	return e.setCamera(c)
}

func (e *Engine) setCamera(c diagram.Camera) *diagram.CanvasData {
	e.data.Camera = c
	ev := events.New(events.KindCamera)
	ev.Camera = &c
	return e.commit(ev, commitOpts{record: true})
}

// Pan moves the camera by a screen-space displacement.
func (e *Engine) Pan(d geometry.Point) *diagram.CanvasData {
	e.check()
	if !d.IsFinite() || d == (geometry.Point{}) {
		return e.data.Clone()
	}
	return e.setCamera(e.data.Camera.Pan(d))
}

// Zoom multiplies the zoom by factor, keeping the world point under the
// screen anchor fixed. Non-positive or non-finite factors are ignored.
func (e *Engine) Zoom(factor float64, anchor geometry.Point) *diagram.CanvasData {
	e.check()
	if !geometry.IsFinite(factor) || factor <= 0 || !anchor.IsFinite() {
		return e.data.Clone()
	}
	return e.setCamera(e.data.Camera.ZoomAt(factor, anchor))
}

// FitToContent frames the whole scene in the viewport.
func (e *Engine) FitToContent() *diagram.CanvasData {
	e.check()
	return e.setCamera(e.recenter())
}

// SetViewport records the host's viewport size. It only affects later
// fitting; the camera is unchanged.
func (e *Engine) SetViewport(vp geometry.Size) {
	e.check()
	if !geometry.IsFinite(vp.Width, vp.Height) || vp.Width <= 0 || vp.Height <= 0 {
		e.log.Debug("viewport ignored", "width", vp.Width, "height", vp.Height)
		return
	}
	e.viewport = vp
}

// ApplyStyleOverride merges p into the overlay store. Overrides are
// presentation only: they change View output and are not recorded in the
// undo history.
func (e *Engine) ApplyStyleOverride(p overlay.Patch) (*diagram.CanvasData, error) {
	e.check()
	if err := e.overlays.Apply(p); err != nil {
		return nil, err
	}
	ev := events.New(events.KindStyle)
	ev.Patch = &p
	return e.commit(ev, commitOpts{}), nil
}

// RemoveStyleOverride drops the override for scope and target.
func (e *Engine) RemoveStyleOverride(scope overlay.Scope, target string) (*diagram.CanvasData, bool) {
	e.check()
	if !e.overlays.Remove(scope, target) {
		return e.data.Clone(), false
	}
	ev := events.New(events.KindStyle)
	ev.Patch = &overlay.Patch{Scope: scope, Target: target}
	return e.commit(ev, commitOpts{}), true
}

// View returns the scene as it should be drawn: overlay patches resolved
// onto nodes and edges, and edges inherited for the effective collapse
// state. The stored scene is not modified.
func (e *Engine) View() *diagram.CanvasData {
	e.check()
	nodes, _ := e.overlays.Styled(e.data.Nodes, nil)
	edges := inherit.Resolve(nodes, e.data.OriginalEdges, e.opts.Inherit)
	if r, ok := e.active.(*layout.Routed); ok {
		r.Router().Route(nodes, edges)
	}
	_, edges = e.overlays.Styled(nil, edges)
	return &diagram.CanvasData{
		Nodes:         nodes,
		Edges:         edges,
		OriginalEdges: diagram.CloneEdges(e.data.OriginalEdges),
		Camera:        e.data.Camera,
	}
}

// Select marks a node as selected. Without additive the previous selection
// is replaced. Selection is not recorded in the undo history.
func (e *Engine) Select(guid string, additive bool) (*diagram.CanvasData, bool) {
	e.check()
	if diagram.FindByGUID(e.data.Nodes, guid) == nil {
		return e.data.Clone(), false
	}
	next := []string{guid}
	if additive {
		if slices.Contains(e.selection, guid) {
			return e.data.Clone(), false
		}
		next = append(slices.Clone(e.selection), guid)
	}
	return e.setSelection(next), true
}

// SelectAt selects the topmost node under a screen point, or clears the
// selection when there is none.
func (e *Engine) SelectAt(screen geometry.Point, additive bool) (*diagram.CanvasData, bool) {
	e.check()
	n := e.HitTestScreen(screen)
	if n == nil {
		if additive || len(e.selection) == 0 {
			return e.data.Clone(), false
		}
		return e.ClearSelection(), true
	}
	return e.Select(n.GUID, additive)
}

// ClearSelection deselects every node.
func (e *Engine) ClearSelection() *diagram.CanvasData {
	e.check()
	return e.setSelection(nil)
}

// Selection returns the selected GUIDs in selection order.
func (e *Engine) Selection() []string {
	e.check()
	return slices.Clone(e.selection)
}

func (e *Engine) setSelection(guids []string) *diagram.CanvasData {
	e.selection = guids
	e.markSelected()
	ev := events.New(events.KindSelection)
	ev.GUIDs = slices.Clone(guids)
	return e.commit(ev, commitOpts{})
}

// markSelected mirrors the selection onto the nodes' Selected flags.
func (e *Engine) markSelected() {
	diagram.Walk(e.data.Nodes, func(n, _ *diagram.Node, _ int) bool {
		n.Selected = slices.Contains(e.selection, n.GUID)
		return true
	})
}

// hitCache holds the styled forest hit tests run against while overlay
// patches are active.
type hitCache struct {
	roots   []*diagram.Node
	gen     uint64
	version uint64
}

func (e *Engine) hitRoots() []*diagram.Node {
	v := e.overlays.Version()
	if v == 0 {
		return e.data.Nodes
	}
	if e.hits.roots == nil || e.hits.gen != e.gen || e.hits.version != v {
		e.hits.roots, _ = e.overlays.Styled(e.data.Nodes, nil)
		e.hits.gen, e.hits.version = e.gen, v
		e.indexed.Invalidate()
	}
	return e.hits.roots
}

func (e *Engine) tester() hittest.Tester {
	if e.opts.IndexThreshold > 0 && e.data.NodeCount() >= e.opts.IndexThreshold {
		return e.indexed
	}
	return e.hier
}

// HitTest returns a copy of the topmost interactive node at a world point,
// or nil. Nodes hidden by an overlay cannot be hit.
func (e *Engine) HitTest(world geometry.Point) *diagram.Node {
	e.check()
	roots := e.hitRoots()
	n := e.tester().HitTest(roots, world)
	if n == nil {
		return nil
	}
	return n.Clone()
}

// HitTestScreen is HitTest for a screen point.
func (e *Engine) HitTestScreen(screen geometry.Point) *diagram.Node {
	e.check()
	return e.HitTest(e.data.Camera.ScreenToWorld(screen))
}

// HitTestAll returns every node containing a world point, deepest first.
func (e *Engine) HitTestAll(world geometry.Point) []hittest.Hit {
	e.check()
	roots := e.hitRoots()
	return e.tester().HitTestAll(roots, world)
}

// HitTestBounds returns every node intersecting a world rectangle, deepest
// first.
func (e *Engine) HitTestBounds(r geometry.Rect) []hittest.Hit {
	e.check()
	roots := e.hitRoots()
	return e.tester().HitTestBounds(roots, r)
}

// Undo restores the previous checkpoint. It reports false when there is
// nothing to undo.
func (e *Engine) Undo() (*diagram.CanvasData, bool) {
	e.check()
	return e.restore(events.KindUndo, e.history.Undo)
}

// Redo reapplies the next checkpoint. It reports false when there is
// nothing to redo.
func (e *Engine) Redo() (*diagram.CanvasData, bool) {
	e.check()
	return e.restore(events.KindRedo, e.history.Redo)
}

func (e *Engine) restore(kind events.Kind, step func() (*diagram.CanvasData, bool, error)) (*diagram.CanvasData, bool) {
	e.cancelTask()
	e.endGesture()
	state, ok, err := step()
	if err != nil {
		e.log.Error("history restore failed", "kind", kind, "err", err)
		return e.data.Clone(), false
	}
	if !ok || state == nil {
		return e.data.Clone(), false
	}

	var snap *diagram.CanvasData
	e.history.Replay(func() {
		e.data = state
		if !e.data.Camera.Valid() {
			e.data.Camera = e.recenter()
		}
		e.selection = slices.DeleteFunc(e.selection, func(guid string) bool {
			return diagram.FindByGUID(e.data.Nodes, guid) == nil
		})
		e.markSelected()
		snap = e.commit(events.New(kind), commitOpts{edges: true, record: true})
	})
	return snap, true
}
