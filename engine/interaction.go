package engine

import (
	"math"

	"hcanvas/diagram"
	"hcanvas/events"
	"hcanvas/geometry"
)

// State is the pointer interaction state.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateResizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	default:
		return "unknown"
	}
}

// Handle is a resize grip on a node's border.
type Handle int

const (
	HandleN Handle = iota
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
	HandleNW
)

func (h Handle) west() bool  { return h == HandleW || h == HandleNW || h == HandleSW }
func (h Handle) east() bool  { return h == HandleE || h == HandleNE || h == HandleSE }
func (h Handle) north() bool { return h == HandleN || h == HandleNE || h == HandleNW }
func (h Handle) south() bool { return h == HandleS || h == HandleSE || h == HandleSW }

// gesture is the in-progress drag or resize.
type gesture struct {
	guid   string
	handle Handle
	start  geometry.Point // screen point at start
	rect   geometry.Rect  // node's local bounds at start
	before *diagram.CanvasData
}

// State returns the current interaction state.
func (e *Engine) State() State {
	e.check()
	return e.state
}

// interactivePath returns the node's root..node path, refusing nodes that
// are non-interactive or hidden under a collapsed or hidden ancestor.
func (e *Engine) interactivePath(guid string) ([]*diagram.Node, error) {
	path := e.find(guid)
	if path == nil {
		return nil, ErrNodeNotFound
	}
	for i, n := range path {
		if n.Hidden || n.NonInteractive || (i < len(path)-1 && n.Collapsed) {
			return nil, ErrNotInteractive
		}
	}
	return path, nil
}

func (e *Engine) begin(state State, guid string, h Handle, screen geometry.Point) ([]*diagram.Node, error) {
	if e.state != StateIdle {
		return nil, ErrBusy
	}
	path, err := e.interactivePath(guid)
	if err != nil {
		return nil, err
	}
	n := path[len(path)-1]
	e.state = state
	e.gesture = &gesture{
		guid:   guid,
		handle: h,
		start:  screen,
		rect:   n.LocalBounds(),
		before: e.data.Clone(),
	}
	return path, nil
}

// StartDrag begins dragging a node from a screen point.
func (e *Engine) StartDrag(guid string, screen geometry.Point) error {
	e.check()
	path, err := e.begin(StateDragging, guid, 0, screen)
	if err != nil {
		return err
	}
	path[len(path)-1].Dragging = true
	return nil
}

// livePath re-resolves the gesture's node. A node that left the tree ends
// the gesture.
func (e *Engine) livePath(state State) []*diagram.Node {
	if e.state != state || e.gesture == nil {
		return nil
	}
	path := e.find(e.gesture.guid)
	if path == nil {
		e.log.Debug("gesture node detached", "guid", e.gesture.guid)
		e.endGesture()
	}
	return path
}

// UpdateDrag moves the dragged node so it follows the pointer. The screen
// delta is converted through the camera and the offset is clamped inside the
// parent under containment layouts. It returns the applied local offset.
func (e *Engine) UpdateDrag(screen geometry.Point) (geometry.Point, bool) {
	e.check()
	path := e.livePath(StateDragging)
	if path == nil || !screen.IsFinite() {
		return geometry.Point{}, false
	}
	d := e.data.Camera.ScreenDelta(screen.Sub(e.gesture.start))
	got := diagram.MoveNode(path, e.gesture.rect.Min().Add(d), e.padding(), e.containment())
	e.touch()
	return got, true
}

// StopDrag commits the drag. It reports false when nothing moved.
func (e *Engine) StopDrag() (*diagram.CanvasData, bool) {
	e.check()
	path := e.livePath(StateDragging)
	if path == nil {
		return e.data.Clone(), false
	}
	g := e.gesture
	e.endGesture()
	n := path[len(path)-1]
	if n.Offset() == g.rect.Min() {
		return e.data.Clone(), false
	}
	offset := n.Offset()
	ev := events.New(events.KindMove)
	ev.GUID = g.guid
	ev.Position = &offset
	return e.commit(ev, commitOpts{edges: true, record: true}), true
}

// CancelGesture abandons an in-progress drag or resize and restores the
// scene as it was when the gesture started.
func (e *Engine) CancelGesture() {
	e.check()
	if e.gesture == nil {
		return
	}
	e.data = e.gesture.before
	e.gesture, e.state = nil, StateIdle
	e.touch()
}

// StartResize begins resizing a node by one of its handles.
func (e *Engine) StartResize(guid string, h Handle, screen geometry.Point) error {
	e.check()
	_, err := e.begin(StateResizing, guid, h, screen)
	return err
}

// UpdateResize resizes the node so the grabbed border follows the pointer.
// West and north handles keep the opposite border fixed. The size never
// drops below what the node's children need, and a child stays inside its
// parent. It returns the applied size.
func (e *Engine) UpdateResize(screen geometry.Point) (geometry.Size, bool) {
	e.check()
	path := e.livePath(StateResizing)
	if path == nil || !screen.IsFinite() {
		return geometry.Size{}, false
	}
	g := e.gesture
	n := path[len(path)-1]
	d := e.data.Camera.ScreenDelta(screen.Sub(g.start))
	pad, contain := e.padding(), e.containment()

	least := geometry.Size{Width: diagram.MinNodeSize, Height: diagram.MinNodeSize}
	if contain {
		least = diagram.MinimumSize(n, pad)
	}
	lo := math.Inf(-1)
	if contain && len(path) > 1 {
		lo = pad
	}

	r := g.rect
	if g.handle.west() {
		right := r.Right()
		r.X = math.Max(math.Min(r.X+d.X, right-least.Width), lo)
		r.Width = right - r.X
	} else if g.handle.east() {
		r.Width += d.X
	}
	if g.handle.north() {
		bottom := r.Bottom()
		r.Y = math.Max(math.Min(r.Y+d.Y, bottom-least.Height), lo)
		r.Height = bottom - r.Y
	} else if g.handle.south() {
		r.Height += d.Y
	}

	n.X, n.Y = r.X, r.Y
	got := diagram.ResizeNode(path, r.Size(), pad, contain)
	e.touch()
	return got, true
}

// StopResize commits the resize. It reports false when nothing changed.
func (e *Engine) StopResize() (*diagram.CanvasData, bool) {
	e.check()
	path := e.livePath(StateResizing)
	if path == nil {
		return e.data.Clone(), false
	}
	g := e.gesture
	e.endGesture()
	n := path[len(path)-1]
	if n.LocalBounds() == g.rect {
		return e.data.Clone(), false
	}
	size, offset := n.Size(), n.Offset()
	ev := events.New(events.KindResize)
	ev.GUID = g.guid
	ev.Size = &size
	ev.Position = &offset
	return e.commit(ev, commitOpts{edges: true, record: true}), true
}

// HandleResize sets a node's size in one step. Containment rules apply as
// for an interactive resize.
func (e *Engine) HandleResize(guid string, size geometry.Size) (*diagram.CanvasData, error) {
	e.check()
	if e.state != StateIdle {
		return nil, ErrBusy
	}
	path, err := e.interactivePath(guid)
	if err != nil {
		return nil, err
	}
	got := diagram.ResizeNode(path, size, e.padding(), e.containment())
	ev := events.New(events.KindResize)
	ev.GUID = guid
	ev.Size = &got
	return e.commit(ev, commitOpts{edges: true, record: true}), nil
}

// MoveNode sets a node's local offset in one step, clamped like a drag.
func (e *Engine) MoveNode(guid string, offset geometry.Point) (*diagram.CanvasData, error) {
	e.check()
	if e.state != StateIdle {
		return nil, ErrBusy
	}
	path, err := e.interactivePath(guid)
	if err != nil {
		return nil, err
	}
	got := diagram.MoveNode(path, offset, e.padding(), e.containment())
	ev := events.New(events.KindMove)
	ev.GUID = guid
	ev.Position = &got
	return e.commit(ev, commitOpts{edges: true, record: true}), nil
}

// endGesture drops any in-progress gesture, keeping its effect uncommitted.
func (e *Engine) endGesture() {
	if e.gesture != nil {
		if n := diagram.FindByGUID(e.data.Nodes, e.gesture.guid); n != nil {
			n.Dragging = false
		}
	}
	e.gesture, e.state = nil, StateIdle
}
