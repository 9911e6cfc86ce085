package engine

import (
	"fmt"
	"maps"
	"slices"

	"hcanvas/diagram"
	"hcanvas/events"
	"hcanvas/importer"
	"hcanvas/layout"
	"hcanvas/telemetry"
)

// LayoutTask is an in-flight layout run. The host advances it with Step from
// its frame tick; the result is committed when the last step finishes.
// Dropping or cancelling a task leaves the scene untouched.
type LayoutTask struct {
	e          *Engine
	session    layout.Session
	run        *telemetry.LayoutRun
	event      events.Event
	keepCamera bool

	done      bool
	cancelled bool
	snapshot  *diagram.CanvasData
}

// Step advances the run by up to n units of work and reports whether the
// task has finished (or was cancelled).
func (t *LayoutTask) Step(n int) bool {
	if t.done || t.cancelled {
		return true
	}
	if t.e.destroyed || t.e.task != t {
		t.Cancel()
		return true
	}
	finished := t.session.Step(max(n, 1))
	t.run.Step(n, finished)
	if !finished {
		return false
	}
	t.done = true
	t.e.task = nil
	res := t.session.Result()
	t.snapshot = t.e.applyLayout(res, t.event, t.keepCamera)
	t.run.End(len(res.Nodes), false)
	return true
}

// Cancel abandons the run. It is a no-op once the task has finished.
func (t *LayoutTask) Cancel() {
	if t.done || t.cancelled {
		return
	}
	t.cancelled = true
	t.run.End(0, true)
	if t.e.task == t {
		t.e.task = nil
	}
}

// Done reports whether the result has been committed.
func (t *LayoutTask) Done() bool { return t.done }

// Cancelled reports whether the task was abandoned.
func (t *LayoutTask) Cancelled() bool { return t.cancelled }

// Preview returns the layout as of the last step, for progress display.
func (t *LayoutTask) Preview() layout.Result { return t.session.Result() }

// Snapshot returns the committed scene once the task is done, or nil.
func (t *LayoutTask) Snapshot() *diagram.CanvasData { return t.snapshot }

func (e *Engine) cancelTask() {
	if e.task != nil {
		e.task.Cancel()
	}
}

func (e *Engine) startTask(ev events.Event, keepCamera bool) *LayoutTask {
	e.cancelTask()
	e.endGesture()
	ev.Engine = e.active.Name()
	t := &LayoutTask{
		e:          e,
		session:    layout.Start(e.active, e.entities, e.relationships),
		run:        e.tel.StartLayout(e.ctx, e.active.Name(), len(e.entities), len(e.relationships)),
		event:      ev,
		keepCamera: keepCamera,
	}
	e.task = t
	return t
}

// runTask steps t to completion on the caller's goroutine.
func (e *Engine) runTask(t *LayoutTask) *diagram.CanvasData {
	chunk := max(e.opts.Layout.ForceChunk, 1)
	for !t.Step(chunk) {
	}
	return t.Snapshot()
}

// StartLayout begins a chunked run of the active layout over the current
// input. Any earlier in-flight run is cancelled.
func (e *Engine) StartLayout() *LayoutTask {
	e.check()
	return e.startTask(events.New(events.KindLayout), false)
}

// RunLayout runs the active layout to completion and commits the result.
func (e *Engine) RunLayout() *diagram.CanvasData {
	e.check()
	return e.runTask(e.startTask(events.New(events.KindLayout), false))
}

// SetData replaces the layout input, clears history and selection, and runs
// the active layout. Entities and relationships without an identifier get a
// fresh GUID here, once, so later reruns keep node identity.
func (e *Engine) SetData(entities []layout.Entity, relationships []layout.Relationship) *diagram.CanvasData {
	e.check()
	e.cancelTask()
	e.endGesture()
	e.entities, e.relationships = assignGUIDs(entities, relationships)
	e.history.Clear()
	e.selection = nil
	e.data = &diagram.CanvasData{Camera: e.data.Camera}
	return e.runTask(e.startTask(events.New(events.KindSnapshot), false))
}

func assignGUIDs(entities []layout.Entity, relationships []layout.Relationship) ([]layout.Entity, []layout.Relationship) {
	ents := slices.Clone(entities)
	for i := range ents {
		if ents[i].GUID == "" {
			ents[i].GUID = diagram.NewGUID()
		}
	}
	rels := slices.Clone(relationships)
	for i := range rels {
		if rels[i].ID == "" {
			rels[i].ID = diagram.NewGUID()
		}
	}
	return ents, rels
}

// SwitchLayoutEngine activates the named engine and re-derives the whole
// scene with it. Collapse state and selection carry over by GUID.
func (e *Engine) SwitchLayoutEngine(name string) (*diagram.CanvasData, error) {
	e.check()
	next, ok := e.layouts.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	e.cancelTask()
	e.active = next
	e.log.Debug("layout engine switched", "engine", name)
	return e.runTask(e.startTask(events.New(events.KindLayout), false)), nil
}

// applyLayout installs a layout result as the new scene. Collapse and
// selection flags are restored by GUID from the previous scene.
func (e *Engine) applyLayout(res layout.Result, ev events.Event, keepCamera bool) *diagram.CanvasData {
	prev := e.data
	collapsed := make(map[string]bool)
	diagram.Walk(prev.Nodes, func(n, _ *diagram.Node, _ int) bool {
		if n.Collapsed {
			collapsed[n.GUID] = true
		}
		return true
	})

	selected := make(map[string]bool, len(e.selection))
	for _, guid := range e.selection {
		selected[guid] = true
	}
	kept := make([]string, 0, len(e.selection))
	diagram.Walk(res.Nodes, func(n, _ *diagram.Node, _ int) bool {
		n.Collapsed = collapsed[n.GUID] && n.HasChildren()
		n.Selected = selected[n.GUID]
		return true
	})
	for _, guid := range e.selection {
		if diagram.FindByGUID(res.Nodes, guid) != nil {
			kept = append(kept, guid)
		}
	}
	e.selection = kept

	original := res.Edges
	if original == nil {
		original = []*diagram.Edge{}
	}
	e.data = &diagram.CanvasData{Nodes: res.Nodes, OriginalEdges: original, Camera: prev.Camera}
	switch {
	case keepCamera && prev.Camera.Valid():
	case res.Camera != nil && res.Camera.Valid() && e.viewport == e.opts.Layout.Viewport:
		e.data.Camera = *res.Camera
	default:
		e.data.Camera = e.recenter()
	}

	e.log.Debug("layout applied", "engine", e.active.Name(), "nodes", e.data.NodeCount(), "edges", len(original))
	return e.commit(ev, commitOpts{edges: true, record: true})
}

// LoadSnapshot replaces the scene with an externally produced snapshot. The
// snapshot is repaired rather than rejected: missing GUIDs are assigned,
// orphan edges dropped, containment enforced under containment layouts and a
// non-finite camera recentered. The layout input is rebuilt from the scene.
func (e *Engine) LoadSnapshot(data *diagram.CanvasData) *diagram.CanvasData {
	e.check()
	e.cancelTask()
	e.endGesture()

	d := data.Clone()
	if d == nil {
		d = &diagram.CanvasData{Camera: diagram.DefaultCamera()}
	}
	diagram.EnsureGUIDs(d.Nodes)
	if e.containment() {
		diagram.EnforceContainment(d.Nodes, e.padding())
	}
	if d.OriginalEdges == nil {
		for _, edge := range d.Edges {
			if !edge.Inherited {
				d.OriginalEdges = append(d.OriginalEdges, edge)
			}
		}
	}
	d.OriginalEdges = diagram.DropOrphanEdges(d.Nodes, d.OriginalEdges)
	diagram.EnsureUniqueEdgeIDs(d.OriginalEdges)

	e.data = d
	if !d.Camera.Valid() {
		e.log.Warn("snapshot camera recentered", "reason", "non-finite camera")
		d.Camera = e.recenter()
	}
	e.selection = nil
	diagram.Walk(d.Nodes, func(n, _ *diagram.Node, _ int) bool {
		if n.Selected {
			e.selection = append(e.selection, n.GUID)
		}
		return true
	})
	e.entities, e.relationships = inputFromScene(d)
	e.history.Clear()
	return e.commit(events.New(events.KindSnapshot), commitOpts{edges: true, record: true})
}

// inputFromScene rebuilds layout input from a snapshot so the scene can be
// laid out again.
func inputFromScene(d *diagram.CanvasData) ([]layout.Entity, []layout.Relationship) {
	var ents []layout.Entity
	seen := make(map[string]bool)
	diagram.Walk(d.Nodes, func(n, parent *diagram.Node, _ int) bool {
		ent := layout.Entity{
			ID:         n.ID,
			GUID:       n.GUID,
			Name:       n.Text,
			Type:       n.Type,
			Width:      n.Width,
			Height:     n.Height,
			Properties: maps.Clone(n.Metadata),
		}
		if ent.ID == "" || seen[ent.ID] {
			ent.ID = n.GUID
		}
		seen[ent.ID] = true
		if parent != nil {
			ent.Parent = parent.GUID
		}
		ents = append(ents, ent)
		return true
	})
	var rels []layout.Relationship
	for _, edge := range d.OriginalEdges {
		if edge.Generated {
			continue
		}
		rels = append(rels, layout.Relationship{
			ID:         edge.ID,
			Type:       edge.Type,
			From:       edge.From,
			To:         edge.To,
			Label:      edge.Label,
			Properties: maps.Clone(edge.Metadata),
		})
	}
	return ents, rels
}

// ApplyDelta merges an incremental graph change into the layout input and
// reruns the active layout, keeping the camera, collapse state and
// selection. Deleting a node deletes its contained subtree.
func (e *Engine) ApplyDelta(d events.GraphDelta) (*diagram.CanvasData, bool) {
	e.check()
	if d.IsEmpty() {
		return e.data.Clone(), false
	}

	ents := slices.Clone(e.entities)
	rels := slices.Clone(e.relationships)
	find := func(ref string) int {
		return slices.IndexFunc(ents, func(x layout.Entity) bool { return x.GUID == ref || x.ID == ref })
	}

	for _, n := range d.NodesCreated {
		if n.GUID == "" {
			continue
		}
		ent := importer.EntityFromNode(n)
		if i := find(n.GUID); i >= 0 {
			ents[i] = ent
		} else {
			ents = append(ents, ent)
		}
	}
	for _, u := range d.NodesUpdated {
		i := find(u.GUID)
		if i < 0 {
			e.log.Debug("delta update for unknown node", "guid", u.GUID)
			continue
		}
		props := maps.Clone(ents[i].Properties)
		if props == nil {
			props = make(map[string]any, len(u.Properties))
		}
		maps.Copy(props, u.Properties)
		ents[i].Properties = props
		if name, ok := props["name"].(string); ok && name != "" {
			ents[i].Name = name
		}
	}
	if len(d.NodesDeleted) > 0 {
		gone := subtreeRefs(ents, rels, d.NodesDeleted)
		ents = slices.DeleteFunc(ents, func(x layout.Entity) bool { return gone[x.GUID] || gone[x.ID] })
		rels = slices.DeleteFunc(rels, func(r layout.Relationship) bool { return gone[r.From] || gone[r.To] })
	}
	for _, r := range d.RelationshipsCreated {
		rel := importer.RelationshipFromDTO(r)
		if i := slices.IndexFunc(rels, func(x layout.Relationship) bool { return x.ID == rel.ID }); i >= 0 {
			rels[i] = rel
		} else {
			rels = append(rels, rel)
		}
	}
	for _, id := range d.RelationshipsDeleted {
		rels = slices.DeleteFunc(rels, func(x layout.Relationship) bool { return x.ID == id })
	}

	e.entities, e.relationships = assignGUIDs(ents, rels)
	ev := events.New(events.KindDelta)
	ev.Delta = &d
	return e.runTask(e.startTask(ev, true)), true
}

// subtreeRefs returns the IDs and GUIDs of the named entities and of
// everything they contain.
func subtreeRefs(ents []layout.Entity, rels []layout.Relationship, roots []string) map[string]bool {
	canon := make(map[string]string, 2*len(ents)) // ID or GUID -> GUID
	for _, x := range ents {
		canon[x.ID] = x.GUID
		canon[x.GUID] = x.GUID
	}
	children := make(map[string][]string)
	for _, x := range ents {
		if p, ok := canon[x.Parent]; ok {
			children[p] = append(children[p], x.GUID)
		}
	}
	for _, r := range rels {
		if r.Type != layout.RelContains {
			continue
		}
		p, okp := canon[r.From]
		c, okc := canon[r.To]
		if okp && okc {
			children[p] = append(children[p], c)
		}
	}

	gone := make(map[string]bool)
	queue := make([]string, 0, len(roots))
	for _, ref := range roots {
		if g, ok := canon[ref]; ok {
			queue = append(queue, g)
		}
	}
	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]
		if gone[g] {
			continue
		}
		gone[g] = true
		queue = append(queue, children[g]...)
	}
	for _, x := range ents {
		if gone[x.GUID] {
			gone[x.ID] = true
		}
	}
	return gone
}
