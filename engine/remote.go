package engine

import (
	"fmt"

	"hcanvas/diagram"
	"hcanvas/events"
	"hcanvas/overlay"
)

// ApplyRemote applies an event received from another canvas. The resulting
// change is published with Remote set so bridges do not send it back out.
// Events carrying this engine's own origin are ignored, as are selection,
// undo, redo and snapshot events, which are local to each canvas.
func (e *Engine) ApplyRemote(ev events.Event) error {
	e.check()
	if ev.Origin != "" && ev.Origin == e.opts.Origin {
		return nil
	}
	e.remote = true
	defer func() { e.remote = false }()

	log := e.log.With("kind", ev.Kind, "remote_origin", ev.Origin)
	switch ev.Kind {
	case events.KindCollapse:
		switch {
		case ev.Level != nil:
			e.CollapseToLevel(*ev.Level)
		case ev.GUID != "" && ev.Collapsed != nil:
			if _, ok := e.SetNodeCollapsed(ev.GUID, *ev.Collapsed); !ok {
				log.Debug("remote collapse was a no-op", "guid", ev.GUID)
			}
		default:
			return missing(ev, "guid/collapsed or level")
		}

	case events.KindMove, events.KindResize:
		if ev.GUID == "" || (ev.Position == nil && ev.Size == nil) {
			return missing(ev, "guid and position or size")
		}
		if e.state != StateIdle {
			return ErrBusy
		}
		path := e.find(ev.GUID)
		if path == nil {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, ev.GUID)
		}
		pad, contain := e.padding(), e.containment()
		if ev.Position != nil {
			diagram.MoveNode(path, *ev.Position, pad, contain)
		}
		if ev.Size != nil {
			diagram.ResizeNode(path, *ev.Size, pad, contain)
		}
		e.commit(ev, commitOpts{edges: true, record: true})

	case events.KindCamera:
		if ev.Camera == nil {
			return missing(ev, "camera")
		}
		e.SetCamera(*ev.Camera)

	case events.KindStyle:
		if ev.Patch == nil {
			return missing(ev, "patch")
		}
		if isRemoval(*ev.Patch) {
			e.RemoveStyleOverride(ev.Patch.Scope, ev.Patch.Target)
			return nil
		}
		if _, err := e.ApplyStyleOverride(*ev.Patch); err != nil {
			return fmt.Errorf("apply remote style: %w", err)
		}

	case events.KindLayout:
		if ev.Engine != "" && ev.Engine != e.active.Name() {
			if _, err := e.SwitchLayoutEngine(ev.Engine); err != nil {
				return err
			}
			return nil
		}
		e.RunLayout()

	case events.KindDelta:
		if ev.Delta == nil {
			return missing(ev, "delta")
		}
		e.ApplyDelta(*ev.Delta)

	case events.KindSelection, events.KindUndo, events.KindRedo, events.KindSnapshot:
		log.Debug("local-only event ignored")

	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, ev.Kind)
	}
	return nil
}

func missing(ev events.Event, field string) error {
	return fmt.Errorf("%w: %s event without %s", ErrInvalidEvent, ev.Kind, field)
}

// isRemoval reports whether p only names a scope and target, which is how
// RemoveStyleOverride announces a removal.
func isRemoval(p overlay.Patch) bool {
	return p.Style == nil && p.EdgeStyle == nil && p.Layout == nil &&
		p.Visible == nil && p.Collapsed == nil && !p.StopCascade
}
