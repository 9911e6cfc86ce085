// Package validation checks a canvas snapshot against the scene invariants:
// unique GUIDs, finite geometry, containment, edge references, the visible
// edge set and the camera.
package validation

import (
	"errors"
	"fmt"
	"math"

	"hcanvas/diagram"
	"hcanvas/geometry"
)

// Kind classifies a validation error.
type Kind string

const (
	KindGUID        Kind = "guid"
	KindGeometry    Kind = "geometry"
	KindContainment Kind = "containment"
	KindEdge        Kind = "edge"
	KindVisibility  Kind = "visibility"
	KindCamera      Kind = "camera"
)

// ValidationError is one broken invariant.
type ValidationError struct {
	Kind    Kind
	GUID    string // offending node, if any
	EdgeID  string // offending edge, if any
	Message string
}

// String formats validation errors as a string.
func (e ValidationError) String() string {
	switch {
	case e.GUID != "":
		return fmt.Sprintf("%s [node %s]: %s", e.Kind, e.GUID, e.Message)
	case e.EdgeID != "":
		return fmt.Sprintf("%s [edge %s]: %s", e.Kind, e.EdgeID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// SnapshotValidator validates canvas snapshots.
type SnapshotValidator struct {
	errors []ValidationError

	containment bool
	padding     float64
	tolerance   float64
}

// NewSnapshotValidator creates a validator that skips containment checks.
func NewSnapshotValidator() *SnapshotValidator {
	return &SnapshotValidator{tolerance: 1e-6}
}

// SetContainment enables the containment checks used by containment
// layouts: children inside their parent minus padding.
func (v *SnapshotValidator) SetContainment(enabled bool, padding float64) {
	v.containment = enabled
	v.padding = padding
}

// Validate checks a snapshot and returns every broken invariant.
func (v *SnapshotValidator) Validate(data *diagram.CanvasData) []ValidationError {
	v.errors = nil
	if data == nil {
		return nil
	}
	visible := v.checkNodes(data.Nodes)
	v.checkEdges(data.OriginalEdges, visible, false)
	v.checkEdges(data.Edges, visible, true)
	v.checkCamera(data.Camera)
	return v.errors
}

// checkNodes walks the tree and returns the rendered state of every GUID.
func (v *SnapshotValidator) checkNodes(roots []*diagram.Node) map[string]bool {
	visible := make(map[string]bool)
	seen := make(map[*diagram.Node]bool)

	var visit func(n, parent *diagram.Node, shown bool)
	visit = func(n, parent *diagram.Node, shown bool) {
		if n == nil {
			return
		}
		if seen[n] {
			v.addError(KindGUID, n.GUID, "", "node appears more than once in the tree")
			return
		}
		seen[n] = true

		switch _, dup := visible[n.GUID]; {
		case n.GUID == "":
			v.addError(KindGUID, "", "", "node %q has no GUID", n.ID)
		case dup:
			v.addError(KindGUID, n.GUID, "", "duplicate GUID")
		}
		shown = shown && !n.Hidden
		visible[n.GUID] = shown

		if !geometry.IsFinite(n.X, n.Y, n.Width, n.Height) {
			v.addError(KindGeometry, n.GUID, "", "non-finite bounds %v", n.LocalBounds())
		} else if n.Width < 0 || n.Height < 0 {
			v.addError(KindGeometry, n.GUID, "", "negative size %gx%g", n.Width, n.Height)
		}

		if v.containment && parent != nil {
			inner := geometry.Rect{Width: parent.Width, Height: parent.Height}.Inset(v.padding)
			if !inner.ContainsRect(n.LocalBounds(), v.tolerance) {
				v.addError(KindContainment, n.GUID, "",
					"bounds %v escape parent %s interior %v", n.LocalBounds(), parent.GUID, inner)
			}
		}

		for _, c := range n.Children {
			visit(c, n, shown && !n.Collapsed)
		}
	}
	for _, r := range roots {
		visit(r, nil, true)
	}
	return visible
}

// checkEdges verifies references, unique IDs and finite waypoints. For the
// derived edge list both endpoints must also be rendered.
func (v *SnapshotValidator) checkEdges(edges []*diagram.Edge, visible map[string]bool, derived bool) {
	ids := make(map[string]bool)
	for _, e := range edges {
		if e == nil {
			continue
		}
		if ids[e.ID] {
			v.addError(KindEdge, "", e.ID, "duplicate edge ID")
		}
		ids[e.ID] = true
		for _, end := range []string{e.From, e.To} {
			shown, ok := visible[end]
			switch {
			case !ok:
				v.addError(KindEdge, "", e.ID, "endpoint %q does not exist", end)
			case derived && !shown:
				v.addError(KindVisibility, "", e.ID, "endpoint %q is not rendered", end)
			}
		}
		for _, p := range e.Waypoints {
			if !p.IsFinite() {
				v.addError(KindGeometry, "", e.ID, "non-finite waypoint")
				break
			}
		}
	}
}

func (v *SnapshotValidator) checkCamera(c diagram.Camera) {
	if !c.Valid() {
		v.addError(KindCamera, "", "", "invalid camera %+v", c)
		return
	}
	if c.Zoom < diagram.MinZoom-v.tolerance || c.Zoom > diagram.MaxZoom+v.tolerance {
		v.addError(KindCamera, "", "", "zoom %g outside [%g, %g]", c.Zoom, diagram.MinZoom, diagram.MaxZoom)
	}
	if math.Abs(c.X) > 1e12 || math.Abs(c.Y) > 1e12 {
		v.addError(KindCamera, "", "", "camera position %g,%g out of range", c.X, c.Y)
	}
}

// addError adds a validation error.
func (v *SnapshotValidator) addError(kind Kind, guid, edgeID, format string, args ...any) {
	v.errors = append(v.errors, ValidationError{
		Kind:    kind,
		GUID:    guid,
		EdgeID:  edgeID,
		Message: fmt.Sprintf(format, args...),
	})
}

// Err joins validation errors into one error, or returns nil.
func Err(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = errors.New(e.String())
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(joined...))
}

// ErrInvalid marks errors returned by Err.
var ErrInvalid = errors.New("invalid snapshot")
