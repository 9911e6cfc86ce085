// Package diagram contains the scene model: a tree of nodes with local offsets,
// a parallel edge list, the camera and the serializable CanvasData snapshot.
package diagram

import (
	"hcanvas/geometry"
)

// Shape names the outline drawn for a node.
type Shape string

// Supported shapes.
const (
	ShapeRect    Shape = "rect"
	ShapeRounded Shape = "rounded"
	ShapeEllipse Shape = "ellipse"
	ShapePill    Shape = "pill"
)

// Style is a node's base presentation.
type Style struct {
	Fill         string  `json:"fill,omitempty"`
	Stroke       string  `json:"stroke,omitempty"`
	StrokeWidth  float64 `json:"strokeWidth,omitempty"`
	TextColor    string  `json:"textColor,omitempty"`
	Icon         string  `json:"icon,omitempty"`
	Shape        Shape   `json:"shape,omitempty"`
	CornerRadius float64 `json:"cornerRadius,omitempty"`
}

// EdgeStyle is an edge's base presentation.
type EdgeStyle struct {
	Stroke string    `json:"stroke,omitempty"`
	Width  float64   `json:"width,omitempty"`
	Dash   []float64 `json:"dash,omitempty"`
}

// Node is a box in the scene. X and Y are relative to the parent node (or to
// the world origin for roots). The parent owns its children.
type Node struct {
	GUID     string         `json:"guid"`
	ID       string         `json:"id,omitempty"` // display id
	Type     string         `json:"type,omitempty"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	Text     string         `json:"text,omitempty"`
	Style    Style          `json:"style"`
	Children []*Node        `json:"children,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	Selected       bool `json:"selected,omitempty"`
	Hidden         bool `json:"hidden,omitempty"`
	Collapsed      bool `json:"collapsed,omitempty"`
	Dragging       bool `json:"dragging,omitempty"`
	NonInteractive bool `json:"nonInteractive,omitempty"`
}

// Offset returns the node's local offset.
func (n *Node) Offset() geometry.Point {
	return geometry.Point{X: n.X, Y: n.Y}
}

// Size returns the node's stored size.
func (n *Node) Size() geometry.Size {
	return geometry.Size{Width: n.Width, Height: n.Height}
}

// LocalBounds returns the node's rectangle in its parent's frame.
func (n *Node) LocalBounds() geometry.Rect {
	return geometry.Rect{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}
}

// HasChildren reports whether the node owns any children.
func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

// Edge is a relationship drawn between two nodes, referenced by GUID.
type Edge struct {
	ID        string           `json:"id"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Type      string           `json:"type,omitempty"`
	Label     string           `json:"label,omitempty"`
	Style     EdgeStyle        `json:"style"`
	Waypoints []geometry.Point `json:"waypoints,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`

	Generated  bool   `json:"generated,omitempty"`
	Inherited  bool   `json:"inherited,omitempty"`
	OriginalID string `json:"originalId,omitempty"`
}

// CanvasData is the serializable snapshot of a canvas.
//
// Edges is derived from OriginalEdges and the current collapse state;
// OriginalEdges is canonical and never changed by collapse or expand.
type CanvasData struct {
	Nodes         []*Node `json:"nodes"`
	Edges         []*Edge `json:"edges"`
	OriginalEdges []*Edge `json:"originalEdges"`
	Camera        Camera  `json:"camera"`
}

// NodeCount returns the number of nodes in the tree.
func (d *CanvasData) NodeCount() int {
	if d == nil {
		return 0
	}
	count := 0
	Walk(d.Nodes, func(*Node, *Node, int) bool {
		count++
		return true
	})
	return count
}
