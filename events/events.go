package events

import (
	"time"

	"hcanvas/diagram"
	"hcanvas/geometry"
	"hcanvas/overlay"
)

// Kind identifies what an Event changed.
type Kind string

// Event kinds.
const (
	KindSnapshot  Kind = "snapshot"
	KindLayout    Kind = "layout"
	KindCollapse  Kind = "collapse"
	KindMove      Kind = "move"
	KindResize    Kind = "resize"
	KindCamera    Kind = "camera"
	KindStyle     Kind = "style"
	KindSelection Kind = "selection"
	KindUndo      Kind = "undo"
	KindRedo      Kind = "redo"
	KindDelta     Kind = "graph_delta"
)

// Event describes one committed mutation. Only the fields relevant to Kind
// are set. Origin names the canvas instance that produced it, so a bridge
// can skip its own events.
type Event struct {
	Kind      Kind   `json:"kind"`
	Origin    string `json:"origin,omitempty"`
	Timestamp int64  `json:"timestamp"`

	GUID      string          `json:"guid,omitempty"`
	GUIDs     []string        `json:"guids,omitempty"`
	Engine    string          `json:"engine,omitempty"`
	Collapsed *bool           `json:"collapsed,omitempty"`
	Level     *int            `json:"level,omitempty"`
	Position  *geometry.Point `json:"position,omitempty"`
	Size      *geometry.Size  `json:"size,omitempty"`
	Camera    *diagram.Camera `json:"camera,omitempty"`
	Patch     *overlay.Patch  `json:"patch,omitempty"`
	Delta     *GraphDelta     `json:"delta,omitempty"`
}

// New returns an event of the given kind stamped with the current time.
func New(kind Kind) Event {
	return Event{Kind: kind, Timestamp: time.Now().UnixMilli()}
}

// Change is what the engine publishes to local observers after every
// committed mutation.
type Change struct {
	Event    Event
	Snapshot *diagram.CanvasData
	Remote   bool // applied from a remote event; not to be republished
}

// GraphDeltaType is the message type carried by GraphDelta.
const GraphDeltaType = "graph_delta"

// NodeDTO is a node as carried by graph responses and deltas.
type NodeDTO struct {
	GUID       string         `json:"guid"`
	Labels     []string       `json:"labels,omitempty"`
	ParentGUID string         `json:"parent_guid,omitempty"`
	Position   *NodePosition  `json:"position,omitempty"`
	Display    *NodeDisplay   `json:"display,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// NodePosition is an explicit position hint.
type NodePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeDisplay carries display hints.
type NodeDisplay struct {
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Color  string   `json:"color,omitempty"`
	Icon   string   `json:"icon,omitempty"`
}

// RelationshipDTO is a relationship as carried by graph responses and deltas.
type RelationshipDTO struct {
	GUID       string         `json:"guid"`
	SourceGUID string         `json:"source_guid"`
	TargetGUID string         `json:"target_guid"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// NodeUpdate is a partial property update.
type NodeUpdate struct {
	GUID       string         `json:"guid"`
	Properties map[string]any `json:"properties,omitempty"`
}

// GraphDelta is an incremental change to the input graph.
type GraphDelta struct {
	Type                 string            `json:"type"`
	ViewNodeID           string            `json:"viewNodeId"`
	Timestamp            int64             `json:"timestamp"`
	NodesCreated         []NodeDTO         `json:"nodesCreated,omitempty"`
	NodesUpdated         []NodeUpdate      `json:"nodesUpdated,omitempty"`
	NodesDeleted         []string          `json:"nodesDeleted,omitempty"`
	RelationshipsCreated []RelationshipDTO `json:"relationshipsCreated,omitempty"`
	RelationshipsDeleted []string          `json:"relationshipsDeleted,omitempty"`
}

// NewGraphDelta returns an empty delta for a view stamped with the current time.
func NewGraphDelta(viewNodeID string) GraphDelta {
	return GraphDelta{Type: GraphDeltaType, ViewNodeID: viewNodeID, Timestamp: time.Now().UnixMilli()}
}

// IsEmpty reports whether the delta changes nothing.
func (d GraphDelta) IsEmpty() bool {
	return len(d.NodesCreated) == 0 &&
		len(d.NodesUpdated) == 0 &&
		len(d.NodesDeleted) == 0 &&
		len(d.RelationshipsCreated) == 0 &&
		len(d.RelationshipsDeleted) == 0
}
