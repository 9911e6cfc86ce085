package render

import (
	"hcanvas/diagram"
	"hcanvas/geometry"
	"hcanvas/routing"
)

// Options controls a paint pass.
type Options struct {
	Frames     diagram.FrameOptions
	Background string

	// Fallback colours for nodes and edges that do not set their own.
	Fill      string
	Stroke    string
	TextColor string
	EdgeColor string

	Selection string // outline of selected nodes
	BadgeFill string
	BadgeText string

	Arrows bool
	// Cull skips nodes and edges entirely outside the surface.
	Cull bool
}

// DefaultOptions returns a light palette with arrows and culling on.
func DefaultOptions() Options {
	return Options{
		Frames:     diagram.DefaultFrames(),
		Background: "#ffffff",
		Fill:       "#f5f7fa",
		Stroke:     "#5b6b7f",
		TextColor:  "#1f2933",
		EdgeColor:  "#7b8794",
		Selection:  "#2f80ed",
		BadgeFill:  "#e5484d",
		BadgeText:  "#ffffff",
		Arrows:     true,
		Cull:       true,
	}
}

// Stats counts what a paint pass drew.
type Stats struct {
	Nodes  int
	Edges  int
	Culled int
}

// Paint draws a resolved view onto s: nodes in pre-order (parents under their
// children), then edges on top. The view is only read.
func Paint(s Surface, view *diagram.CanvasData, opts Options) Stats {
	var stats Stats
	if view == nil {
		return stats
	}
	cam := view.Camera
	if !cam.Valid() {
		cam = diagram.DefaultCamera()
	}
	size := s.Size()
	screen := geometry.Rect{Width: size.Width, Height: size.Height}
	if opts.Background != "" {
		s.Rect(screen, 0, Pen{Fill: opts.Background})
	}

	placed := make(map[string]placedNode)
	diagram.WalkVisible(view.Nodes, func(n *diagram.Node, origin geometry.Point, _ int) {
		world := opts.Frames.WorldRect(n, origin)
		if !world.IsFinite() {
			return
		}
		r := cam.WorldRectToScreen(world)
		placed[n.GUID] = placedNode{node: n, world: world}
		if opts.Cull && !r.Intersects(screen) {
			stats.Culled++
			return
		}
		paintNode(s, n, r, cam.Zoom, opts)
		stats.Nodes++
	})

	for _, e := range view.Edges {
		pts := edgePoints(e, placed)
		if len(pts) < 2 {
			continue
		}
		out := make([]geometry.Point, len(pts))
		for i, p := range pts {
			out[i] = cam.WorldToScreen(p)
		}
		if opts.Cull && !polylineBounds(out).Intersects(screen) {
			stats.Culled++
			continue
		}
		style := e.Style
		if style.Stroke == "" {
			style.Stroke = opts.EdgeColor
		}
		if style.Width <= 0 {
			style.Width = 1
		}
		DrawConnector(s, out, style, cam.Zoom, opts.Arrows)
		if e.Label != "" {
			mid := midpoint(out)
			s.Text(mid, e.Label, Font{Color: opts.TextColor, Size: LabelSize * 0.85 * cam.Zoom}, AlignCenter)
		}
		stats.Edges++
	}
	return stats
}

type placedNode struct {
	node  *diagram.Node
	world geometry.Rect
}

func paintNode(s Surface, n *diagram.Node, r geometry.Rect, zoom float64, opts Options) {
	style := n.Style
	if style.Fill == "" {
		style.Fill = opts.Fill
	}
	if style.Stroke == "" {
		style.Stroke = opts.Stroke
	}
	if style.StrokeWidth <= 0 {
		style.StrokeWidth = 1
	}
	if style.TextColor == "" {
		style.TextColor = opts.TextColor
	}
	if n.Selected && opts.Selection != "" {
		style.Stroke = opts.Selection
		style.StrokeWidth *= 2
	}
	if n.Dragging {
		style.Fill = diagram.Darken(style.Fill, 0.08)
	}
	DrawShape(s, r, style, zoom)

	// Expanded containers label their header; leaves and collapsed nodes
	// label the centre.
	header := n.HasChildren() && !n.Collapsed
	DrawIcon(s, r, style.Icon, style.TextColor, zoom)
	DrawLabel(s, r, label(n), style.TextColor, zoom, header)
	if n.Collapsed {
		DrawBadge(s, r, descendants(n), opts.BadgeFill, opts.BadgeText, zoom)
	}
}

func label(n *diagram.Node) string {
	if n.Text != "" {
		return n.Text
	}
	return n.ID
}

func descendants(n *diagram.Node) int {
	count := -1
	diagram.Walk([]*diagram.Node{n}, func(*diagram.Node, *diagram.Node, int) bool {
		count++
		return true
	})
	return count
}

// edgePoints returns the world polyline for e: its waypoints when routed,
// otherwise a straight border-to-border segment between rendered endpoints.
func edgePoints(e *diagram.Edge, placed map[string]placedNode) []geometry.Point {
	if len(e.Waypoints) >= 2 {
		return e.Waypoints
	}
	src, ok := placed[e.From]
	if !ok {
		return nil
	}
	dst, ok := placed[e.To]
	if !ok || e.From == e.To {
		return nil
	}
	return routing.Straight(
		src.world, ShapeRadius(src.node.Style, src.world, 1),
		dst.world, ShapeRadius(dst.node.Style, dst.world, 1),
	)
}

func polylineBounds(pts []geometry.Point) geometry.Rect {
	r := geometry.RectFromPoints(pts[0], pts[0])
	for _, p := range pts[1:] {
		r = r.Union(geometry.RectFromPoints(p, p))
	}
	return r
}

// midpoint returns the point halfway along the polyline's length.
func midpoint(pts []geometry.Point) geometry.Point {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += pts[i-1].Distance(pts[i])
	}
	half := total / 2
	for i := 1; i < len(pts); i++ {
		d := pts[i-1].Distance(pts[i])
		if d >= half && d > 0 {
			return pts[i-1].Add(pts[i].Sub(pts[i-1]).Scale(half / d))
		}
		half -= d
	}
	return pts[len(pts)-1]
}
