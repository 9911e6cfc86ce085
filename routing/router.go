// Package routing computes orthogonal waypoints for edges over positioned node
// bounds, avoiding every node that is not an endpoint or one of its
// containers.
package routing

import (
	"log/slog"
	"math"
	"slices"

	"hcanvas/diagram"
	"hcanvas/geometry"
)

// Options configures a Router.
type Options struct {
	Margin float64 // clearance kept around obstacles
	Costs  PathCost
	// The fast path draws straight lines once the scene has more than
	// MaxNodes visible nodes or MaxEdges edges.
	MaxNodes    int
	MaxEdges    int
	MaxExplored int
	// CacheSize bounds the path cache; negative disables it.
	CacheSize int
	Frames    diagram.FrameOptions
	Logger    *slog.Logger
}

// DefaultOptions returns the stock routing configuration.
func DefaultOptions() Options {
	return Options{
		Margin:      12,
		Costs:       DefaultPathCost,
		MaxNodes:    400,
		MaxEdges:    800,
		MaxExplored: 50000,
		CacheSize:   DefaultCacheSize,
		Frames:      diagram.DefaultFrames(),
	}
}

// Stats summarises one routing pass.
type Stats struct {
	Routed   int  // orthogonal paths found by the search
	Fallback int  // edges that fell back to a middle-split path
	Skipped  int  // edges with an endpoint that is not rendered
	Cached   int  // routed or fallback paths served from the cache
	FastPath bool // every edge was drawn straight
}

// Router assigns waypoints to edges.
type Router struct {
	opts   Options
	finder *astar
	cache  *PathCache // nil when disabled
	log    *slog.Logger
}

// NewRouter creates a router, filling zero options with defaults.
func NewRouter(opts Options) *Router {
	def := DefaultOptions()
	if opts.Margin < 0 {
		opts.Margin = 0
	}
	if opts.Costs.StraightCost <= 0 {
		opts.Costs = def.Costs
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = def.MaxNodes
	}
	if opts.MaxEdges <= 0 {
		opts.MaxEdges = def.MaxEdges
	}
	if opts.MaxExplored <= 0 {
		opts.MaxExplored = def.MaxExplored
	}
	if opts.Frames.Mode == "" {
		opts.Frames = def.Frames
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	r := &Router{
		opts:   opts,
		finder: &astar{costs: opts.Costs, maxNodes: opts.MaxExplored},
		log:    log.With("component", "routing"),
	}
	switch {
	case opts.CacheSize == 0:
		r.cache = NewPathCache(DefaultCacheSize)
	case opts.CacheSize > 0:
		r.cache = NewPathCache(opts.CacheSize)
	}
	return r
}

// Cache returns the router's path cache, or nil when caching is disabled.
func (r *Router) Cache() *PathCache { return r.cache }

// placed is a rendered node with its world rectangle and ancestor chain.
type placed struct {
	node *diagram.Node
	rect geometry.Rect
	path []string // GUIDs root..node
}

func (p *placed) radius() float64 {
	switch p.node.Style.Shape {
	case diagram.ShapeEllipse, diagram.ShapePill:
		return math.Min(p.rect.Width, p.rect.Height) / 2
	case diagram.ShapeRect:
		return 0
	}
	return p.node.Style.CornerRadius
}

// related reports whether a is b, an ancestor of b or a descendant of b.
func related(a, b *placed) bool {
	return a == b || slices.Contains(b.path, a.node.GUID) || slices.Contains(a.path, b.node.GUID)
}

func collect(roots []*diagram.Node, frames diagram.FrameOptions) (map[string]*placed, []*placed) {
	index := make(map[string]*placed)
	var order []*placed
	var stack []string
	diagram.WalkWorld(roots, func(n *diagram.Node, origin geometry.Point, depth int) bool {
		if n.Hidden {
			return false
		}
		stack = append(stack[:depth], n.GUID)
		p := &placed{node: n, rect: frames.WorldRect(n, origin), path: slices.Clone(stack)}
		if p.rect.IsFinite() {
			index[n.GUID] = p
			order = append(order, p)
		}
		return !n.Collapsed
	})
	return index, order
}

// Route replaces the waypoints of every edge. Waypoints are world-space
// polylines that start and end on the endpoint borders. Edges whose
// endpoints are not rendered get no waypoints.
func (r *Router) Route(roots []*diagram.Node, edges []*diagram.Edge) Stats {
	index, order := collect(roots, r.opts.Frames)
	var stats Stats
	if len(order) > r.opts.MaxNodes || len(edges) > r.opts.MaxEdges {
		stats.FastPath = true
		r.log.Debug("fast path", "nodes", len(order), "edges", len(edges))
	}

	for _, e := range edges {
		src, dst := index[e.From], index[e.To]
		if src == nil || dst == nil {
			e.Waypoints = nil
			stats.Skipped++
			continue
		}
		if src == dst {
			e.Waypoints = r.selfLoop(src)
			stats.Routed++
			continue
		}
		if stats.FastPath {
			e.Waypoints = Straight(src.rect, src.radius(), dst.rect, dst.radius())
			continue
		}

		points, ok, hit := r.route(src, dst, order)
		e.Waypoints = points
		if hit {
			stats.Cached++
		}
		if ok {
			stats.Routed++
		} else {
			stats.Fallback++
		}
	}
	return stats
}

// Straight returns a two-point path between the borders of a and b along the
// line joining their centers.
func Straight(a geometry.Rect, ra float64, b geometry.Rect, rb float64) []geometry.Point {
	return []geometry.Point{
		geometry.BorderPoint(a, ra, b.Center()),
		geometry.BorderPoint(b, rb, a.Center()),
	}
}

func (r *Router) route(src, dst *placed, order []*placed) (points []geometry.Point, ok, hit bool) {
	start, end := r.ports(src, dst)

	var obstacles []geometry.Rect
	for _, o := range order {
		if related(o, src) || related(o, dst) {
			continue
		}
		obstacles = append(obstacles, o.rect.Inset(-r.opts.Margin))
	}

	window, _ := geometry.Bounding(append(slices.Clone(obstacles), src.rect, dst.rect))
	window = window.Inset(-2 * r.opts.Margin)

	var hash uint64
	if r.cache != nil {
		hash = HashObstacles(obstacles, window)
		if points, ok, found := r.cache.Get(start, end, hash); found {
			return points, ok, true
		}
	}

	points, err := r.finder.findPath(newGrid(start, end, obstacles, window), start, end)
	switch {
	case err != nil:
		r.log.Debug("route fallback", "from", src.node.GUID, "to", dst.node.GUID, "reason", err)
		points = MiddleSplit(start, end)
	case len(points) == 1:
		points = append(points, end)
		ok = true
	default:
		ok = true
	}
	if r.cache != nil {
		r.cache.Put(start, end, hash, points, ok)
	}
	return points, ok, false
}

// ports picks exit and entry points on the facing sides of a and b. The side
// follows the dominant axis between the centers; each point is snapped from
// the center to the shape border along that axis.
func (r *Router) ports(a, b *placed) (geometry.Point, geometry.Point) {
	ca, cb := a.rect.Center(), b.rect.Center()
	d := cb.Sub(ca)
	var ta, tb geometry.Point
	if math.Abs(d.X) >= math.Abs(d.Y) {
		ta, tb = geometry.Pt(cb.X, ca.Y), geometry.Pt(ca.X, cb.Y)
		if geometry.ApproxEqual(ca.X, cb.X, geometry.Epsilon) {
			ta, tb = ca.Add(geometry.Pt(1, 0)), cb.Add(geometry.Pt(-1, 0))
		}
	} else {
		ta, tb = geometry.Pt(ca.X, cb.Y), geometry.Pt(cb.X, ca.Y)
	}
	return geometry.BorderPoint(a.rect, a.radius(), ta), geometry.BorderPoint(b.rect, b.radius(), tb)
}

func (r *Router) selfLoop(p *placed) []geometry.Point {
	m := math.Max(r.opts.Margin, 8)
	c := p.rect.Center()
	right, top := p.rect.Right(), p.rect.Y
	return []geometry.Point{
		{X: right, Y: c.Y},
		{X: right + m, Y: c.Y},
		{X: right + m, Y: top - m},
		{X: c.X, Y: top - m},
		{X: c.X, Y: top},
	}
}
