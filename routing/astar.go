package routing

import (
	"container/heap"
	"errors"
	"math"
	"slices"

	"hcanvas/geometry"
	"hcanvas/hittest"
)

// PathCost defines the cost model for the orthogonal search.
type PathCost struct {
	StraightCost float64 // multiplier on segment length
	TurnCost     float64 // flat penalty for each change of direction
}

// DefaultPathCost matches the configured turn penalty of 40 world units.
var DefaultPathCost = PathCost{StraightCost: 1, TurnCost: 40}

// Direction is the heading of the last move into a grid point.
type Direction int

// Headings. DirNone marks the start of a search.
const (
	DirNone Direction = iota
	DirNorth
	DirEast
	DirSouth
	DirWest
)

var (
	errNoPath     = errors.New("no path found")
	errNodeLimit  = errors.New("search exceeded node limit")
	errEndBlocked = errors.New("endpoint is blocked")
)

type gridKey struct {
	i, j int
	dir  Direction
}

// searchNode is one state of the A* search.
type searchNode struct {
	i, j   int
	dir    Direction
	g, h   float64
	f      float64
	parent *searchNode
	index  int
}

// nodeQueue is a priority queue for search nodes.
type nodeQueue []*searchNode

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(a, b int) bool {
	if q[a].f != q[b].f {
		return q[a].f < q[b].f
	}
	// Prefer nodes closer to the goal, then a fixed grid order so equal-cost
	// searches are reproducible.
	if q[a].h != q[b].h {
		return q[a].h < q[b].h
	}
	if q[a].i != q[b].i {
		return q[a].i < q[b].i
	}
	return q[a].j < q[b].j
}

func (q nodeQueue) Swap(a, b int) {
	q[a], q[b] = q[b], q[a]
	q[a].index = a
	q[b].index = b
}

func (q *nodeQueue) Push(x any) {
	n := x.(*searchNode)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *nodeQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.index = -1
	*q = old[:len(old)-1]
	return n
}

// grid is a sparse orthogonal visibility grid. Its lines are the obstacle
// borders plus the start and end coordinates, so every segment between two
// adjacent grid coordinates either lies wholly inside an obstacle or wholly
// outside its interior.
type grid struct {
	xs, ys    []float64
	obstacles *hittest.Quadtree[geometry.Rect]
}

func newGrid(start, end geometry.Point, obstacles []geometry.Rect, window geometry.Rect) *grid {
	xs := []float64{start.X, end.X, window.X, window.Right()}
	ys := []float64{start.Y, end.Y, window.Y, window.Bottom()}
	tree := hittest.NewQuadtree[geometry.Rect](window, hittest.DefaultMaxObjects, hittest.DefaultMaxDepth)
	for _, o := range obstacles {
		xs = append(xs, o.X, o.Right())
		ys = append(ys, o.Y, o.Bottom())
		tree.Insert(o, o)
	}
	return &grid{xs: uniqueSorted(xs), ys: uniqueSorted(ys), obstacles: tree}
}

func uniqueSorted(vs []float64) []float64 {
	slices.Sort(vs)
	return slices.CompactFunc(vs, func(a, b float64) bool { return math.Abs(a-b) < geometry.Epsilon })
}

func (g *grid) point(i, j int) geometry.Point {
	return geometry.Point{X: g.xs[i], Y: g.ys[j]}
}

func (g *grid) index(p geometry.Point) (int, int, bool) {
	i := slices.IndexFunc(g.xs, func(x float64) bool { return math.Abs(x-p.X) < geometry.Epsilon })
	j := slices.IndexFunc(g.ys, func(y float64) bool { return math.Abs(y-p.Y) < geometry.Epsilon })
	return i, j, i >= 0 && j >= 0
}

// blocked reports whether p lies strictly inside an obstacle.
func (g *grid) blocked(p geometry.Point) bool {
	for _, o := range g.obstacles.QueryPoint(p) {
		if p.X > o.X+geometry.Epsilon && p.X < o.Right()-geometry.Epsilon &&
			p.Y > o.Y+geometry.Epsilon && p.Y < o.Bottom()-geometry.Epsilon {
			return true
		}
	}
	return false
}

// segmentBlocked tests the midpoint of a segment between adjacent grid points.
func (g *grid) segmentBlocked(a, b geometry.Point) bool {
	return g.blocked(geometry.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2})
}

type astar struct {
	costs    PathCost
	maxNodes int
}

func (a *astar) heuristic(p, goal geometry.Point) float64 {
	dx := math.Abs(goal.X - p.X)
	dy := math.Abs(goal.Y - p.Y)
	h := (dx + dy) * a.costs.StraightCost
	// At least one turn is needed when the goal is off both axes.
	if dx > geometry.Epsilon && dy > geometry.Epsilon {
		h += a.costs.TurnCost
	}
	return h
}

// findPath returns the cheapest orthogonal polyline from start to end on g.
func (a *astar) findPath(g *grid, start, end geometry.Point) ([]geometry.Point, error) {
	si, sj, ok1 := g.index(start)
	ei, ej, ok2 := g.index(end)
	if !ok1 || !ok2 {
		return nil, errEndBlocked
	}
	if si == ei && sj == ej {
		return []geometry.Point{start}, nil
	}

	open := &nodeQueue{}
	heap.Init(open)
	closed := make(map[gridKey]bool)
	seen := make(map[gridKey]*searchNode)

	first := &searchNode{i: si, j: sj, dir: DirNone, h: a.heuristic(start, end)}
	first.f = first.h
	heap.Push(open, first)
	seen[gridKey{si, sj, DirNone}] = first

	explored := 0
	for open.Len() > 0 {
		explored++
		if explored > a.maxNodes {
			return nil, errNodeLimit
		}
		cur := heap.Pop(open).(*searchNode)
		if cur.i == ei && cur.j == ej {
			return a.reconstruct(g, cur), nil
		}
		key := gridKey{cur.i, cur.j, cur.dir}
		closed[key] = true

		for _, step := range [...]struct {
			di, dj int
			dir    Direction
		}{{0, -1, DirNorth}, {1, 0, DirEast}, {0, 1, DirSouth}, {-1, 0, DirWest}} {
			ni, nj := cur.i+step.di, cur.j+step.dj
			if ni < 0 || nj < 0 || ni >= len(g.xs) || nj >= len(g.ys) {
				continue
			}
			if opposite(cur.dir, step.dir) {
				continue
			}
			nk := gridKey{ni, nj, step.dir}
			if closed[nk] {
				continue
			}
			from, to := g.point(cur.i, cur.j), g.point(ni, nj)
			if g.segmentBlocked(from, to) || ((ni != ei || nj != ej) && g.blocked(to)) {
				continue
			}

			cost := cur.g + from.Distance(to)*a.costs.StraightCost
			if cur.dir != DirNone && cur.dir != step.dir {
				cost += a.costs.TurnCost
			}

			if prev, ok := seen[nk]; ok {
				if cost < prev.g {
					prev.g = cost
					prev.f = cost + prev.h
					prev.parent = cur
					if prev.index >= 0 {
						heap.Fix(open, prev.index)
					} else {
						heap.Push(open, prev)
					}
				}
				continue
			}
			n := &searchNode{i: ni, j: nj, dir: step.dir, g: cost, h: a.heuristic(to, end), parent: cur}
			n.f = n.g + n.h
			heap.Push(open, n)
			seen[nk] = n
		}
	}
	return nil, errNoPath
}

func opposite(a, b Direction) bool {
	switch a {
	case DirNorth:
		return b == DirSouth
	case DirSouth:
		return b == DirNorth
	case DirEast:
		return b == DirWest
	case DirWest:
		return b == DirEast
	}
	return false
}

func (a *astar) reconstruct(g *grid, goal *searchNode) []geometry.Point {
	var points []geometry.Point
	for n := goal; n != nil; n = n.parent {
		points = append(points, g.point(n.i, n.j))
	}
	slices.Reverse(points)
	return Simplify(points)
}

// Simplify drops duplicate and collinear interior points.
func Simplify(points []geometry.Point) []geometry.Point {
	if len(points) < 3 {
		return points
	}
	out := []geometry.Point{points[0]}
	for i := 1; i < len(points); i++ {
		p := points[i]
		last := out[len(out)-1]
		if p.Distance(last) < geometry.Epsilon {
			continue
		}
		if len(out) >= 2 {
			prev := out[len(out)-2]
			if (sameY(prev, last) && sameY(last, p)) || (sameX(prev, last) && sameX(last, p)) {
				out[len(out)-1] = p
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// MiddleSplit builds a three-segment orthogonal path that turns halfway along
// the longer axis. It is the fallback when the search finds nothing.
func MiddleSplit(start, end geometry.Point) []geometry.Point {
	if sameX(start, end) || sameY(start, end) {
		return []geometry.Point{start, end}
	}
	dx := math.Abs(end.X - start.X)
	dy := math.Abs(end.Y - start.Y)
	if dx > dy {
		mid := (start.X + end.X) / 2
		return []geometry.Point{start, {X: mid, Y: start.Y}, {X: mid, Y: end.Y}, end}
	}
	mid := (start.Y + end.Y) / 2
	return []geometry.Point{start, {X: start.X, Y: mid}, {X: end.X, Y: mid}, end}
}

func sameX(a, b geometry.Point) bool { return math.Abs(a.X-b.X) < geometry.Epsilon }

func sameY(a, b geometry.Point) bool { return math.Abs(a.Y-b.Y) < geometry.Epsilon }
