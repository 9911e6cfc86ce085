package layout

import (
	"math"
	"slices"
	"sort"

	"hcanvas/diagram"
)

// Layered implements a left-to-right layered layout. Nodes are arranged in
// columns based on their distance from source nodes; connected components
// are laid out one after another. Containment is drawn as edges.
type Layered struct {
	opts              Options
	maxNodesPerColumn int // wide layers are split into several columns
}

// NewLayered creates the layered engine.
func NewLayered(opts Options) *Layered {
	return &Layered{opts: opts, maxNodesPerColumn: 10}
}

// Name implements Engine.
func (s *Layered) Name() string { return EngineLayered }

// Traits implements Engine.
func (s *Layered) Traits() Traits {
	return Traits{Deterministic: true}
}

// Apply implements Engine.
func (s *Layered) Apply(entities []Entity, relationships []Relationship) Result {
	g := Normalize(entities, relationships, s.opts.logger())
	if g.Len() == 0 {
		return Result{}
	}

	nodes := make([]*diagram.Node, g.Len())
	for i, e := range g.Entities {
		nodes[i] = s.opts.newNode(e)
	}

	// Build adjacency over entity indices.
	outgoing := make(map[int][]int)
	incoming := make(map[int][]int)
	for _, r := range slices.Concat(g.Relationships, g.Containment) {
		from, to := g.index[r.From], g.index[r.To]
		// Skip self-loops for layout purposes
		if from == to {
			continue
		}
		outgoing[from] = append(outgoing[from], to)
		incoming[to] = append(incoming[to], from)
	}

	xOffset := 0.0
	for _, component := range s.detectComponents(g.Len(), outgoing) {
		layers := s.assignLayers(component, outgoing, incoming)
		right := s.positionNodes(nodes, layers, xOffset)
		xOffset = right + s.opts.LevelSpacing/2
	}

	return Result{Nodes: nodes, Edges: g.edges(true), Camera: s.opts.fitCamera(nodes)}
}

// assignLayers breaks cycles by dropping back-edges and then layers the
// remaining DAG.
func (s *Layered) assignLayers(component []int, outgoing, incoming map[int][]int) [][]int {
	back := s.findBackEdges(component, outgoing)

	dagOut := make(map[int][]int)
	dagIn := make(map[int][]int)
	for _, from := range component {
		for _, to := range outgoing[from] {
			if back[backEdge{from, to}] {
				continue
			}
			dagOut[from] = append(dagOut[from], to)
			dagIn[to] = append(dagIn[to], from)
		}
	}
	return s.assignLayersDAG(component, dagOut, dagIn)
}

// backEdge represents an edge that creates a cycle
type backEdge struct {
	from, to int
}

// findBackEdges identifies edges that create cycles using DFS
func (s *Layered) findBackEdges(component []int, outgoing map[int][]int) map[backEdge]bool {
	back := make(map[backEdge]bool)
	visited := make(map[int]int) // 0=unvisited, 1=visiting, 2=visited

	var dfs func(id int)
	dfs = func(id int) {
		visited[id] = 1
		for _, next := range outgoing[id] {
			switch visited[next] {
			case 1:
				back[backEdge{id, next}] = true
			case 0:
				dfs(next)
			}
		}
		visited[id] = 2
	}
	for _, id := range component {
		if visited[id] == 0 {
			dfs(id)
		}
	}
	return back
}

// assignLayersDAG layers an acyclic component with Kahn's algorithm; each
// layer is sorted so the result does not depend on map order.
func (s *Layered) assignLayersDAG(component []int, outgoing, incoming map[int][]int) [][]int {
	inDegree := make(map[int]int, len(component))
	for _, id := range component {
		inDegree[id] = len(incoming[id])
	}

	var queue []int
	for _, id := range component {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Ints(queue)

	var layers [][]int
	for len(queue) > 0 {
		layers = append(layers, queue)
		var next []int
		for _, id := range queue {
			for _, succ := range outgoing[id] {
				inDegree[succ]--
				if inDegree[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		sort.Ints(next)
		queue = next
	}
	return layers
}

// detectComponents finds weakly connected components, each sorted by index.
func (s *Layered) detectComponents(n int, outgoing map[int][]int) [][]int {
	adjacent := make(map[int][]int)
	for from, succs := range outgoing {
		for _, to := range succs {
			adjacent[from] = append(adjacent[from], to)
			adjacent[to] = append(adjacent[to], from)
		}
	}

	visited := make([]bool, n)
	var components [][]int
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		var component []int
		stack := []int{start}
		visited[start] = true
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, id)
			for _, next := range adjacent[id] {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		sort.Ints(component)
		components = append(components, component)
	}
	return components
}

// positionNodes assigns coordinates starting at xOffset and returns the
// right edge of the placed component. Layers taller than maxNodesPerColumn
// are split into several columns, and every layer is centred vertically on
// the tallest one.
func (s *Layered) positionNodes(nodes []*diagram.Node, layers [][]int, xOffset float64) float64 {
	spacing := s.opts.SiblingSpacing
	layerGap := math.Max(s.opts.LevelSpacing-s.opts.LeafSize.Width, spacing)
	x := xOffset
	heights := make([]float64, len(layers))
	for li, layer := range layers {
		columns := (len(layer) + s.maxNodesPerColumn - 1) / s.maxNodesPerColumn
		perColumn := (len(layer) + columns - 1) / columns

		colX := x
		for start := 0; start < len(layer); start += perColumn {
			end := min(start+perColumn, len(layer))
			y, colWidth := 0.0, 0.0
			for _, id := range layer[start:end] {
				n := nodes[id]
				n.X, n.Y = colX, y
				y += n.Height + spacing
				colWidth = math.Max(colWidth, n.Width)
			}
			heights[li] = math.Max(heights[li], y-spacing)
			colX += colWidth + spacing
		}
		x = colX - spacing + layerGap
	}

	tallest := 0.0
	for _, h := range heights {
		tallest = math.Max(tallest, h)
	}
	right := xOffset
	for li, layer := range layers {
		offset := (tallest - heights[li]) / 2
		for _, id := range layer {
			nodes[id].Y += offset
			right = math.Max(right, nodes[id].X+nodes[id].Width)
		}
	}
	return right
}
