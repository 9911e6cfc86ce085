package layout

import (
	"log/slog"
	"maps"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"hcanvas/diagram"
)

// Graph is normalised layout input: one canonical ID per entity, a GUID on
// every entity, containment as a forest, and only relationships whose
// endpoints exist.
type Graph struct {
	Entities      []Entity
	Relationships []Relationship // non-containment links, endpoints are entity IDs
	Containment   []Relationship // accepted parent -> child links

	index    map[string]int
	parent   map[string]string
	children map[string][]string
	roots    []string
}

// Normalize validates and canonicalises layout input. It never fails: bad
// records are dropped and logged.
//
// Relationship endpoints may name an entity by ID or by GUID. Containment
// comes from Entity.Parent and from CONTAINS relationships; a link that would
// give a node a second parent or close a cycle is rejected.
func Normalize(entities []Entity, relationships []Relationship, log *slog.Logger) *Graph {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("component", "ingest")

	g := &Graph{
		index:    make(map[string]int, len(entities)),
		parent:   make(map[string]string),
		children: make(map[string][]string),
	}
	byGUID := make(map[string]string, len(entities))

	for _, e := range entities {
		if e.GUID == "" {
			e.GUID = diagram.NewGUID()
		}
		if e.ID == "" {
			e.ID = e.GUID
		}
		if _, dup := g.index[e.ID]; dup {
			log.Warn("duplicate entity dropped", "id", e.ID)
			continue
		}
		if _, dup := byGUID[e.GUID]; dup {
			log.Warn("duplicate guid dropped", "id", e.ID, "guid", e.GUID)
			continue
		}
		e.Properties = maps.Clone(e.Properties)
		g.index[e.ID] = len(g.Entities)
		byGUID[e.GUID] = e.ID
		g.Entities = append(g.Entities, e)
	}

	resolve := func(ref string) string {
		if _, ok := g.index[ref]; ok {
			return ref
		}
		return byGUID[ref]
	}

	// Containment must stay a forest. The directed graph mirrors accepted
	// parent -> child links so a candidate that closes a cycle is caught
	// before it is added.
	tree := simple.NewDirectedGraph()
	for i := range g.Entities {
		tree.AddNode(simple.Node(i))
	}
	contain := func(r Relationship) {
		parent, child := resolve(r.From), resolve(r.To)
		switch {
		case parent == "" || child == "":
			log.Debug("orphan containment dropped", "from", r.From, "to", r.To)
			return
		case parent == child:
			log.Warn("self containment dropped", "id", child)
			return
		}
		if prev, ok := g.parent[child]; ok {
			if prev != parent {
				log.Warn("second parent rejected", "id", child, "parent", prev, "rejected", parent)
			}
			return
		}
		p, c := simple.Node(g.index[parent]), simple.Node(g.index[child])
		if topo.PathExistsIn(tree, c, p) {
			log.Warn("containment cycle rejected", "parent", parent, "child", child)
			return
		}
		tree.SetEdge(tree.NewEdge(p, c))
		g.parent[child] = parent
		r.From, r.To = parent, child
		g.Containment = append(g.Containment, r)
	}

	for _, e := range g.Entities {
		if e.Parent != "" {
			contain(Relationship{Type: RelContains, From: e.Parent, To: e.ID})
		}
	}
	for _, r := range relationships {
		if r.Type == RelContains {
			contain(r)
			continue
		}
		from, to := resolve(r.From), resolve(r.To)
		if from == "" || to == "" {
			log.Debug("orphan relationship dropped", "id", r.ID, "from", r.From, "to", r.To)
			continue
		}
		r.From, r.To = from, to
		r.Properties = maps.Clone(r.Properties)
		g.Relationships = append(g.Relationships, r)
	}

	for _, e := range g.Entities {
		if p, ok := g.parent[e.ID]; ok {
			g.children[p] = append(g.children[p], e.ID)
		} else {
			g.roots = append(g.roots, e.ID)
		}
	}
	return g
}

// Len returns the number of entities.
func (g *Graph) Len() int { return len(g.Entities) }

// Entity returns the entity with the given ID.
func (g *Graph) Entity(id string) (Entity, bool) {
	i, ok := g.index[id]
	if !ok {
		return Entity{}, false
	}
	return g.Entities[i], true
}

// GUID returns the GUID of the entity with the given ID.
func (g *Graph) GUID(id string) string {
	if i, ok := g.index[id]; ok {
		return g.Entities[i].GUID
	}
	return ""
}

// Roots returns the IDs of uncontained entities in input order.
func (g *Graph) Roots() []string { return g.roots }

// Children returns the IDs of the entities directly contained by id.
func (g *Graph) Children(id string) []string { return g.children[id] }

// Parent returns the containing entity's ID.
func (g *Graph) Parent(id string) (string, bool) {
	p, ok := g.parent[id]
	return p, ok
}
