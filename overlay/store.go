package overlay

import (
	"slices"
	"sync"

	"hcanvas/diagram"
)

// Layout is the geometry a layout patch can override.
type Layout struct {
	X, Y, Width, Height float64
}

// NodeQuery describes the node being resolved.
type NodeQuery struct {
	NodeID      string // GUID
	DisplayID   string
	Type        string
	AncestorIDs []string // GUIDs, outermost first
	Metadata    map[string]any

	Base      diagram.Style
	Layout    Layout
	Visible   bool
	Collapsed bool
}

// QueryFor builds a NodeQuery from a node and its ancestor GUIDs.
func QueryFor(n *diagram.Node, ancestors []string) NodeQuery {
	return NodeQuery{
		NodeID:      n.GUID,
		DisplayID:   n.ID,
		Type:        n.Type,
		AncestorIDs: ancestors,
		Metadata:    n.Metadata,
		Base:        n.Style,
		Layout:      Layout{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height},
		Visible:     !n.Hidden,
		Collapsed:   n.Collapsed,
	}
}

// ResolvedNode is a node's effective presentation.
type ResolvedNode struct {
	Style     diagram.Style
	Layout    Layout
	Visible   bool
	Collapsed bool
	Authors   []string // authors of the applied patches, in cascade order
}

// EdgeQuery describes the edge being resolved.
type EdgeQuery struct {
	EdgeID  string
	Base    diagram.EdgeStyle
	Visible bool
}

// ResolvedEdge is an edge's effective presentation.
type ResolvedEdge struct {
	Style   diagram.EdgeStyle
	Visible bool
	Authors []string
}

// Store holds the current patches. It is safe for concurrent use; resolution
// only reads.
type Store struct {
	mu      sync.RWMutex
	global  *Patch
	subtree map[string]Patch
	node    map[string]Patch
	edge    map[string]Patch
	rules   []Rule
	version uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		subtree: make(map[string]Patch),
		node:    make(map[string]Patch),
		edge:    make(map[string]Patch),
	}
}

func (s *Store) slot(p Patch) (map[string]Patch, bool) {
	switch p.Scope {
	case ScopeSubtree:
		return s.subtree, true
	case ScopeNode:
		return s.node, true
	case ScopeEdge:
		return s.edge, true
	}
	return nil, false
}

// Put replaces the patch for p's scope and target.
func (s *Store) Put(p Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p = p.clone()
	if m, ok := s.slot(p); ok {
		m[p.Target] = p
	} else {
		s.global = &p
	}
	s.version++
	return nil
}

// Apply merges p into the patch already stored for its scope and target.
func (s *Store) Apply(p Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.slot(p); ok {
		prev, exists := m[p.Target]
		if !exists {
			prev = Patch{Scope: p.Scope, Target: p.Target}
		}
		m[p.Target] = prev.Merge(p)
	} else {
		prev := Patch{Scope: ScopeGlobal}
		if s.global != nil {
			prev = *s.global
		}
		merged := prev.Merge(p)
		s.global = &merged
	}
	s.version++
	return nil
}

// Get returns the stored patch for scope and target.
func (s *Store) Get(scope Scope, target string) (Patch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.slot(Patch{Scope: scope}); ok {
		p, found := m[target]
		return p.clone(), found
	}
	if scope == ScopeGlobal && s.global != nil {
		return s.global.clone(), true
	}
	return Patch{}, false
}

// Remove deletes the patch for scope and target and reports whether one existed.
func (s *Store) Remove(scope Scope, target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.slot(Patch{Scope: scope}); ok {
		if _, found := m[target]; !found {
			return false
		}
		delete(m, target)
		s.version++
		return true
	}
	if scope == ScopeGlobal && s.global != nil {
		s.global = nil
		s.version++
		return true
	}
	return false
}

// AddRule appends a compiled rule. Rules apply in insertion order.
func (s *Store) AddRule(r Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Patch = r.Patch.clone()
	s.rules = append(s.rules, r)
	s.version++
}

// Rules returns the registered rules.
func (s *Store) Rules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.rules)
	for i := range out {
		out[i].Patch = out[i].Patch.clone()
	}
	return out
}

// Clear drops every patch and rule.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = nil
	clear(s.subtree)
	clear(s.node)
	clear(s.edge)
	s.rules = nil
	s.version++
}

// Version increases on every write, so callers can cache resolutions.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Patches returns every stored patch in cascade order: global, subtree,
// node, edge, with targets sorted inside each scope.
func (s *Store) Patches() []Patch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Patch
	if s.global != nil {
		out = append(out, s.global.clone())
	}
	for _, m := range []map[string]Patch{s.subtree, s.node, s.edge} {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			out = append(out, m[k].clone())
		}
	}
	return out
}

// ResolveNode computes a node's effective presentation. The cascade is the
// base values, then the global patch, then matching rules, then the subtree
// patches of the node's ancestors and of the node itself from outermost to
// innermost, then the node patch. A subtree patch with StopCascade ends the
// subtree chain; the node patch still applies.
func (s *Store) ResolveNode(q NodeQuery) ResolvedNode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := ResolvedNode{Style: q.Base, Layout: q.Layout, Visible: q.Visible, Collapsed: q.Collapsed}
	apply := func(p Patch) {
		p.Style.apply(&r.Style)
		p.Layout.apply(&r.Layout)
		if p.Visible != nil {
			r.Visible = *p.Visible
		}
		if p.Collapsed != nil {
			r.Collapsed = *p.Collapsed
		}
		if p.Author != "" {
			r.Authors = append(r.Authors, p.Author)
		}
	}

	if s.global != nil {
		apply(*s.global)
	}
	for _, rule := range s.rules {
		if rule.Matches(q) {
			apply(rule.Patch)
		}
	}
	chain := append(slices.Clone(q.AncestorIDs), q.NodeID)
	for _, id := range chain {
		p, ok := s.subtree[id]
		if !ok {
			continue
		}
		apply(p)
		if p.StopCascade {
			break
		}
	}
	if p, ok := s.node[q.NodeID]; ok {
		apply(p)
	}
	return r
}

// ResolveEdge computes an edge's effective presentation: base, global patch,
// then the edge's own patch.
func (s *Store) ResolveEdge(q EdgeQuery) ResolvedEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := ResolvedEdge{Style: q.Base, Visible: q.Visible}
	apply := func(p Patch) {
		p.EdgeStyle.apply(&r.Style)
		if p.Visible != nil {
			r.Visible = *p.Visible
		}
		if p.Author != "" {
			r.Authors = append(r.Authors, p.Author)
		}
	}
	if s.global != nil {
		apply(*s.global)
	}
	if p, ok := s.edge[q.EdgeID]; ok {
		apply(p)
	}
	return r
}

// Styled returns a copy of the forest and edges with every resolution
// applied: styles, layout overrides, visibility and collapse flags.
func (s *Store) Styled(roots []*diagram.Node, edges []*diagram.Edge) ([]*diagram.Node, []*diagram.Edge) {
	nodes := diagram.CloneNodes(roots)
	var stack []string
	diagram.Walk(nodes, func(n, _ *diagram.Node, depth int) bool {
		stack = stack[:depth]
		r := s.ResolveNode(QueryFor(n, slices.Clone(stack)))
		n.Style = r.Style
		n.X, n.Y, n.Width, n.Height = r.Layout.X, r.Layout.Y, r.Layout.Width, r.Layout.Height
		n.Hidden = !r.Visible
		n.Collapsed = r.Collapsed && n.HasChildren()
		stack = append(stack, n.GUID)
		return true
	})

	out := make([]*diagram.Edge, 0, len(edges))
	for _, e := range edges {
		r := s.ResolveEdge(EdgeQuery{EdgeID: e.ID, Base: e.Style, Visible: true})
		if !r.Visible {
			continue
		}
		c := e.Clone()
		c.Style = r.Style
		out = append(out, c)
	}
	return nodes, out
}
