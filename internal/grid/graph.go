package grid

import (
	"fmt"
	"sort"

	"github.com/tidwall/btree"
)

// Graph is an immutable snapshot of the network. Nodes and edges live in
// id-ordered maps, so every iteration over them is deterministic without
// callers sorting keys. Adjacency and incidence cover only active
// (non-tripped) edges and are rebuilt whenever the active set changes, so
// tripped lines are invisible to traversal.
type Graph struct {
	nodes *btree.Map[string, Node]
	edges *btree.Map[string, Edge]

	adjacency map[string][]string
	incidence map[string][]string
}

// New builds a graph from node and edge collections. Structural violations
// (unknown endpoints, self-loops, non-positive edge capacity or reactance,
// negative node capacity, duplicate ids) are fatal here; use Validate for a
// non-fatal enumeration.
func New(nodes []Node, edges []Edge) (*Graph, error) {
	if violations := Validate(nodes, edges); len(violations) > 0 {
		return nil, fmt.Errorf("invalid topology: %s (%d violations total)", violations[0], len(violations))
	}

	g := &Graph{
		nodes: new(btree.Map[string, Node]),
		edges: new(btree.Map[string, Edge]),
	}
	for _, n := range nodes {
		g.nodes.Set(n.ID, n)
	}
	for _, e := range edges {
		if e.State == "" {
			e.State = EdgeNormal
		}
		g.edges.Set(e.ID, e)
	}
	g.rebuild()
	return g, nil
}

// Validate enumerates every structural violation in the given collections.
// It never fails; an empty result means the topology is sound.
func Validate(nodes []Node, edges []Edge) []string {
	var violations []string

	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			violations = append(violations, "node with empty id")
			continue
		}
		if ids[n.ID] {
			violations = append(violations, fmt.Sprintf("duplicate node id %q", n.ID))
		}
		ids[n.ID] = true
		if n.CapacityMW < 0 {
			violations = append(violations, fmt.Sprintf("node %q: negative capacity %.3f", n.ID, n.CapacityMW))
		}
	}

	edgeIDs := make(map[string]bool, len(edges))
	for _, e := range edges {
		if e.ID == "" {
			violations = append(violations, "edge with empty id")
			continue
		}
		if edgeIDs[e.ID] {
			violations = append(violations, fmt.Sprintf("duplicate edge id %q", e.ID))
		}
		edgeIDs[e.ID] = true
		if !ids[e.Source] {
			violations = append(violations, fmt.Sprintf("edge %q: unknown source node %q", e.ID, e.Source))
		}
		if !ids[e.Target] {
			violations = append(violations, fmt.Sprintf("edge %q: unknown target node %q", e.ID, e.Target))
		}
		if e.Source == e.Target {
			violations = append(violations, fmt.Sprintf("edge %q: self-loop on node %q", e.ID, e.Source))
		}
		if e.CapacityMW <= 0 {
			violations = append(violations, fmt.Sprintf("edge %q: capacity must be positive, got %.3f", e.ID, e.CapacityMW))
		}
		if e.Reactance <= 0 {
			violations = append(violations, fmt.Sprintf("edge %q: reactance must be positive, got %.6f", e.ID, e.Reactance))
		}
	}

	return violations
}

// Validate re-checks the graph's own collections.
func (g *Graph) Validate() []string {
	return Validate(g.Nodes(), g.Edges())
}

func (g *Graph) rebuild() {
	adj := make(map[string][]string, g.nodes.Len())
	inc := make(map[string][]string, g.nodes.Len())

	g.edges.Scan(func(id string, e Edge) bool {
		if !e.Active() {
			return true
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
		inc[e.Source] = append(inc[e.Source], id)
		inc[e.Target] = append(inc[e.Target], id)
		return true
	})

	for _, ids := range adj {
		sort.Strings(ids)
	}
	g.adjacency = adj
	g.incidence = inc
}

func (g *Graph) NodeCount() int { return g.nodes.Len() }
func (g *Graph) EdgeCount() int { return g.edges.Len() }

func (g *Graph) Node(id string) (Node, bool) { return g.nodes.Get(id) }
func (g *Graph) Edge(id string) (Edge, bool) { return g.edges.Get(id) }

// Nodes returns all nodes sorted by id.
func (g *Graph) Nodes() []Node { return g.nodes.Values() }

// NodeIDs returns all node ids in sorted order.
func (g *Graph) NodeIDs() []string { return g.nodes.Keys() }

// Edges returns all edges (active and tripped) sorted by id.
func (g *Graph) Edges() []Edge { return g.edges.Values() }

// EdgeIDs returns all edge ids in sorted order.
func (g *Graph) EdgeIDs() []string { return g.edges.Keys() }

// ActiveEdges returns the non-tripped edges sorted by id.
func (g *Graph) ActiveEdges() []Edge {
	active := make([]Edge, 0, g.edges.Len())
	g.edges.Scan(func(_ string, e Edge) bool {
		if e.Active() {
			active = append(active, e)
		}
		return true
	})
	return active
}

// Neighbors returns the ids of nodes reachable over active edges. Nodes
// without links yield an empty slice, not an error.
func (g *Graph) Neighbors(nodeID string) []string {
	return g.adjacency[nodeID]
}

// IncidentEdges returns the ids of active edges touching the node, in edge-id
// order.
func (g *Graph) IncidentEdges(nodeID string) []string {
	return g.incidence[nodeID]
}

// EdgeBetween finds an edge connecting a and b in either direction,
// regardless of operating state. With parallel edges the smallest edge id
// wins.
func (g *Graph) EdgeBetween(a, b string) (Edge, bool) {
	var found Edge
	ok := false
	g.edges.Scan(func(_ string, e Edge) bool {
		if (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a) {
			found, ok = e, true
			return false
		}
		return true
	})
	return found, ok
}

// TripEdges returns a new snapshot with the given edges marked tripped and
// adjacency/incidence rebuilt. Unknown ids are ignored. The receiver is left
// untouched.
func (g *Graph) TripEdges(ids ...string) *Graph {
	next := &Graph{nodes: g.nodes, edges: g.edges.Copy()}
	for _, id := range ids {
		if e, ok := next.edges.Get(id); ok && e.State != EdgeTripped {
			e.State = EdgeTripped
			next.edges.Set(id, e)
		}
	}
	next.rebuild()
	return next
}

// WithEdgeCapacity returns a new snapshot with one edge's capacity replaced.
func (g *Graph) WithEdgeCapacity(id string, capacityMW float64) (*Graph, error) {
	e, ok := g.edges.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown edge %q", id)
	}
	if capacityMW <= 0 {
		return nil, fmt.Errorf("edge %q: capacity must be positive, got %.3f", id, capacityMW)
	}
	next := &Graph{nodes: g.nodes, edges: g.edges.Copy()}
	e.CapacityMW = capacityMW
	next.edges.Set(id, e)
	next.rebuild()
	return next, nil
}

// WithEdgeStates returns a new snapshot with operating states overridden.
// Tripping through here works too; the active set is rebuilt either way.
func (g *Graph) WithEdgeStates(states map[string]EdgeState) *Graph {
	if len(states) == 0 {
		return g
	}
	next := &Graph{nodes: g.nodes, edges: g.edges.Copy()}
	for id, st := range states {
		if e, ok := next.edges.Get(id); ok && e.State != st {
			e.State = st
			next.edges.Set(id, e)
		}
	}
	next.rebuild()
	return next
}
