package grid

import (
	"strings"
	"testing"
)

func testNodes() []Node {
	return []Node{
		{ID: "a", Type: NodeGenerator, CapacityMW: 200},
		{ID: "b", Type: NodeLoad, CapacityMW: 100},
		{ID: "c", Type: NodeLoad, CapacityMW: 80},
		{ID: "d", Type: NodeStorage, CapacityMW: 50},
	}
}

func testEdges() []Edge {
	return []Edge{
		{ID: "e1", Source: "a", Target: "b", CapacityMW: 120, Reactance: 0.1},
		{ID: "e2", Source: "b", Target: "c", CapacityMW: 90, Reactance: 0.08},
		{ID: "e3", Source: "c", Target: "a", CapacityMW: 100, Reactance: 0.12},
	}
}

func TestNewRejectsStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		edges []Edge
	}{
		{
			"unknown endpoint",
			testNodes(),
			[]Edge{{ID: "e1", Source: "a", Target: "zz", CapacityMW: 100, Reactance: 0.1}},
		},
		{
			"self loop",
			testNodes(),
			[]Edge{{ID: "e1", Source: "a", Target: "a", CapacityMW: 100, Reactance: 0.1}},
		},
		{
			"zero capacity",
			testNodes(),
			[]Edge{{ID: "e1", Source: "a", Target: "b", CapacityMW: 0, Reactance: 0.1}},
		},
		{
			"negative reactance",
			testNodes(),
			[]Edge{{ID: "e1", Source: "a", Target: "b", CapacityMW: 100, Reactance: -0.1}},
		},
		{
			"negative node capacity",
			[]Node{{ID: "a", Type: NodeLoad, CapacityMW: -5}},
			nil,
		},
		{
			"duplicate edge id",
			testNodes(),
			[]Edge{
				{ID: "e1", Source: "a", Target: "b", CapacityMW: 100, Reactance: 0.1},
				{ID: "e1", Source: "b", Target: "c", CapacityMW: 100, Reactance: 0.1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.nodes, tt.edges); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestValidateEnumeratesAllViolations(t *testing.T) {
	nodes := []Node{{ID: "a", Type: NodeLoad, CapacityMW: -1}}
	edges := []Edge{{ID: "e1", Source: "a", Target: "a", CapacityMW: 0, Reactance: 0}}

	violations := Validate(nodes, edges)
	if len(violations) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(violations), violations)
	}
	for _, want := range []string{"negative capacity", "self-loop", "capacity must be positive", "reactance must be positive"} {
		found := false
		for _, v := range violations {
			if strings.Contains(v, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing violation containing %q in %v", want, violations)
		}
	}
}

func TestAdjacencyAndIncidence(t *testing.T) {
	g, err := New(testNodes(), testEdges())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	neighbors := g.Neighbors("a")
	if len(neighbors) != 2 || neighbors[0] != "b" || neighbors[1] != "c" {
		t.Errorf("expected neighbors [b c], got %v", neighbors)
	}

	incident := g.IncidentEdges("a")
	if len(incident) != 2 || incident[0] != "e1" || incident[1] != "e3" {
		t.Errorf("expected incident [e1 e3], got %v", incident)
	}

	// Isolated and unknown nodes return empty, not an error.
	if got := g.Neighbors("d"); len(got) != 0 {
		t.Errorf("expected no neighbors for isolated node, got %v", got)
	}
	if got := g.IncidentEdges("zz"); len(got) != 0 {
		t.Errorf("expected no incident edges for unknown node, got %v", got)
	}
}

func TestEdgeBetweenBothDirections(t *testing.T) {
	g, err := New(testNodes(), testEdges())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	forward, ok := g.EdgeBetween("a", "b")
	if !ok || forward.ID != "e1" {
		t.Errorf("expected e1 for a->b, got %v ok=%v", forward.ID, ok)
	}
	reverse, ok := g.EdgeBetween("b", "a")
	if !ok || reverse.ID != "e1" {
		t.Errorf("expected e1 for b->a, got %v ok=%v", reverse.ID, ok)
	}
	if _, ok := g.EdgeBetween("a", "d"); ok {
		t.Error("expected no edge between a and d")
	}
}

func TestTripEdgesProducesNewSnapshot(t *testing.T) {
	g, err := New(testNodes(), testEdges())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	tripped := g.TripEdges("e1", "e3")

	// Original snapshot untouched.
	if e, _ := g.Edge("e1"); e.State != EdgeNormal {
		t.Errorf("original e1 state changed to %s", e.State)
	}
	if len(g.IncidentEdges("a")) != 2 {
		t.Error("original incidence changed")
	}

	// New snapshot reflects the trips.
	if e, _ := tripped.Edge("e1"); e.State != EdgeTripped {
		t.Errorf("expected e1 tripped, got %s", e.State)
	}
	if got := tripped.IncidentEdges("a"); len(got) != 0 {
		t.Errorf("expected a isolated after trips, got %v", got)
	}
	if got := tripped.Neighbors("b"); len(got) != 1 || got[0] != "c" {
		t.Errorf("expected neighbors [c] for b, got %v", got)
	}
	if got := len(tripped.ActiveEdges()); got != 1 {
		t.Errorf("expected 1 active edge, got %d", got)
	}
	// Tripped edges stay in the edge set for bookkeeping.
	if tripped.EdgeCount() != 3 {
		t.Errorf("expected 3 edges total, got %d", tripped.EdgeCount())
	}
}

func TestWithEdgeCapacity(t *testing.T) {
	g, err := New(testNodes(), testEdges())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	modified, err := g.WithEdgeCapacity("e2", 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e, _ := modified.Edge("e2"); e.CapacityMW != 9 {
		t.Errorf("expected capacity 9, got %.1f", e.CapacityMW)
	}
	if e, _ := g.Edge("e2"); e.CapacityMW != 90 {
		t.Errorf("original capacity changed to %.1f", e.CapacityMW)
	}

	if _, err := g.WithEdgeCapacity("nope", 10); err == nil {
		t.Error("expected error for unknown edge")
	}
	if _, err := g.WithEdgeCapacity("e2", 0); err == nil {
		t.Error("expected error for non-positive capacity")
	}
}

func TestOrderedIteration(t *testing.T) {
	g, err := New(testNodes(), testEdges())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	ids := g.NodeIDs()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("node ids not sorted: %v", ids)
		}
	}
	eids := g.EdgeIDs()
	for i := 1; i < len(eids); i++ {
		if eids[i-1] >= eids[i] {
			t.Fatalf("edge ids not sorted: %v", eids)
		}
	}
}

func TestEdgeBetweenFindsTrippedEdges(t *testing.T) {
	g, err := New(testNodes(), testEdges())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	tripped := g.TripEdges("e1")
	e, ok := tripped.EdgeBetween("a", "b")
	if !ok {
		t.Fatal("expected to find the tripped edge between a and b")
	}
	if e.ID != "e1" || e.State != EdgeTripped {
		t.Errorf("expected tripped e1, got %s in state %s", e.ID, e.State)
	}
}
