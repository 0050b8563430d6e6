package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Preset != "reference" {
		t.Errorf("expected reference preset, got %q", cfg.Preset)
	}
	if cfg.Seed != DefaultSeed || cfg.Steps != DefaultSteps {
		t.Errorf("unexpected defaults: seed=%d steps=%d", cfg.Seed, cfg.Steps)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	content := "seed: 99\npreset: small\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Seed != 99 {
		t.Errorf("expected seed 99, got %d", cfg.Seed)
	}
	if cfg.Preset != "small" {
		t.Errorf("expected preset small, got %q", cfg.Preset)
	}
	if cfg.Steps != DefaultSteps {
		t.Errorf("unset steps should default to %d, got %d", DefaultSteps, cfg.Steps)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.Steps = 25
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Seed != 7 || loaded.Steps != 25 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestLoadTopologyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topo.yaml")
	content := `nodes:
  - id: a
    type: generator
    capacity_mw: 200
  - id: b
    type: load
    capacity_mw: 120
edges:
  - id: e1
    source: a
    target: b
    capacity_mw: 150
    reactance: 0.08
    length_km: 40
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	tc, err := LoadTopology(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(tc.Nodes) != 2 || len(tc.Edges) != 1 {
		t.Fatalf("expected 2 nodes / 1 edge, got %d / %d", len(tc.Nodes), len(tc.Edges))
	}

	g, err := tc.BuildGraph()
	if err != nil {
		t.Fatalf("graph build failed: %v", err)
	}
	if g.NodeCount() != 2 || g.EdgeCount() != 1 {
		t.Errorf("graph counts wrong: %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
}

func TestReferenceTopologyShape(t *testing.T) {
	tc := ReferenceTopology()

	if len(tc.Nodes) != 30 {
		t.Fatalf("expected 30 nodes, got %d", len(tc.Nodes))
	}
	if len(tc.Edges) != 60 {
		t.Fatalf("expected 60 edges, got %d", len(tc.Edges))
	}

	if violations := tc.Violations(); len(violations) != 0 {
		t.Fatalf("reference topology has violations: %v", violations)
	}

	counts := map[string]int{}
	for _, n := range tc.Nodes {
		counts[n.Type]++
	}
	if counts["generator"] == 0 || counts["load"] == 0 {
		t.Errorf("expected generators and loads, got %v", counts)
	}

	g, err := tc.BuildGraph()
	if err != nil {
		t.Fatalf("graph build failed: %v", err)
	}
	// Ring plus stride-7 ties: every bus touches exactly four lines.
	for _, id := range g.NodeIDs() {
		if got := len(g.IncidentEdges(id)); got != 4 {
			t.Errorf("node %s: expected 4 incident edges, got %d", id, got)
		}
	}
}

func TestReferenceTopologyDeterministic(t *testing.T) {
	a := ReferenceTopology()
	b := ReferenceTopology()

	for i := range a.Nodes {
		if a.Nodes[i] != b.Nodes[i] {
			t.Fatalf("node %d differs across calls", i)
		}
	}
	for i := range a.Edges {
		if a.Edges[i] != b.Edges[i] {
			t.Fatalf("edge %d differs across calls", i)
		}
	}
}

func TestResolveTopology(t *testing.T) {
	cfg := DefaultConfig()
	tc, err := cfg.ResolveTopology()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(tc.Nodes) != 30 {
		t.Errorf("expected reference topology, got %d nodes", len(tc.Nodes))
	}

	cfg.Preset = "no-such-preset"
	if _, err := cfg.ResolveTopology(); err == nil {
		t.Error("expected error for unknown preset")
	}
}
