package config

import (
	"fmt"
	"math"
)

// Presets are the built-in topologies, keyed by name. Generators rebuild the
// same network on every call, so presets are safe to hand to concurrent
// runs.
var Presets = map[string]func() *TopologyConfig{
	"reference": ReferenceTopology,
	"small":     SmallTopology,
}

// PresetNames lists the available presets in a stable order.
func PresetNames() []string {
	return []string{"reference", "small"}
}

// ReferenceTopology builds the 30-node/60-edge benchmark grid: a ring of 30
// buses with 30 cross-ties at stride 7 (coprime with 30, so no tie doubles a
// ring segment). All attributes are fixed arithmetic in the bus index; two
// calls always produce byte-identical configs.
func ReferenceTopology() *TopologyConfig {
	const n = 30
	tc := &TopologyConfig{}

	for i := 0; i < n; i++ {
		nc := NodeConfig{
			ID:     fmt.Sprintf("n%02d", i+1),
			Lat:    40 + 2*math.Sin(2*math.Pi*float64(i)/n),
			Lon:    -100 + 2*math.Cos(2*math.Pi*float64(i)/n),
			Weight: float64(1 + i%3),
		}
		switch i % 15 {
		case 0, 4, 8, 12:
			nc.Type = "generator"
			nc.CapacityMW = 200 + 30*float64(i%5)
		case 2, 6:
			nc.Type = "storage"
			nc.CapacityMW = 50
		case 10, 13:
			nc.Type = "substation"
			nc.CapacityMW = 0
		default:
			nc.Type = "load"
			nc.CapacityMW = 90 + 12*float64(i%7)
		}
		tc.Nodes = append(tc.Nodes, nc)
	}

	for i := 0; i < n; i++ {
		tc.Edges = append(tc.Edges, EdgeConfig{
			ID:         fmt.Sprintf("e%02d", i+1),
			Source:     fmt.Sprintf("n%02d", i+1),
			Target:     fmt.Sprintf("n%02d", (i+1)%n+1),
			CapacityMW: 120 + 15*float64(i%4),
			Reactance:  0.05 + 0.01*float64(i%7),
			LengthKM:   40 + 5*float64(i%9),
		})
	}
	for i := 0; i < n; i++ {
		tc.Edges = append(tc.Edges, EdgeConfig{
			ID:         fmt.Sprintf("e%02d", n+i+1),
			Source:     fmt.Sprintf("n%02d", i+1),
			Target:     fmt.Sprintf("n%02d", (i+7)%n+1),
			CapacityMW: 90 + 10*float64(i%5),
			Reactance:  0.07 + 0.01*float64(i%5),
			LengthKM:   90 + 5*float64(i%6),
		})
	}

	return tc
}

// SmallTopology is an 8-bus grid for quick experiments and tests.
func SmallTopology() *TopologyConfig {
	return &TopologyConfig{
		Nodes: []NodeConfig{
			{ID: "n1", Type: "generator", CapacityMW: 300, Weight: 2},
			{ID: "n2", Type: "load", CapacityMW: 120, Weight: 1},
			{ID: "n3", Type: "load", CapacityMW: 100, Weight: 1},
			{ID: "n4", Type: "generator", CapacityMW: 220, Weight: 2},
			{ID: "n5", Type: "load", CapacityMW: 140, Weight: 3},
			{ID: "n6", Type: "storage", CapacityMW: 60, Weight: 1},
			{ID: "n7", Type: "substation", CapacityMW: 0, Weight: 1},
			{ID: "n8", Type: "load", CapacityMW: 90, Weight: 1},
		},
		Edges: []EdgeConfig{
			{ID: "e01", Source: "n1", Target: "n2", CapacityMW: 150, Reactance: 0.06, LengthKM: 45},
			{ID: "e02", Source: "n2", Target: "n3", CapacityMW: 120, Reactance: 0.08, LengthKM: 60},
			{ID: "e03", Source: "n3", Target: "n4", CapacityMW: 140, Reactance: 0.07, LengthKM: 50},
			{ID: "e04", Source: "n4", Target: "n5", CapacityMW: 150, Reactance: 0.06, LengthKM: 45},
			{ID: "e05", Source: "n5", Target: "n6", CapacityMW: 100, Reactance: 0.09, LengthKM: 70},
			{ID: "e06", Source: "n6", Target: "n7", CapacityMW: 100, Reactance: 0.09, LengthKM: 70},
			{ID: "e07", Source: "n7", Target: "n8", CapacityMW: 110, Reactance: 0.08, LengthKM: 55},
			{ID: "e08", Source: "n8", Target: "n1", CapacityMW: 130, Reactance: 0.07, LengthKM: 50},
			{ID: "e09", Source: "n1", Target: "n5", CapacityMW: 110, Reactance: 0.1, LengthKM: 95},
			{ID: "e10", Source: "n2", Target: "n7", CapacityMW: 90, Reactance: 0.11, LengthKM: 100},
		},
	}
}
