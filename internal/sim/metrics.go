package sim

import (
	"github.com/gridshield/gridsim/internal/grid"
	"github.com/gridshield/gridsim/internal/injection"
)

// Utilization thresholds for operating-state grading. CriticalUtilization
// also feeds the blackout-probability count.
const (
	WarningUtilization  = 0.75
	CriticalUtilization = 0.9
)

// computeMetrics derives the aggregate figures for a snapshot. Load and
// generation totals come from the injection vector itself, so they stay
// consistent with the per-node formulas for the seed. Blackout probability
// is the fraction of edges that are tripped or loaded past the critical
// threshold.
func computeMetrics(g *grid.Graph, injections, utilizations map[string]float64, tripped map[string]bool) Metrics {
	generation, load := injection.Totals(injections)

	genCapacity := 0.0
	for _, n := range g.Nodes() {
		if n.Type == grid.NodeGenerator {
			genCapacity += n.CapacityMW
		}
	}
	reserve := 100.0
	if load > 0 {
		reserve = (genCapacity - load) / load * 100
	}

	atRisk := 0
	total := g.EdgeCount()
	for _, id := range g.EdgeIDs() {
		if tripped[id] || utilizations[id] > CriticalUtilization {
			atRisk++
		}
	}
	blackout := 0.0
	if total > 0 {
		blackout = float64(atRisk) / float64(total)
	}

	return Metrics{
		TotalLoadMW:         load,
		TotalGenerationMW:   generation,
		ReserveMarginPct:    reserve,
		BlackoutProbability: blackout,
	}
}

// gradeEdges maps utilizations onto operating states for the non-tripped
// edges so downstream consumers can read line health straight off the graph.
func gradeEdges(g *grid.Graph, utilizations map[string]float64) *grid.Graph {
	states := make(map[string]grid.EdgeState)
	for _, e := range g.Edges() {
		if e.State == grid.EdgeTripped {
			continue
		}
		var want grid.EdgeState
		switch u := utilizations[e.ID]; {
		case u > CriticalUtilization:
			want = grid.EdgeCritical
		case u > WarningUtilization:
			want = grid.EdgeWarning
		default:
			want = grid.EdgeNormal
		}
		if want != e.State {
			states[e.ID] = want
		}
	}
	return g.WithEdgeStates(states)
}
