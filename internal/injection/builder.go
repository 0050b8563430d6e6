// Package injection derives balanced power-injection vectors from node
// attributes and a seed. The same sorted-by-id ordering and factor formulas
// back the aggregate load/generation totals, so metrics stay consistent with
// the injections for a given seed.
package injection

import (
	"math"

	"github.com/gridshield/gridsim/internal/grid"
)

// Balance is the tolerance on the system-wide injection sum after
// redistribution.
const Balance = 1e-9

// Build computes the MW injection for every node: positive for generation,
// negative for demand, zero for storage and substations. Deterministic in
// (graph, seed).
//
// Generators at sorted index i produce capacity scaled by a seeded factor in
// [0.60, 0.95]. Loads draw capacity scaled by a factor in [0.35, 0.55]; the
// diversity-adjusted band keeps simultaneous system demand well under the
// summed generator ceiling. The residual imbalance is then redistributed
// across generators by capacity share so the sum lands within Balance of
// zero.
func Build(g *grid.Graph, seed int64) map[string]float64 {
	nodes := g.Nodes() // id-sorted
	injections := make(map[string]float64, len(nodes))

	for i, n := range nodes {
		switch n.Type {
		case grid.NodeGenerator:
			injections[n.ID] = n.CapacityMW * generatorFactor(seed, i)
		case grid.NodeLoad:
			injections[n.ID] = -n.CapacityMW * loadFactor(seed, i)
		default:
			injections[n.ID] = 0
		}
	}

	imbalance := 0.0
	totalGenCap := 0.0
	for _, n := range nodes {
		imbalance += injections[n.ID]
		if n.Type == grid.NodeGenerator {
			totalGenCap += n.CapacityMW
		}
	}
	if totalGenCap == 0 {
		return injections
	}

	for _, n := range nodes {
		if n.Type == grid.NodeGenerator {
			injections[n.ID] -= imbalance * n.CapacityMW / totalGenCap
		}
	}
	return injections
}

func generatorFactor(seed int64, i int) float64 {
	return remap(math.Sin(float64(seed)*float64(i+1)*17), 0.60, 0.95)
}

func loadFactor(seed int64, i int) float64 {
	return remap(math.Sin(float64(seed)*float64(i+1)*17+1), 0.35, 0.55)
}

// remap takes a value in [-1,1] to [lo,hi].
func remap(v, lo, hi float64) float64 {
	return lo + (v+1)/2*(hi-lo)
}

// Totals splits an injection vector into aggregate generation and load, both
// reported as positive MW.
func Totals(injections map[string]float64) (generationMW, loadMW float64) {
	for _, p := range injections {
		if p > 0 {
			generationMW += p
		} else {
			loadMW -= p
		}
	}
	return generationMW, loadMW
}
