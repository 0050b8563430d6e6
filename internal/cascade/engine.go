// Package cascade trips overloaded lines in batches and re-solves until the
// system stabilizes or the iteration cap is hit, modeling cascading failure
// under near-simultaneous protective relay action.
package cascade

import (
	"math"
	"sort"

	"github.com/gridshield/gridsim/internal/grid"
	"github.com/gridshield/gridsim/internal/powerflow"
)

// DefaultMaxIterations caps the fixed-point loop. Practical cascades settle
// in 3-5 iterations; the cap only guards pathological inputs.
const DefaultMaxIterations = 20

// imbalanceTolerance is the residual below which no island rebalancing is
// needed after a trip wave.
const imbalanceTolerance = 1e-9

// Result is the settled (or capped) outcome of a cascade run. Converged is
// false only when the iteration cap was reached with overloads still
// present; that is a tagged outcome, not an error.
type Result struct {
	Graph        *grid.Graph
	Flows        map[string]float64
	Utilizations map[string]float64
	Tripped      map[string]bool
	Iterations   int
	Converged    bool
}

// Run iterates: find active edges with utilization > 1, trip them all at
// once, zero out islanded nodes, hand the residual imbalance to the largest
// still-connected generator, re-solve, repeat. If the first detection pass
// finds nothing the inputs come back untouched.
//
// The caller's maps are never mutated; every iteration works on copies and
// the intermediate states are discarded.
func Run(g *grid.Graph, injections, flows, utilizations map[string]float64, tripped map[string]bool, maxIterations int) Result {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	inj := cloneFloats(injections)
	cur := Result{
		Graph:        g,
		Flows:        flows,
		Utilizations: utilizations,
		Tripped:      cloneSet(tripped),
	}

	for {
		overloads := detectOverloads(cur.Graph, cur.Utilizations, cur.Tripped)
		if len(overloads) == 0 {
			cur.Converged = true
			return cur
		}
		if cur.Iterations >= maxIterations {
			return cur
		}

		// Batch trip: all relays act in the same wave, which also keeps
		// the re-solve count down.
		ids := make([]string, len(overloads))
		for i, o := range overloads {
			ids[i] = o.id
		}
		cur.Graph = cur.Graph.TripEdges(ids...)
		for _, id := range ids {
			cur.Tripped[id] = true
		}

		adjustForIslands(cur.Graph, inj)

		sol := powerflow.Solve(cur.Graph, inj)
		cur.Flows = sol.Flows
		cur.Utilizations = sol.Utilizations
		cur.Iterations++
	}
}

type overload struct {
	id          string
	utilization float64
}

// detectOverloads returns active overloaded edges sorted by utilization
// descending, ties broken by edge id ascending. The explicit total order
// keeps trip batches deterministic.
func detectOverloads(g *grid.Graph, utilizations map[string]float64, tripped map[string]bool) []overload {
	var found []overload
	for _, e := range g.ActiveEdges() {
		if tripped[e.ID] {
			continue
		}
		if u := utilizations[e.ID]; u > 1.0 {
			found = append(found, overload{id: e.ID, utilization: u})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].utilization != found[j].utilization {
			return found[i].utilization > found[j].utilization
		}
		return found[i].id < found[j].id
	})
	return found
}

// adjustForIslands zeroes the injection of every node stranded without
// active edges, then assigns the remaining system-wide imbalance to the
// single highest-capacity still-connected generator (smallest id on ties).
// With no connected generator left the imbalance stays unassigned; the next
// solve surfaces it as a degenerate result.
func adjustForIslands(g *grid.Graph, inj map[string]float64) {
	for _, n := range g.Nodes() {
		if len(g.IncidentEdges(n.ID)) == 0 {
			inj[n.ID] = 0
		}
	}

	imbalance := 0.0
	for _, n := range g.Nodes() {
		imbalance += inj[n.ID]
	}
	if math.Abs(imbalance) <= imbalanceTolerance {
		return
	}

	absorber := ""
	best := math.Inf(-1)
	for _, n := range g.Nodes() { // id-sorted; strict > keeps smallest id on ties
		if n.Type == grid.NodeGenerator && len(g.IncidentEdges(n.ID)) > 0 && n.CapacityMW > best {
			absorber = n.ID
			best = n.CapacityMW
		}
	}
	if absorber != "" {
		inj[absorber] -= imbalance
	}
}

func cloneFloats(m map[string]float64) map[string]float64 {
	c := make(map[string]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneSet(m map[string]bool) map[string]bool {
	c := make(map[string]bool, len(m))
	for k, v := range m {
		if v {
			c[k] = v
		}
	}
	return c
}
