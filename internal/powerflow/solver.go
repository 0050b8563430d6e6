// Package powerflow solves the linearized (DC) power-flow problem: flat
// voltage magnitudes, small angle differences, line flow proportional to the
// angle difference over reactance. The reduced susceptance system is dense
// and small (dimension ~ node count), so elimination with partial pivoting is
// done in place on a gonum matrix.
package powerflow

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gridshield/gridsim/internal/grid"
)

// PivotTolerance is the magnitude below which a pivot marks the reduced
// subsystem singular (an island disconnected from the slack). A singular
// solve yields a zero angle vector, not an error, so cascade iteration keeps
// making progress.
const PivotTolerance = 1e-12

// Solution holds the outcome of one DC solve. Flows are signed MW, positive
// Source->Target; utilizations are |flow|/capacity and always >= 0. Both
// cover every edge, tripped ones included, for bookkeeping.
type Solution struct {
	Slack        string
	Angles       map[string]float64
	Flows        map[string]float64
	Utilizations map[string]float64
	Singular     bool
}

// Solve runs one DC power flow over the graph's active edges. The caller's
// injection map is not mutated; slack rebalancing and singleton-island
// zeroing happen on an internal copy.
func Solve(g *grid.Graph, injections map[string]float64) Solution {
	nodes := g.Nodes()
	inj := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		inj[n.ID] = injections[n.ID]
	}

	slack := SlackNode(g)
	rebalance(inj, slack)

	// Singleton islands carry no flow; force them to zero and push the
	// difference back onto the slack.
	for _, n := range nodes {
		if len(g.IncidentEdges(n.ID)) == 0 {
			inj[n.ID] = 0
		}
	}
	rebalance(inj, slack)

	angles, singular := solveAngles(g, inj, slack)

	flows := make(map[string]float64, g.EdgeCount())
	utilizations := make(map[string]float64, g.EdgeCount())
	for _, e := range g.Edges() {
		f := (angles[e.Source] - angles[e.Target]) / e.Reactance
		flows[e.ID] = f
		utilizations[e.ID] = math.Abs(f) / e.CapacityMW
	}

	return Solution{
		Slack:        slack,
		Angles:       angles,
		Flows:        flows,
		Utilizations: utilizations,
		Singular:     singular,
	}
}

// SlackNode picks the reference bus: the generator with the highest capacity,
// ties broken by the lexicographically smallest id; with no generator at all,
// the smallest node id.
func SlackNode(g *grid.Graph) string {
	slack := ""
	best := math.Inf(-1)
	for _, n := range g.Nodes() { // id-sorted, so strict > keeps the smallest id on ties
		if n.Type == grid.NodeGenerator && n.CapacityMW > best {
			slack = n.ID
			best = n.CapacityMW
		}
	}
	if slack == "" && g.NodeCount() > 0 {
		slack = g.NodeIDs()[0]
	}
	return slack
}

// rebalance sets the slack injection so the system-wide sum is exactly zero.
func rebalance(inj map[string]float64, slack string) {
	if slack == "" {
		return
	}
	total := 0.0
	for _, p := range inj {
		total += p
	}
	inj[slack] -= total
}

func solveAngles(g *grid.Graph, inj map[string]float64, slack string) (map[string]float64, bool) {
	angles := make(map[string]float64, g.NodeCount())
	if g.NodeCount() == 0 {
		return angles, false
	}
	for _, id := range g.NodeIDs() {
		angles[id] = 0
	}

	reduced := make([]string, 0, g.NodeCount()-1)
	index := make(map[string]int, g.NodeCount()-1)
	for _, id := range g.NodeIDs() {
		if id == slack {
			continue
		}
		index[id] = len(reduced)
		reduced = append(reduced, id)
	}
	n := len(reduced)
	if n == 0 {
		return angles, false
	}

	b := mat.NewDense(n, n, nil)
	for _, e := range g.ActiveEdges() {
		susceptance := 1 / e.Reactance
		is, okS := index[e.Source]
		it, okT := index[e.Target]
		if okS {
			b.Set(is, is, b.At(is, is)+susceptance)
		}
		if okT {
			b.Set(it, it, b.At(it, it)+susceptance)
		}
		if okS && okT {
			b.Set(is, it, b.At(is, it)-susceptance)
			b.Set(it, is, b.At(it, is)-susceptance)
		}
	}

	p := mat.NewVecDense(n, nil)
	for id, i := range index {
		p.SetVec(i, inj[id])
	}

	theta, singular := eliminate(b, p)
	for i, id := range reduced {
		angles[id] = theta[i]
	}
	return angles, singular
}

// eliminate solves b*x = p by Gaussian elimination with partial pivoting,
// consuming both arguments. Any pivot below PivotTolerance marks the system
// singular and yields the zero vector.
func eliminate(b *mat.Dense, p *mat.VecDense) ([]float64, bool) {
	n, _ := b.Dims()
	x := make([]float64, n)

	for k := 0; k < n; k++ {
		pivot := k
		max := math.Abs(b.At(k, k))
		for i := k + 1; i < n; i++ {
			if v := math.Abs(b.At(i, k)); v > max {
				max = v
				pivot = i
			}
		}
		if max < PivotTolerance {
			return make([]float64, n), true
		}
		if pivot != k {
			for j := k; j < n; j++ {
				bkj, bpj := b.At(k, j), b.At(pivot, j)
				b.Set(k, j, bpj)
				b.Set(pivot, j, bkj)
			}
			pk, pp := p.AtVec(k), p.AtVec(pivot)
			p.SetVec(k, pp)
			p.SetVec(pivot, pk)
		}

		for i := k + 1; i < n; i++ {
			factor := b.At(i, k) / b.At(k, k)
			if factor == 0 {
				continue
			}
			for j := k; j < n; j++ {
				b.Set(i, j, b.At(i, j)-factor*b.At(k, j))
			}
			p.SetVec(i, p.AtVec(i)-factor*p.AtVec(k))
		}
	}

	for i := n - 1; i >= 0; i-- {
		sum := p.AtVec(i)
		for j := i + 1; j < n; j++ {
			sum -= b.At(i, j) * x[j]
		}
		x[i] = sum / b.At(i, i)
	}
	return x, false
}
