package sim

import (
	"fmt"
	"sort"
	"time"

	"github.com/gridshield/gridsim/internal/cascade"
	"github.com/gridshield/gridsim/internal/grid"
	"github.com/gridshield/gridsim/internal/injection"
	"github.com/gridshield/gridsim/internal/powerflow"
)

// StepBudget is the soft real-time budget for one full step. Overruns are
// advisory: they never alter or invalidate the result.
const StepBudget = 200 * time.Millisecond

// StepStats describes how a step went. The library records; callers decide
// what to log.
type StepStats struct {
	Duration          time.Duration
	CascadeIterations int
	Converged         bool
	NewTrips          []string
	OverBudget        bool
}

// CreateInitialState wraps injection building, one DC solve, and aggregate
// metrics into a step-0 snapshot.
func CreateInitialState(seed int64, g *grid.Graph) *State {
	inj := injection.Build(g, seed)
	sol := powerflow.Solve(g, inj)
	tripped := make(map[string]bool)

	graded := gradeEdges(g, sol.Utilizations)
	return &State{
		Graph:        graded,
		Injections:   inj,
		Flows:        sol.Flows,
		Utilizations: sol.Utilizations,
		Tripped:      tripped,
		Metrics:      computeMetrics(graded, inj, sol.Utilizations, tripped),
		Seed:         seed,
		Step:         0,
	}
}

// SimulateStep runs one full step: rebuild injections from the seed, solve a
// pre-cascade baseline, run the cascade loop seeded with the baseline and
// the cumulative tripped set, then assemble the next snapshot. The input
// state is untouched.
func SimulateStep(s *State) (*State, StepStats) {
	return SimulateStepN(s, cascade.DefaultMaxIterations)
}

// SimulateStepN is SimulateStep with an explicit cascade iteration cap;
// non-positive caps fall back to the default.
func SimulateStepN(s *State, maxIterations int) (*State, StepStats) {
	start := time.Now()

	inj := injection.Build(s.Graph, s.Seed)
	baseline := powerflow.Solve(s.Graph, inj)
	res := cascade.Run(s.Graph, inj, baseline.Flows, baseline.Utilizations, s.Tripped, maxIterations)

	var newTrips []string
	for _, id := range sortedKeys(res.Tripped) {
		if !s.Tripped[id] {
			newTrips = append(newTrips, id)
		}
	}

	graded := gradeEdges(res.Graph, res.Utilizations)
	next := &State{
		Graph:        graded,
		Injections:   inj,
		Flows:        res.Flows,
		Utilizations: res.Utilizations,
		Tripped:      res.Tripped,
		Metrics:      computeMetrics(graded, inj, res.Utilizations, res.Tripped),
		Seed:         s.Seed,
		Step:         s.Step + 1,
	}

	elapsed := time.Since(start)
	return next, StepStats{
		Duration:          elapsed,
		CascadeIterations: res.Iterations,
		Converged:         res.Converged,
		NewTrips:          newTrips,
		OverBudget:        elapsed > StepBudget,
	}
}

// ApplyOverload is a testing hook: divide one edge's capacity by factor and
// re-solve against the same injections, bypassing the cascade loop. Used to
// construct deterministic stress fixtures.
func ApplyOverload(s *State, edgeID string, factor float64) (*State, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("overload factor must be positive, got %.3f", factor)
	}
	e, ok := s.Graph.Edge(edgeID)
	if !ok {
		return nil, fmt.Errorf("unknown edge %q", edgeID)
	}

	g, err := s.Graph.WithEdgeCapacity(edgeID, e.CapacityMW/factor)
	if err != nil {
		return nil, err
	}
	sol := powerflow.Solve(g, s.Injections)

	graded := gradeEdges(g, sol.Utilizations)
	return &State{
		Graph:        graded,
		Injections:   cloneFloats(s.Injections),
		Flows:        sol.Flows,
		Utilizations: sol.Utilizations,
		Tripped:      cloneSet(s.Tripped),
		Metrics:      computeMetrics(graded, s.Injections, sol.Utilizations, s.Tripped),
		Seed:         s.Seed,
		Step:         s.Step,
	}, nil
}

// UpdateStateWithFlows re-derives aggregate metrics from externally supplied
// flows and utilizations without re-running the solver. For callers that
// perturb injections or topology outside the main pipeline and still need
// consistent metrics.
func UpdateStateWithFlows(s *State, flows, utilizations map[string]float64) *State {
	graded := gradeEdges(s.Graph, utilizations)
	return &State{
		Graph:        graded,
		Injections:   cloneFloats(s.Injections),
		Flows:        cloneFloats(flows),
		Utilizations: cloneFloats(utilizations),
		Tripped:      cloneSet(s.Tripped),
		Metrics:      computeMetrics(graded, s.Injections, utilizations, s.Tripped),
		Seed:         s.Seed,
		Step:         s.Step,
	}
}

func sortedKeys(m map[string]bool) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
