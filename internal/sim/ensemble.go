package sim

import (
	"context"
	"sync"

	"github.com/gridshield/gridsim/internal/grid"
)

// Ensemble runs independent simulations over the same topology, one per
// seed. States are immutable, so the runs share the starting graph without
// any locking.
type Ensemble struct {
	graph     *grid.Graph
	numRuns   int
	seedStart int64
	steps     int
}

func NewEnsemble(g *grid.Graph, numRuns int, seedStart int64, steps int) *Ensemble {
	return &Ensemble{graph: g, numRuns: numRuns, seedStart: seedStart, steps: steps}
}

// Run executes every seed concurrently and returns the final state of each,
// indexed by run. Cancellation stops unfinished runs between steps.
func (e *Ensemble) Run(ctx context.Context) ([]*State, error) {
	results := make([]*State, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			state := CreateInitialState(e.seedStart+int64(idx), e.graph)
			for s := 0; s < e.steps; s++ {
				select {
				case <-ctx.Done():
					errs[idx] = ctx.Err()
					return
				default:
				}
				state, _ = SimulateStep(state)
			}
			results[idx] = state
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
