// Package sim assembles discrete grid-stress simulation steps: injection
// build, baseline DC solve, cascade loop, snapshot assembly. States are
// immutable; every transition returns a new one, so independent runs (one
// per seed, or parallel what-if branches) need no locking.
package sim

import (
	"sort"

	"github.com/gridshield/gridsim/internal/grid"
)

// Metrics are the aggregate figures carried on every state snapshot.
type Metrics struct {
	TotalLoadMW         float64
	TotalGenerationMW   float64
	ReserveMarginPct    float64
	BlackoutProbability float64
}

// State is one immutable simulation snapshot. Flows are signed MW keyed by
// edge id (positive Source->Target); Tripped accumulates across steps.
// Nothing here is ever mutated in place: transitions produce a fresh State
// and share only immutable pieces with their predecessor.
type State struct {
	Graph        *grid.Graph
	Injections   map[string]float64
	Flows        map[string]float64
	Utilizations map[string]float64
	Tripped      map[string]bool
	Metrics      Metrics
	Seed         int64
	Step         int
}

// TrippedIDs returns the cumulative tripped-edge set as a sorted slice.
func (s *State) TrippedIDs() []string {
	ids := make([]string, 0, len(s.Tripped))
	for id := range s.Tripped {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MaxUtilization returns the highest utilization in the snapshot and the
// edge carrying it (smallest edge id on exact ties).
func (s *State) MaxUtilization() (edgeID string, utilization float64) {
	for _, id := range s.Graph.EdgeIDs() {
		if u := s.Utilizations[id]; edgeID == "" || u > utilization {
			edgeID = id
			utilization = u
		}
	}
	return edgeID, utilization
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
