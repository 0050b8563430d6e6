package storage

import (
	"strings"
	"testing"

	"github.com/gridshield/gridsim/internal/config"
	"github.com/gridshield/gridsim/internal/sim"
)

func finishedRun(t *testing.T) (*sim.State, []StepRecord) {
	t.Helper()
	g, err := config.SmallTopology().BuildGraph()
	if err != nil {
		t.Fatalf("topology failed to build: %v", err)
	}

	state := sim.CreateInitialState(42, g)
	history := make([]StepRecord, 0, 3)
	for i := 0; i < 3; i++ {
		next, stats := sim.SimulateStep(state)
		state = next
		_, maxU := state.MaxUtilization()
		history = append(history, StepRecord{
			Step:                state.Step,
			TotalLoadMW:         state.Metrics.TotalLoadMW,
			TotalGenerationMW:   state.Metrics.TotalGenerationMW,
			ReserveMarginPct:    state.Metrics.ReserveMarginPct,
			BlackoutProbability: state.Metrics.BlackoutProbability,
			MaxUtilization:      maxU,
			TrippedCount:        len(state.Tripped),
			CascadeIterations:   stats.CascadeIterations,
		})
	}
	return state, history
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	final, history := finishedRun(t)
	runID, err := st.Save("small", history, final)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "run_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Seed != 42 || meta.Preset != "small" {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.NodeCount != 8 || meta.EdgeCount != 10 {
		t.Errorf("expected 8 nodes / 10 edges, got %d / %d", meta.NodeCount, meta.EdgeCount)
	}
	if meta.Final != final.Metrics {
		t.Errorf("final metrics mismatch: %+v vs %+v", meta.Final, final.Metrics)
	}

	loaded, err := st.LoadHistory(runID)
	if err != nil {
		t.Fatalf("history load failed: %v", err)
	}
	if len(loaded) != len(history) {
		t.Fatalf("expected %d history rows, got %d", len(history), len(loaded))
	}
	for i := range history {
		if loaded[i].Step != history[i].Step {
			t.Errorf("row %d: step %d vs %d", i, loaded[i].Step, history[i].Step)
		}
		if loaded[i].TrippedCount != history[i].TrippedCount {
			t.Errorf("row %d: tripped count mismatch", i)
		}
	}
}

func TestListEmptyAndPopulated(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list on missing dir failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	final, history := finishedRun(t)
	if _, err := st.Save("small", history, final); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := st.Save("small", history, final); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestLoadUnknownRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("run_missing"); err == nil {
		t.Error("expected error for unknown run")
	}
}
