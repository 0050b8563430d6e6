// Package storage persists finished simulation runs under a data directory:
// metadata.json plus per-step metrics and final per-edge results as CSV.
// This is operator tooling around the core; the core itself owns no
// persisted format.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/gridshield/gridsim/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// StepRecord is one row of a run's metric history.
type StepRecord struct {
	Step                int
	TotalLoadMW         float64
	TotalGenerationMW   float64
	ReserveMarginPct    float64
	BlackoutProbability float64
	MaxUtilization      float64
	TrippedCount        int
	CascadeIterations   int
}

type RunMetadata struct {
	ID           string      `json:"id"`
	Timestamp    time.Time   `json:"timestamp"`
	Preset       string      `json:"preset"`
	Seed         int64       `json:"seed"`
	Steps        int         `json:"steps"`
	NodeCount    int         `json:"node_count"`
	EdgeCount    int         `json:"edge_count"`
	TrippedEdges []string    `json:"tripped_edges"`
	Final        sim.Metrics `json:"final_metrics"`
}

// Save writes one finished run and returns its generated id.
func (s *Store) Save(preset string, history []StepRecord, final *sim.State) (string, error) {
	runID := fmt.Sprintf("run_%s", uuid.New().String())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Timestamp:    time.Now(),
		Preset:       preset,
		Seed:         final.Seed,
		Steps:        final.Step,
		NodeCount:    final.Graph.NodeCount(),
		EdgeCount:    final.Graph.EdgeCount(),
		TrippedEdges: final.TrippedIDs(),
		Final:        final.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := s.writeHistory(runDir, history); err != nil {
		return "", err
	}
	if err := s.writeEdges(runDir, final); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) writeHistory(runDir string, history []StepRecord) error {
	f, err := os.Create(filepath.Join(runDir, "history.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"step", "load_mw", "generation_mw", "reserve_pct", "blackout_prob", "max_utilization", "tripped", "cascade_iterations"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range history {
		row := []string{
			strconv.Itoa(r.Step),
			ffmt(r.TotalLoadMW),
			ffmt(r.TotalGenerationMW),
			ffmt(r.ReserveMarginPct),
			ffmt(r.BlackoutProbability),
			ffmt(r.MaxUtilization),
			strconv.Itoa(r.TrippedCount),
			strconv.Itoa(r.CascadeIterations),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeEdges(runDir string, final *sim.State) error {
	f, err := os.Create(filepath.Join(runDir, "edges.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"edge_id", "flow_mw", "utilization", "state"}); err != nil {
		return err
	}
	for _, e := range final.Graph.Edges() {
		row := []string{
			e.ID,
			ffmt(final.Flows[e.ID]),
			ffmt(final.Utilizations[e.ID]),
			string(e.State),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadHistory reads a run's per-step metric rows back.
func (s *Store) LoadHistory(runID string) ([]StepRecord, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "history.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []StepRecord{}, nil
	}

	history := make([]StepRecord, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 8 {
			continue
		}
		step, _ := strconv.Atoi(rec[0])
		load, _ := strconv.ParseFloat(rec[1], 64)
		gen, _ := strconv.ParseFloat(rec[2], 64)
		reserve, _ := strconv.ParseFloat(rec[3], 64)
		blackout, _ := strconv.ParseFloat(rec[4], 64)
		maxUtil, _ := strconv.ParseFloat(rec[5], 64)
		trippedCount, _ := strconv.Atoi(rec[6])
		iterations, _ := strconv.Atoi(rec[7])
		history = append(history, StepRecord{
			Step:                step,
			TotalLoadMW:         load,
			TotalGenerationMW:   gen,
			ReserveMarginPct:    reserve,
			BlackoutProbability: blackout,
			MaxUtilization:      maxUtil,
			TrippedCount:        trippedCount,
			CascadeIterations:   iterations,
		})
	}
	return history, nil
}

func ffmt(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
