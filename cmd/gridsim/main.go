package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/gridshield/gridsim/internal/cascade"
	"github.com/gridshield/gridsim/internal/config"
	"github.com/gridshield/gridsim/internal/sim"
	"github.com/gridshield/gridsim/internal/storage"
	"github.com/gridshield/gridsim/internal/tui"
)

var (
	dataDir      string
	preset       string
	topologyFile string
	configFile   string
	seed         int64
	steps        int
	runs         int
	maxCascade   int
	save         bool
)

// main registers the gridsim commands and executes the root command, exiting
// with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:   "gridsim",
		Short: "deterministic power-grid stress simulator",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".gridsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation",
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&preset, "preset", "reference", "topology preset")
	runCmd.Flags().StringVar(&topologyFile, "topology", "", "topology file (yaml)")
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "simulation steps")
	runCmd.Flags().IntVar(&maxCascade, "max-cascade", cascade.DefaultMaxIterations, "cascade iteration cap per step")
	runCmd.Flags().BoolVar(&save, "save", false, "persist the run under the data directory")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "pre-flight topology check",
		RunE:  validateTopology,
	}
	validateCmd.Flags().StringVar(&preset, "preset", "reference", "topology preset")
	validateCmd.Flags().StringVar(&topologyFile, "topology", "", "topology file (yaml)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with live terminal view",
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&preset, "preset", "reference", "topology preset")
	liveCmd.Flags().StringVar(&topologyFile, "topology", "", "topology file (yaml)")
	liveCmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	liveCmd.Flags().IntVar(&steps, "steps", 50, "simulation steps")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run independent seeds in parallel",
		RunE:  runEnsemble,
	}
	ensembleCmd.Flags().StringVar(&preset, "preset", "reference", "topology preset")
	ensembleCmd.Flags().StringVar(&topologyFile, "topology", "", "topology file (yaml)")
	ensembleCmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "first seed")
	ensembleCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "steps per run")
	ensembleCmd.Flags().IntVar(&runs, "runs", 8, "number of seeds")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run's metric history",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list topology presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.PresetNames() {
				tc := config.Presets[name]()
				fmt.Printf("  %-10s %d nodes, %d edges\n", name, len(tc.Nodes), len(tc.Edges))
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, validateCmd, liveCmd, ensembleCmd, listCmd, plotCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveTopology(cmd *cobra.Command) (*config.TopologyConfig, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if cfg.Seed != 0 && cmd != nil && !cmd.Flags().Changed("seed") {
			seed = cfg.Seed
		}
		if cfg.Steps != 0 && cmd != nil && !cmd.Flags().Changed("steps") {
			steps = cfg.Steps
		}
		if cfg.MaxCascade != 0 && cmd != nil && !cmd.Flags().Changed("max-cascade") {
			maxCascade = cfg.MaxCascade
		}
	}
	if topologyFile != "" {
		cfg.TopologyFile = topologyFile
		cfg.Topology = config.TopologyConfig{}
	} else if preset != "" && (cmd == nil || cmd.Flags().Changed("preset") || cfg.Preset == "") {
		cfg.Preset = preset
	}
	return cfg.ResolveTopology()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	tc, err := resolveTopology(cmd)
	if err != nil {
		return err
	}
	graph, err := tc.BuildGraph()
	if err != nil {
		return err
	}

	fmt.Printf("running %d steps on %d nodes / %d edges, seed %d...\n",
		steps, graph.NodeCount(), graph.EdgeCount(), seed)
	start := time.Now()

	state := sim.CreateInitialState(seed, graph)
	history := make([]storage.StepRecord, 0, steps)
	blackout := make([]float64, 0, steps)
	maxUtils := make([]float64, 0, steps)

	for i := 0; i < steps; i++ {
		next, stats := sim.SimulateStepN(state, maxCascade)
		state = next

		_, maxU := state.MaxUtilization()
		history = append(history, storage.StepRecord{
			Step:                state.Step,
			TotalLoadMW:         state.Metrics.TotalLoadMW,
			TotalGenerationMW:   state.Metrics.TotalGenerationMW,
			ReserveMarginPct:    state.Metrics.ReserveMarginPct,
			BlackoutProbability: state.Metrics.BlackoutProbability,
			MaxUtilization:      maxU,
			TrippedCount:        len(state.Tripped),
			CascadeIterations:   stats.CascadeIterations,
		})
		blackout = append(blackout, state.Metrics.BlackoutProbability)
		maxUtils = append(maxUtils, maxU)

		if !stats.Converged {
			fmt.Fprintf(os.Stderr, "step %d: cascade hit iteration cap with overloads remaining\n", state.Step)
		}
		if stats.OverBudget {
			fmt.Fprintf(os.Stderr, "step %d: took %s, over the %s budget\n", state.Step, stats.Duration.Round(time.Millisecond), sim.StepBudget)
		}
	}

	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "metric\tvalue")
	fmt.Fprintf(w, "total load\t%.1f MW\n", state.Metrics.TotalLoadMW)
	fmt.Fprintf(w, "total generation\t%.1f MW\n", state.Metrics.TotalGenerationMW)
	fmt.Fprintf(w, "reserve margin\t%.1f%%\n", state.Metrics.ReserveMarginPct)
	fmt.Fprintf(w, "blackout probability\t%.3f\n", state.Metrics.BlackoutProbability)
	fmt.Fprintf(w, "tripped edges\t%d\n", len(state.Tripped))
	w.Flush()

	if len(state.Tripped) > 0 {
		fmt.Printf("\ntripped: %v\n", state.TrippedIDs())
	}

	if len(blackout) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(blackout,
			asciigraph.Height(8),
			asciigraph.Width(70),
			asciigraph.Caption("blackout probability per step")))
		fmt.Println()
		fmt.Println(asciigraph.Plot(maxUtils,
			asciigraph.Height(8),
			asciigraph.Width(70),
			asciigraph.Caption("max line utilization per step")))
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(preset, history, state)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", runID)
	}
	return nil
}

func validateTopology(cmd *cobra.Command, args []string) error {
	tc, err := resolveTopology(cmd)
	if err != nil {
		return err
	}

	violations := tc.Violations()
	if len(violations) == 0 {
		fmt.Printf("ok: %d nodes, %d edges\n", len(tc.Nodes), len(tc.Edges))
		return nil
	}
	for _, v := range violations {
		fmt.Printf("  %s\n", v)
	}
	return fmt.Errorf("%d violations", len(violations))
}

func runLive(cmd *cobra.Command, args []string) error {
	tc, err := resolveTopology(cmd)
	if err != nil {
		return err
	}
	graph, err := tc.BuildGraph()
	if err != nil {
		return err
	}
	return tui.Run(sim.CreateInitialState(seed, graph), steps)
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	tc, err := resolveTopology(cmd)
	if err != nil {
		return err
	}
	graph, err := tc.BuildGraph()
	if err != nil {
		return err
	}

	fmt.Printf("running %d seeds x %d steps...\n", runs, steps)
	start := time.Now()

	ensemble := sim.NewEnsemble(graph, runs, seed, steps)
	results, err := ensemble.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tLOAD MW\tRESERVE %\tBLACKOUT\tTRIPPED")
	for _, s := range results {
		fmt.Fprintf(w, "%d\t%.1f\t%.1f\t%.3f\t%d\n",
			s.Seed, s.Metrics.TotalLoadMW, s.Metrics.ReserveMarginPct,
			s.Metrics.BlackoutProbability, len(s.Tripped))
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	listed, err := st.List()
	if err != nil {
		return err
	}
	if len(listed) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tPRESET\tSEED\tSTEPS\tTRIPPED\tBLACKOUT")
	for _, run := range listed {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.3f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Preset,
			run.Seed,
			run.Steps,
			len(run.TrippedEdges),
			run.Final.BlackoutProbability,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	history, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s  seed: %d  steps: %d\n\n", meta.Preset, meta.Seed, meta.Steps)

	blackout := make([]float64, len(history))
	maxUtil := make([]float64, len(history))
	for i, r := range history {
		blackout[i] = r.BlackoutProbability
		maxUtil[i] = r.MaxUtilization
	}

	fmt.Println(asciigraph.Plot(blackout,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("blackout probability")))
	fmt.Println()
	fmt.Println(asciigraph.Plot(maxUtil,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("max line utilization")))
	return nil
}
