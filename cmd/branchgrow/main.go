package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/branchgrow/internal/analysis"
	"github.com/san-kum/branchgrow/internal/automation"
	"github.com/san-kum/branchgrow/internal/config"
	"github.com/san-kum/branchgrow/internal/engine"
	"github.com/san-kum/branchgrow/internal/export"
	"github.com/san-kum/branchgrow/internal/optim"
	"github.com/san-kum/branchgrow/internal/storage"
	"github.com/san-kum/branchgrow/internal/viz"
)

var (
	dataDir  string
	logLevel string
	logFile  string

	configFile string
	preset     string
	seed       int64
	branches   int
	lifetime   int64
	ticks      int
	dt         float64
	workers    int
	syncMode   string
	width      int
	height     int

	outDir string

	sweepMin   float64
	sweepMax   float64
	sweepSteps int

	tuneParams   []string
	tuneMetric   string
	tuneMaximize bool

	trials int

	svgOut string
)

// logCloser is set when --log-file opens a file.
var logCloser io.Closer

func main() {
	rootCmd := &cobra.Command{
		Use:   "branchgrow",
		Short: "l-system branch growth on a shared canvas",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				logCloser.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".branchgrow", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file instead of stderr")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run headless and store the result",
		RunE:  runGrowth,
	}
	addConfigFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch growth in the terminal",
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().StringVar(&outDir, "out", ".", "directory for snapshots and recordings")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "run headless and write png, svg and json to a directory",
		RunE:  renderGrowth,
	}
	addConfigFlags(renderCmd)
	renderCmd.Flags().StringVar(&outDir, "out", ".", "output directory")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot coverage and live branches of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgOut, "svg", "", "also write the coverage chart as svg")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "reset intervals, growth rate and coverage spectrum",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	validateCmd := &cobra.Command{
		Use:   "validate [config.yaml]",
		Short: "check a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Printf("%s: ok (%d branches, %dx%d, %s)\n", args[0], cfg.Branches, cfg.Canvas.Width, cfg.Canvas.Height, cfg.SyncMode)
			return nil
		},
	}

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [param]",
		Short: "sweep one parameter and report final coverage",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 10, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search parameters for the best metric",
		RunE:  runTune,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "coverage", "metric to optimise")
	tuneCmd.Flags().BoolVar(&tuneMaximize, "maximize", true, "maximise instead of minimise")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "run many seeds in parallel and report throughput",
		RunE:  runBench,
	}
	addConfigFlags(benchCmd)
	benchCmd.Flags().IntVar(&trials, "trials", 8, "number of seeds")

	rootCmd.AddCommand(runCmd, liveCmd, renderCmd, listCmd, plotCmd, exportCmd, analyzeCmd,
		presetsCmd, validateCmd, batchCmd, sweepCmd, tuneCmd, benchCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "default", "preset configuration")
	f.Int64Var(&seed, "seed", 1, "random seed")
	f.IntVar(&branches, "branches", engine.DefaultBranches, "branches per generation")
	f.Int64Var(&lifetime, "lifetime", 10000, "branch lifetime in ms")
	f.IntVar(&ticks, "ticks", config.DefaultTicks, "ticks to run")
	f.Float64Var(&dt, "dt", config.DefaultDt, "seconds per tick")
	f.IntVar(&workers, "workers", 0, "worker goroutines (0 = one per cpu)")
	f.StringVar(&syncMode, "sync-mode", "barrier", "barrier or relaxed")
	f.IntVar(&width, "width", engine.DefaultWidth, "canvas width")
	f.IntVar(&height, "height", engine.DefaultHeight, "canvas height")
}

func setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	var w io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		w, logCloser = f, f
	}
	engine.SetLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

// resolveConfig layers preset, config file and explicitly set flags, in that
// order, and returns the config with a name for the run.
func resolveConfig(cmd *cobra.Command) (*config.Config, string, error) {
	name := preset
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("branches") {
		cfg.Branches = branches
	}
	if flags.Changed("lifetime") {
		cfg.Lifetime = lifetime
	}
	if flags.Changed("ticks") {
		cfg.Ticks = ticks
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("sync-mode") {
		cfg.SyncMode = syncMode
	}
	if flags.Changed("width") {
		cfg.Canvas.Width = width
	}
	if flags.Changed("height") {
		cfg.Canvas.Height = height
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runGrowth(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("growing %s (%d branches, %d ticks)...\n", name, cfg.Branches, cfg.Ticks)
	start := time.Now()
	o, result, err := automation.RunConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer o.Close()
	elapsed := time.Since(start)

	runID, err := st.Save(storage.Run{
		Preset:   name,
		Config:   cfg,
		Result:   result,
		Canvas:   o.Canvas(),
		Branches: o.Branches(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	printFinal(result)
	return nil
}

func printFinal(result *engine.Result) {
	f := result.Final
	fmt.Printf("ticks: %d  generation: %d  coverage: %.2f%%  faults: %d\n",
		f.Tick, f.Generation, f.Coverage*100, f.Faults)
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
}

func sortedKeys(m map[string]float64) []string {
	return slices.Sorted(maps.Keys(m))
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	s, err := cfg.Settings()
	if err != nil {
		return err
	}
	o, err := engine.New(s)
	if err != nil {
		return err
	}
	defer o.Close()
	return viz.Run(o, name, cfg.Dt, outDir)
}

func renderGrowth(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	o, result, err := automation.RunConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer o.Close()

	base := filepath.Join(outDir, fmt.Sprintf("%s_%d", name, cfg.Seed))
	if err := export.SavePNG(base+".png", o.Canvas()); err != nil {
		return err
	}
	if err := export.SavePathsSVG(base+".svg", cfg.Canvas.Width, cfg.Canvas.Height, o.Branches()); err != nil {
		return err
	}
	s := o.Settings()
	if err := export.ExportJSON(base+".json", export.NewExportData(s, cfg.RunConfig(), result, o.Branches())); err != nil {
		return err
	}

	fmt.Printf("wrote %s.{png,svg,json}\n", base)
	printFinal(result)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tSEED\tBRANCHES\tTICKS\tGEN\tCOVERAGE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%.2f%%\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Seed,
			run.Branches,
			run.Ticks,
			run.Generation,
			run.Coverage*100,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadStats(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("branches: %d  seed: %d\n", meta.Branches, meta.Seed)
	fmt.Printf("samples: %d\n\n", len(samples))

	coverage := make([]float64, len(samples))
	live := make([]float64, len(samples))
	for i, s := range samples {
		coverage[i] = s.Coverage * 100
		live[i] = float64(s.Live)
	}

	fmt.Println(asciigraph.Plot(coverage, asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("coverage %")))
	fmt.Println()
	fmt.Println(asciigraph.Plot(live, asciigraph.Height(6), asciigraph.Width(80), asciigraph.Caption("live branches")))
	fmt.Println()

	if svgOut != "" {
		f, err := os.Create(svgOut)
		if err != nil {
			return err
		}
		defer f.Close()
		export.CoverageSVG(f, coverage, 800, 300)
		fmt.Printf("wrote %s\n", svgOut)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadStats(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data")
	}

	r := analysis.Analyze(samples)
	fmt.Printf("analysis: %s\n\n", meta.ID)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "samples\t%d\n", r.Samples)
	fmt.Fprintf(w, "generations\t%d\n", r.Generations)
	fmt.Fprintf(w, "mean reset interval\t%.2fs\n", r.MeanInterval)
	fmt.Fprintf(w, "growth rate\t%.4f%%/s\n", r.GrowthRate*100)
	fmt.Fprintf(w, "peak coverage\t%.2f%%\n", r.PeakCoverage*100)
	if r.DominantPeriod > 0 {
		fmt.Fprintf(w, "dominant period\t%.2fs\n", r.DominantPeriod)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	series := make([]float64, len(samples))
	for i, s := range samples {
		series[i] = s.Coverage
	}
	ps := analysis.PowerSpectrum(series)
	if len(ps) > 4 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(ps[1:len(ps)/2], asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("coverage power spectrum")))
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBRANCHES\tLIFETIME\tITER\tCANVAS\tSYNC")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%dms\t%d\t%dx%d\t%s\n",
			name, p.Branches, p.Lifetime, p.Iterations, p.Canvas.Width, p.Canvas.Height, p.SyncMode)
	}
	return w.Flush()
}

func runBatch(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("scenario: %s (%d steps)\n", scenario.Name, len(scenario.Steps))
	results, err := automation.RunScenario(ctx, scenario, st)
	for i, r := range results {
		id := r.RunID
		if id == "" {
			id = "-"
		}
		fmt.Printf("  [%d] coverage %.2f%%  generation %d  run %s\n",
			i+1, r.Result.Final.Coverage*100, r.Result.Final.Generation, id)
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:      cfg,
		ParamName: args[0],
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tCOVERAGE\tPEAK\tRESETS\tFAULTS\n", strings.ToUpper(args[0]))
	for _, r := range results {
		fmt.Fprintf(w, "%g\t%.2f%%\t%.2f%%\t%.0f\t%d\n",
			r.ParamValue, r.Final.Coverage*100, r.Metrics["peak_coverage"]*100, r.Metrics["resets"], r.Final.Faults)
	}
	return w.Flush()
}

func parseParam(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("param %q: want name=v1,v2", s)
	}
	var vals []float64
	for _, part := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return "", nil, fmt.Errorf("param %q: %w", s, err)
		}
		vals = append(vals, v)
	}
	return name, vals, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	if len(tuneParams) == 0 {
		return fmt.Errorf("at least one --param is required")
	}
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(tuneParams))
	ranges := make([][]float64, 0, len(tuneParams))
	combos := 1
	for _, p := range tuneParams {
		name, vals, err := parseParam(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, vals)
		combos *= len(vals)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("searching %d combinations for %s...\n", combos, tuneMetric)
	g := optim.NewGridSearch(names, ranges)
	g.Maximize = tuneMaximize
	best, val, err := g.Search(ctx, cfg, tuneMetric)
	if err != nil {
		return err
	}

	fmt.Printf("best %s: %.6f\n", tuneMetric, val)
	for _, name := range names {
		fmt.Printf("  %s = %g\n", name, best[name])
	}
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("benchmarking %s: %d seeds x %d ticks\n\n", name, trials, cfg.Ticks)
	start := time.Now()
	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:      cfg,
		NumTrials: trials,
		SeedStart: cfg.Seed,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tCOVERAGE\tGEN\tFAULTS")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%.2f%%\t%d\t%d\n", r.Seed, r.Final.Coverage*100, r.Final.Generation, r.Final.Faults)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	mean, stddev, stable := automation.MonteCarloStats(results)
	totalTicks := float64(trials * cfg.Ticks)
	fmt.Printf("\ncoverage: %.2f%% ± %.2f%%  fault-free: %d/%d\n", mean*100, stddev*100, stable, len(results))
	fmt.Printf("elapsed: %v  ticks/sec: %.0f\n", elapsed, totalTicks/elapsed.Seconds())
	return nil
}
