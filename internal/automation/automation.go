package automation

import (
	"context"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/branchgrow/internal/config"
	"github.com/san-kum/branchgrow/internal/engine"
	"github.com/san-kum/branchgrow/internal/metrics"
	"github.com/san-kum/branchgrow/internal/storage"
)

// Scenario is a scripted batch of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset (default when empty), applies overrides
// written in config YAML keys and runs headlessly.
type ScenarioStep struct {
	Preset    string    `yaml:"preset"`
	Overrides yaml.Node `yaml:"overrides"`
	Ticks     int       `yaml:"ticks"`
	Dt        float64   `yaml:"dt"`
	Seed      *int64    `yaml:"seed"`
	SaveAs    string    `yaml:"save_as"`
}

// StepResult pairs a step's effective config with its outcome.
type StepResult struct {
	Name   string
	RunID  string
	Config *config.Config
	Result *engine.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Resolve builds the effective config for a step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	name := s.Preset
	if name == "" {
		name = "default"
	}
	cfg := config.GetPreset(name)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	if !s.Overrides.IsZero() {
		if err := s.Overrides.Decode(cfg); err != nil {
			return nil, fmt.Errorf("overrides: %w", err)
		}
	}
	if s.Ticks > 0 {
		cfg.Ticks = s.Ticks
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.Seed != nil {
		cfg.Seed = *s.Seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunConfig runs one config headlessly with the standard metrics and keeps
// the orchestrator open for the caller to inspect. The caller closes it.
func RunConfig(ctx context.Context, cfg *config.Config) (*engine.Orchestrator, *engine.Result, error) {
	s, err := cfg.Settings()
	if err != nil {
		return nil, nil, err
	}
	o, err := engine.New(s)
	if err != nil {
		return nil, nil, err
	}
	r := engine.NewRunner(o)
	for _, m := range metrics.Standard() {
		r.AddMetric(m)
	}
	res, err := r.Run(ctx, cfg.RunConfig())
	if err != nil {
		o.Close()
		return nil, nil, err
	}
	return o, res, nil
}

// RunScenario executes every step in order. Steps with SaveAs are written to
// store when store is non-nil.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		engine.Logger().Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "preset", step.Preset)

		o, res, err := RunConfig(ctx, cfg)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Name: step.SaveAs, Config: cfg, Result: res}
		if store != nil && step.SaveAs != "" {
			sr.RunID, err = store.Save(storage.Run{
				Preset:   step.SaveAs,
				Config:   cfg,
				Result:   res,
				Canvas:   o.Canvas(),
				Branches: o.Branches(),
			})
		}
		o.Close()
		if err != nil {
			return results, fmt.Errorf("step %d save: %w", i+1, err)
		}

		results = append(results, sr)
	}

	return results, nil
}

// Sweepable names the config fields a ParameterSweep can vary.
var Sweepable = map[string]func(c *config.Config, v float64){
	"branches":    func(c *config.Config, v float64) { c.Branches = int(math.Round(v)) },
	"lifetime_ms": func(c *config.Config, v float64) { c.Lifetime = int64(math.Round(v)) },
	"iterations":  func(c *config.Config, v float64) { c.Iterations = int(math.Round(v)) },
	"color_speed": func(c *config.Config, v float64) { c.ColorSpeed = v },
	"seg_mean":    func(c *config.Config, v float64) { c.Segment.Mean = v },
	"seg_stddev":  func(c *config.Config, v float64) { c.Segment.StdDev = v },
}

// ParameterSweep varies one field across evenly spaced values.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

type SweepResult struct {
	ParamValue float64
	Final      engine.Stats
	Metrics    map[string]float64
}

func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	apply, ok := Sweepable[sweep.ParamName]
	if !ok {
		return nil, fmt.Errorf("parameter %q cannot be swept", sweep.ParamName)
	}
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step")
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep
		cfg := sweep.Base.Clone()
		apply(cfg, paramVal)
		if err := cfg.Validate(); err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		o, res, err := RunConfig(ctx, cfg)
		if err != nil {
			return results, err
		}
		o.Close()

		results = append(results, SweepResult{ParamValue: paramVal, Final: res.Final, Metrics: res.Metrics})
		engine.Logger().Info("sweep point", "param", sweep.ParamName, "value", paramVal, "step", i+1, "of", sweep.NumSteps)
	}

	return results, nil
}

// MonteCarloConfig repeats one config over consecutive seeds.
type MonteCarloConfig struct {
	Base      *config.Config
	NumTrials int
	SeedStart int64
}

type MonteCarloResult struct {
	TrialID int
	Seed    int64
	Final   engine.Stats
	Metrics map[string]float64
	// Stable is true when no branch task faulted.
	Stable bool
}

// RunMonteCarlo runs the trials in parallel through an engine.Ensemble.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if err := cfg.Base.Validate(); err != nil {
		return nil, err
	}
	s, err := cfg.Base.Settings()
	if err != nil {
		return nil, err
	}

	ens := engine.NewEnsemble(s, cfg.NumTrials, cfg.SeedStart, metrics.Standard)
	runs, err := ens.Run(ctx, cfg.Base.RunConfig())
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for i, r := range runs {
		results[i] = MonteCarloResult{
			TrialID: i,
			Seed:    r.Seed,
			Final:   r.Final,
			Metrics: r.Metrics,
			Stable:  r.Final.Faults == 0,
		}
	}
	return results, nil
}

// MonteCarloStats summarises final coverage across trials.
func MonteCarloStats(results []MonteCarloResult) (mean, stddev float64, stableCount int) {
	if len(results) == 0 {
		return 0, 0, 0
	}
	for _, r := range results {
		mean += r.Final.Coverage
		if r.Stable {
			stableCount++
		}
	}
	mean /= float64(len(results))
	for _, r := range results {
		d := r.Final.Coverage - mean
		stddev += d * d
	}
	stddev = math.Sqrt(stddev / float64(len(results)))
	return mean, stddev, stableCount
}
