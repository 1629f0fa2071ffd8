package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/branchgrow/internal/config"
	"github.com/san-kum/branchgrow/internal/storage"
)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Canvas = config.CanvasConfig{Width: 64, Height: 48}
	cfg.Branches = 2
	cfg.Workers = 2
	cfg.Ticks = 20
	cfg.SampleEvery = 5
	return cfg
}

const scenarioYAML = `
name: smoke
description: two short runs
steps:
  - preset: sparse
    ticks: 10
    seed: 7
    overrides:
      canvas: {width: 64, height: 48}
      branches: 3
    save_as: first
  - ticks: 5
    overrides:
      canvas: {width: 32, height: 32}
`

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "smoke" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}

	cfg, err := sc.Steps[0].Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Branches != 3 {
		t.Errorf("override branches = %d, want 3", cfg.Branches)
	}
	if cfg.Seed != 7 || cfg.Ticks != 10 {
		t.Errorf("seed/ticks = %d/%d", cfg.Seed, cfg.Ticks)
	}
	// untouched preset fields survive the override
	if cfg.Segment.Mean != config.GetPreset("sparse").Segment.Mean {
		t.Errorf("segment mean lost: %f", cfg.Segment.Mean)
	}
}

func TestParseScenario_Empty(t *testing.T) {
	if _, err := ParseScenario([]byte("name: nothing\n")); err == nil {
		t.Error("expected error for scenario without steps")
	}
}

func TestResolve_UnknownPreset(t *testing.T) {
	if _, err := (ScenarioStep{Preset: "nope"}).Resolve(); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Description != "two short runs" {
		t.Errorf("description = %q", sc.Description)
	}
}

func TestRunScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	store := storage.New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	results, err := RunScenario(context.Background(), sc, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].RunID == "" {
		t.Error("first step should be saved")
	}
	if results[1].RunID != "" {
		t.Error("second step has no save_as")
	}
	if results[0].Result.Final.Tick != 10 {
		t.Errorf("first step ran %d ticks", results[0].Result.Final.Tick)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Preset != "first" {
		t.Errorf("stored runs = %+v", runs)
	}
}

func TestRunSweep(t *testing.T) {
	results, err := RunSweep(context.Background(), &ParameterSweep{
		Base:      smallConfig(),
		ParamName: "branches",
		ParamMin:  1,
		ParamMax:  5,
		NumSteps:  3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d points", len(results))
	}
	for i, want := range []float64{1, 3, 5} {
		if results[i].ParamValue != want {
			t.Errorf("point %d = %f, want %f", i, results[i].ParamValue, want)
		}
		if results[i].Final.Population != int(want) {
			t.Errorf("point %d population = %d", i, results[i].Final.Population)
		}
		if _, ok := results[i].Metrics["coverage"]; !ok {
			t.Errorf("point %d missing coverage metric", i)
		}
	}
}

func TestRunSweep_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := RunSweep(ctx, &ParameterSweep{Base: smallConfig(), ParamName: "gravity", NumSteps: 2}); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if _, err := RunSweep(ctx, &ParameterSweep{Base: smallConfig(), ParamName: "branches", NumSteps: 0}); err == nil {
		t.Error("expected error for zero steps")
	}
	if _, err := RunSweep(ctx, &ParameterSweep{Base: smallConfig(), ParamName: "branches", ParamMin: -2, ParamMax: -1, NumSteps: 2}); err == nil {
		t.Error("expected validation error for negative branches")
	}
}

func TestRunMonteCarlo(t *testing.T) {
	results, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{
		Base:      smallConfig(),
		NumTrials: 4,
		SeedStart: 100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d trials", len(results))
	}
	for i, r := range results {
		if r.Seed != 100+int64(i) {
			t.Errorf("trial %d seed = %d", i, r.Seed)
		}
		if !r.Stable {
			t.Errorf("trial %d reported faults", i)
		}
	}

	mean, stddev, stable := MonteCarloStats(results)
	if mean < 0 || mean > 1 || stddev < 0 {
		t.Errorf("mean=%f stddev=%f", mean, stddev)
	}
	if stable != 4 {
		t.Errorf("stable = %d", stable)
	}
}

func TestMonteCarloStats(t *testing.T) {
	mean, stddev, stable := MonteCarloStats(nil)
	if mean != 0 || stddev != 0 || stable != 0 {
		t.Error("expected zeros for no trials")
	}

	rs := []MonteCarloResult{{Stable: true}, {Stable: false}}
	rs[0].Final.Coverage = 0.2
	rs[1].Final.Coverage = 0.4
	mean, stddev, stable = MonteCarloStats(rs)
	if mean < 0.2999 || mean > 0.3001 {
		t.Errorf("mean = %f", mean)
	}
	if stddev < 0.0999 || stddev > 0.1001 {
		t.Errorf("stddev = %f", stddev)
	}
	if stable != 1 {
		t.Errorf("stable = %d", stable)
	}
}
