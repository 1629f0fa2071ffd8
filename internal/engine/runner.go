package engine

import (
	"context"
	"fmt"
	"math"
)

// Runner drives an orchestrator at a fixed tick length without a display.
type Runner struct {
	orch      *Orchestrator
	metrics   []Metric
	observers []Observer
}

func NewRunner(o *Orchestrator) *Runner {
	return &Runner{
		orch:      o,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

func (r *Runner) Orchestrator() *Orchestrator { return r.orch }

func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if err := validateRun(cfg); err != nil {
		return nil, err
	}
	every := cfg.SampleEvery
	if every <= 0 {
		every = 1
	}

	result := &Result{
		Samples: make([]Stats, 0, cfg.Ticks/every+1),
		Metrics: make(map[string]float64),
		Seed:    r.orch.Settings().Seed,
	}
	for _, m := range r.metrics {
		m.Reset()
	}

	Logger().Info("run started", "ticks", cfg.Ticks, "dt", cfg.Dt, "seed", result.Seed)

	for i := 1; i <= cfg.Ticks; i++ {
		select {
		case <-ctx.Done():
			r.finish(result)
			return result, ctx.Err()
		default:
		}

		r.orch.Tick(cfg.Dt)

		if i%every != 0 && i != cfg.Ticks {
			continue
		}
		if r.orch.Settings().Mode == Relaxed {
			r.orch.Drain()
		}
		st := r.orch.Stats()
		for _, m := range r.metrics {
			m.Observe(st)
		}
		for _, obs := range r.observers {
			obs.OnTick(st)
		}
		result.Samples = append(result.Samples, st)
	}

	r.finish(result)
	Logger().Info("run finished",
		"ticks", result.Final.Tick, "generation", result.Final.Generation,
		"coverage", result.Final.Coverage, "faults", result.Final.Faults)
	return result, nil
}

func (r *Runner) finish(result *Result) {
	r.orch.Drain()
	result.Final = r.orch.Stats()
	result.Faults = r.orch.Faults()
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func validateRun(cfg RunConfig) error {
	if cfg.Dt <= 0 || math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidRun, cfg.Dt)
	}
	if cfg.Ticks <= 0 {
		return fmt.Errorf("%w: ticks must be positive, got %d", ErrInvalidRun, cfg.Ticks)
	}
	if cfg.SampleEvery < 0 {
		return fmt.Errorf("%w: sample interval must not be negative", ErrInvalidRun)
	}
	return nil
}

// RunWithCallback ticks until fn returns false or ctx is done.
func (r *Runner) RunWithCallback(ctx context.Context, dt float64, fn func(Stats) bool) error {
	if err := validateRun(RunConfig{Dt: dt, Ticks: 1}); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r.orch.Tick(dt)
		if !fn(r.orch.Stats()) {
			return nil
		}
	}
}
