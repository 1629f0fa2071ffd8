package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Ensemble runs the same settings over consecutive seeds in parallel.
type Ensemble struct {
	base      Settings
	numRuns   int
	seedStart int64
	metrics   func() []Metric
}

// NewEnsemble prepares numRuns runs seeded seedStart, seedStart+1, ...
// metrics builds a fresh metric set per run and may be nil.
func NewEnsemble(base Settings, numRuns int, seedStart int64, metrics func() []Metric) *Ensemble {
	return &Ensemble{base: base, numRuns: numRuns, seedStart: seedStart, metrics: metrics}
}

func (e *Ensemble) Run(ctx context.Context, cfg RunConfig) ([]*Result, error) {
	if e.numRuns <= 0 {
		return nil, fmt.Errorf("%w: ensemble needs at least one run", ErrInvalidRun)
	}
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			s := e.base
			s.Seed = e.seedStart + int64(idx)

			o, err := New(s)
			if err != nil {
				return err
			}
			defer o.Close()

			r := NewRunner(o)
			if e.metrics != nil {
				for _, m := range e.metrics() {
					r.AddMetric(m)
				}
			}
			res, err := r.Run(ctx, cfg)
			if err != nil {
				return fmt.Errorf("seed %d: %w", s.Seed, err)
			}
			results[idx] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
