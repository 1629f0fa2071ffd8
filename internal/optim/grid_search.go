package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/branchgrow/internal/automation"
	"github.com/san-kum/branchgrow/internal/config"
)

// GridSearch evaluates every combination of the given parameter values and
// keeps the one with the best final metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	// Maximize flips the objective; the default minimises.
	Maximize bool
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search runs base with each combination applied. Parameter names are the
// keys of automation.Sweepable.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}
	for _, name := range g.paramNames {
		if _, ok := automation.Sweepable[name]; !ok {
			return nil, 0, fmt.Errorf("parameter %q cannot be searched", name)
		}
	}

	best := math.Inf(1)
	if g.Maximize {
		best = math.Inf(-1)
	}
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, metricName, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("no valid combination produced metric %q", metricName)
	}
	return bestParams, best, nil
}

func (g *GridSearch) better(val, best float64) bool {
	if g.Maximize {
		return val > best
	}
	return val < best
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		cfg := base.Clone()
		for k, v := range current {
			automation.Sweepable[k](cfg, v)
		}
		if cfg.Validate() != nil {
			return nil
		}

		o, result, err := automation.RunConfig(ctx, cfg)
		if err != nil {
			return err
		}
		o.Close()

		val, ok := result.Metrics[metricName]
		if !ok {
			return fmt.Errorf("unknown metric %q", metricName)
		}
		if *bestParams == nil || g.better(val, *best) {
			*best = val
			*bestParams = make(map[string]float64, len(current))
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, metricName, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
