package optim

import (
	"context"
	"testing"

	"github.com/san-kum/branchgrow/internal/config"
)

func base() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Canvas = config.CanvasConfig{Width: 64, Height: 48}
	cfg.Workers = 2
	cfg.Ticks = 15
	cfg.SampleEvery = 5
	return cfg
}

func TestGridSearch(t *testing.T) {
	g := NewGridSearch([]string{"branches"}, [][]float64{{1, 4}})
	g.Maximize = true

	params, best, err := g.Search(context.Background(), base(), "liveness")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := params["branches"]; !ok {
		t.Fatalf("missing branches in %v", params)
	}
	if best < 0 || best > 1 {
		t.Errorf("liveness out of range: %f", best)
	}
}

func TestGridSearch_SkipsInvalid(t *testing.T) {
	g := NewGridSearch([]string{"branches"}, [][]float64{{-1, 2}})
	params, _, err := g.Search(context.Background(), base(), "coverage")
	if err != nil {
		t.Fatal(err)
	}
	if params["branches"] != 2 {
		t.Errorf("best = %v, want branches 2", params)
	}
}

func TestGridSearch_Errors(t *testing.T) {
	ctx := context.Background()
	if _, _, err := NewGridSearch([]string{"mass"}, [][]float64{{1}}).Search(ctx, base(), "coverage"); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if _, _, err := NewGridSearch([]string{"branches"}, nil).Search(ctx, base(), "coverage"); err == nil {
		t.Error("expected error for mismatched ranges")
	}
	if _, _, err := NewGridSearch([]string{"branches"}, [][]float64{{1}}).Search(ctx, base(), "energy"); err == nil {
		t.Error("expected error for unknown metric")
	}
}
