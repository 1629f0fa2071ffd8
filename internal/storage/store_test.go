package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/branchgrow/internal/config"
	"github.com/san-kum/branchgrow/internal/engine"
)

func finishedRun(t *testing.T) Run {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Canvas = config.CanvasConfig{Width: 80, Height: 60}
	cfg.Branches = 2
	cfg.Workers = 1
	cfg.Seed = 11

	s, err := cfg.Settings()
	if err != nil {
		t.Fatal(err)
	}
	o, err := engine.New(s)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { o.Close() })

	res, err := engine.NewRunner(o).Run(context.Background(), engine.RunConfig{Dt: 0.016, Ticks: 12, SampleEvery: 4})
	if err != nil {
		t.Fatal(err)
	}
	res.Metrics["coverage"] = 0.25
	return Run{Preset: "default", Config: cfg, Result: res, Canvas: o.Canvas(), Branches: o.Branches()}
}

func TestSaveLoad(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	run := finishedRun(t)
	id, err := store.Save(run)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	meta, err := store.Load(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.ID != id || meta.Seed != 11 || meta.Branches != 2 {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.Ticks != 12 {
		t.Errorf("ticks = %d", meta.Ticks)
	}
	if meta.Glow != config.DefaultGlow() {
		t.Errorf("glow not carried: %+v", meta.Glow)
	}
	if meta.Metrics["coverage"] != 0.25 {
		t.Errorf("metrics = %v", meta.Metrics)
	}

	for _, name := range []string{statsFile, canvasFile, thumbFile, pathsFile} {
		if _, err := os.Stat(filepath.Join(store.Dir(id), name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestLoadStatsRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	run := finishedRun(t)
	id, err := store.Save(run)
	if err != nil {
		t.Fatal(err)
	}

	stats, err := store.LoadStats(id)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if len(stats) != len(run.Result.Samples) {
		t.Fatalf("expected %d rows, got %d", len(run.Result.Samples), len(stats))
	}
	for i, st := range stats {
		want := run.Result.Samples[i]
		if st.Tick != want.Tick || st.Occupied != want.Occupied || st.Live != want.Live {
			t.Errorf("row %d = %+v, want %+v", i, st, want)
		}
	}
}

func TestList(t *testing.T) {
	store := New(t.TempDir())

	runs, err := store.List()
	if err != nil || len(runs) != 0 {
		t.Fatalf("empty store: %v %v", runs, err)
	}

	for i := 0; i < 2; i++ {
		if _, err := store.Save(finishedRun(t)); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(store.Dir("junk")), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestListMissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "absent")).List()
	if err != nil || len(runs) != 0 {
		t.Errorf("missing dir: %v %v", runs, err)
	}
}

func TestLoadUnknownRun(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := store.LoadStats("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}
