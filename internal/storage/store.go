package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/branchgrow/internal/canvas"
	"github.com/san-kum/branchgrow/internal/config"
	"github.com/san-kum/branchgrow/internal/engine"
	"github.com/san-kum/branchgrow/internal/export"
	"github.com/san-kum/branchgrow/internal/growth"
)

const (
	metadataFile = "metadata.json"
	statsFile    = "stats.csv"
	canvasFile   = "canvas.png"
	thumbFile    = "thumb.png"
	pathsFile    = "paths.svg"

	thumbSize = 256
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Preset     string             `json:"preset,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Branches   int                `json:"branches"`
	Lifetime   int64              `json:"lifetime_ms"`
	Iterations int                `json:"iterations"`
	SyncMode   string             `json:"sync_mode"`
	Order      string             `json:"command_order"`
	Dt         float64            `json:"dt"`
	Ticks      int64              `json:"ticks"`
	Generation int                `json:"generation"`
	Coverage   float64            `json:"coverage"`
	Faults     int64              `json:"faults"`
	Glow       config.GlowConfig  `json:"glow"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Run bundles what Save writes for one finished run.
type Run struct {
	Preset   string
	Config   *config.Config
	Result   *engine.Result
	Canvas   *canvas.Canvas
	Branches []*growth.Branch
}

// Save writes metadata, the stats series, a PNG, a thumbnail and the stroke
// SVG into a new run directory and returns its ID.
func (s *Store) Save(run Run) (string, error) {
	name := run.Preset
	if name == "" {
		name = "run"
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d_%d", name, run.Config.Seed, now.UnixNano())
	runDir := s.Dir(runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	final := run.Result.Final
	meta := RunMetadata{
		ID:         runID,
		Preset:     run.Preset,
		Timestamp:  now,
		Seed:       run.Config.Seed,
		Width:      run.Config.Canvas.Width,
		Height:     run.Config.Canvas.Height,
		Branches:   run.Config.Branches,
		Lifetime:   run.Config.Lifetime,
		Iterations: run.Config.Iterations,
		SyncMode:   run.Config.SyncMode,
		Order:      run.Config.CommandOrder,
		Dt:         run.Config.Dt,
		Ticks:      final.Tick,
		Generation: final.Generation,
		Coverage:   final.Coverage,
		Faults:     final.Faults,
		Glow:       run.Config.Glow,
		Metrics:    run.Result.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeStats(filepath.Join(runDir, statsFile), run.Result.Samples); err != nil {
		return "", err
	}

	if run.Canvas != nil {
		if err := export.SavePNG(filepath.Join(runDir, canvasFile), run.Canvas); err != nil {
			return "", err
		}
		if err := export.SaveThumbnail(filepath.Join(runDir, thumbFile), run.Canvas, thumbSize, thumbSize); err != nil {
			return "", err
		}
	}
	if len(run.Branches) > 0 {
		if err := export.SavePathsSVG(filepath.Join(runDir, pathsFile), meta.Width, meta.Height, run.Branches); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var statsHeader = []string{"tick", "time", "generation", "population", "live", "occupied", "coverage", "faults"}

func writeStats(path string, samples []engine.Stats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(statsHeader); err != nil {
		return err
	}
	for _, st := range samples {
		row := []string{
			strconv.FormatInt(st.Tick, 10),
			strconv.FormatFloat(st.Time, 'f', 6, 64),
			strconv.Itoa(st.Generation),
			strconv.Itoa(st.Population),
			strconv.Itoa(st.Live),
			strconv.Itoa(st.Occupied),
			strconv.FormatFloat(st.Coverage, 'f', 8, 64),
			strconv.FormatInt(st.Faults, 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s metadata: %w", runID, err)
	}
	return &meta, nil
}

// LoadStats reads the sampled stats series back. Malformed rows are skipped.
func (s *Store) LoadStats(runID string) ([]engine.Stats, error) {
	file, err := os.Open(filepath.Join(s.Dir(runID), statsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []engine.Stats{}, nil
	}

	out := make([]engine.Stats, 0, len(records)-1)
	for _, rec := range records[1:] {
		st, ok := parseStats(rec)
		if !ok {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func parseStats(rec []string) (engine.Stats, bool) {
	if len(rec) != len(statsHeader) {
		return engine.Stats{}, false
	}
	var st engine.Stats
	var err error
	ints := make([]int64, 0, 6)
	for _, i := range []int{0, 2, 3, 4, 5, 7} {
		v, perr := strconv.ParseInt(rec[i], 10, 64)
		if perr != nil {
			return engine.Stats{}, false
		}
		ints = append(ints, v)
	}
	if st.Time, err = strconv.ParseFloat(rec[1], 64); err != nil {
		return engine.Stats{}, false
	}
	if st.Coverage, err = strconv.ParseFloat(rec[6], 64); err != nil {
		return engine.Stats{}, false
	}
	st.Tick = ints[0]
	st.Generation = int(ints[1])
	st.Population = int(ints[2])
	st.Live = int(ints[3])
	st.Occupied = int(ints[4])
	st.Faults = ints[5]
	return st, true
}

// CanvasPath is the PNG written for runID.
func (s *Store) CanvasPath(runID string) string {
	return filepath.Join(s.Dir(runID), canvasFile)
}

// PathsPath is the stroke SVG written for runID.
func (s *Store) PathsPath(runID string) string {
	return filepath.Join(s.Dir(runID), pathsFile)
}
