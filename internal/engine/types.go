package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/branchgrow/internal/growth"
)

const (
	// MaxBranches caps the population size.
	MaxBranches = 10000
	// StrokeBudget bounds the strokes recorded across a whole population,
	// roughly 235 MB at 56 bytes per stroke. See StrokeCap.
	StrokeBudget = 1 << 22
	// MinStrokes is the smallest per-branch history StrokeCap hands out.
	MinStrokes = 256
	// MaxDimension caps either canvas side.
	MaxDimension = 16384

	DefaultWidth    = 2048
	DefaultHeight   = 1280
	DefaultBranches = 3
)

// ErrInvalidRun indicates a run configuration that cannot execute.
var ErrInvalidRun = errors.New("engine: invalid run configuration")

// SyncMode selects how a tick relates to the branch tasks it submits.
type SyncMode int

const (
	// Barrier waits for the tick's tasks before checking liveness.
	Barrier SyncMode = iota
	// Relaxed submits tasks and returns immediately. A branch whose task is
	// still in flight is skipped on the next tick.
	Relaxed
)

func (m SyncMode) String() string {
	if m == Relaxed {
		return "relaxed"
	}
	return "barrier"
}

func ParseSyncMode(s string) (SyncMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "barrier":
		return Barrier, nil
	case "relaxed":
		return Relaxed, nil
	}
	return Barrier, fmt.Errorf("%w: unknown sync mode %q", growth.ErrInvalidConfig, s)
}

// StrokeCap splits StrokeBudget evenly over a population, clamped to
// [MinStrokes, growth.MaxPath]. At MaxBranches the floor wins, which keeps
// the worst case near 143 MB.
func StrokeCap(branches int) int {
	if branches < 1 {
		return growth.MaxPath
	}
	return min(max(StrokeBudget/branches, MinStrokes), growth.MaxPath)
}

// Settings configure one orchestrator.
type Settings struct {
	Width    int
	Height   int
	Branches int
	Seed     int64
	// Workers is the pool size; zero means one per CPU.
	Workers int
	Mode    SyncMode
	Growth  growth.Params
}

func DefaultSettings() Settings {
	return Settings{
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		Branches: DefaultBranches,
		Seed:     1,
		Growth:   growth.DefaultParams(),
	}
}

func (s Settings) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: canvas %dx%d must be positive", growth.ErrInvalidConfig, s.Width, s.Height)
	}
	if s.Width > MaxDimension || s.Height > MaxDimension {
		return fmt.Errorf("%w: canvas %dx%d exceeds %d", growth.ErrInvalidConfig, s.Width, s.Height, MaxDimension)
	}
	if s.Branches < 1 || s.Branches > MaxBranches {
		return fmt.Errorf("%w: branch count %d outside [1, %d]", growth.ErrInvalidConfig, s.Branches, MaxBranches)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w: workers %d must not be negative", growth.ErrInvalidConfig, s.Workers)
	}
	if s.Mode != Barrier && s.Mode != Relaxed {
		return fmt.Errorf("%w: sync mode %d", growth.ErrInvalidConfig, s.Mode)
	}
	return s.Growth.Validate()
}

// Stats is a point-in-time view of an orchestrator.
type Stats struct {
	Tick       int64   `json:"tick"`
	Time       float64 `json:"time"`
	Generation int     `json:"generation"`
	Population int     `json:"population"`
	Live       int     `json:"live"`
	Occupied   int     `json:"occupied"`
	Coverage   float64 `json:"coverage"`
	Faults     int64   `json:"faults"`
}

type Metric interface {
	Name() string
	Observe(s Stats)
	Value() float64
	Reset()
}

type Observer interface {
	OnTick(s Stats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s Stats)

func (f ObserverFunc) OnTick(s Stats) { f(s) }

// RunConfig drives a headless run at a fixed tick length.
type RunConfig struct {
	Dt    float64
	Ticks int
	// SampleEvery records stats every n ticks; zero records every tick.
	SampleEvery int
}

type Result struct {
	Samples []Stats              `json:"samples"`
	Final   Stats                `json:"final"`
	Metrics map[string]float64   `json:"metrics"`
	Faults  []*growth.FaultError `json:"-"`
	Seed    int64                `json:"seed"`
}
