package growth

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/branchgrow/internal/grammar"
	"github.com/san-kum/branchgrow/internal/sampler"
)

const (
	// MaxIterations bounds grammar expansion; program length grows
	// exponentially with it.
	MaxIterations = 10

	// MaxProgram bounds the expanded command string length.
	MaxProgram = 1 << 20

	DefaultLifetime   = 60000
	DefaultIterations = 1
	DefaultHeading    = 90
	DefaultColorSpeed = 0.02
	DefaultSegMean    = 10
	DefaultSegStdDev  = 20
	DefaultSegMin     = 10
	DefaultSegMax     = 15
)

// Order selects how a command string is read.
type Order int

const (
	// Reverse executes the last generated symbol first.
	Reverse Order = iota
	// Forward executes in generation order.
	Forward
)

func (o Order) String() string {
	if o == Forward {
		return "forward"
	}
	return "reverse"
}

// ParseOrder accepts "reverse", "forward" or the empty string (reverse).
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "", "reverse":
		return Reverse, nil
	case "forward":
		return Forward, nil
	}
	return Reverse, fmt.Errorf("%w: unknown command order %q", ErrInvalidConfig, s)
}

// Params are the per-branch tunables shared by a whole population.
type Params struct {
	Lifetime       int64 // milliseconds
	Iterations     int
	Axiom          string
	Rules          grammar.Rules
	SegmentMean    float64
	SegmentStdDev  float64
	SegmentMin     float64
	SegmentMax     float64
	Turns          sampler.TurnTable
	ColorSpeed     float64
	OnlyBackground bool
	Order          Order
	Heading        float64 // initial heading in degrees
	// MaxStrokes caps the recorded stroke history; zero means MaxPath.
	MaxStrokes int
}

func DefaultParams() Params {
	return Params{
		Lifetime:      DefaultLifetime,
		Iterations:    DefaultIterations,
		Axiom:         grammar.DragonAx,
		Rules:         grammar.Dragon(),
		SegmentMean:   DefaultSegMean,
		SegmentStdDev: DefaultSegStdDev,
		SegmentMin:    DefaultSegMin,
		SegmentMax:    DefaultSegMax,
		Turns:         sampler.DefaultTurnTable(),
		ColorSpeed:    DefaultColorSpeed,
		Heading:       DefaultHeading,
	}
}

// Validate rejects parameters that would loop forever, blow up the program
// size, or otherwise cannot drive a branch.
func (p Params) Validate() error {
	if p.Lifetime <= 0 {
		return fmt.Errorf("%w: lifetime must be positive, got %d", ErrInvalidConfig, p.Lifetime)
	}
	if p.Iterations < 0 || p.Iterations > MaxIterations {
		return fmt.Errorf("%w: iterations must be in [0, %d], got %d", ErrInvalidConfig, MaxIterations, p.Iterations)
	}
	if p.Axiom == "" {
		return fmt.Errorf("%w: axiom is empty", ErrInvalidConfig)
	}
	if n := grammar.Length(p.Axiom, p.Rules, p.Iterations); n > MaxProgram {
		return fmt.Errorf("%w: expanded program has %d symbols, limit %d", ErrInvalidConfig, n, MaxProgram)
	}
	if err := p.validateSegment(); err != nil {
		return err
	}
	if err := p.validateTurns(); err != nil {
		return err
	}
	if p.ColorSpeed < 0 || !finite(p.ColorSpeed) {
		return fmt.Errorf("%w: color speed must be a non-negative number, got %g", ErrInvalidConfig, p.ColorSpeed)
	}
	if !finite(p.Heading) {
		return fmt.Errorf("%w: heading must be finite", ErrInvalidConfig)
	}
	if p.MaxStrokes < 0 || p.MaxStrokes > MaxPath {
		return fmt.Errorf("%w: stroke cap must be in [0, %d], got %d", ErrInvalidConfig, MaxPath, p.MaxStrokes)
	}
	return nil
}

func (p Params) validateSegment() error {
	for _, v := range []float64{p.SegmentMean, p.SegmentStdDev, p.SegmentMin, p.SegmentMax} {
		if !finite(v) {
			return fmt.Errorf("%w: segment parameters must be finite", ErrInvalidConfig)
		}
	}
	if p.SegmentStdDev < 0 {
		return fmt.Errorf("%w: segment stddev must be non-negative, got %g", ErrInvalidConfig, p.SegmentStdDev)
	}
	if p.SegmentMin < 1 {
		return fmt.Errorf("%w: segment min must be at least 1, got %g", ErrInvalidConfig, p.SegmentMin)
	}
	if p.SegmentMax < p.SegmentMin {
		return fmt.Errorf("%w: segment max %g below min %g", ErrInvalidConfig, p.SegmentMax, p.SegmentMin)
	}
	mass := sampler.Mass(p.SegmentMean, p.SegmentStdDev, p.SegmentMin, p.SegmentMax)
	if mass < sampler.MinMass {
		return fmt.Errorf("%w: segment range [%g, %g] has probability %.3g under N(%g, %g²), need at least %g",
			ErrInvalidConfig, p.SegmentMin, p.SegmentMax, mass, p.SegmentMean, p.SegmentStdDev, sampler.MinMass)
	}
	return nil
}

func (p Params) validateTurns() error {
	if len(p.Turns) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrEmptyTurnTable)
	}
	for _, opt := range p.Turns {
		if opt.Weight < 0 || !finite(opt.Weight) || !finite(opt.Angle) {
			return fmt.Errorf("%w: turn option %+v", ErrInvalidConfig, opt)
		}
	}
	if total := p.Turns.TotalWeight(); total > 1+1e-9 {
		return fmt.Errorf("%w: turn weights sum to %g, must not exceed 1", ErrInvalidConfig, total)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
