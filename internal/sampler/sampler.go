// Package sampler wraps a seeded random stream with the draws used by the
// growth engine: uniform values, gaussians, rejection-sampled bounded
// gaussians and weighted turn-angle selection.
package sampler

import (
	"math"
	"math/rand/v2"
)

// MinMass is the smallest probability mass a bounded gaussian range may carry
// before it is considered degenerate.
const MinMass = 1e-3

// Sampler is a deterministic random stream. It is not safe for concurrent
// use; give each goroutine its own stream.
type Sampler struct {
	r *rand.Rand
}

// New creates a sampler on stream 0 of seed.
func New(seed int64) *Sampler {
	return NewStream(seed, 0)
}

// NewStream creates an independent sampler for (seed, stream).
func NewStream(seed int64, stream uint64) *Sampler {
	return &Sampler{r: rand.New(rand.NewPCG(uint64(seed), stream))}
}

// Float64 returns a uniform value in [0, 1).
func (s *Sampler) Float64() float64 { return s.r.Float64() }

// Bool returns a uniform boolean.
func (s *Sampler) Bool() bool { return s.r.IntN(2) == 1 }

// IntN returns a uniform int in [0, n). n <= 0 yields 0.
func (s *Sampler) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.IntN(n)
}

// Gaussian draws from N(mean, stddev²).
func (s *Sampler) Gaussian(mean, stddev float64) float64 {
	return s.r.NormFloat64()*stddev + mean
}

// BoundedGaussian redraws Gaussian until the value lies in [min, max].
// It never clamps; callers must check Mass beforehand or it may not return.
func (s *Sampler) BoundedGaussian(mean, stddev, min, max float64) float64 {
	for {
		v := s.Gaussian(mean, stddev)
		if v >= min && v <= max {
			return v
		}
	}
}

// Turn draws a turn angle from table.
func (s *Sampler) Turn(table TurnTable) float64 {
	return table.Pick(s.Float64())
}

// Source exposes the underlying generator.
func (s *Sampler) Source() *rand.Rand { return s.r }

// Mass returns the probability that N(mean, stddev²) falls in [min, max].
func Mass(mean, stddev, min, max float64) float64 {
	if max < min {
		return 0
	}
	if stddev <= 0 {
		if mean >= min && mean <= max {
			return 1
		}
		return 0
	}
	d := stddev * math.Sqrt2
	return 0.5 * (math.Erf((max-mean)/d) - math.Erf((min-mean)/d))
}
