package analysis

import (
	"github.com/san-kum/branchgrow/internal/engine"
)

// Report summarises a sampled run.
type Report struct {
	Samples int
	// Generations is the number of populations seen, including the first.
	Generations int
	// MeanInterval is the mean simulated time between resets.
	MeanInterval float64
	// GrowthRate is the mean coverage gained per simulated second within a
	// generation.
	GrowthRate float64
	// DominantPeriod comes from the coverage power spectrum. Zero when the
	// series is too short or flat.
	DominantPeriod float64
	PeakCoverage   float64
}

// ResetIntervals returns the simulated time between consecutive generation
// changes in samples.
func ResetIntervals(samples []engine.Stats) []float64 {
	var out []float64
	last := -1.0
	for i := 1; i < len(samples); i++ {
		if samples[i].Generation == samples[i-1].Generation {
			continue
		}
		if last >= 0 {
			out = append(out, samples[i].Time-last)
		}
		last = samples[i].Time
	}
	return out
}

// GrowthRate averages coverage slope over stretches of samples that share a
// generation.
func GrowthRate(samples []engine.Stats) float64 {
	total, span := 0.0, 0.0
	start := 0
	for i := 1; i <= len(samples); i++ {
		if i < len(samples) && samples[i].Generation == samples[start].Generation {
			continue
		}
		first, last := samples[start], samples[i-1]
		if dt := last.Time - first.Time; dt > 0 {
			total += last.Coverage - first.Coverage
			span += dt
		}
		start = i
	}
	if span == 0 {
		return 0
	}
	return total / span
}

// DominantPeriod finds the strongest non-DC bin of the coverage spectrum
// and converts it to a period in simulated seconds.
func DominantPeriod(samples []engine.Stats) float64 {
	if len(samples) < 4 {
		return 0
	}
	series := make([]float64, len(samples))
	for i, s := range samples {
		series[i] = s.Coverage
	}
	sampleDt := (samples[len(samples)-1].Time - samples[0].Time) / float64(len(samples)-1)
	if sampleDt <= 0 {
		return 0
	}

	ps := PowerSpectrum(series)
	maxIdx, maxPower := 0, 0.0
	for i := 1; i < len(ps); i++ {
		if ps[i] > maxPower {
			maxPower, maxIdx = ps[i], i
		}
	}
	if maxIdx == 0 {
		return 0
	}
	n := float64(len(ps) * 2)
	return n * sampleDt / float64(maxIdx)
}

func Analyze(samples []engine.Stats) Report {
	r := Report{Samples: len(samples)}
	if len(samples) == 0 {
		return r
	}
	r.Generations = samples[len(samples)-1].Generation - samples[0].Generation + 1
	if iv := ResetIntervals(samples); len(iv) > 0 {
		sum := 0.0
		for _, v := range iv {
			sum += v
		}
		r.MeanInterval = sum / float64(len(iv))
	}
	r.GrowthRate = GrowthRate(samples)
	r.DominantPeriod = DominantPeriod(samples)
	for _, s := range samples {
		if s.Coverage > r.PeakCoverage {
			r.PeakCoverage = s.Coverage
		}
	}
	return r
}
