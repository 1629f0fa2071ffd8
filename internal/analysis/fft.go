package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum removes the mean, zero-pads to the next power of two and
// returns the magnitude of the first half of the transform. Bin k has
// frequency k/(len(result)*2*sampleDt).
func PowerSpectrum(series []float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	n := 1
	for n < len(series) {
		n <<= 1
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	padded := make([]float64, n)
	for i, v := range series {
		padded[i] = v - mean
	}

	spec := fft.FFTReal(padded)
	ps := make([]float64, n/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}
