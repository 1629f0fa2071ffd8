package metrics

import "github.com/san-kum/branchgrow/internal/engine"

// Stability is the share of samples in which no new task fault appeared.
type Stability struct {
	name       string
	lastFaults int64
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(st engine.Stats) {
	s.samples++
	if st.Faults > s.lastFaults {
		s.violations++
		s.lastFaults = st.Faults
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.lastFaults = 0
	s.violations = 0
	s.samples = 0
}

// Standard returns a fresh instance of every metric in this package.
func Standard() []engine.Metric {
	return []engine.Metric{
		NewCoverage(),
		NewPeakCoverage(),
		NewLiveness(),
		NewResets(),
		NewStability(),
	}
}
