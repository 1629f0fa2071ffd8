package metrics

import "github.com/san-kum/branchgrow/internal/engine"

// Coverage averages the painted fraction of the canvas over all samples.
type Coverage struct {
	name    string
	sum     float64
	samples int
}

func NewCoverage() *Coverage {
	return &Coverage{name: "coverage"}
}

func (c *Coverage) Name() string { return c.name }

func (c *Coverage) Observe(s engine.Stats) {
	c.sum += s.Coverage
	c.samples++
}

func (c *Coverage) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *Coverage) Reset() {
	c.sum = 0
	c.samples = 0
}

// PeakCoverage is the largest painted fraction seen in any generation.
type PeakCoverage struct {
	name string
	peak float64
}

func NewPeakCoverage() *PeakCoverage {
	return &PeakCoverage{name: "peak_coverage"}
}

func (p *PeakCoverage) Name() string { return p.name }

func (p *PeakCoverage) Observe(s engine.Stats) {
	if s.Coverage > p.peak {
		p.peak = s.Coverage
	}
}

func (p *PeakCoverage) Value() float64 { return p.peak }
func (p *PeakCoverage) Reset()         { p.peak = 0 }
