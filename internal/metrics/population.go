package metrics

import "github.com/san-kum/branchgrow/internal/engine"

// Liveness averages the fraction of the population still running.
type Liveness struct {
	name    string
	sum     float64
	samples int
}

func NewLiveness() *Liveness {
	return &Liveness{name: "liveness"}
}

func (l *Liveness) Name() string { return l.name }

func (l *Liveness) Observe(s engine.Stats) {
	if s.Population > 0 {
		l.sum += float64(s.Live) / float64(s.Population)
	}
	l.samples++
}

func (l *Liveness) Value() float64 {
	if l.samples == 0 {
		return 0
	}
	return l.sum / float64(l.samples)
}

func (l *Liveness) Reset() {
	l.sum = 0
	l.samples = 0
}

// Resets counts population resets seen by the run.
type Resets struct {
	name string
	last int
}

func NewResets() *Resets {
	return &Resets{name: "resets"}
}

func (r *Resets) Name() string { return r.name }

func (r *Resets) Observe(s engine.Stats) {
	if s.Generation > r.last {
		r.last = s.Generation
	}
}

func (r *Resets) Value() float64 { return float64(r.last) }
func (r *Resets) Reset()         { r.last = 0 }
