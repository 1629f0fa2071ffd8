package engine

import (
	"sync"
	"sync/atomic"

	"github.com/san-kum/branchgrow/internal/canvas"
	"github.com/san-kum/branchgrow/internal/growth"
	"github.com/san-kum/branchgrow/internal/sampler"
)

// maxFaultLog bounds the recovered faults kept for inspection.
const maxFaultLog = 256

// AdvanceFunc advances one branch by dt seconds on c.
type AdvanceFunc func(b *growth.Branch, c *canvas.Canvas, dt float64)

func defaultAdvance(b *growth.Branch, c *canvas.Canvas, dt float64) { b.Advance(c, dt) }

// Orchestrator owns the canvas, the branch population and the worker pool.
// Tick, Reset and Close must be called from a single goroutine.
type Orchestrator struct {
	settings Settings
	canvas   *canvas.Canvas
	pool     *Pool
	spawnRNG *sampler.Sampler
	advance  AdvanceFunc

	branches   []*growth.Branch
	inFlight   []atomic.Bool
	generation int
	ticks      int64
	elapsed    float64
	closed     bool

	faults   atomic.Int64
	faultMu  sync.Mutex
	faultLog []*growth.FaultError
}

// New validates s, allocates a background canvas and spawns the first
// population. A zero Growth.MaxStrokes is filled in from StrokeCap.
func New(s Settings) (*Orchestrator, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Growth.MaxStrokes == 0 {
		s.Growth.MaxStrokes = StrokeCap(s.Branches)
	}
	o := &Orchestrator{
		settings: s,
		canvas:   canvas.New(s.Width, s.Height),
		pool:     NewPool(s.Workers, s.Branches),
		spawnRNG: sampler.NewStream(s.Seed, 0),
		advance:  defaultAdvance,
	}
	o.spawn()
	Logger().Info("orchestrator started",
		"width", s.Width, "height", s.Height,
		"branches", s.Branches, "workers", o.pool.Workers(),
		"mode", s.Mode.String(), "seed", s.Seed)
	return o, nil
}

// SetAdvance replaces the per-branch step. nil restores Branch.Advance.
func (o *Orchestrator) SetAdvance(fn AdvanceFunc) {
	if fn == nil {
		fn = defaultAdvance
	}
	o.advance = fn
}

// spawn replaces the population. Branch i of generation g draws from stream
// g<<32 | i+1 under the run's seed, so results do not depend on worker
// scheduling and no two (seed, generation) pairs share a stream. Stream 0
// belongs to the spawn positions.
func (o *Orchestrator) spawn() {
	n := o.settings.Branches
	branches := make([]*growth.Branch, n)
	for i := 0; i < n; i++ {
		start := growth.Position{
			X: o.spawnRNG.IntN(o.settings.Width),
			Y: o.spawnRNG.IntN(o.settings.Height),
		}
		rng := sampler.NewStream(o.settings.Seed, uint64(o.generation)<<32|uint64(i+1))
		branches[i] = growth.New(i, start, o.settings.Growth, rng)
		Logger().Debug("branch spawned",
			"generation", o.generation, "branch", i,
			"x", start.X, "y", start.Y, "segment", branches[i].SegmentLength())
	}
	o.branches = branches
	o.inFlight = make([]atomic.Bool, n)
}

// Tick submits one advance per running branch, then resets the population if
// every branch has reached its lifetime. It returns the shared canvas.
func (o *Orchestrator) Tick(dt float64) *canvas.Canvas {
	if o.closed {
		return o.canvas
	}
	o.ticks++
	o.elapsed += dt

	branches := o.branches
	flags := o.inFlight
	gen := o.generation
	tick := o.ticks

	for i, b := range branches {
		if b.State() != growth.Running {
			continue
		}
		var flag *atomic.Bool
		if o.settings.Mode == Relaxed {
			flag = &flags[i]
			if !flag.CompareAndSwap(false, true) {
				continue
			}
		}
		if !o.pool.Submit(o.task(b, gen, tick, dt, flag)) && flag != nil {
			flag.Store(false)
		}
	}

	if o.settings.Mode == Barrier {
		o.pool.Wait()
	}

	if o.allExpired() {
		o.Reset()
	}
	return o.canvas
}

func (o *Orchestrator) task(b *growth.Branch, gen int, tick int64, dt float64, flag *atomic.Bool) Task {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				b.Kill()
				o.recordFault(&growth.FaultError{Branch: b.ID(), Generation: gen, Tick: tick, Value: r})
			}
			if flag != nil {
				flag.Store(false)
			}
		}()
		o.advance(b, o.canvas, dt)
	}
}

func (o *Orchestrator) recordFault(fe *growth.FaultError) {
	o.faults.Add(1)
	Logger().Warn("branch task faulted",
		"branch", fe.Branch, "generation", fe.Generation,
		"tick", fe.Tick, "panic", fe.Value)

	o.faultMu.Lock()
	defer o.faultMu.Unlock()
	if len(o.faultLog) == maxFaultLog {
		copy(o.faultLog, o.faultLog[1:])
		o.faultLog = o.faultLog[:maxFaultLog-1]
	}
	o.faultLog = append(o.faultLog, fe)
}

func (o *Orchestrator) allExpired() bool {
	for _, b := range o.branches {
		if !b.Expired() {
			return false
		}
	}
	return true
}

// Reset clears the canvas and spawns a fresh population.
func (o *Orchestrator) Reset() {
	o.canvas.Clear()
	o.generation++
	o.spawn()
	Logger().Info("population reset", "generation", o.generation, "tick", o.ticks)
}

// Drain waits for every submitted task to finish.
func (o *Orchestrator) Drain() { o.pool.Wait() }

// Close drains outstanding work and stops the workers. Tick is a no-op
// afterwards.
func (o *Orchestrator) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	return o.pool.Close()
}

func (o *Orchestrator) Canvas() *canvas.Canvas { return o.canvas }
func (o *Orchestrator) Settings() Settings     { return o.settings }
func (o *Orchestrator) Generation() int        { return o.generation }
func (o *Orchestrator) Ticks() int64           { return o.ticks }
func (o *Orchestrator) FaultCount() int64      { return o.faults.Load() }

// Branches returns the current population.
func (o *Orchestrator) Branches() []*growth.Branch {
	out := make([]*growth.Branch, len(o.branches))
	copy(out, o.branches)
	return out
}

// Faults returns the most recent recovered faults, oldest first.
func (o *Orchestrator) Faults() []*growth.FaultError {
	o.faultMu.Lock()
	defer o.faultMu.Unlock()
	out := make([]*growth.FaultError, len(o.faultLog))
	copy(out, o.faultLog)
	return out
}

// Live counts branches still running.
func (o *Orchestrator) Live() int {
	n := 0
	for _, b := range o.branches {
		if b.State() == growth.Running {
			n++
		}
	}
	return n
}

// Stats scans the canvas, so it costs one pass over every pixel.
func (o *Orchestrator) Stats() Stats {
	occ := o.canvas.OccupiedCount()
	return Stats{
		Tick:       o.ticks,
		Time:       o.elapsed,
		Generation: o.generation,
		Population: len(o.branches),
		Live:       o.Live(),
		Occupied:   occ,
		Coverage:   float64(occ) / float64(o.canvas.Width()*o.canvas.Height()),
		Faults:     o.faults.Load(),
	}
}
