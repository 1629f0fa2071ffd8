package growth

import (
	"image/color"
	"math"
	"sync/atomic"

	"github.com/san-kum/branchgrow/internal/canvas"
	"github.com/san-kum/branchgrow/internal/grammar"
	"github.com/san-kum/branchgrow/internal/sampler"
)

// MaxPath is the largest stroke history a single branch records.
const MaxPath = 1 << 15

type State int32

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "STOPPED"
	}
	return "RUNNING"
}

// Position is a pixel coordinate. Z rides along for 3D consumers.
type Position struct {
	X, Y int
	Z    float64
}

// Stroke is one drawn segment.
type Stroke struct {
	From, To Position
	Color    color.RGBA
}

type frame struct {
	pos     Position
	heading float64
}

// Branch is one turtle-graphics growth agent.
//
// Everything except age and state belongs to the goroutine running Advance;
// age and state are atomic so a scheduler may poll them while a task runs.
type Branch struct {
	id       int
	program  []rune
	commands string
	lifetime int64
	segment  int

	pos     Position
	heading float64
	stack   []frame
	start   Position
	strokes []Stroke

	maxStrokes int

	color      [4]float64
	direction  [3]float64
	colorSpeed float64

	turns          sampler.TurnTable
	onlyBackground bool
	order          Order
	rng            *sampler.Sampler

	age    atomic.Int64
	state  atomic.Int32
	pixels atomic.Int64
}

// New builds a branch at start. Draws from rng happen in a fixed order:
// segment length, three color channels, three color directions.
func New(id int, start Position, p Params, rng *sampler.Sampler) *Branch {
	commands := grammar.Expand(p.Axiom, p.Rules, p.Iterations)
	b := &Branch{
		id:             id,
		program:        []rune(commands),
		commands:       commands,
		lifetime:       p.Lifetime,
		pos:            start,
		heading:        p.Heading,
		start:          start,
		colorSpeed:     p.ColorSpeed,
		turns:          p.Turns,
		onlyBackground: p.OnlyBackground,
		order:          p.Order,
		rng:            rng,
		maxStrokes:     p.MaxStrokes,
	}
	if b.maxStrokes <= 0 {
		b.maxStrokes = MaxPath
	}

	b.segment = int(rng.BoundedGaussian(p.SegmentMean, p.SegmentStdDev, p.SegmentMin, p.SegmentMax))
	b.color = [4]float64{rng.Float64(), rng.Float64(), rng.Float64(), 1}
	for i := range b.direction {
		if rng.Bool() {
			b.direction[i] = 1
		} else {
			b.direction[i] = -1
		}
	}
	return b
}

// Advance ages the branch by dt seconds and, while it is still alive,
// animates its color and executes its whole program against c.
func (b *Branch) Advance(c *canvas.Canvas, dt float64) {
	if b.State() == Stopped {
		return
	}

	age := b.age.Add(int64(dt * 1000))
	if age >= b.lifetime {
		b.state.Store(int32(Stopped))
		return
	}

	b.updateColor(dt)
	col := canvas.FromFloat(b.color[0], b.color[1], b.color[2], b.color[3])

	if b.order == Forward {
		for _, cmd := range b.program {
			b.exec(c, cmd, col)
		}
		return
	}
	for i := len(b.program) - 1; i >= 0; i-- {
		b.exec(c, b.program[i], col)
	}
}

func (b *Branch) exec(c *canvas.Canvas, cmd rune, col color.RGBA) {
	switch cmd {
	case grammar.Forward:
		b.forward(c, col)
	case grammar.TurnPos:
		b.heading += b.rng.Turn(b.turns)
	case grammar.TurnNeg:
		b.heading -= b.rng.Turn(b.turns)
	case grammar.Push:
		b.stack = append(b.stack, frame{pos: b.pos, heading: b.heading})
	case grammar.Pop:
		n := len(b.stack)
		if n == 0 {
			return
		}
		top := b.stack[n-1]
		b.stack = b.stack[:n-1]
		b.pos, b.heading = top.pos, top.heading
	}
}

func (b *Branch) forward(c *canvas.Canvas, col color.RGBA) {
	end := b.project()
	if !c.InBounds(end.X, end.Y) {
		return
	}
	if b.onlyBackground && !c.IsBackground(end.X, end.Y) {
		return
	}
	n := c.DrawLine(b.pos.X, b.pos.Y, end.X, end.Y, col, b.onlyBackground)
	b.pixels.Add(int64(n))
	if len(b.strokes) < b.maxStrokes {
		b.strokes = append(b.strokes, Stroke{From: b.pos, To: end, Color: col})
	}
	b.pos = end
}

// project returns the cursor moved one segment along the heading, truncating
// toward zero.
func (b *Branch) project() Position {
	rad := b.heading * math.Pi / 180
	return Position{
		X: b.pos.X + int(math.Cos(rad)*float64(b.segment)),
		Y: b.pos.Y + int(math.Sin(rad)*float64(b.segment)),
		Z: b.pos.Z,
	}
}

func (b *Branch) updateColor(dt float64) {
	for i := 0; i < 3; i++ {
		b.color[i] += b.colorSpeed * b.direction[i] * dt
		if b.color[i] > 1 {
			b.color[i] = 1
			b.direction[i] = -1
		} else if b.color[i] < 0 {
			b.color[i] = 0
			b.direction[i] = 1
		}
	}
}

// Kill moves the branch to Stopped regardless of age.
func (b *Branch) Kill() { b.state.Store(int32(Stopped)) }

func (b *Branch) State() State    { return State(b.state.Load()) }
func (b *Branch) Age() int64      { return b.age.Load() }
func (b *Branch) Lifetime() int64 { return b.lifetime }
func (b *Branch) ID() int         { return b.id }

// Expired reports whether the branch is stopped or has used up its lifetime.
func (b *Branch) Expired() bool {
	return b.State() == Stopped || b.Age() >= b.lifetime
}

// The accessors below read task-owned state; call them only while no
// Advance is in flight for this branch.

func (b *Branch) Position() Position    { return b.pos }
func (b *Branch) Heading() float64      { return b.heading }
func (b *Branch) SegmentLength() int    { return b.segment }
func (b *Branch) Commands() string      { return b.commands }
func (b *Branch) Color() [4]float64     { return b.color }
func (b *Branch) Direction() [3]float64 { return b.direction }
func (b *Branch) StackDepth() int       { return len(b.stack) }

// Path returns the spawn point followed by the end of every stroke.
func (b *Branch) Path() []Position {
	out := make([]Position, 0, len(b.strokes)+1)
	out = append(out, b.start)
	for _, s := range b.strokes {
		out = append(out, s.To)
	}
	return out
}

// Strokes returns a copy of the drawn segments in drawing order.
func (b *Branch) Strokes() []Stroke {
	out := make([]Stroke, len(b.strokes))
	copy(out, b.strokes)
	return out
}

// Info is a race-free summary of a branch.
type Info struct {
	ID       int    `json:"id"`
	State    string `json:"state"`
	Age      int64  `json:"age_ms"`
	Lifetime int64  `json:"lifetime_ms"`
	Segment  int    `json:"segment"`
	Pixels   int64  `json:"pixels"`
}

func (b *Branch) Info() Info {
	return Info{
		ID:       b.id,
		State:    b.State().String(),
		Age:      b.Age(),
		Lifetime: b.lifetime,
		Segment:  b.segment,
		Pixels:   b.pixels.Load(),
	}
}
