package sampler

// TurnOption is one entry of a turn table. A zero weight disables the angle
// without removing it.
type TurnOption struct {
	Angle  float64 `yaml:"angle" json:"angle"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// TurnTable is walked in order, accumulating weights.
type TurnTable []TurnOption

// DefaultTurnTable returns the lightning-style table: mostly right angles,
// occasional straight runs, diagonals switched off.
func DefaultTurnTable() TurnTable {
	return TurnTable{
		{Angle: 0, Weight: 0.1},
		{Angle: 45, Weight: 0.0},
		{Angle: 90, Weight: 0.3},
		{Angle: -90, Weight: 0.6},
	}
}

// Pick returns the angle whose cumulative weight first exceeds u, or the
// first angle when none does.
func (t TurnTable) Pick(u float64) float64 {
	if len(t) == 0 {
		return 0
	}
	cumulative := 0.0
	for _, opt := range t {
		cumulative += opt.Weight
		if u < cumulative {
			return opt.Angle
		}
	}
	return t[0].Angle
}

// TotalWeight sums all weights.
func (t TurnTable) TotalWeight() float64 {
	sum := 0.0
	for _, opt := range t {
		sum += opt.Weight
	}
	return sum
}

// Clone returns an independent copy.
func (t TurnTable) Clone() TurnTable {
	c := make(TurnTable, len(t))
	copy(c, t)
	return c
}
