package growth

import (
	"errors"
	"fmt"
)

// Domain errors for growth configuration and execution.
var (
	// ErrInvalidConfig indicates parameters that cannot drive a branch.
	ErrInvalidConfig = errors.New("growth: invalid configuration")

	// ErrEmptyTurnTable indicates a turn table without entries.
	ErrEmptyTurnTable = errors.New("growth: turn table is empty")

	// ErrTaskPanic indicates an advance task panicked.
	ErrTaskPanic = errors.New("growth: advance task panicked")
)

// FaultError records a recovered panic from one branch's advance task.
type FaultError struct {
	Branch     int
	Generation int
	Tick       int64
	Value      any
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("branch %d (generation %d, tick %d): %v", e.Branch, e.Generation, e.Tick, e.Value)
}

func (e *FaultError) Unwrap() error {
	return ErrTaskPanic
}
