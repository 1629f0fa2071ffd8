// Package growth implements the branch agent: a turtle-graphics interpreter
// that replays an L-system program onto a shared canvas once per tick.
//
//   - [Params]: population-wide tunables, checked by [Params.Validate]
//   - [Branch]: one agent with cursor, heading, stack, color and lifetime
//   - [FaultError]: a recovered panic from a branch task
//
// # Lifecycle
//
// A branch starts Running. Each [Branch.Advance] adds the elapsed time to its
// age; the call that brings age to its lifetime switches it to Stopped and
// draws nothing. Stopped is terminal.
//
// # Example
//
//	p := growth.DefaultParams()
//	b := growth.New(0, growth.Position{X: 100, Y: 100}, p, sampler.NewStream(seed, 0))
//	b.Advance(c, 1.0/60)
//
// # Thread Safety
//
// A Branch must be advanced by one goroutine at a time. State, Age, Expired
// and Info may be called concurrently with Advance.
package growth
