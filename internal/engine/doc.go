// Package engine drives a population of branches over a shared canvas.
//
// The [Orchestrator] owns the canvas, a fixed worker [Pool] and the current
// population. Each [Orchestrator.Tick] submits one advance task per running
// branch; when every branch has reached its lifetime the canvas is cleared
// and a fresh population is spawned at random positions.
//
// In [Barrier] mode a tick waits for its own tasks before checking liveness.
// [Relaxed] mode returns immediately and never resubmits a branch whose
// previous task is still running.
//
// A panic inside a branch task stops that branch only. It is logged, counted
// and kept in [Orchestrator.Faults].
//
// [Runner] ticks an orchestrator headlessly and feeds [Metric] and [Observer]
// values; [Ensemble] repeats a run over consecutive seeds.
package engine
