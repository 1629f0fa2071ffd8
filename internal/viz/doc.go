// Package viz renders a running orchestrator in the terminal.
//
//   - [Model]: bubbletea program that ticks the orchestrator once per frame
//   - [Canvas]: braille grid, 2x4 dots per cell, one color per cell
//   - [Camera]: pan and zoom over the growth canvas, zoom clamped to [0.1, 2]
//   - [Scaler]: snapshots and downsamples the growth canvas to the dot grid
//
// # Key Bindings
//
//	Space - Pause/Resume
//	N     - Single step while paused
//	R     - Respawn the population
//	+/-   - Zoom
//	hjkl  - Pan
//	S     - Save a PNG of the full canvas
//	G     - Toggle GIF recording
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
