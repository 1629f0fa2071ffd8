// Package analysis inspects the sampled stats series of a finished run.
//
//   - [ResetIntervals]: simulated time between population resets
//   - [GrowthRate]: coverage gained per second within a generation
//   - [DominantPeriod]: strongest period in the coverage spectrum
//
// [Analyze] bundles all of them into a [Report]:
//
//	samples, _ := store.LoadStats(runID)
//	r := analysis.Analyze(samples)
//	fmt.Printf("%d generations, reset every %.1fs\n", r.Generations, r.MeanInterval)
package analysis
