// Package analysis characterizes recorded and live trajectories.
//
//   - [PowerSpectrum] and [DominantFrequency]: spectral content of a joint trace
//   - [PortraitFromStates]: joint phase portraits drawn on a braille canvas
//   - [LyapunovExponent]: largest finite-time exponent from two nearby runs
//
// A positive exponent indicates sensitive dependence on the initial pose:
//
//	lambda, err := analysis.LyapunovExponent(ctx, build, 1e-8, 1e-3, 10)
//	if lambda > 0 {
//	    // chaotic
//	}
package analysis
