// Package viz draws articulated bodies in the terminal.
//
// A [Canvas] packs 2×4 dots into each braille cell. [Skeleton] reads a
// body's link poses into world-space segments, and a [Camera] projects
// them onto the canvas. [Model] is a Bubble Tea program that steps a
// simulator in real time:
//
//	Space - Pause/Resume
//	R     - Rebuild from the initial pose
//	Tab   - Select a controller gain, Up/Down to tune it
//	←/→   - Push the selected joint, N to pick the DOF, C to release
//	X/Y   - Orbit, +/- zoom
//	T     - Cycle themes
//
// [Plot] renders recorded series with asciigraph for the CLI.
package viz
