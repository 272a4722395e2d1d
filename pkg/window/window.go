// Package window computes anchor-aligned prediction windows over a
// millisecond timeline.
//
// A schedule fires at fixed instants spaced by a stride, phase-aligned to an
// anchor timestamp. Each firing reads a window of history ending at the
// firing instant. Because the grid is defined by (stride, anchor) alone,
// windows computed over different query ranges always land on the same
// absolute boundaries - re-querying a range after a gap reproduces identical
// windows rather than a re-phased grid.
//
// All functions are pure and safe for concurrent use. Inputs and outputs are
// integer milliseconds since the Unix epoch.
package window

// Window is a single prediction window. Start is inclusive, End exclusive.
// End is the instant the prediction fires; Start may be negative or precede
// the queried range, since a window covers history before its end.
type Window struct {
	Start int64
	End   int64
}

// Windows returns the ordered windows whose ends fall in [start, end) on the
// anchor-phased grid spaced by stride.
//
// The first candidate end is the earliest timestamp >= max(start, anchor)
// with (candidate - anchor) % stride == 0. From there, one window
// (candidate - windowSize, candidate) is emitted per stride until the
// candidate reaches end. start == end yields no windows.
func Windows(start, end, stride, windowSize, anchor int64) []Window {
	var windows []Window
	for _, ts := range ExecutionTimestamps(start, end, stride, anchor) {
		windows = append(windows, Window{Start: ts - windowSize, End: ts})
	}
	return windows
}

// ExecutionTimestamps returns just the window ends - the instants at which a
// scheduled prediction executes - for the same grid as Windows.
func ExecutionTimestamps(start, end, stride, anchor int64) []int64 {
	next := start
	if anchor > next {
		next = anchor
	}
	// Snap forward onto the grid. The offset is computed against the raw
	// start, not the adjusted candidate.
	if (next-anchor)%stride != 0 {
		next += stride - (start-anchor)%stride
	}

	var timestamps []int64
	for next < end {
		timestamps = append(timestamps, next)
		next += stride
	}
	return timestamps
}
