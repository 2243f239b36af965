package daq

import "time"

const (
	// DefaultInterval is the minimum spacing between two samples.
	DefaultInterval = 2 * time.Millisecond
	// DefaultDuration is the length of one recording session.
	// Host read timeouts must be longer than this.
	DefaultDuration = 5000 * time.Millisecond
)

// Clock returns monotonic time since an arbitrary fixed origin (usually boot).
type Clock interface {
	Now() time.Duration
}

// Governor is the timing policy deciding when a sample fires and when a
// session ends. It holds no state; the session timestamps are passed in.
type Governor struct {
	Interval time.Duration
	Duration time.Duration
}

// NewGovernor returns a governor, substituting defaults for zero values.
func NewGovernor(interval, duration time.Duration) Governor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return Governor{Interval: interval, Duration: duration}
}

// Expired reports whether more than Duration has passed since start.
func (g Governor) Expired(now, start time.Duration) bool {
	return now-start > g.Duration
}

// ShouldSample reports whether a sample is due. Expiry wins: once the session
// is over no sample fires, even on an interval boundary.
func (g Governor) ShouldSample(now, start, last time.Duration) bool {
	if g.Expired(now, start) {
		return false
	}
	return now-last >= g.Interval
}
