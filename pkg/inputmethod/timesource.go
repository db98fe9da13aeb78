package inputmethod

import (
	"math"
	"time"
)

// TimeSource produces millisecond key event timestamps relative to a base
// instant.
//
// When the elapsed time no longer fits in 32 bits (about 49.7 days) the base
// is moved to now and the count restarts at 0. Timestamps are therefore not
// monotonic across such a reset. The owning session serializes calls.
type TimeSource struct {
	now  func() time.Time
	base time.Time
}

// NewTimeSource starts a time source at the current instant of now. A nil
// now uses time.Now.
func NewTimeSource(now func() time.Time) *TimeSource {
	if now == nil {
		now = time.Now
	}
	return &TimeSource{now: now, base: now()}
}

// ElapsedMS returns milliseconds since the base instant.
func (ts *TimeSource) ElapsedMS() uint32 {
	now := ts.now()
	ms := now.Sub(ts.base).Milliseconds()
	if ms < 0 || ms > math.MaxUint32 {
		ts.base = now
		return 0
	}
	return uint32(ms)
}

// Base returns the current base instant.
func (ts *TimeSource) Base() time.Time {
	return ts.base
}
