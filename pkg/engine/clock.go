package engine

import "time"

// FrameClock measures the time between frames, capping large gaps such as
// those after a stall so a single step never integrates too far.
type FrameClock struct {
	maxDelta time.Duration
	last     time.Time
	started  bool
	now      func() time.Time
}

// NewFrameClock creates a clock whose deltas never exceed maxDelta
func NewFrameClock(maxDelta time.Duration) *FrameClock {
	return &FrameClock{maxDelta: maxDelta, now: time.Now}
}

// Delta returns the seconds elapsed since the previous call. The first call
// returns zero.
func (c *FrameClock) Delta() float64 {
	now := c.now()
	if !c.started {
		c.started = true
		c.last = now
		return 0
	}

	elapsed := now.Sub(c.last)
	c.last = now
	if elapsed > c.maxDelta {
		elapsed = c.maxDelta
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed.Seconds()
}

// Reset makes the next Delta call return zero
func (c *FrameClock) Reset() {
	c.started = false
}
