package translate

import (
	"context"
	"time"
)

// DefaultRefreshRate is the display refresh rate, in Hz, the loop paces itself to.
const DefaultRefreshRate = 60

// Clock schedules the next loop iteration.
type Clock interface {
	// Next blocks until the next iteration may run, or ctx is done.
	Next(ctx context.Context) error
}

// RefreshClock releases one iteration per display refresh interval, measured
// from the end of the previous iteration, so the loop never runs faster than
// the refresh cadence.
type RefreshClock struct {
	interval time.Duration
}

// NewRefreshClock creates a clock for the given refresh rate in Hz.
// Values less than or equal to 0 use DefaultRefreshRate.
func NewRefreshClock(hz int) *RefreshClock {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}
	return &RefreshClock{interval: time.Second / time.Duration(hz)}
}

// Interval returns the time between iterations.
func (c *RefreshClock) Interval() time.Duration {
	return c.interval
}

func (c *RefreshClock) Next(ctx context.Context) error {
	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ManualClock releases an iteration each time Tick is called. It lets tests
// drive the loop one pass at a time.
type ManualClock struct {
	ticks chan struct{}
}

// NewManualClock creates a ManualClock.
func NewManualClock() *ManualClock {
	return &ManualClock{ticks: make(chan struct{})}
}

// Tick blocks until the loop is waiting for its next iteration and releases
// it. It returns false if ctx is done first.
func (c *ManualClock) Tick(ctx context.Context) bool {
	select {
	case c.ticks <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *ManualClock) Next(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ticks:
		return nil
	}
}
