package framework

import "time"

type systemClock struct{}

func (systemClock) Time() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the Clock backed by the wall clock.
// time.Now carries a monotonic reading, so durations computed
// from it are not affected by wall clock adjustments.
var SystemClock Clock = systemClock{}

// ClockOrDefault returns c, or SystemClock if c is nil.
func ClockOrDefault(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}
