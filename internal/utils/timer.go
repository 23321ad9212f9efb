package utils

import "time"

// Timer measures one elapsed interval. NewTimer starts it; Stop freezes the duration.
type Timer struct {
	startTime time.Time
	duration  time.Duration
}

// NewTimer returns a running Timer.
func NewTimer() *Timer {
	return &Timer{startTime: time.Now()}
}

// Stop records the time elapsed since NewTimer.
func (t *Timer) Stop() {
	t.duration = time.Since(t.startTime)
}

// GetDuration returns the interval captured by Stop, or zero before Stop.
func (t *Timer) GetDuration() time.Duration {
	return t.duration
}

// Elapsed returns the time since NewTimer without stopping the timer.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.startTime)
}
