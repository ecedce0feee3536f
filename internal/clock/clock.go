// Package clock provides an abstraction over time operations for testability.
// Production code uses RealClock, tests can inject a fake for deterministic behavior.
package clock

import (
	"context"
	"time"
)

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Sleep pauses for the duration or until the context is cancelled,
	// whichever comes first.
	Sleep(ctx context.Context, d time.Duration)
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// NewRealClock creates a new RealClock.
func NewRealClock() *RealClock {
	return &RealClock{}
}

// Now implements Clock.Now using time.Now.
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Sleep implements Clock.Sleep using a cancellable timer.
func (c *RealClock) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
