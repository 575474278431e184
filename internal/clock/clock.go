// Package clock decouples time from the components that measure it, so
// the suite's elapsed timings and the rate limiter's refill schedule can
// be driven deterministically in tests.
package clock

import "time"

// Clock is the time source consumed by the runner and the rate limiter.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RealClock is the production Clock backed by the system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// After returns time.After's channel unchanged.
func (RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
