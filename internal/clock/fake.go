package clock

import (
	"sync"
	"time"
)

// FakeClock is a manually driven Clock for tests. Time only moves when
// Advance is called and After channels only tick when Fire is called, so
// elapsed-time assertions are exact.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiting []chan time.Time
	banked  int
}

// NewFakeClock returns a FakeClock anchored at the Unix epoch.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Unix(0, 0)}
}

// Now returns the fake current time. It moves only through Advance.
func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After returns a channel that ticks on the next Fire. The duration is
// ignored: ordering is controlled entirely by the test. A Fire that
// happened before any waiter existed is banked and consumed immediately.
func (f *FakeClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	f.mu.Lock()
	if f.banked > 0 {
		f.banked--
		now := f.now
		f.mu.Unlock()
		ch <- now
		return ch
	}
	f.waiting = append(f.waiting, ch)
	f.mu.Unlock()
	return ch
}

// Fire ticks every channel currently waiting. With no waiters the tick
// is banked for the next After call.
func (f *FakeClock) Fire() {
	f.mu.Lock()
	if len(f.waiting) == 0 {
		f.banked++
		f.mu.Unlock()
		return
	}
	waiting := append([]chan time.Time(nil), f.waiting...)
	now := f.now
	f.waiting = nil
	f.mu.Unlock()

	for _, ch := range waiting {
		ch <- now
	}
}

// Advance shifts the fake current time by d.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
