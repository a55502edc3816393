// Package clock abstracts the wall clock so the round timer can be driven
// deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// Real is the system clock.
type Real struct{}

// Now returns time.Now.
func (Real) Now() time.Time {
	return time.Now()
}

// Fake is a manually driven clock. It also schedules callbacks, firing them
// synchronously from Advance in due-time order.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*pendingFunc
}

type pendingFunc struct {
	id  uint64
	due time.Time
	fn  func()
}

// NewFake returns a Fake clock set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake instant.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set jumps the clock without firing callbacks. Moving it backwards
// simulates a host clock adjustment.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// AfterFunc schedules fn to run once the clock has advanced by d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	f.mu.Lock()
	f.seq++
	id := f.seq
	f.pending = append(f.pending, &pendingFunc{id: id, due: f.now.Add(d), fn: fn})
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, p := range f.pending {
			if p.id == id {
				f.pending = append(f.pending[:i], f.pending[i+1:]...)
				return
			}
		}
	}
}

// Pending returns the number of scheduled callbacks.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Advance moves the clock forward by d, running every callback that comes
// due on the way. Callbacks may schedule further callbacks.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.popDueLocked(target)
		if next == nil {
			if target.After(f.now) {
				f.now = target
			}
			f.mu.Unlock()
			return
		}
		if next.due.After(f.now) {
			f.now = next.due
		}
		f.mu.Unlock()

		next.fn()
	}
}

func (f *Fake) popDueLocked(target time.Time) *pendingFunc {
	idx := -1
	for i, p := range f.pending {
		if p.due.After(target) {
			continue
		}
		if idx < 0 || p.due.Before(f.pending[idx].due) ||
			(p.due.Equal(f.pending[idx].due) && p.id < f.pending[idx].id) {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	next := f.pending[idx]
	f.pending = append(f.pending[:idx], f.pending[idx+1:]...)
	return next
}
