// Package clock abstracts the wall clock so the reminder engine can be driven
// deterministically in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

type Timer interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns the process wall clock.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Fake is a manually advanced clock. Callbacks registered with AfterFunc run
// synchronously inside Advance or Set, in deadline order, on the caller's
// goroutine.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	nextID  int
	waiters []*fakeTimer
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	f.nextID++
	t := &fakeTimer{clock: f, id: f.nextID, at: f.now.Add(d), fn: fn}
	f.waiters = append(f.waiters, t)
	f.mu.Unlock()
	if d <= 0 {
		f.fire(f.Now())
	}
	return t
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now
	f.mu.Unlock()
	f.fire(now)
}

func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
	f.fire(now)
}

// Pending reports how many timers are still armed.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}

func (f *Fake) fire(now time.Time) {
	f.mu.Lock()
	due := make([]*fakeTimer, 0)
	keep := f.waiters[:0]
	for _, t := range f.waiters {
		if !t.at.After(now) {
			due = append(due, t)
			continue
		}
		keep = append(keep, t)
	}
	f.waiters = keep
	f.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})
	for _, t := range due {
		t.fn()
	}
}

func (f *Fake) stop(target *fakeTimer) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.waiters {
		if t == target {
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			return true
		}
	}
	return false
}

type fakeTimer struct {
	clock *Fake
	id    int
	at    time.Time
	fn    func()
}

func (t *fakeTimer) Stop() bool {
	return t.clock.stop(t)
}
