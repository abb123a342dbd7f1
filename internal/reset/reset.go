// Package reset clears the task list once the current week ends.
package reset

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sandeepkv93/taskngo/internal/clock"
	"github.com/sandeepkv93/taskngo/internal/logging"
	"github.com/sandeepkv93/taskngo/internal/model"
)

// Resetter removes every task and cancels their pending reminders.
type Resetter interface {
	ResetAll(ctx context.Context) int
}

type Options struct {
	WeekStart time.Weekday
	Logger    *log.Logger
	// OnReset runs after the reset with the number of removed tasks.
	OnReset func(removed int)
}

// Timer arms a single deferred reset at the next week boundary. It does not
// re-arm itself after firing; the next session computes a fresh boundary.
type Timer struct {
	clock     clock.Clock
	target    Resetter
	weekStart time.Weekday
	logger    *log.Logger
	onReset   func(int)

	mu     sync.Mutex
	ctx    context.Context
	handle clock.Timer
	next   time.Time
	fired  bool
}

func New(clk clock.Clock, target Resetter, opts Options) *Timer {
	if clk == nil {
		clk = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Timer{
		clock:     clk,
		target:    target,
		weekStart: opts.WeekStart,
		logger:    opts.Logger.WithPrefix("reset"),
		onReset:   opts.OnReset,
	}
}

// Start arms the timer and returns the boundary it will fire at. Calling it
// again while armed returns the same boundary.
func (t *Timer) Start(ctx context.Context) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle != nil {
		return t.next
	}
	now := t.clock.Now()
	t.ctx = ctx
	t.next = model.NextWeekBoundary(now, t.weekStart)
	t.fired = false
	t.handle = t.clock.AfterFunc(t.next.Sub(now), t.fire)
	t.logger.Info("weekly reset armed", "at", t.next.Format(time.RFC3339))
	return t.next
}

// Stop disarms a pending reset. It reports whether a reset was still pending.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle == nil {
		return false
	}
	stopped := t.handle.Stop()
	t.handle = nil
	return stopped && !t.fired
}

// Next returns the armed boundary.
func (t *Timer) Next() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle == nil || t.fired {
		return time.Time{}, false
	}
	return t.next, true
}

func (t *Timer) Fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

func (t *Timer) fire() {
	t.mu.Lock()
	if t.handle == nil || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	ctx := t.ctx
	t.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	removed := t.target.ResetAll(ctx)
	t.logger.Info("weekly reset fired", "removed", removed)
	if t.onReset != nil {
		t.onReset(removed)
	}
}
