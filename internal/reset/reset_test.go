package reset

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/taskngo/internal/clock"
	"github.com/sandeepkv93/taskngo/internal/model"
	"github.com/sandeepkv93/taskngo/internal/store"
)

type recordingCanceller struct {
	mu  sync.Mutex
	ids []string
}

func (c *recordingCanceller) CancelReminders(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, taskID)
}

// Wednesday afternoon.
var wednesday = time.Date(2026, 2, 11, 15, 30, 0, 0, time.UTC)

func seed(t *testing.T, st *store.Store, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		task, err := st.Add(context.Background(), "task", wednesday.Add(time.Duration(i+1)*time.Hour), model.PriorityMedium)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		ids = append(ids, task.ID)
	}
	return ids
}

func TestTimerResetsAtNextSunday(t *testing.T) {
	clk := clock.NewFake(wednesday)
	canceller := &recordingCanceller{}
	st := store.New(clk, store.WithCanceller(canceller))
	ids := seed(t, st, 4)

	removed := -1
	timer := New(clk, st, Options{WeekStart: time.Sunday, OnReset: func(n int) { removed = n }})
	next := timer.Start(context.Background())

	want := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected boundary %s, got %s", want, next)
	}

	clk.Set(want.Add(-time.Second))
	if timer.Fired() || st.Len() != 4 {
		t.Fatalf("reset fired before the boundary")
	}

	clk.Advance(time.Second)
	if !timer.Fired() {
		t.Fatalf("expected reset to fire at the boundary")
	}
	if st.Len() != 0 || removed != 4 {
		t.Fatalf("expected empty store, len=%d removed=%d", st.Len(), removed)
	}

	sort.Strings(ids)
	if len(canceller.ids) != len(ids) {
		t.Fatalf("expected %d cancellations, got %v", len(ids), canceller.ids)
	}
	for i := range ids {
		if canceller.ids[i] != ids[i] {
			t.Fatalf("cancellations %v, want %v", canceller.ids, ids)
		}
	}
	if _, ok := timer.Next(); ok {
		t.Fatalf("timer must not re-arm itself")
	}
	if clk.Pending() != 0 {
		t.Fatalf("expected no armed timers after firing")
	}
}

func TestTimerCustomWeekStart(t *testing.T) {
	clk := clock.NewFake(wednesday)
	timer := New(clk, store.New(clk), Options{WeekStart: time.Monday})
	next := timer.Start(context.Background())
	want := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %s, got %s", want, next)
	}
	if again := timer.Start(context.Background()); !again.Equal(next) {
		t.Fatalf("restart while armed should keep %s, got %s", next, again)
	}
	if clk.Pending() != 1 {
		t.Fatalf("expected a single armed timer, got %d", clk.Pending())
	}
}

func TestTimerStopPreventsReset(t *testing.T) {
	clk := clock.NewFake(wednesday)
	st := store.New(clk)
	seed(t, st, 2)

	timer := New(clk, st, Options{})
	timer.Start(context.Background())
	if !timer.Stop() {
		t.Fatalf("expected pending reset to be stopped")
	}
	if timer.Stop() {
		t.Fatalf("second stop should report nothing pending")
	}

	clk.Advance(7 * 24 * time.Hour)
	if timer.Fired() || st.Len() != 2 {
		t.Fatalf("stopped timer must not reset the store")
	}
}
