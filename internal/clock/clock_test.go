package clock

import (
	"testing"
	"time"
)

func TestFakeAdvanceFiresInDeadlineOrder(t *testing.T) {
	start := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	c := NewFake(start)
	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "later") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "sooner") })

	c.Advance(500 * time.Millisecond)
	if len(fired) != 0 {
		t.Fatalf("expected nothing fired yet, got %v", fired)
	}
	c.Advance(2 * time.Second)
	if len(fired) != 2 || fired[0] != "sooner" || fired[1] != "later" {
		t.Fatalf("unexpected fire order: %v", fired)
	}
	if !c.Now().Equal(start.Add(2500 * time.Millisecond)) {
		t.Fatalf("unexpected now: %s", c.Now())
	}
}

func TestFakeStopPreventsFire(t *testing.T) {
	c := NewFake(time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC))
	fired := false
	timer := c.AfterFunc(time.Minute, func() { fired = true })
	if !timer.Stop() {
		t.Fatal("expected first stop to report an armed timer")
	}
	if timer.Stop() {
		t.Fatal("expected second stop to be a no-op")
	}
	c.Advance(time.Hour)
	if fired {
		t.Fatal("stopped timer fired")
	}
	if c.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", c.Pending())
	}
}

func TestRealClockAfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real().AfterFunc(10*time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for real timer")
	}
}
