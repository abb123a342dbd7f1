package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/taskngo/internal/clock"
	"github.com/sandeepkv93/taskngo/internal/model"
)

type fakeSender struct {
	mu        sync.Mutex
	sent      []Request
	retracted []Receipt
	fail      error
	n         int

	started   chan Request
	release   chan struct{}
	retractCh chan Receipt
}

func newFakeSender() *fakeSender {
	return &fakeSender{retractCh: make(chan Receipt, 16)}
}

func (f *fakeSender) Send(ctx context.Context, req Request) (Receipt, error) {
	if f.started != nil {
		f.started <- req
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return Receipt{}, f.fail
	}
	f.n++
	f.sent = append(f.sent, req)
	return Receipt{ID: fmt.Sprintf("r%d", f.n)}, nil
}

func (f *fakeSender) Retract(_ context.Context, rec Receipt) error {
	f.mu.Lock()
	f.retracted = append(f.retracted, rec)
	f.mu.Unlock()
	f.retractCh <- rec
	return nil
}

func (f *fakeSender) sentRequests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.sent...)
}

var testNow = time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)

func newTestGateway(t *testing.T, sender Sender, opts Options) (*Gateway, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(testNow)
	opts.Recipient = "player-1"
	g := New(sender, clk, opts)
	t.Cleanup(g.Close)
	return g, clk
}

func task(id string, due time.Duration) model.Task {
	return model.Task{
		ID:       id,
		Text:     "write report",
		DueAt:    testNow.Add(due),
		Priority: model.PriorityMedium,
	}
}

func waitResult(t *testing.T, g *Gateway) Result {
	t.Helper()
	select {
	case res := <-g.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch result")
		return Result{}
	}
}

func TestScheduleRemindersQueuesFutureThresholds(t *testing.T) {
	sender := newFakeSender()
	g, _ := newTestGateway(t, sender, Options{})
	g.Start()

	tk := task("1", 301*time.Second)
	plan, err := g.ScheduleReminders(tk)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(plan.Reminders) != 3 {
		t.Fatalf("expected 3 planned reminders, got %d", len(plan.Reminders))
	}
	for range plan.Reminders {
		res := waitResult(t, g)
		if res.Err != nil || !res.Scheduled {
			t.Fatalf("unexpected result %+v", res)
		}
	}

	sent := sender.sentRequests()
	if len(sent) != 3 {
		t.Fatalf("expected 3 sent requests, got %d", len(sent))
	}
	first := sent[0]
	if first.Recipient != "player-1" || first.Title != "5-minute reminder" {
		t.Fatalf("unexpected first request %+v", first)
	}
	if !first.SendAt.Equal(testNow.Add(time.Second)) {
		t.Fatalf("expected send_at now+1s, got %s", first.SendAt)
	}
	if first.Metadata[MetaCollapseID] != "task-1-5min" {
		t.Fatalf("unexpected collapse id %q", first.Metadata[MetaCollapseID])
	}
	if g.Pending("1") != 3 {
		t.Fatalf("expected 3 live handles, got %d", g.Pending("1"))
	}
}

func TestScheduleRemindersIsIdempotent(t *testing.T) {
	g, _ := newTestGateway(t, newFakeSender(), Options{})

	tk := task("1", 10*time.Minute)
	if _, err := g.ScheduleReminders(tk); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	plan, err := g.ScheduleReminders(tk)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if len(plan.Reminders) != 0 {
		t.Fatalf("expected no new reminders, got %d", len(plan.Reminders))
	}
}

func TestScheduleRemindersSkipsPastThresholds(t *testing.T) {
	g, _ := newTestGateway(t, newFakeSender(), Options{})

	plan, err := g.ScheduleReminders(task("1", 30*time.Second))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(plan.Reminders) != 1 || plan.Reminders[0].Threshold != model.ThresholdDue {
		t.Fatalf("expected only the due reminder, got %+v", plan.Reminders)
	}
}

func TestNotifySkipsScheduledThreshold(t *testing.T) {
	sender := newFakeSender()
	g, _ := newTestGateway(t, sender, Options{})
	g.Start()

	tk := task("1", 30*time.Second)
	if _, err := g.ScheduleReminders(tk); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	waitResult(t, g)

	sent, err := g.Notify(tk, model.ThresholdDue)
	if err != nil || sent {
		t.Fatalf("expected scheduled threshold to be skipped, sent=%v err=%v", sent, err)
	}
	sent, err = g.Notify(tk, model.ThresholdOneMinute)
	if err != nil || !sent {
		t.Fatalf("expected unscheduled threshold to send, sent=%v err=%v", sent, err)
	}
	res := waitResult(t, g)
	if res.Scheduled || res.Threshold != model.ThresholdOneMinute {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestNotifySendsImmediately(t *testing.T) {
	sender := newFakeSender()
	g, _ := newTestGateway(t, sender, Options{})
	g.Start()

	if _, err := g.Notify(task("7", 0), model.ThresholdDue); err != nil {
		t.Fatalf("notify: %v", err)
	}
	res := waitResult(t, g)
	if res.Err != nil || res.Receipt.ID == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	sent := sender.sentRequests()
	if len(sent) != 1 || !sent[0].SendAt.IsZero() || sent[0].Title != "Task due" {
		t.Fatalf("unexpected requests %+v", sent)
	}
	if g.Pending("7") != 0 {
		t.Fatalf("delivered immediate push should not stay pending")
	}
}

func TestSendFailureIsReported(t *testing.T) {
	boom := errors.New("service unavailable")
	sender := newFakeSender()
	sender.fail = boom
	g, _ := newTestGateway(t, sender, Options{})
	g.Start()

	if _, err := g.ScheduleReminders(task("1", 30*time.Second)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	res := waitResult(t, g)
	if !errors.Is(res.Err, ErrDispatch) || !errors.Is(res.Err, boom) {
		t.Fatalf("expected dispatch error wrapping cause, got %v", res.Err)
	}
	if g.Pending("1") != 0 {
		t.Fatalf("failed scheduled push should free its slot")
	}
}

func TestCancelRemindersRetractsAccepted(t *testing.T) {
	sender := newFakeSender()
	g, _ := newTestGateway(t, sender, Options{})
	g.Start()

	plan, err := g.ScheduleReminders(task("1", 10*time.Minute))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	for range plan.Reminders {
		waitResult(t, g)
	}

	g.CancelReminders("1")
	seen := map[string]bool{}
	for range plan.Reminders {
		select {
		case rec := <-sender.retractCh:
			seen[rec.ID] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for retraction")
		}
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct retractions, got %v", seen)
	}
	if g.Pending("1") != 0 {
		t.Fatalf("expected no live handles after cancel")
	}

	g.CancelReminders("1")
	g.CancelReminders("unknown")
	g.Close()
	if len(sender.retracted) != 3 {
		t.Fatalf("repeated cancel must be a no-op, got %d retractions", len(sender.retracted))
	}
}

func TestCancelWhileSendInFlightRetracts(t *testing.T) {
	sender := newFakeSender()
	sender.started = make(chan Request, 1)
	sender.release = make(chan struct{})
	g, _ := newTestGateway(t, sender, Options{})
	g.Start()

	if _, err := g.ScheduleReminders(task("1", 30*time.Second)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	<-sender.started
	g.CancelReminders("1")
	close(sender.release)

	select {
	case rec := <-sender.retractCh:
		if rec.ID != "r1" {
			t.Fatalf("unexpected retracted receipt %q", rec.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight push accepted after cancel was not retracted")
	}
}

func TestCancelBeforeSendSkipsDelivery(t *testing.T) {
	sender := newFakeSender()
	g, _ := newTestGateway(t, sender, Options{})

	if _, err := g.ScheduleReminders(task("early", 30*time.Second)); err != nil {
		t.Fatalf("schedule early: %v", err)
	}
	later, err := g.ScheduleReminders(task("late", time.Hour))
	if err != nil {
		t.Fatalf("schedule late: %v", err)
	}
	g.CancelReminders("early")
	g.Start()

	for range later.Reminders {
		res := waitResult(t, g)
		if res.TaskID != "late" {
			t.Fatalf("cancelled task produced a result: %+v", res)
		}
	}
	for _, req := range sender.sentRequests() {
		if req.Metadata[MetaTaskID] == "early" {
			t.Fatalf("cancelled request was sent: %+v", req)
		}
	}
}

func TestCancelledTaskRefusesLaterRequests(t *testing.T) {
	sender := newFakeSender()
	g, _ := newTestGateway(t, sender, Options{})
	g.Start()

	g.CancelReminders("gone")
	sent, err := g.Notify(task("gone", 0), model.ThresholdDue)
	if err != nil || sent {
		t.Fatalf("notify after cancel: sent=%v err=%v", sent, err)
	}
	if _, err := g.ScheduleReminders(task("gone", 10*time.Minute)); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if g.Pending("gone") != 0 {
		t.Fatalf("cancelled task must not keep handles, got %d", g.Pending("gone"))
	}
	if err := g.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := sender.sentRequests(); len(got) != 0 {
		t.Fatalf("push sent for a cancelled task: %+v", got)
	}
}

func TestQueueFullIsCountedAsDropped(t *testing.T) {
	g, _ := newTestGateway(t, newFakeSender(), Options{QueueSize: 1})

	if _, err := g.Notify(task("a", 0), model.ThresholdDue); err != nil {
		t.Fatalf("first notify: %v", err)
	}
	_, err := g.Notify(task("b", 0), model.ThresholdDue)
	if !errors.Is(err, ErrQueueFull) || !errors.Is(err, ErrDispatch) {
		t.Fatalf("expected queue full dispatch error, got %v", err)
	}
	if g.Dropped() != 1 {
		t.Fatalf("expected 1 dropped, got %d", g.Dropped())
	}
	if g.Pending("b") != 0 {
		t.Fatalf("rejected request must not stay pending")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	g, _ := newTestGateway(t, newFakeSender(), Options{})
	g.Start()
	g.Close()
	g.Close()

	if _, err := g.Notify(task("1", 0), model.ThresholdDue); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, ok := <-g.Results(); ok {
		t.Fatalf("results channel should be closed")
	}
}

func TestFlushWaitsForQueuedSends(t *testing.T) {
	sender := newFakeSender()
	g, _ := newTestGateway(t, sender, Options{})
	g.Start()

	plan, err := g.ScheduleReminders(task("1", 10*time.Minute))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := len(sender.sentRequests()); got != len(plan.Reminders) {
		t.Fatalf("expected %d sends after flush, got %d", len(plan.Reminders), got)
	}
}
