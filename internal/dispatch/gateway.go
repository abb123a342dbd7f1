package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sandeepkv93/taskngo/internal/clock"
	"github.com/sandeepkv93/taskngo/internal/logging"
	"github.com/sandeepkv93/taskngo/internal/model"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultQueueSize = 256
)

type Options struct {
	Recipient string
	Timeout   time.Duration
	QueueSize int
	Logger    *log.Logger
}

// handle tracks one request from enqueue until it is cancelled or, for
// immediate sends, delivered.
type handle struct {
	id        string
	taskID    string
	threshold model.Threshold
	scheduled bool

	mu        sync.Mutex
	cancelled bool
	accepted  bool
	receipt   Receipt
}

// cancel marks the handle and reports the receipt to retract, if the
// service already accepted the request.
func (h *handle) cancel() (Receipt, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled = true
	return h.receipt, h.accepted
}

// accept records the receipt and reports whether a cancel raced the send.
func (h *handle) accept(rec Receipt) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.receipt = rec
	h.accepted = true
	return h.cancelled
}

func (h *handle) isCancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Gateway delivers reminder pushes through a Sender. Every public method
// returns without waiting for the network.
type Gateway struct {
	sender    Sender
	clock     clock.Clock
	logger    *log.Logger
	recipient string
	timeout   time.Duration

	mu      sync.Mutex
	pending map[string]map[model.Threshold]*handle
	closed  bool
	results chan Result
	lost    uint64

	// Task ids are never reused, so a cancelled id stays refused.
	cancelled map[string]struct{}

	queue  *queue
	ctx    context.Context
	cancel context.CancelFunc
}

func New(sender Sender, clk clock.Clock, opts Options) *Gateway {
	if clk == nil {
		clk = clock.Real()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		sender:    sender,
		clock:     clk,
		logger:    opts.Logger.WithPrefix("dispatch"),
		recipient: opts.Recipient,
		timeout:   opts.Timeout,
		pending:   make(map[string]map[model.Threshold]*handle),
		cancelled: make(map[string]struct{}),
		results:   make(chan Result, opts.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	g.queue = newQueue(opts.QueueSize, g.run)
	return g
}

func (g *Gateway) Start() {
	g.queue.Start()
}

// Close cancels every outstanding handle, aborts in-flight sends and closes
// the results channel. Later calls are no-ops.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	for taskID, byThreshold := range g.pending {
		for _, h := range byThreshold {
			h.cancel()
		}
		delete(g.pending, taskID)
	}
	g.mu.Unlock()

	g.cancel()
	g.queue.Stop()

	g.mu.Lock()
	close(g.results)
	g.mu.Unlock()
}

// Results yields one Result per delivery attempt that reached the sender.
// The channel is closed by Close.
func (g *Gateway) Results() <-chan Result {
	return g.results
}

// Dropped counts requests rejected by a full queue plus results discarded
// because nobody drained Results.
func (g *Gateway) Dropped() uint64 {
	return g.queue.Dropped() + atomic.LoadUint64(&g.lost)
}

// Flush waits until every queued request has been handed to the sender, or
// ctx ends. It returns immediately when the gateway is not started.
func (g *Gateway) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !g.queue.Idle() {
		if !g.queue.Running() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Pending reports how many live handles a task has.
func (g *Gateway) Pending(taskID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending[taskID])
}

// ScheduleReminders hands every future threshold of an active task to the
// push service with its fire time. Thresholds that already have a live
// handle are left alone, so calling it twice does not duplicate pushes.
func (g *Gateway) ScheduleReminders(task model.Task) (Plan, error) {
	plan := Plan{TaskID: task.ID}
	reminders := model.PlanReminders(task, g.clock.Now())
	if len(reminders) == 0 {
		return plan, nil
	}

	var errs []error
	for _, r := range reminders {
		h, fresh, err := g.register(task.ID, r.Threshold, true)
		if err != nil {
			return plan, err
		}
		if !fresh {
			continue
		}
		req := requestFor(g.recipient, task, r.Threshold, r.FireAt)
		if err := g.enqueue(h, req); err != nil {
			errs = append(errs, &DispatchError{TaskID: task.ID, Threshold: r.Threshold, Err: err})
			continue
		}
		plan.Reminders = append(plan.Reminders, r)
	}
	g.logger.Debug("reminders scheduled", "task", task.ID, "count", len(plan.Reminders))
	return plan, errors.Join(errs...)
}

// Notify sends the push for a threshold the local engine just crossed. When
// the same threshold was already handed to the service by
// ScheduleReminders, or the task's reminders were cancelled meanwhile,
// nothing is sent and Notify reports false.
func (g *Gateway) Notify(task model.Task, th model.Threshold) (bool, error) {
	if !th.IsValid() {
		return false, model.ErrInvalidThreshold
	}
	h, fresh, err := g.register(task.ID, th, false)
	if errors.Is(err, ErrCancelled) {
		g.logger.Debug("task left the active set, push dropped", "task", task.ID, "threshold", th)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !fresh {
		return false, nil
	}
	if err := g.enqueue(h, requestFor(g.recipient, task, th, time.Time{})); err != nil {
		return false, &DispatchError{TaskID: task.ID, Threshold: th, Err: err}
	}
	return true, nil
}

// CancelReminders drops every outstanding request for the task and refuses
// any later request for it. Requests the service already accepted are
// retracted when the sender supports it. Unknown or already cancelled tasks
// are ignored.
func (g *Gateway) CancelReminders(taskID string) {
	g.mu.Lock()
	byThreshold := g.pending[taskID]
	delete(g.pending, taskID)
	g.cancelled[taskID] = struct{}{}
	closed := g.closed
	g.mu.Unlock()

	for _, h := range byThreshold {
		rec, accepted := h.cancel()
		if !accepted || closed {
			continue
		}
		if err := g.queue.Push(job{kind: jobRetract, handle: h}); err != nil {
			g.logger.Warn("retraction not queued", "task", taskID, "threshold", h.threshold, "receipt", rec.ID, "err", err)
		}
	}
	if len(byThreshold) > 0 {
		g.logger.Debug("reminders cancelled", "task", taskID, "count", len(byThreshold))
	}
}

func (g *Gateway) register(taskID string, th model.Threshold, scheduled bool) (*handle, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, false, ErrClosed
	}
	if _, gone := g.cancelled[taskID]; gone {
		return nil, false, ErrCancelled
	}
	byThreshold := g.pending[taskID]
	if byThreshold == nil {
		byThreshold = make(map[model.Threshold]*handle)
		g.pending[taskID] = byThreshold
	}
	if existing := byThreshold[th]; existing != nil {
		return existing, false, nil
	}
	h := &handle{
		id:        uuid.NewString(),
		taskID:    taskID,
		threshold: th,
		scheduled: scheduled,
	}
	byThreshold[th] = h
	return h, true, nil
}

func (g *Gateway) forget(h *handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	byThreshold := g.pending[h.taskID]
	if byThreshold[h.threshold] != h {
		return
	}
	delete(byThreshold, h.threshold)
	if len(byThreshold) == 0 {
		delete(g.pending, h.taskID)
	}
}

func (g *Gateway) enqueue(h *handle, req Request) error {
	if err := req.Validate(); err != nil {
		g.forget(h)
		return err
	}
	if err := g.queue.Push(job{kind: jobSend, handle: h, req: req}); err != nil {
		g.forget(h)
		return err
	}
	return nil
}

func (g *Gateway) run(j job) {
	switch j.kind {
	case jobRetract:
		g.retract(j.handle)
	default:
		g.send(j)
	}
}

func (g *Gateway) send(j job) {
	h := j.handle
	if h.isCancelled() {
		g.logger.Debug("skipping cancelled request", "task", h.taskID, "threshold", h.threshold)
		return
	}

	ctx, cancel := context.WithTimeout(g.ctx, g.timeout)
	rec, err := g.sender.Send(ctx, j.req)
	cancel()

	res := Result{
		HandleID:  h.id,
		TaskID:    h.taskID,
		Threshold: h.threshold,
		Scheduled: h.scheduled,
		Receipt:   rec,
	}
	if err != nil {
		// A failed scheduled push frees the slot so the local tick sends it.
		g.forget(h)
		res.Err = &DispatchError{TaskID: h.taskID, Threshold: h.threshold, Err: err}
		g.logger.Warn("push failed", "task", h.taskID, "threshold", h.threshold, "err", err)
		g.emit(res)
		return
	}

	if !h.scheduled {
		g.forget(h)
	}
	if raced := h.accept(rec); raced && h.scheduled {
		g.retract(h)
	}
	g.logger.Debug("push accepted", "task", h.taskID, "threshold", h.threshold, "receipt", rec.ID)
	g.emit(res)
}

func (g *Gateway) retract(h *handle) {
	r, ok := g.sender.(Retractor)
	if !ok {
		return
	}
	h.mu.Lock()
	rec := h.receipt
	h.mu.Unlock()
	if rec.ID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(g.ctx, g.timeout)
	defer cancel()
	if err := r.Retract(ctx, rec); err != nil {
		g.logger.Warn("retraction failed", "task", h.taskID, "threshold", h.threshold, "receipt", rec.ID, "err", err)
		return
	}
	g.logger.Debug("push retracted", "task", h.taskID, "threshold", h.threshold, "receipt", rec.ID)
}

func (g *Gateway) emit(res Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	select {
	case g.results <- res:
	default:
		atomic.AddUint64(&g.lost, 1)
	}
}
