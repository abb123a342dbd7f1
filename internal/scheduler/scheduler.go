// Package scheduler drives the per-task reminder state machine. A Scheduler
// ticks once per interval, evaluates every active task and executes the
// resulting effects without waiting on any I/O.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sandeepkv93/taskngo/internal/clock"
	"github.com/sandeepkv93/taskngo/internal/logging"
	"github.com/sandeepkv93/taskngo/internal/model"
	"github.com/sandeepkv93/taskngo/internal/store"
)

const (
	DefaultAlertTimeout = 5 * time.Second
	DefaultAlertWorkers = 4
)

var (
	ErrRunning   = errors.New("scheduler: already running")
	ErrPanic     = errors.New("scheduler: recovered panic")
	ErrAlertBusy = errors.New("scheduler: local alerts busy")
)

// Store is the slice of the task store the scheduler reads and writes.
type Store interface {
	Active() []model.Task
	ApplyAlertState(ctx context.Context, id string, st store.AlertState) error
	ArchiveOverdue(ctx context.Context, now time.Time) []string
}

// Notifier requests a remote push for a fired threshold. It must not block
// on the network.
type Notifier interface {
	Notify(task model.Task, th model.Threshold) (bool, error)
}

// Alerter produces the local sensory alert for a fired threshold. Alerts run
// off the tick goroutine, bounded by Options.AlertTimeout.
type Alerter interface {
	Alert(ctx context.Context, task model.Task, th model.Threshold) error
}

type EventKind int

const (
	EventAlertFired EventKind = iota
	EventConfirmationRequested
	EventShakeCleared
	EventTasksArchived
)

func (k EventKind) String() string {
	switch k {
	case EventAlertFired:
		return "alert_fired"
	case EventConfirmationRequested:
		return "confirmation_requested"
	case EventShakeCleared:
		return "shake_cleared"
	case EventTasksArchived:
		return "tasks_archived"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind      EventKind
	TaskID    string
	TaskIDs   []string
	Text      string
	Threshold model.Threshold
	At        time.Time
}

// Report summarizes one tick.
type Report struct {
	Evaluated int
	Fired     int
	Skipped   int
	Failed    int
	Archived  int
}

// Options configure a Scheduler. Interval is the Run loop period and
// defaults to DefaultTick. At most AlertWorkers local alerts run at once;
// further ones are dropped and counted.
type Options struct {
	Windows            Windows
	Interval           time.Duration
	AutoArchiveOverdue bool
	Notifier           Notifier
	Alerter            Alerter
	AlertTimeout       time.Duration
	AlertWorkers       int
	Logger             *log.Logger
	EventBuffer        int
}

type Scheduler struct {
	store       Store
	clock       clock.Clock
	windows     Windows
	interval    time.Duration
	autoArchive bool
	notifier    Notifier
	alerter     Alerter
	logger      *log.Logger

	out     chan Event
	dropped uint64

	alertTimeout  time.Duration
	alertSlots    chan struct{}
	alerts        sync.WaitGroup
	alertsDropped uint64

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func New(st Store, clk clock.Clock, opts Options) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultTick
	}
	if opts.AlertTimeout <= 0 {
		opts.AlertTimeout = DefaultAlertTimeout
	}
	if opts.AlertWorkers <= 0 {
		opts.AlertWorkers = DefaultAlertWorkers
	}
	return &Scheduler{
		store:        st,
		clock:        clk,
		windows:      opts.Windows.normalized(),
		interval:     opts.Interval,
		autoArchive:  opts.AutoArchiveOverdue,
		notifier:     opts.Notifier,
		alerter:      opts.Alerter,
		logger:       opts.Logger.WithPrefix("scheduler"),
		out:          make(chan Event, opts.EventBuffer),
		alertTimeout: opts.AlertTimeout,
		alertSlots:   make(chan struct{}, opts.AlertWorkers),
	}
}

func (s *Scheduler) C() <-chan Event {
	return s.out
}

func (s *Scheduler) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// AlertsDropped counts local alerts skipped because every worker was busy.
func (s *Scheduler) AlertsDropped() uint64 {
	return atomic.LoadUint64(&s.alertsDropped)
}

// WaitAlerts blocks until every started local alert has returned.
func (s *Scheduler) WaitAlerts() {
	s.alerts.Wait()
}

func (s *Scheduler) Windows() Windows {
	return s.windows
}

// Run ticks until ctx is cancelled or Stop is called.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	s.running = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	s.stopCh = stopCh
	s.doneCh = doneCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.stopCh = nil
		s.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Stop ends a running Run loop and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.stopCh = nil
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

// Tick evaluates every active task once against the current clock.
func (s *Scheduler) Tick(ctx context.Context) Report {
	now := s.clock.Now()
	var rep Report

	if s.autoArchive {
		if ids := s.store.ArchiveOverdue(ctx, now); len(ids) > 0 {
			rep.Archived = len(ids)
			s.logger.Info("archived overdue tasks", "count", len(ids))
			s.emit(Event{Kind: EventTasksArchived, TaskIDs: ids, At: now})
		}
	}

	for _, t := range s.store.Active() {
		if ctx.Err() != nil {
			break
		}
		rep.Evaluated++
		fired, err := s.evaluate(ctx, t, now)
		switch {
		case err != nil:
			rep.Failed++
			s.logger.Error("task evaluation failed", "task", t.ID, "err", err)
		case fired < 0:
			rep.Skipped++
		default:
			rep.Fired += fired
		}
	}
	return rep
}

// evaluate returns the number of thresholds fired, or -1 when the task left
// the active set before its new state could be stored.
func (s *Scheduler) evaluate(ctx context.Context, t model.Task, now time.Time) (fired int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: task %s: %v", ErrPanic, t.ID, r)
		}
	}()

	next, effects := EvaluateTask(t, now, s.windows)
	if len(effects) == 0 && next.IsShaking == t.IsShaking {
		return 0, nil
	}

	err = s.store.ApplyAlertState(ctx, t.ID, store.AlertState{
		Alerts:            next.Alerts,
		IsShaking:         next.IsShaking,
		RaiseConfirmation: next.PendingConfirmation && !t.PendingConfirmation,
	})
	if errors.Is(err, store.ErrInactive) || errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("task left active set during tick", "task", t.ID)
		return -1, nil
	}
	if err != nil {
		return 0, err
	}

	if t.IsShaking && !next.IsShaking {
		s.emit(Event{Kind: EventShakeCleared, TaskID: t.ID, Text: t.Text, At: now})
	}
	for _, e := range effects {
		if e.Kind == EffectShake {
			fired++
		}
		if err := s.apply(ctx, next, e, now); err != nil {
			s.logger.Warn("reminder effect failed", "task", t.ID, "threshold", e.Threshold, "effect", e.Kind, "err", err)
		}
	}
	return fired, nil
}

// apply runs one effect in isolation so a failing local alert never stops
// the remote dispatch of the same firing, and the other way round.
func (s *Scheduler) apply(ctx context.Context, t model.Task, e Effect, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	switch e.Kind {
	case EffectSound:
		if s.alerter == nil {
			return nil
		}
		select {
		case s.alertSlots <- struct{}{}:
		default:
			atomic.AddUint64(&s.alertsDropped, 1)
			return ErrAlertBusy
		}
		s.alerts.Add(1)
		go s.sound(ctx, t, e.Threshold)
	case EffectShake:
		s.logger.Info("reminder fired", "task", t.ID, "threshold", e.Threshold)
		s.emit(Event{Kind: EventAlertFired, TaskID: t.ID, Text: t.Text, Threshold: e.Threshold, At: now})
	case EffectDispatch:
		if s.notifier == nil {
			return nil
		}
		_, err = s.notifier.Notify(t, e.Threshold)
		return err
	case EffectConfirm:
		s.emit(Event{Kind: EventConfirmationRequested, TaskID: t.ID, Text: t.Text, Threshold: e.Threshold, At: now})
	}
	return nil
}

func (s *Scheduler) sound(ctx context.Context, t model.Task, th model.Threshold) {
	defer func() {
		<-s.alertSlots
		s.alerts.Done()
	}()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("local alert panicked", "task", t.ID, "threshold", th, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.alertTimeout)
	defer cancel()
	if err := s.alerter.Alert(ctx, t, th); err != nil {
		s.logger.Warn("local alert failed", "task", t.ID, "threshold", th, "err", err)
	}
}

func (s *Scheduler) emit(ev Event) {
	select {
	case s.out <- ev:
	default:
		atomic.AddUint64(&s.dropped, 1)
	}
}
