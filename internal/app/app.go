// Package app wires the task store, reminder scheduler, dispatch gateway and
// weekly reset timer into one session.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sandeepkv93/taskngo/internal/alert"
	"github.com/sandeepkv93/taskngo/internal/clock"
	"github.com/sandeepkv93/taskngo/internal/config"
	"github.com/sandeepkv93/taskngo/internal/dispatch"
	"github.com/sandeepkv93/taskngo/internal/logging"
	"github.com/sandeepkv93/taskngo/internal/model"
	"github.com/sandeepkv93/taskngo/internal/push"
	"github.com/sandeepkv93/taskngo/internal/reset"
	"github.com/sandeepkv93/taskngo/internal/scheduler"
	"github.com/sandeepkv93/taskngo/internal/storage"
	"github.com/sandeepkv93/taskngo/internal/store"
)

const (
	NoticeScheduled    = "This task has been scheduled!"
	NoticeReset        = "Tasks have been reset for the week!"
	NoticeNotScheduled = "Reminders could not be scheduled. You will only be alerted while taskngo is open."
)

type Notice struct {
	Text    string
	Warning bool
	At      time.Time
}

type Options struct {
	Config config.Config
	Clock  clock.Clock
	Logger *log.Logger
	// Sender and Alerter replace the configured push provider and local
	// alerts when set.
	Sender  dispatch.Sender
	Alerter scheduler.Alerter
	// BellWriter receives the terminal bell. Defaults to stderr.
	BellWriter io.Writer
}

type App struct {
	cfg    config.Config
	clock  clock.Clock
	logger *log.Logger

	store     *store.Store
	gateway   *dispatch.Gateway
	scheduler *scheduler.Scheduler
	reset     *reset.Timer
	repo      *storage.SQLiteRepository

	notices chan Notice

	mu          sync.Mutex
	started     bool
	closed      bool
	noticesDone bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	a := &App{
		cfg:     cfg,
		clock:   clk,
		logger:  logger,
		notices: make(chan Notice, 32),
	}

	sender := opts.Sender
	if sender == nil {
		var err error
		if sender, err = newSender(cfg.Push, logger); err != nil {
			return nil, err
		}
	}
	a.gateway = dispatch.New(sender, clk, dispatch.Options{
		Recipient: cfg.Push.Recipient,
		Timeout:   cfg.Push.Timeout,
		QueueSize: cfg.Push.QueueSize,
		Logger:    logger,
	})

	storeOpts := []store.Option{store.WithCanceller(a.gateway), store.WithLogger(logger.WithPrefix("store"))}
	if cfg.Storage.Path != "" {
		repo, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("app: open storage: %w", err)
		}
		a.repo = repo
		storeOpts = append(storeOpts, store.WithRepository(repo))
	}
	a.store = store.New(clk, storeOpts...)
	n, err := a.store.Load(ctx)
	if err != nil {
		a.closeRepo()
		return nil, fmt.Errorf("app: load tasks: %w", err)
	}
	logger.Debug("tasks loaded", "count", n)

	alerter := opts.Alerter
	if alerter == nil {
		bell := opts.BellWriter
		if bell == nil {
			bell = os.Stderr
		}
		alerter = newAlerter(cfg.Alerts, bell)
	}
	a.scheduler = scheduler.New(a.store, clk, scheduler.Options{
		Windows: scheduler.Windows{
			Width: cfg.Scheduler.TickWindow,
			Decay: cfg.Scheduler.DecayWindow,
		},
		Interval:           cfg.Scheduler.Tick,
		AutoArchiveOverdue: cfg.Scheduler.AutoArchiveOverdueAtEndOfDay,
		Notifier:           a.gateway,
		Alerter:            alerter,
		Logger:             logger,
	})

	if cfg.Reset.Enabled {
		a.reset = reset.New(clk, a.store, reset.Options{
			WeekStart: cfg.WeekStart(),
			Logger:    logger,
			OnReset: func(int) {
				a.notify(NoticeReset, false)
			},
		})
	}
	return a, nil
}

func newSender(cfg config.PushConfig, logger *log.Logger) (dispatch.Sender, error) {
	switch cfg.Provider {
	case config.ProviderOneSignal:
		return push.NewOneSignal(push.OneSignalOptions{
			AppID:   cfg.AppID,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
	default:
		return push.NewLog(logger), nil
	}
}

func newAlerter(cfg config.AlertsConfig, bell io.Writer) scheduler.Alerter {
	var alerters alert.Multi
	if cfg.Bell {
		alerters = append(alerters, alert.NewBell(bell))
	}
	if cfg.Desktop {
		alerters = append(alerters, alert.NewDesktop())
	}
	if len(alerters) == 0 {
		return alert.Noop{}
	}
	return alerters
}

// Start launches the tick loop, the delivery worker and the weekly reset.
// With tick false only delivery runs, which is what one-shot CLI commands need.
func (a *App) Start(ctx context.Context, tick bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.closed {
		return
	}
	a.started = true
	ctx, a.cancel = context.WithCancel(ctx)

	a.gateway.Start()
	a.wg.Add(1)
	go a.drainResults()

	if !tick {
		return
	}
	if a.reset != nil {
		a.reset.Start(ctx)
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("scheduler stopped", "err", err)
		}
	}()
}

// Close stops every component and invalidates all pending dispatches.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	cancel := a.cancel
	a.mu.Unlock()

	a.scheduler.Stop()
	if cancel != nil {
		cancel()
	}
	if a.reset != nil {
		a.reset.Stop()
	}
	a.scheduler.WaitAlerts()
	a.gateway.Close()
	a.wg.Wait()

	a.mu.Lock()
	a.noticesDone = true
	close(a.notices)
	a.mu.Unlock()
	return a.closeRepo()
}

func (a *App) closeRepo() error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Close()
}

func (a *App) drainResults() {
	defer a.wg.Done()
	for res := range a.gateway.Results() {
		if res.Err == nil {
			continue
		}
		a.logger.Warn("reminder push failed", "task", res.TaskID, "threshold", res.Threshold, "scheduled", res.Scheduled, "err", res.Err)
		if res.Scheduled {
			a.notify(NoticeNotScheduled, true)
		}
	}
}

func (a *App) notify(text string, warning bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.noticesDone {
		return
	}
	select {
	case a.notices <- Notice{Text: text, Warning: warning, At: a.clock.Now()}:
	default:
		a.logger.Debug("notice dropped", "text", text)
	}
}

// Notices yields user-facing messages. The channel is closed by Close.
func (a *App) Notices() <-chan Notice {
	return a.notices
}

// Events yields scheduler events for the UI.
func (a *App) Events() <-chan scheduler.Event {
	return a.scheduler.C()
}

func (a *App) Config() config.Config {
	return a.cfg
}

func (a *App) Now() time.Time {
	return a.clock.Now()
}

// AddTask creates a task and, when configured, hands its reminders to the
// push service. A scheduling failure never undoes the creation.
func (a *App) AddTask(ctx context.Context, text, due string, priority model.Priority) (model.Task, error) {
	task, err := a.store.Create(ctx, text, due, priority)
	if err != nil {
		return model.Task{}, err
	}
	a.logger.Info("task added", "task", task.ID, "due", task.DueAt.Format(time.RFC3339))
	if a.cfg.Push.ScheduleOnCreate {
		if _, err := a.gateway.ScheduleReminders(task); err != nil {
			a.logger.Warn("scheduling reminders failed", "task", task.ID, "err", err)
			a.notify(NoticeNotScheduled, true)
		}
	}
	return task, nil
}

// ScheduleReminders hands a task's future reminders to the push service.
func (a *App) ScheduleReminders(id string) (dispatch.Plan, error) {
	task, ok := a.store.Get(id)
	if !ok {
		return dispatch.Plan{}, store.ErrNotFound
	}
	if !task.Active() {
		return dispatch.Plan{}, store.ErrInactive
	}
	plan, err := a.gateway.ScheduleReminders(task)
	if err != nil {
		a.logger.Warn("scheduling reminders failed", "task", id, "err", err)
		a.notify(NoticeNotScheduled, true)
		return plan, err
	}
	a.notify(NoticeScheduled, false)
	return plan, nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	return a.store.Delete(ctx, id)
}

func (a *App) Archive(ctx context.Context, id string) error {
	return a.store.Archive(ctx, id)
}

// ConfirmCompletion answers the "did you complete this?" prompt.
// RequestCompletion raises the completion prompt for a task; the answer
// goes to ConfirmCompletion.
func (a *App) RequestCompletion(id string) error {
	return a.store.RequestCompletion(id)
}

func (a *App) ConfirmCompletion(ctx context.Context, id string, completed bool) error {
	return a.store.ConfirmCompletion(ctx, id, completed)
}

func (a *App) PendingConfirmations() []model.Task {
	return a.store.PendingConfirmations()
}

func (a *App) Task(id string) (model.Task, bool) {
	return a.store.Get(id)
}

func (a *App) Categorize() store.Categories {
	return a.store.Categorize(a.clock.Now())
}

// ResetAll clears every task now, as the weekly reset would.
func (a *App) ResetAll(ctx context.Context) int {
	n := a.store.ResetAll(ctx)
	a.notify(NoticeReset, false)
	return n
}

// NextReset reports when the weekly reset will fire. It is false when the
// reset is disabled.
func (a *App) NextReset() (time.Time, bool) {
	if a.reset == nil {
		return time.Time{}, false
	}
	if next, ok := a.reset.Next(); ok {
		return next, true
	}
	return model.NextWeekBoundary(a.clock.Now(), a.cfg.WeekStart()), true
}

// Flush waits for queued push requests to reach the push service.
func (a *App) Flush(ctx context.Context) error {
	return a.gateway.Flush(ctx)
}

// Tick evaluates every active task once against the current clock.
func (a *App) Tick(ctx context.Context) scheduler.Report {
	return a.scheduler.Tick(ctx)
}
