// Package store owns the authoritative task collection. Every mutation of a
// task, including the scheduler's alert bookkeeping, goes through a Store
// method so that user cancellations and scheduler writes are serialized.
package store

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/taskngo/internal/clock"
	"github.com/sandeepkv93/taskngo/internal/logging"
	"github.com/sandeepkv93/taskngo/internal/model"
	"github.com/sandeepkv93/taskngo/internal/storage"
)

var (
	ErrNotFound = errors.New("store: task not found")
	ErrInactive = errors.New("store: task is archived or completed")
)

// Canceller invalidates pending reminder dispatches for a task. Calling it for
// a task with nothing pending must be a no-op.
type Canceller interface {
	CancelReminders(taskID string)
}

type Categories struct {
	Today     []model.Task
	Upcoming  []model.Task
	Completed []model.Task
	Archived  []model.Task
}

func (c Categories) Len() int {
	return len(c.Today) + len(c.Upcoming) + len(c.Completed) + len(c.Archived)
}

func (c Categories) Get(cat model.Category) []model.Task {
	switch cat {
	case model.CategoryToday:
		return c.Today
	case model.CategoryUpcoming:
		return c.Upcoming
	case model.CategoryCompleted:
		return c.Completed
	case model.CategoryArchived:
		return c.Archived
	default:
		return nil
	}
}

// AlertState is the scheduler's write to a task. Alerts are merged so a flag
// can never be unset, and RaiseConfirmation only ever turns the prompt on.
type AlertState struct {
	Alerts            model.AlertFlags
	IsShaking         bool
	RaiseConfirmation bool
}

type Option func(*Store)

func WithRepository(repo storage.Repository) Option {
	return func(s *Store) { s.repo = repo }
}

func WithCanceller(c Canceller) Option {
	return func(s *Store) { s.canceller = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

type Store struct {
	mu        sync.Mutex
	clock     clock.Clock
	tasks     map[string]*model.Task
	lastID    int64
	canceller Canceller
	repo      storage.Repository
	logger    *log.Logger
}

func New(clk clock.Clock, opts ...Option) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	s := &Store{
		clock:  clk,
		tasks:  make(map[string]*model.Task),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCanceller wires the dispatch gateway after construction.
func (s *Store) SetCanceller(c Canceller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceller = c
}

// Load replaces the in-memory collection with the repository contents.
func (s *Store) Load(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	records, err := s.repo.ListTasks(ctx, storage.TaskListFilter{})
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]*model.Task, len(records))
	for _, rec := range records {
		t := fromRecord(rec)
		s.tasks[t.ID] = &t
		if n, err := strconv.ParseInt(t.ID, 10, 64); err == nil && n > s.lastID {
			s.lastID = n
		}
	}
	return len(s.tasks), nil
}

// Create parses the raw due time and adds a task.
func (s *Store) Create(ctx context.Context, text, due string, priority model.Priority) (model.Task, error) {
	dueAt, err := model.ParseDue(due, s.clock.Now())
	if err != nil {
		return model.Task{}, err
	}
	return s.Add(ctx, text, dueAt, priority)
}

func (s *Store) Add(ctx context.Context, text string, dueAt time.Time, priority model.Priority) (model.Task, error) {
	if priority == "" {
		priority = model.PriorityMedium
	}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	task := model.Task{
		ID:        s.nextIDLocked(now),
		Text:      strings.TrimSpace(text),
		DueAt:     dueAt,
		Priority:  priority,
		CreatedAt: now,
	}
	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}
	if s.repo != nil {
		if err := s.repo.SaveTask(ctx, toRecord(task)); err != nil {
			return model.Task{}, err
		}
	}
	s.tasks[task.ID] = &task
	s.logger.Debug("task created", "task", task.ID, "due", task.DueAt.Format(time.RFC3339))
	return task, nil
}

func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return *t, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// List returns copies of every task in display order.
func (s *Store) List() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(func(model.Task) bool { return true })
}

// Active returns copies of the tasks taking part in reminder evaluation.
func (s *Store) Active() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(model.Task.Active)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.tasks[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.tasks, id)
	if s.repo != nil {
		if err := s.repo.DeleteTask(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("persist delete failed", "task", id, "err", err)
		}
	}
	canceller := s.canceller
	s.mu.Unlock()

	cancel(canceller, id)
	return nil
}

func (s *Store) Archive(ctx context.Context, id string) error {
	err := s.mutate(ctx, id, func(t *model.Task) error {
		if t.Archived {
			return nil
		}
		t.Archived = true
		t.IsShaking = false
		t.PendingConfirmation = false
		return nil
	})
	if err != nil {
		return err
	}
	s.cancel(id)
	return nil
}

// RequestCompletion raises the "did you complete this?" prompt for a task.
func (s *Store) RequestCompletion(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if !t.Active() {
		return ErrInactive
	}
	t.PendingConfirmation = true
	return nil
}

// ConfirmCompletion answers the completion prompt. A yes completes the task
// and cancels its reminders. A no leaves the task open; once the task is due
// it also acknowledges the due alert so it does not repeat.
func (s *Store) ConfirmCompletion(ctx context.Context, id string, completed bool) error {
	now := s.clock.Now()
	err := s.mutate(ctx, id, func(t *model.Task) error {
		if !t.Active() {
			return ErrInactive
		}
		t.PendingConfirmation = false
		if !completed {
			if !now.Before(t.DueAt) {
				t.Alerts = t.Alerts.Set(model.ThresholdDue)
			}
			return nil
		}
		t.Completed = true
		t.CompletedAt = &now
		t.IsShaking = false
		return nil
	})
	if err != nil {
		return err
	}
	if completed {
		s.cancel(id)
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, id string) error {
	return s.ConfirmCompletion(ctx, id, true)
}

// PendingConfirmations lists tasks waiting for a completion answer.
func (s *Store) PendingConfirmations() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(func(t model.Task) bool { return t.PendingConfirmation && t.Active() })
}

// ApplyAlertState records scheduler bookkeeping. It refuses tasks that left
// the active set so a cancellation racing a tick always wins.
func (s *Store) ApplyAlertState(ctx context.Context, id string, st AlertState) error {
	return s.mutate(ctx, id, func(t *model.Task) error {
		if !t.Active() {
			return ErrInactive
		}
		t.Alerts = t.Alerts.Merge(st.Alerts)
		t.IsShaking = st.IsShaking
		if st.RaiseConfirmation {
			t.PendingConfirmation = true
		}
		return nil
	})
}

// ArchiveOverdue archives open tasks whose due day has ended and returns
// their ids.
func (s *Store) ArchiveOverdue(ctx context.Context, now time.Time) []string {
	s.mu.Lock()
	ids := make([]string, 0)
	for id, t := range s.tasks {
		if !model.Overdue(*t, now) {
			continue
		}
		t.Archived = true
		t.IsShaking = false
		t.PendingConfirmation = false
		s.persistLocked(ctx, *t)
		ids = append(ids, id)
	}
	canceller := s.canceller
	s.mu.Unlock()

	sort.Strings(ids)
	for _, id := range ids {
		cancel(canceller, id)
	}
	return ids
}

// ResetAll clears the collection and cancels every removed task's reminders.
func (s *Store) ResetAll(ctx context.Context) int {
	s.mu.Lock()
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	s.tasks = make(map[string]*model.Task)
	if s.repo != nil {
		if _, err := s.repo.DeleteAllTasks(ctx); err != nil {
			s.logger.Warn("persist reset failed", "err", err)
		}
	}
	canceller := s.canceller
	s.mu.Unlock()

	sort.Strings(ids)
	for _, id := range ids {
		cancel(canceller, id)
	}
	s.logger.Info("tasks reset", "count", len(ids))
	return len(ids)
}

// Categorize groups tasks into display categories as of now. It does not
// modify any task.
func (s *Store) Categorize(now time.Time) Categories {
	var out Categories
	for _, t := range s.List() {
		switch model.CategoryOf(t, now) {
		case model.CategoryArchived:
			out.Archived = append(out.Archived, t)
		case model.CategoryCompleted:
			out.Completed = append(out.Completed, t)
		case model.CategoryUpcoming:
			out.Upcoming = append(out.Upcoming, t)
		default:
			out.Today = append(out.Today, t)
		}
	}
	return out
}

func (s *Store) mutate(ctx context.Context, id string, fn func(*model.Task) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	next := *t
	if err := fn(&next); err != nil {
		return err
	}
	changed := next.Archived != t.Archived || next.Completed != t.Completed || next.Alerts != t.Alerts
	*t = next
	if changed {
		s.persistLocked(ctx, next)
	}
	return nil
}

// persistLocked writes a snapshot. The in-memory task stays authoritative
// for the session when the write fails.
func (s *Store) persistLocked(ctx context.Context, t model.Task) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveTask(ctx, toRecord(t)); err != nil {
		s.logger.Warn("persist task failed", "task", t.ID, "err", err)
	}
}

func (s *Store) cancel(id string) {
	s.mu.Lock()
	canceller := s.canceller
	s.mu.Unlock()
	cancel(canceller, id)
}

func cancel(c Canceller, id string) {
	if c == nil {
		return
	}
	c.CancelReminders(id)
}

func (s *Store) nextIDLocked(now time.Time) string {
	n := now.UnixNano()
	if n <= s.lastID {
		n = s.lastID + 1
	}
	s.lastID = n
	return strconv.FormatInt(n, 10)
}

func (s *Store) sortedLocked(keep func(model.Task) bool) []model.Task {
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if keep(*t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DueAt.Equal(b.DueAt) {
			return a.DueAt.Before(b.DueAt)
		}
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if len(a.ID) != len(b.ID) {
			return len(a.ID) < len(b.ID)
		}
		return a.ID < b.ID
	})
	return out
}
