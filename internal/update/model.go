// Package update is the Bubble Tea widget. It reads tasks from the backend,
// sends user actions back to it and holds no reminder logic of its own.
package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/sandeepkv93/taskngo/internal/app"
	"github.com/sandeepkv93/taskngo/internal/dispatch"
	"github.com/sandeepkv93/taskngo/internal/model"
	"github.com/sandeepkv93/taskngo/internal/scheduler"
	"github.com/sandeepkv93/taskngo/internal/store"
)

// Backend is the part of the application the widget drives.
type Backend interface {
	AddTask(ctx context.Context, text, due string, priority model.Priority) (model.Task, error)
	ScheduleReminders(id string) (dispatch.Plan, error)
	RequestCompletion(id string) error
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ConfirmCompletion(ctx context.Context, id string, completed bool) error
	PendingConfirmations() []model.Task
	Categorize() store.Categories
	Now() time.Time
}

// Sources are the asynchronous feeds the widget listens to. Either may be nil.
type Sources struct {
	Events  <-chan scheduler.Event
	Notices <-chan app.Notice
}

type StatusBar struct {
	Text    string
	IsError bool
}

type Model struct {
	Category      model.Category
	Cursor        int
	Status        StatusBar
	HelpVisible   bool
	CommandActive bool
	Quitting      bool
	LastError     error
	Frame         int

	ctx        context.Context
	backend    Backend
	sources    Sources
	refresh    time.Duration
	keys       KeyMap
	help       help.Model
	input      textinput.Model
	categories store.Categories
	pending    []model.Task
	now        time.Time
}

// DefaultRefresh is how often the widget redraws from the store.
const DefaultRefresh = 500 * time.Millisecond

type Option func(*Model)

func WithRefresh(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.refresh = d
		}
	}
}

func WithSources(src Sources) Option {
	return func(m *Model) { m.sources = src }
}

func NewModel(ctx context.Context, backend Backend, opts ...Option) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	m := Model{
		Category: model.CategoryToday,
		ctx:      ctx,
		backend:  backend,
		refresh:  DefaultRefresh,
		keys:     DefaultKeyMap(),
		help:     help.New(),
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.input = textinput.New()
	m.input.Prompt = "> "
	m.input.Placeholder = "add call mom @ 18:30 !high"
	m.input.CharLimit = 256
	m.input.Width = 56

	m.reload()
	return m
}

// reload pulls a fresh snapshot from the backend and clamps the cursor.
func (m *Model) reload() {
	m.now = m.backend.Now()
	m.categories = m.backend.Categorize()
	m.pending = m.backend.PendingConfirmations()
	if n := len(m.visible()); m.Cursor >= n {
		m.Cursor = max(n-1, 0)
	}
}

func (m Model) visible() []model.Task {
	return m.categories.Get(m.Category)
}

func (m Model) selected() (model.Task, bool) {
	tasks := m.visible()
	if m.Cursor < 0 || m.Cursor >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[m.Cursor], true
}

type refreshMsg time.Time

type eventMsg struct {
	Event scheduler.Event
}

type noticeMsg struct {
	Notice app.Notice
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}
