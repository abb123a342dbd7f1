package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskngo/internal/app"
	"github.com/sandeepkv93/taskngo/internal/model"
	"github.com/sandeepkv93/taskngo/internal/scheduler"
	"github.com/sandeepkv93/taskngo/internal/views"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		refreshCmd(m.refresh),
		waitForEventCmd(m.sources.Events),
		waitForNoticeCmd(m.sources.Notices),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.CommandActive {
			next, cmd := m.handleCommandKey(typed)
			return next, cmd
		}
		return m.handleKey(typed)
	case refreshMsg:
		m.Frame++
		m.reload()
		return m, refreshCmd(m.refresh)
	case eventMsg:
		m.applyEvent(typed.Event)
		return m, waitForEventCmd(m.sources.Events)
	case noticeMsg:
		m.Status = StatusBar{Text: typed.Notice.Text, IsError: typed.Notice.Warning}
		m.reload()
		return m, waitForNoticeCmd(m.sources.Notices)
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.HelpVisible = !m.HelpVisible
		m.help.ShowAll = m.HelpVisible
	case key.Matches(msg, m.keys.Command):
		return m.openCommand(""), textinput.Blink
	case key.Matches(msg, m.keys.Add):
		return m.openCommand("add "), textinput.Blink
	case key.Matches(msg, m.keys.NextTab):
		m.switchCategory(1)
	case key.Matches(msg, m.keys.PrevTab):
		m.switchCategory(-1)
	case key.Matches(msg, m.keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.Cursor < len(m.visible())-1 {
			m.Cursor++
		}
	case key.Matches(msg, m.keys.Yes), key.Matches(msg, m.keys.No):
		if len(m.pending) == 0 {
			return m, nil
		}
		answer := "no"
		if key.Matches(msg, m.keys.Yes) {
			answer = "yes"
		}
		return m.runCommand(fmt.Sprintf("confirm %s %s", m.pending[0].ID, answer)), nil
	case key.Matches(msg, m.keys.Done):
		return m.onSelected("done"), nil
	case key.Matches(msg, m.keys.Archive):
		return m.onSelected("archive"), nil
	case key.Matches(msg, m.keys.Delete):
		return m.onSelected("delete"), nil
	case key.Matches(msg, m.keys.Schedule):
		return m.onSelected("schedule"), nil
	}
	return m, nil
}

func (m Model) onSelected(verb string) Model {
	t, ok := m.selected()
	if !ok {
		m.Status = StatusBar{Text: "no task selected", IsError: true}
		return m
	}
	return m.runCommand(verb + " " + t.ID)
}

func (m *Model) switchCategory(step int) {
	n := len(model.Categories)
	idx := 0
	for i, c := range model.Categories {
		if c == m.Category {
			idx = i
		}
	}
	m.Category = model.Categories[((idx+step)%n+n)%n]
	m.Cursor = 0
}

func (m *Model) applyEvent(ev scheduler.Event) {
	switch ev.Kind {
	case scheduler.EventAlertFired:
		m.Status = StatusBar{Text: fmt.Sprintf("%s: %s", ev.Threshold.Title(), ev.Text)}
	case scheduler.EventConfirmationRequested:
		m.Status = StatusBar{Text: fmt.Sprintf("%q is due. Did you complete it? [y/n]", ev.Text)}
	case scheduler.EventTasksArchived:
		m.Status = StatusBar{Text: fmt.Sprintf("archived %d overdue task(s)", len(ev.TaskIDs))}
	}
	m.reload()
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	tabs := make([]views.TabData, 0, len(model.Categories))
	for _, c := range model.Categories {
		tabs = append(tabs, views.TabData{Title: string(c), Count: len(m.categories.Get(c)), Active: c == m.Category})
	}

	rows := make([]views.TaskRowData, 0, len(m.visible()))
	for i, t := range m.visible() {
		rows = append(rows, views.TaskRowData{
			Index:     i + 1,
			Text:      t.Text,
			Due:       formatDue(t.DueAt, m.now),
			Priority:  string(t.Priority),
			Selected:  i == m.Cursor,
			Shaking:   t.IsShaking,
			ShowClock: t.ShowClock(m.now),
			Pending:   t.PendingConfirmation,
			Done:      t.Completed,
		})
	}

	prompt := ""
	if len(m.pending) > 0 {
		first := m.pending[0]
		prompt = views.RenderConfirmPrompt(views.ConfirmPromptData{
			Text:  first.Text,
			Due:   formatDue(first.DueAt, m.now),
			Count: len(m.pending),
		})
	}

	input := ""
	if m.CommandActive {
		input = m.input.View()
	}
	helpView := m.help.View(m.keys)
	if m.HelpVisible {
		helpView = strings.Join([]string{helpView, views.RenderMarkdown(commandHelp)}, "\n")
	}

	return views.RenderApp(views.AppData{
		Header:     fmt.Sprintf("taskngo | %s", m.now.Format("Mon Jan 2 15:04:05")),
		Tabs:       tabs,
		Body:       views.RenderTaskList(views.TaskListData{Category: string(m.Category), Rows: rows, Frame: m.Frame}),
		Prompt:     prompt,
		StatusLine: m.Status.Text,
		IsError:    m.Status.IsError,
		Input:      input,
		Help:       helpView,
	})
}

func formatDue(due, now time.Time) string {
	if model.SameDay(due, now) {
		return due.Format("15:04")
	}
	return due.Format("Mon Jan 2 15:04")
}

func refreshCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func waitForEventCmd(ch <-chan scheduler.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{Event: ev}
	}
}

func waitForNoticeCmd(ch <-chan app.Notice) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg{Notice: n}
	}
}
