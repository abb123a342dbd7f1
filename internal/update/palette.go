package update

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskngo/internal/app"
	"github.com/sandeepkv93/taskngo/internal/commands"
	"github.com/sandeepkv93/taskngo/internal/model"
)

func (m Model) openCommand(prefill string) Model {
	m.CommandActive = true
	m.input.SetValue(prefill)
	m.input.CursorEnd()
	m.input.Focus()
	return m
}

func (m Model) closeCommand() Model {
	m.CommandActive = false
	m.input.SetValue("")
	m.input.Blur()
	return m
}

func (m Model) handleCommandKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.closeCommand(), nil
	case "enter":
		raw := m.input.Value()
		m = m.closeCommand()
		return m.runCommand(raw), nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) runCommand(raw string) Model {
	cmd, err := commands.Parse(raw)
	if err != nil {
		return m.fail(err)
	}
	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			task, err := m.backend.AddTask(m.ctx, a.Text, a.Due, a.Priority)
			if err != nil {
				return commands.Result{}, err
			}
			m.Category = model.CategoryOf(task, m.backend.Now())
			return commands.Result{Message: fmt.Sprintf("added %q due %s", task.Text, task.DueAt.Format("Mon 15:04"))}, nil
		},
		Done: m.onTarget(func(t model.Task) (string, error) {
			return fmt.Sprintf("complete %q? answer y or n", t.Text), m.backend.RequestCompletion(t.ID)
		}),
		Archive: m.onTarget(func(t model.Task) (string, error) {
			return fmt.Sprintf("archived %q", t.Text), m.backend.Archive(m.ctx, t.ID)
		}),
		Delete: m.onTarget(func(t model.Task) (string, error) {
			return fmt.Sprintf("deleted %q", t.Text), m.backend.Delete(m.ctx, t.ID)
		}),
		Schedule: m.onTarget(func(t model.Task) (string, error) {
			_, err := m.backend.ScheduleReminders(t.ID)
			return app.NoticeScheduled, err
		}),
		Confirm: func(c commands.ConfirmArgs) (commands.Result, error) {
			t, err := m.resolve(c.Target)
			if err != nil {
				return commands.Result{}, err
			}
			if err := m.backend.ConfirmCompletion(m.ctx, t.ID, c.Completed); err != nil {
				return commands.Result{}, err
			}
			if c.Completed {
				return commands.Result{Message: fmt.Sprintf("completed %q", t.Text)}, nil
			}
			return commands.Result{Message: fmt.Sprintf("kept %q open", t.Text)}, nil
		},
		Show: func(s commands.ShowArgs) (commands.Result, error) {
			m.Category = s.Category
			m.Cursor = 0
			return commands.Result{Message: "showing " + strings.ToLower(string(s.Category))}, nil
		},
	})
	if err != nil {
		return m.fail(err)
	}
	m.reload()
	m.Status = StatusBar{Text: res.Message}
	m.LastError = nil
	return m
}

func (m *Model) onTarget(fn func(model.Task) (string, error)) func(commands.TargetArgs) (commands.Result, error) {
	return func(args commands.TargetArgs) (commands.Result, error) {
		t, err := m.resolve(args.Target)
		if err != nil {
			return commands.Result{}, err
		}
		msg, err := fn(t)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: msg}, nil
	}
}

// resolve finds a task by its 1-based number in the visible list, or by id
// in any category.
func (m Model) resolve(target string) (model.Task, error) {
	tasks := m.visible()
	if n, err := strconv.Atoi(target); err == nil && n >= 1 && n <= len(tasks) {
		return tasks[n-1], nil
	}
	for _, c := range model.Categories {
		for _, t := range m.categories.Get(c) {
			if t.ID == target {
				return t, nil
			}
		}
	}
	return model.Task{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no task %q", target)}
}

func (m Model) fail(err error) Model {
	m.LastError = err
	m.Status = StatusBar{Text: err.Error(), IsError: true}
	m.reload()
	return m
}
