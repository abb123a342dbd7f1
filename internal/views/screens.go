package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type TaskRowData struct {
	Index     int
	Text      string
	Due       string
	Priority  string
	Selected  bool
	Shaking   bool
	ShowClock bool
	Pending   bool
	Done      bool
}

type TaskListData struct {
	Category string
	Rows     []TaskRowData
	// Frame alternates the shake offset between redraws.
	Frame int
}

type ConfirmPromptData struct {
	Text  string
	Due   string
	Count int
}

var (
	shakeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	doneStyle     = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("8"))
	selectedStyle = lipgloss.NewStyle().Bold(true)
	priorityStyle = map[string]lipgloss.Style{
		"high":   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		"medium": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"low":    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
)

func RenderTaskList(data TaskListData) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(data.Category) + ":\n")
	if len(data.Rows) == 0 {
		b.WriteString("  (no tasks)")
		return b.String()
	}
	for _, row := range data.Rows {
		b.WriteString(renderRow(row, data.Frame))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderRow(row TaskRowData, frame int) string {
	cursor := " "
	if row.Selected {
		cursor = ">"
	}
	marker := "  "
	switch {
	case row.Shaking:
		marker = "!!"
	case row.ShowClock:
		marker = "⏰"
	}
	prio := row.Priority
	if style, ok := priorityStyle[strings.ToLower(row.Priority)]; ok {
		prio = style.Render(row.Priority)
	}
	line := fmt.Sprintf("%s %2d. %s %s  due %s  [%s]", cursor, row.Index, marker, row.Text, row.Due, prio)
	if row.Pending {
		line += "  (completed?)"
	}
	switch {
	case row.Shaking:
		pad := ""
		if frame%2 == 1 {
			pad = "  "
		}
		return pad + shakeStyle.Render(line)
	case row.Done:
		return doneStyle.Render(line)
	case row.Selected:
		return selectedStyle.Render(line)
	default:
		return line
	}
}

func RenderConfirmPrompt(data ConfirmPromptData) string {
	if data.Text == "" {
		return ""
	}
	prompt := fmt.Sprintf("Did you complete %q (due %s)? [y]es / [n]o", data.Text, data.Due)
	if data.Count > 1 {
		prompt += fmt.Sprintf("\n%d more waiting", data.Count-1)
	}
	return prompt
}
