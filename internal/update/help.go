package update

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	NextTab  key.Binding
	PrevTab  key.Binding
	Up       key.Binding
	Down     key.Binding
	Add      key.Binding
	Command  key.Binding
	Done     key.Binding
	Archive  key.Binding
	Delete   key.Binding
	Schedule key.Binding
	Yes      key.Binding
	No       key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextTab:  key.NewBinding(key.WithKeys("tab", "l"), key.WithHelp("tab", "next category")),
		PrevTab:  key.NewBinding(key.WithKeys("shift+tab", "h"), key.WithHelp("shift+tab", "previous category")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j", "down")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add task")),
		Command:  key.NewBinding(key.WithKeys("/", ":"), key.WithHelp("/", "command")),
		Done:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		Archive:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "archive")),
		Delete:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Schedule: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "schedule push")),
		Yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes, completed")),
		No:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "not yet")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Done, k.Schedule, k.NextTab, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextTab, k.PrevTab},
		{k.Add, k.Command, k.Done, k.Archive, k.Delete, k.Schedule},
		{k.Yes, k.No, k.Help, k.Quit},
	}
}

// commandHelp is rendered with glamour when help is open.
const commandHelp = `## Commands

- ` + "`add <text> @ <due> [!low|!medium|!high]`" + ` create a task, due as ` + "`15:04`" + ` or ` + "`2006-01-02T15:04`" + `
- ` + "`done <n>`" + ` asks whether task n (or an id) was completed; answer with y or n
- ` + "`archive <n>`" + `, ` + "`delete <n>`" + ` act on task number n or an id
- ` + "`schedule <n>`" + ` hand the reminders of a task to the push service
- ` + "`confirm <n> yes|no`" + ` answer a completion prompt
- ` + "`show today|upcoming|completed|archived`" + `
`
