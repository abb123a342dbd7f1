package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskngo/internal/app"
	"github.com/sandeepkv93/taskngo/internal/model"
	"github.com/sandeepkv93/taskngo/internal/store"
)

func addAdd(topLevel *cobra.Command, o *options) {
	var (
		due      string
		priority string
		noPush   bool
	)
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task and hand its reminders to the push service",
		Long: `Add a task and hand its reminders to the push service.

Push receipts live only as long as the process that scheduled them. Reminders
scheduled by this command cannot be recalled by a later delete, archive or
complete; use --no-push, or add the task inside "taskngo run", to keep them
cancellable.`,
		Example: `
taskngo add "call mom" --due 18:30
taskngo add write report --due 2026-02-12T09:00 --priority high
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prio, err := model.ParsePriority(priority)
			if err != nil {
				return err
			}
			if noPush {
				o.cfg.Push.ScheduleOnCreate = false
			}
			ctx := cmd.Context()
			a, err := o.open(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			task, err := a.AddTask(ctx, strings.Join(args, " "), due, prio)
			if err != nil {
				_ = a.Close()
				return err
			}
			if err := finish(ctx, a, o.cfg.Push.Timeout); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s %q due %s\n", task.ID, task.Text, task.DueAt.Format("Mon Jan 2 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&due, "due", "d", "", "due time as 15:04 (today) or 2006-01-02T15:04")
	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "low, medium or high")
	cmd.Flags().BoolVar(&noPush, "no-push", false, "do not schedule push reminders")
	_ = cmd.MarkFlagRequired("due")
	topLevel.AddCommand(cmd)
}

func addList(topLevel *cobra.Command, o *options) {
	var all bool
	cmd := &cobra.Command{
		Use:   "list [today|upcoming|completed|archived]",
		Short: "List tasks by category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cats := []model.Category{model.CategoryToday}
			switch {
			case len(args) == 1:
				cat, err := model.ParseCategory(args[0])
				if err != nil {
					return err
				}
				cats = []model.Category{cat}
			case all:
				cats = model.Categories
			}

			ctx := cmd.Context()
			a, err := o.open(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(a.Categorize(), cats, a.Now()))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every category")
	topLevel.AddCommand(cmd)
}

func renderTable(grouped store.Categories, cats []model.Category, now time.Time) *uitable.Table {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 48
	tbl.AddRow(bold.Sprint("CATEGORY"), bold.Sprint("ID"), bold.Sprint("DUE"), bold.Sprint("PRIORITY"), bold.Sprint("TASK"), bold.Sprint("ALERTS"))
	for _, cat := range cats {
		for _, t := range grouped.Get(cat) {
			tbl.AddRow(string(cat), t.ID, t.DueAt.Format("Mon Jan 2 15:04"), priorityColor(t.Priority), t.Text, alertSummary(t, now))
		}
	}
	return tbl
}

func priorityColor(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return color.RedString(string(p))
	case model.PriorityMedium:
		return color.YellowString(string(p))
	default:
		return color.GreenString(string(p))
	}
}

// alertSummary lists the thresholds that already fired, with the clock
// marker for open tasks still ahead of their due day.
func alertSummary(t model.Task, now time.Time) string {
	fired := make([]string, 0, len(model.Thresholds))
	for _, th := range model.Thresholds {
		if t.Alerts.Has(th) {
			fired = append(fired, string(th))
		}
	}
	out := strings.Join(fired, ",")
	if out == "" {
		out = "-"
	}
	if t.ShowClock(now) {
		out = "⏰ " + out
	}
	return out
}

func addComplete(topLevel *cobra.Command, o *options) {
	var yes bool
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task completed after confirming",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := o.open(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			id := args[0]
			if err := a.RequestCompletion(id); err != nil {
				_ = a.Close()
				return err
			}
			completed := yes
			if !completed {
				task, _ := a.Task(id)
				fmt.Fprintf(cmd.OutOrStdout(), "Did you complete %q (due %s)? [y/N] ", task.Text, task.DueAt.Format("Mon Jan 2 15:04"))
				completed = readYes(cmd.InOrStdin())
			}
			if err := a.ConfirmCompletion(ctx, id, completed); err != nil {
				_ = a.Close()
				return err
			}
			if err := finish(ctx, a, o.cfg.Push.Timeout); err != nil {
				return err
			}
			if completed {
				fmt.Fprintf(cmd.OutOrStdout(), "completed %s\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "kept %s open\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "answer yes without asking")
	topLevel.AddCommand(cmd)
}

func readYes(r io.Reader) bool {
	line, _ := bufio.NewReader(r).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

type action struct {
	use   string
	short string
	run   func(cmd *cobra.Command, a *app.App, id string) (string, error)
}

func addTaskActions(topLevel *cobra.Command, o *options) {
	actions := []action{
		{use: "archive", short: "Archive a task", run: func(cmd *cobra.Command, a *app.App, id string) (string, error) {
			return "archived", a.Archive(cmd.Context(), id)
		}},
		{use: "delete", short: "Delete a task", run: func(cmd *cobra.Command, a *app.App, id string) (string, error) {
			return "deleted", a.Delete(cmd.Context(), id)
		}},
		{use: "schedule", short: "Hand a task's remaining reminders to the push service", run: func(cmd *cobra.Command, a *app.App, id string) (string, error) {
			plan, err := a.ScheduleReminders(id)
			return fmt.Sprintf("scheduled %d reminder(s) for", len(plan.Reminders)), err
		}},
	}
	for _, act := range actions {
		topLevel.AddCommand(&cobra.Command{
			Use:   act.use + " <id>",
			Short: act.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				a, err := o.open(ctx, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				verb, err := act.run(cmd, a, args[0])
				if err != nil {
					_ = a.Close()
					return err
				}
				if err := finish(ctx, a, o.cfg.Push.Timeout); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, args[0])
				return nil
			},
		})
	}
}
