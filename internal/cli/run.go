package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskngo/internal/app"
	"github.com/sandeepkv93/taskngo/internal/logging"
	"github.com/sandeepkv93/taskngo/internal/update"
)

func addRun(topLevel *cobra.Command, o *options) {
	var altScreen bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the reminder widget",
		RunE: func(cmd *cobra.Command, args []string) error {
			logFile, err := logging.OpenFile(o.cfg.Log.File)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()
			logger, err := o.logger(logFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := app.New(ctx, app.Options{Config: o.cfg, Clock: o.clock, Logger: logger})
			if err != nil {
				return err
			}
			defer a.Close()
			a.Start(ctx, true)
			logger.Info("widget started", "config", o.cfg.File, "storage", o.cfg.Storage.Path)

			widget := update.NewModel(ctx, a, update.WithSources(update.Sources{
				Events:  a.Events(),
				Notices: a.Notices(),
			}))
			opts := []tea.ProgramOption{tea.WithContext(ctx)}
			if altScreen {
				opts = append(opts, tea.WithAltScreen())
			}
			if _, err := tea.NewProgram(widget, opts...).Run(); err != nil {
				return fmt.Errorf("widget: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&altScreen, "alt-screen", true, "draw the widget on the alternate screen")
	topLevel.AddCommand(cmd)
}
