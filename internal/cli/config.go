package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskngo/internal/config"
	"github.com/sandeepkv93/taskngo/internal/model"
)

func addResetInfo(topLevel *cobra.Command, o *options) {
	topLevel.AddCommand(&cobra.Command{
		Use:   "reset-info",
		Short: "Show when the weekly reset clears the task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !o.cfg.Reset.Enabled {
				fmt.Fprintln(out, "weekly reset is disabled")
				return nil
			}
			now := time.Now()
			if o.clock != nil {
				now = o.clock.Now()
			}
			next := model.NextWeekBoundary(now, o.cfg.WeekStart())
			fmt.Fprintf(out, "next reset %s (in %s, week starts %s)\n",
				color.CyanString(next.Format("Mon Jan 2 15:04 MST")),
				next.Sub(now).Round(time.Minute),
				o.cfg.WeekStart())
			return nil
		},
	})
}

func addConfig(topLevel *cobra.Command, o *options) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var (
		path  string
		force bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Args:  cobra.NoArgs,
		// A broken existing file must not block writing a fresh one.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			target := path
			if target == "" {
				target = config.DefaultPath()
			}
			if err := config.WriteDefault(target, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", target)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", "", "where to write (default ~/.taskngo/taskngo.yaml)")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	var reveal bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := o.cfg.YAML(reveal)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if o.cfg.File != "" {
				fmt.Fprintf(out, "# %s\n", o.cfg.File)
			}
			_, err = out.Write(body)
			return err
		},
	}
	showCmd.Flags().BoolVar(&reveal, "reveal", false, "print the push api key")

	cmd.AddCommand(initCmd, showCmd)
	topLevel.AddCommand(cmd)
}
