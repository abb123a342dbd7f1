// Package cli is the taskngo command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskngo/internal/app"
	"github.com/sandeepkv93/taskngo/internal/clock"
	"github.com/sandeepkv93/taskngo/internal/config"
	"github.com/sandeepkv93/taskngo/internal/logging"
)

type options struct {
	configPath string
	cfg        config.Config
	clock      clock.Clock
}

func New() *cobra.Command {
	return newRoot(&options{})
}

func newRoot(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taskngo",
		Short:         "Time-bound tasks with reminders five minutes, one minute and zero before they are due.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			o.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "config file (default: search ./ and ~/.taskngo)")

	addRun(cmd, o)
	addAdd(cmd, o)
	addList(cmd, o)
	addComplete(cmd, o)
	addTaskActions(cmd, o)
	addResetInfo(cmd, o)
	addConfig(cmd, o)
	return cmd
}

// Execute runs the command tree and reports the error on stderr.
func Execute() int {
	if err := New().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "taskngo: %v\n", err)
		return 1
	}
	return 0
}

func (o *options) logger(w io.Writer) (*log.Logger, error) {
	return logging.New(w, logging.Options{Level: o.cfg.Log.Level, Format: o.cfg.Log.Format})
}

// open builds an app for a one-shot command. Only delivery runs; local
// alerts and the weekly reset belong to the widget session.
func (o *options) open(ctx context.Context, stderr io.Writer) (*app.App, error) {
	logger, err := o.logger(stderr)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, app.Options{Config: o.cfg, Clock: o.clock, Logger: logger})
	if err != nil {
		return nil, err
	}
	a.Start(ctx, false)
	return a, nil
}

// finish waits for queued pushes within the push timeout, then closes.
func finish(ctx context.Context, a *app.App, timeout time.Duration) error {
	flushCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	flushErr := a.Flush(flushCtx)
	closeErr := a.Close()
	if flushErr != nil {
		return fmt.Errorf("waiting for push requests: %w", flushErr)
	}
	return closeErr
}
