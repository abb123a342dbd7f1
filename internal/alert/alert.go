// Package alert produces the local, in-session signal when a reminder fires.
package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/sandeepkv93/taskngo/internal/model"
)

var ErrUnsupported = errors.New("alert: desktop notifications unsupported on this platform")

type Alerter interface {
	Alert(ctx context.Context, task model.Task, th model.Threshold) error
}

type Noop struct{}

func (Noop) Alert(context.Context, model.Task, model.Threshold) error { return nil }

// Bell rings the terminal bell.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

func (b *Bell) Alert(context.Context, model.Task, model.Threshold) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.w, "\a")
	return err
}

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Desktop raises an OS notification through notify-send or osascript.
type Desktop struct {
	goos string
	run  Runner
}

func NewDesktop() *Desktop {
	return &Desktop{goos: runtime.GOOS, run: execRunner}
}

func (d *Desktop) Alert(ctx context.Context, task model.Task, th model.Threshold) error {
	title, body := th.Title(), th.Body(task.Text)
	switch d.goos {
	case "linux":
		return d.run(ctx, "notify-send", title, body)
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(body), escapeAppleScript(title))
		return d.run(ctx, "osascript", "-e", script)
	default:
		return ErrUnsupported
	}
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// Multi fans an alert out to every alerter. One failing alerter does not
// stop the others; their errors are joined.
type Multi []Alerter

func (m Multi) Alert(ctx context.Context, task model.Task, th model.Threshold) error {
	var errs []error
	for _, a := range m {
		if err := a.Alert(ctx, task, th); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
