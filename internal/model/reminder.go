package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidThreshold = errors.New("model: invalid reminder threshold")

// Threshold is a fixed offset before the due moment at which an alert fires.
type Threshold string

const (
	ThresholdFiveMinute Threshold = "5min"
	ThresholdOneMinute  Threshold = "1min"
	ThresholdDue        Threshold = "due"
)

// Thresholds lists every threshold in firing order.
var Thresholds = []Threshold{ThresholdFiveMinute, ThresholdOneMinute, ThresholdDue}

func (th Threshold) IsValid() bool {
	switch th {
	case ThresholdFiveMinute, ThresholdOneMinute, ThresholdDue:
		return true
	default:
		return false
	}
}

func ParseThreshold(raw string) (Threshold, error) {
	th := Threshold(strings.ToLower(strings.TrimSpace(raw)))
	if !th.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidThreshold, raw)
	}
	return th, nil
}

func (th Threshold) Offset() time.Duration {
	switch th {
	case ThresholdFiveMinute:
		return 5 * time.Minute
	case ThresholdOneMinute:
		return time.Minute
	default:
		return 0
	}
}

func (th Threshold) Title() string {
	switch th {
	case ThresholdFiveMinute:
		return "5-minute reminder"
	case ThresholdOneMinute:
		return "1-minute reminder"
	default:
		return "Task due"
	}
}

func (th Threshold) Body(text string) string {
	switch th {
	case ThresholdFiveMinute:
		return fmt.Sprintf("Task %q is coming up in 5 minutes!", text)
	case ThresholdOneMinute:
		return fmt.Sprintf("Task %q is due in 1 minute!", text)
	default:
		return fmt.Sprintf("Task %q is now due!", text)
	}
}

// FireAt is the absolute instant the threshold is reached for a task due at dueAt.
func (th Threshold) FireAt(dueAt time.Time) time.Time {
	return dueAt.Add(-th.Offset())
}

// AlertFlags records which threshold alerts have fired. Flags only ever go
// from false to true.
type AlertFlags struct {
	FiveMinute bool
	OneMinute  bool
	Due        bool
}

func (f AlertFlags) Has(th Threshold) bool {
	switch th {
	case ThresholdFiveMinute:
		return f.FiveMinute
	case ThresholdOneMinute:
		return f.OneMinute
	case ThresholdDue:
		return f.Due
	default:
		return false
	}
}

func (f AlertFlags) Set(th Threshold) AlertFlags {
	switch th {
	case ThresholdFiveMinute:
		f.FiveMinute = true
	case ThresholdOneMinute:
		f.OneMinute = true
	case ThresholdDue:
		f.Due = true
	}
	return f
}

// Merge keeps every flag fired in either set.
func (f AlertFlags) Merge(other AlertFlags) AlertFlags {
	return AlertFlags{
		FiveMinute: f.FiveMinute || other.FiveMinute,
		OneMinute:  f.OneMinute || other.OneMinute,
		Due:        f.Due || other.Due,
	}
}

func (f AlertFlags) Any() bool {
	return f.FiveMinute || f.OneMinute || f.Due
}

// Latest returns the most recently reached fired threshold.
func (f AlertFlags) Latest() (Threshold, bool) {
	for i := len(Thresholds) - 1; i >= 0; i-- {
		if f.Has(Thresholds[i]) {
			return Thresholds[i], true
		}
	}
	return "", false
}

// Reminder is one planned dispatch for a task threshold.
type Reminder struct {
	TaskID    string
	Threshold Threshold
	FireAt    time.Time
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.TaskID) == "" {
		return errors.New("model: reminder task_id is required")
	}
	if r.FireAt.IsZero() {
		return errors.New("model: reminder fire_at is required")
	}
	if !r.Threshold.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidThreshold, r.Threshold)
	}
	return nil
}

// PlanReminders returns the reminders of an active task whose fire time is
// still after now, in firing order. Thresholds already fired are skipped.
func PlanReminders(t Task, now time.Time) []Reminder {
	if !t.Active() {
		return nil
	}
	out := make([]Reminder, 0, len(Thresholds))
	for _, th := range Thresholds {
		if t.Alerts.Has(th) {
			continue
		}
		at := th.FireAt(t.DueAt)
		if !at.After(now) {
			continue
		}
		out = append(out, Reminder{TaskID: t.ID, Threshold: th, FireAt: at})
	}
	return out
}
