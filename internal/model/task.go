package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrValidation      = errors.New("model: invalid task")
	ErrInvalidPriority = errors.New("model: invalid task priority")
)

// ValidationError reports task input that cannot produce a task. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank orders priorities for sort tie-breaks, high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

func ParsePriority(raw string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return PriorityMedium, nil
	case "high", "h", "!":
		return PriorityHigh, nil
	case "medium", "med", "m":
		return PriorityMedium, nil
	case "low", "l":
		return PriorityLow, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
}

type Task struct {
	ID                  string
	Text                string
	DueAt               time.Time
	Priority            Priority
	Archived            bool
	Completed           bool
	Alerts              AlertFlags
	IsShaking           bool
	PendingConfirmation bool
	CreatedAt           time.Time
	CompletedAt         *time.Time
}

// Active reports whether the task still takes part in reminder evaluation.
func (t Task) Active() bool {
	return !t.Archived && !t.Completed
}

// ShowClock reports whether the widget should draw the clock indicator.
func (t Task) ShowClock(now time.Time) bool {
	if !t.Active() {
		return false
	}
	return SameDay(t.DueAt, now) || t.DueAt.After(now)
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return &ValidationError{Field: "id", Reason: "required"}
	}
	if strings.TrimSpace(t.Text) == "" {
		return &ValidationError{Field: "text", Reason: "required"}
	}
	if t.DueAt.IsZero() {
		return &ValidationError{Field: "due", Reason: "required"}
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.CreatedAt.IsZero() {
		return &ValidationError{Field: "created_at", Reason: "required"}
	}
	if t.Completed && t.CompletedAt == nil {
		return errors.New("model: completed_at is required when task is completed")
	}
	if !t.Completed && t.CompletedAt != nil {
		return errors.New("model: completed_at must be nil when task is not completed")
	}
	return nil
}
