package model

import (
	"fmt"
	"strings"
	"time"
)

type Category string

const (
	CategoryToday     Category = "Today"
	CategoryUpcoming  Category = "Upcoming"
	CategoryCompleted Category = "Completed"
	CategoryArchived  Category = "Archived"
)

var Categories = []Category{CategoryToday, CategoryUpcoming, CategoryCompleted, CategoryArchived}

func (c Category) IsValid() bool {
	switch c {
	case CategoryToday, CategoryUpcoming, CategoryCompleted, CategoryArchived:
		return true
	default:
		return false
	}
}

func ParseCategory(raw string) (Category, error) {
	needle := strings.TrimSpace(raw)
	for _, c := range Categories {
		if strings.EqualFold(string(c), needle) {
			return c, nil
		}
	}
	return "", fmt.Errorf("model: unknown category %q", raw)
}

// CategoryOf places a task in exactly one display category. Tasks due on a
// past day that are still open stay in Today.
func CategoryOf(t Task, now time.Time) Category {
	switch {
	case t.Archived:
		return CategoryArchived
	case t.Completed:
		return CategoryCompleted
	case t.DueAt.After(now) && !SameDay(t.DueAt, now):
		return CategoryUpcoming
	default:
		return CategoryToday
	}
}

// Overdue reports whether an open task's due day ended before now's day began.
func Overdue(t Task, now time.Time) bool {
	if !t.Active() {
		return false
	}
	return t.DueAt.Before(StartOfDay(now))
}

func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextWeekBoundary returns midnight of the next weekStart strictly after now,
// in now's location.
func NextWeekBoundary(now time.Time, weekStart time.Weekday) time.Time {
	probe := StartOfDay(now).AddDate(0, 0, 1)
	for probe.Weekday() != weekStart {
		probe = probe.AddDate(0, 0, 1)
	}
	return probe
}

func ParseWeekday(raw string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sun", "sunday", "":
		return time.Sunday, nil
	case "mon", "monday":
		return time.Monday, nil
	case "tue", "tuesday":
		return time.Tuesday, nil
	case "wed", "wednesday":
		return time.Wednesday, nil
	case "thu", "thursday":
		return time.Thursday, nil
	case "fri", "friday":
		return time.Friday, nil
	case "sat", "saturday":
		return time.Saturday, nil
	default:
		return time.Sunday, fmt.Errorf("model: invalid weekday %q", raw)
	}
}

var dueLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseDue reads a due time the way the widget input submits it. A bare
// clock time ("15:04") means that time today.
func ParseDue(raw string, now time.Time) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, &ValidationError{Field: "due", Reason: "required"}
	}
	loc := now.Location()
	if tm, err := time.Parse(time.RFC3339, value); err == nil {
		return tm.In(loc), nil
	}
	for _, layout := range dueLayouts {
		if tm, err := time.ParseInLocation(layout, value, loc); err == nil {
			return tm, nil
		}
	}
	if clock, err := time.ParseInLocation("15:04", value, loc); err == nil {
		y, m, d := now.Date()
		return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc), nil
	}
	return time.Time{}, &ValidationError{Field: "due", Reason: fmt.Sprintf("unparseable %q", value)}
}
