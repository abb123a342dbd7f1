package model

import (
	"errors"
	"testing"
	"time"
)

func TestCategoryOfPartitions(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		task Task
		want Category
	}{
		{"due later today", Task{DueAt: now.Add(time.Hour)}, CategoryToday},
		{"due earlier today", Task{DueAt: now.Add(-time.Hour)}, CategoryToday},
		{"due yesterday open", Task{DueAt: now.AddDate(0, 0, -1)}, CategoryToday},
		{"due tomorrow", Task{DueAt: now.AddDate(0, 0, 1)}, CategoryUpcoming},
		{"completed future", Task{DueAt: now.AddDate(0, 0, 1), Completed: true}, CategoryCompleted},
		{"archived and completed", Task{DueAt: now, Completed: true, Archived: true}, CategoryArchived},
	}
	for _, tc := range cases {
		if got := CategoryOf(tc.task, now); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestOverdue(t *testing.T) {
	now := time.Date(2026, 2, 9, 0, 30, 0, 0, time.UTC)
	if !Overdue(Task{DueAt: now.Add(-time.Hour)}, now) {
		t.Fatal("task due yesterday 23:30 should be overdue")
	}
	if Overdue(Task{DueAt: now.Add(-10 * time.Minute)}, now) {
		t.Fatal("task due earlier today should not be overdue")
	}
	if Overdue(Task{DueAt: now.Add(-48 * time.Hour), Archived: true}, now) {
		t.Fatal("archived task is never overdue")
	}
}

func TestNextWeekBoundary(t *testing.T) {
	friday := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	got := NextWeekBoundary(friday, time.Sunday)
	if got.Format("2006-01-02 15:04") != "2026-02-15 00:00" {
		t.Fatalf("unexpected boundary: %s", got)
	}

	sundayMidnight := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	got = NextWeekBoundary(sundayMidnight, time.Sunday)
	if got.Format("2006-01-02") != "2026-02-22" {
		t.Fatalf("boundary must be strictly after now, got %s", got)
	}

	got = NextWeekBoundary(friday, time.Monday)
	if got.Weekday() != time.Monday || got.Format("2006-01-02") != "2026-02-16" {
		t.Fatalf("unexpected monday boundary: %s", got)
	}
}

func TestParseDueLayouts(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"2026-02-09T13:30":     "2026-02-09 13:30",
		"2026-02-10 08:15":     "2026-02-10 08:15",
		"2026-02-09T13:30:00Z": "2026-02-09 13:30",
		"17:45":                "2026-02-09 17:45",
		"2026-02-11 09:00:30":  "2026-02-11 09:00",
	}
	for in, want := range cases {
		got, err := ParseDue(in, now)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got.Format("2006-01-02 15:04") != want {
			t.Fatalf("parse %q = %s, want %s", in, got.Format("2006-01-02 15:04"), want)
		}
	}
}

func TestParseDueUsesCallerZone(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	now := time.Date(2026, 2, 10, 0, 30, 0, 0, berlin)

	got, err := ParseDue("2026-02-10T00:10:00Z", now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Location() != berlin || got.Format("2006-01-02 15:04") != "2026-02-10 01:10" {
		t.Fatalf("expected the due time in the caller zone, got %s", got)
	}
	// In UTC now is still the 9th; for the caller both fall on the 10th.
	for _, due := range []time.Time{got, got.UTC()} {
		task := Task{ID: "1", Text: "call", DueAt: due, Priority: PriorityLow}
		if c := CategoryOf(task, now); c != CategoryToday {
			t.Fatalf("due %s: expected today in the caller zone, got %s", due, c)
		}
	}
}

func TestParseDueRejectsGarbage(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	for _, in := range []string{"", "tomorrow-ish", "2026-13-40"} {
		if _, err := ParseDue(in, now); !errors.Is(err, ErrValidation) {
			t.Fatalf("parse %q: expected ErrValidation, got %v", in, err)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("Monday")
	if err != nil || d != time.Monday {
		t.Fatalf("unexpected weekday parse: %v %v", d, err)
	}
	if _, err := ParseWeekday("someday"); err == nil {
		t.Fatal("expected error for invalid weekday")
	}
}

func TestParseCategory(t *testing.T) {
	got, err := ParseCategory(" upcoming ")
	if err != nil || got != CategoryUpcoming {
		t.Fatalf("ParseCategory = %q, %v", got, err)
	}
	if _, err := ParseCategory("someday"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}
