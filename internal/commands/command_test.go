package commands

import (
	"errors"
	"testing"

	"github.com/sandeepkv93/taskngo/internal/model"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/add pay rent @ 18:00", TypeAdd},
		{"new call mom @ 2026-02-10 09:00 !high", TypeAdd},
		{"done 2", TypeDone},
		{"complete 1771000000000000000", TypeDone},
		{"archive 1", TypeArchive},
		{"rm 3", TypeDelete},
		{"schedule 1", TypeSchedule},
		{"confirm 1 yes", TypeConfirm},
		{"show upcoming", TypeShow},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseAddArguments(t *testing.T) {
	cmd, err := Parse("add  call mom !low @ 2026-02-10 09:00 ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Add.Text != "call mom" || cmd.Add.Due != "2026-02-10 09:00" || cmd.Add.Priority != model.PriorityLow {
		t.Fatalf("unexpected add args %+v", cmd.Add)
	}

	cmd, err = Parse("add stretch @ 15:30")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Add.Priority != model.PriorityMedium {
		t.Fatalf("expected medium default, got %s", cmd.Add.Priority)
	}
}

func TestParseInvalidArguments(t *testing.T) {
	for _, in := range []string{
		"add @ 15:00",
		"add no due",
		"add thing @",
		"add thing @ 15:00 !urgent",
		"done",
		"done 1 2",
		"confirm 1 maybe",
		"show someday",
	} {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
			t.Fatalf("parse %q: expected invalid argument, got %v", in, err)
		}
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse("/unknown do x")
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "  ", "/"} {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeEmptyInput {
			t.Fatalf("parse %q: expected empty input, got %v", in, err)
		}
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/add write docs @ 17:00")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		Add: func(a AddArgs) (Result, error) {
			called = true
			if a.Text != "write docs" || a.Due != "17:00" {
				t.Fatalf("unexpected args: %+v", a)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteTargetCommands(t *testing.T) {
	var got []string
	record := func(name string) func(TargetArgs) (Result, error) {
		return func(a TargetArgs) (Result, error) {
			got = append(got, name+":"+a.Target)
			return Result{}, nil
		}
	}
	handlers := Handlers{
		Done:     record("done"),
		Archive:  record("archive"),
		Delete:   record("delete"),
		Schedule: record("schedule"),
	}
	for _, in := range []string{"done 1", "archive 2", "delete 3", "remind 4"} {
		cmd, err := Parse(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if _, err := Execute(cmd, handlers); err != nil {
			t.Fatalf("execute %q: %v", in, err)
		}
	}
	want := []string{"done:1", "archive:2", "delete:3", "schedule:4"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls %v, want %v", got, want)
		}
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("show today")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(cmd, Handlers{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}
