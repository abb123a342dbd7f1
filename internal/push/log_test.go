package push

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/taskngo/internal/dispatch"
	"github.com/sandeepkv93/taskngo/internal/logging"
)

func TestLogSenderRecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, logging.Options{Format: "logfmt"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	sender := NewLog(logger)

	rec, err := sender.Send(context.Background(), dispatch.Request{
		Title:    "Task due",
		Body:     "now",
		SendAt:   time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC),
		Metadata: map[string]string{dispatch.MetaTaskID: "42"},
	})
	if err != nil || rec.ID == "" {
		t.Fatalf("send: rec=%+v err=%v", rec, err)
	}
	out := buf.String()
	for _, want := range []string{"Task due", "task=42", "send_at=2026-02-09T12:00:00Z", rec.ID} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q missing %q", out, want)
		}
	}
	if err := sender.Retract(context.Background(), rec); err != nil {
		t.Fatalf("retract: %v", err)
	}
}
