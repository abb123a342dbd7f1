package push

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sandeepkv93/taskngo/internal/dispatch"
)

// Log records push requests in the log instead of delivering them. It is
// used when no push service is configured.
type Log struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *Log {
	return &Log{logger: logger.WithPrefix("push")}
}

func (l *Log) Send(_ context.Context, req dispatch.Request) (dispatch.Receipt, error) {
	rec := dispatch.Receipt{ID: uuid.NewString()}
	fields := []any{"receipt", rec.ID, "title", req.Title, "body", req.Body}
	if !req.SendAt.IsZero() {
		fields = append(fields, "send_at", req.SendAt.Format(time.RFC3339))
	}
	if id := req.Metadata[dispatch.MetaTaskID]; id != "" {
		fields = append(fields, "task", id)
	}
	l.logger.Info("push", fields...)
	return rec, nil
}

func (l *Log) Retract(_ context.Context, rec dispatch.Receipt) error {
	l.logger.Info("push retracted", "receipt", rec.ID)
	return nil
}
