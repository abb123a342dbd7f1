package store

import (
	"github.com/sandeepkv93/taskngo/internal/model"
	"github.com/sandeepkv93/taskngo/internal/storage"
)

func toRecord(t model.Task) storage.Task {
	return storage.Task{
		ID:              t.ID,
		Text:            t.Text,
		DueAt:           t.DueAt,
		Priority:        string(t.Priority),
		Archived:        t.Archived,
		Completed:       t.Completed,
		AlertFiveMinute: t.Alerts.FiveMinute,
		AlertOneMinute:  t.Alerts.OneMinute,
		AlertDue:        t.Alerts.Due,
		CreatedAt:       t.CreatedAt,
		CompletedAt:     t.CompletedAt,
	}
}

// fromRecord restores a task snapshot. Transient UI state (shake, pending
// confirmation) always starts cleared.
func fromRecord(r storage.Task) model.Task {
	priority := model.Priority(r.Priority)
	if !priority.IsValid() {
		priority = model.PriorityMedium
	}
	return model.Task{
		ID:        r.ID,
		Text:      r.Text,
		DueAt:     r.DueAt.Local(),
		Priority:  priority,
		Archived:  r.Archived,
		Completed: r.Completed,
		Alerts: model.AlertFlags{
			FiveMinute: r.AlertFiveMinute,
			OneMinute:  r.AlertOneMinute,
			Due:        r.AlertDue,
		},
		CreatedAt:   r.CreatedAt.Local(),
		CompletedAt: r.CompletedAt,
	}
}
