// Package dispatch is the seam between the reminder engine and the external
// push notification service. Requests are queued and delivered off the
// caller's goroutine; outcomes are reported on a results channel.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/taskngo/internal/model"
)

var (
	ErrDispatch   = errors.New("dispatch: delivery failed")
	ErrQueueFull  = errors.New("dispatch: queue full")
	ErrClosed     = errors.New("dispatch: gateway closed")
	ErrCancelled  = errors.New("dispatch: task reminders cancelled")
	ErrBadRequest = errors.New("dispatch: invalid request")
)

const (
	MetaTaskID     = "task_id"
	MetaThreshold  = "threshold"
	MetaCollapseID = "collapse_id"
)

// Request is one push to deliver. A zero or past SendAt means immediately.
type Request struct {
	Recipient string
	Title     string
	Body      string
	SendAt    time.Time
	Metadata  map[string]string
}

func (r Request) Validate() error {
	if r.Title == "" || r.Body == "" {
		return fmt.Errorf("%w: title and body are required", ErrBadRequest)
	}
	return nil
}

// Receipt identifies a request accepted by the push service.
type Receipt struct {
	ID string
}

type Sender interface {
	Send(ctx context.Context, req Request) (Receipt, error)
}

// Retractor is implemented by senders that can recall an accepted request
// the service has not delivered yet.
type Retractor interface {
	Retract(ctx context.Context, rec Receipt) error
}

// DispatchError wraps a failed delivery. It matches ErrDispatch and the
// underlying cause with errors.Is.
type DispatchError struct {
	TaskID    string
	Threshold model.Threshold
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch: task %s %s: %v", e.TaskID, e.Threshold, e.Err)
}

func (e *DispatchError) Unwrap() []error {
	return []error{ErrDispatch, e.Err}
}

// Result reports the outcome of one queued request.
type Result struct {
	HandleID  string
	TaskID    string
	Threshold model.Threshold
	Scheduled bool
	Receipt   Receipt
	Err       error
}

// Plan lists the reminders a ScheduleReminders call queued.
type Plan struct {
	TaskID    string
	Reminders []model.Reminder
}

func collapseID(taskID string, th model.Threshold) string {
	return fmt.Sprintf("task-%s-%s", taskID, th)
}

func requestFor(recipient string, task model.Task, th model.Threshold, sendAt time.Time) Request {
	return Request{
		Recipient: recipient,
		Title:     th.Title(),
		Body:      th.Body(task.Text),
		SendAt:    sendAt,
		Metadata: map[string]string{
			MetaTaskID:     task.ID,
			MetaThreshold:  string(th),
			MetaCollapseID: collapseID(task.ID, th),
		},
	}
}
