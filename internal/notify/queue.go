// Package notify holds the ordered list of unacknowledged fired-alert
// notifications and fans them out to best-effort side-effect sinks.
package notify

import (
	"log/slog"
	"sync"

	"github.com/aurasignal/signal-dashboard/internal/models"
)

// Sink observes "notifications were added". Sinks are fire-and-forget: a
// sink error is logged and swallowed, never surfaced to the alert pipeline.
type Sink interface {
	Notify(notifications []models.Notification) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func([]models.Notification) error

func (f SinkFunc) Notify(n []models.Notification) error { return f(n) }

// Queue is an unbounded most-recent-first list of notifications.
// Notifications accumulate until dismissed or the session ends; they are
// ephemeral, not a durable log.
type Queue struct {
	mu     sync.Mutex
	items  []models.Notification
	sinks  []Sink
	logger *slog.Logger
}

func NewQueue(logger *slog.Logger) *Queue {
	return &Queue{logger: logger}
}

// AddSink registers a side-effect sink invoked after each push.
func (q *Queue) AddSink(s Sink) {
	q.mu.Lock()
	q.sinks = append(q.sinks, s)
	q.mu.Unlock()
}

// Push prepends the notifications, preserving their within-batch order
// relative to each other ahead of all existing older entries, then notifies
// every sink.
func (q *Queue) Push(notifications []models.Notification) {
	if len(notifications) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(append([]models.Notification{}, notifications...), q.items...)
	sinks := make([]Sink, len(q.sinks))
	copy(sinks, q.sinks)
	q.mu.Unlock()

	for _, s := range sinks {
		if err := s.Notify(notifications); err != nil {
			q.logger.Warn("notification sink failed", slog.Any("error", err))
		}
	}
}

// Dismiss removes exactly the notification with the given id; no-op if
// absent.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// All returns a copy of the queue, most recent first.
func (q *Queue) All() []models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Len reports the number of undismissed notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
