package watchlist

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aurasignal/signal-dashboard/internal/models"
	"github.com/aurasignal/signal-dashboard/internal/notify"
)

// Evaluator consumes tick batches, applies them to the store and converts
// every alert that fired in the batch into one notification. Per-alert
// firing is at-most-once; there is no deduplication across symbols, so
// several alerts triggering in the same batch all notify.
type Evaluator struct {
	store  *Store
	queue  *notify.Queue
	logger *slog.Logger
}

func NewEvaluator(store *Store, queue *notify.Queue, logger *slog.Logger) *Evaluator {
	return &Evaluator{store: store, queue: queue, logger: logger}
}

// OnTickBatch is the bus handler. It runs to completion synchronously, so
// the store mutation and alert deactivation are finished before the next
// batch is generated.
func (ev *Evaluator) OnTickBatch(batch models.TickBatch) {
	triggered := ev.store.ApplyTickBatch(batch)
	if len(triggered) == 0 {
		return
	}

	now := time.Now()
	notifications := make([]models.Notification, 0, len(triggered))
	for _, t := range triggered {
		notifications = append(notifications, models.Notification{
			ID:      uuid.NewString(),
			Title:   fmt.Sprintf("Price Alert: %s", t.Symbol),
			Message: fmt.Sprintf("%s crossed %s %v", t.Symbol, t.Alert.Condition, t.Alert.TargetPrice),
			FiredAt: now,
		})
		ev.logger.Info("price alert triggered",
			slog.String("symbol", t.Symbol),
			slog.String("condition", t.Alert.Condition),
			slog.Float64("target", t.Alert.TargetPrice),
			slog.Float64("price", t.Price))
	}
	ev.queue.Push(notifications)
}
