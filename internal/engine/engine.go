// Package engine wires the price simulator, event bus, watchlist store,
// alert evaluator, notification queue and analysis orchestrator into one
// explicitly-constructed service with a clear lifecycle. Nothing here is
// package-level state; independent instances coexist, which keeps teardown
// in tests clean.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/aurasignal/signal-dashboard/internal/analysis"
	"github.com/aurasignal/signal-dashboard/internal/bus"
	"github.com/aurasignal/signal-dashboard/internal/models"
	"github.com/aurasignal/signal-dashboard/internal/notify"
	"github.com/aurasignal/signal-dashboard/internal/simulator"
	"github.com/aurasignal/signal-dashboard/internal/watchlist"
)

// Options configures a dashboard engine.
type Options struct {
	Instruments  []simulator.Instrument
	TickInterval time.Duration
	Analyzer     analysis.Analyzer
	// AutoScanInterval enables the background scanner when positive.
	AutoScanInterval time.Duration
	Logger           *slog.Logger
}

// Engine is the dashboard core: ticks flow from the simulator through the
// bus into the store and evaluator; analysis results flow in orthogonally
// through the orchestrator.
type Engine struct {
	sim       *simulator.Simulator
	bus       *bus.Bus
	store     *watchlist.Store
	evaluator *watchlist.Evaluator
	queue     *notify.Queue
	orch      *analysis.Orchestrator
	scanner   *analysis.AutoScanner
	logger    *slog.Logger
}

// New assembles an engine. The evaluator is the first bus subscriber, so
// store state and alert evaluation are settled before any other consumer
// (websocket hub, caches) observes the batch.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	instruments := opts.Instruments
	if len(instruments) == 0 {
		instruments = simulator.DefaultInstruments()
	}
	interval := opts.TickInterval
	if interval <= 0 {
		interval = time.Second
	}

	seeds := make([]watchlist.Instrument, 0, len(instruments))
	for _, inst := range instruments {
		seeds = append(seeds, watchlist.Instrument{
			Symbol:   inst.Symbol,
			Name:     inst.Name,
			Category: inst.Category,
		})
	}

	e := &Engine{
		bus:    bus.New(),
		store:  watchlist.NewStore(seeds),
		queue:  notify.NewQueue(logger),
		logger: logger,
	}
	e.sim = simulator.New(instruments, interval, e.bus, logger)
	e.evaluator = watchlist.NewEvaluator(e.store, e.queue, logger)
	e.bus.Subscribe(e.evaluator.OnTickBatch)

	if opts.Analyzer != nil {
		e.orch = analysis.NewOrchestrator(e.store, opts.Analyzer, logger)
		if opts.AutoScanInterval > 0 {
			e.scanner = analysis.NewAutoScanner(e.orch, e.store, opts.AutoScanInterval, logger)
		}
	}
	return e
}

// Start begins tick generation and, when configured, automatic analysis
// scanning. Idempotent.
func (e *Engine) Start() {
	e.sim.Start()
	if e.scanner != nil {
		e.scanner.Start()
	}
}

// Stop halts the simulator and scanner. Idempotent. An in-flight analysis
// request is not cancelled; its result lands in the store afterwards, which
// is harmless because the merge is idempotent.
func (e *Engine) Stop() {
	if e.scanner != nil {
		e.scanner.Stop()
	}
	e.sim.Stop()
}

// Subscribe registers a consumer for tick batches (late subscribers get the
// latest batch immediately).
func (e *Engine) Subscribe(fn bus.Handler) bus.Subscription {
	return e.bus.Subscribe(fn)
}

// Unsubscribe removes a tick consumer.
func (e *Engine) Unsubscribe(id bus.Subscription) {
	e.bus.Unsubscribe(id)
}

// Watchlist returns the current entries in watchlist order.
func (e *Engine) Watchlist() []watchlist.Entry {
	return e.store.Entries()
}

// Entry returns a single watchlist entry.
func (e *Engine) Entry(symbol string) (watchlist.Entry, bool) {
	return e.store.Entry(symbol)
}

// Snapshot returns the simulator's canonical state for symbol.
func (e *Engine) Snapshot(symbol string) (models.Snapshot, bool) {
	return e.sim.Snapshot(symbol)
}

// SetAlert stores a price alert for symbol, deriving the trigger condition
// from the current price. Returns false before the first tick arrives.
func (e *Engine) SetAlert(symbol string, targetPrice float64) bool {
	return e.store.SetAlert(symbol, targetPrice)
}

// ClearAlert removes the alert for symbol if present.
func (e *Engine) ClearAlert(symbol string) {
	e.store.ClearAlert(symbol)
}

// Notifications returns undismissed notifications, most recent first.
func (e *Engine) Notifications() []models.Notification {
	return e.queue.All()
}

// DismissNotification removes one notification by id.
func (e *Engine) DismissNotification(id string) {
	e.queue.Dismiss(id)
}

// AddNotificationSink registers a best-effort side-effect sink (chime,
// Kafka export). Sink errors are logged, never propagated.
func (e *Engine) AddNotificationSink(s notify.Sink) {
	e.queue.AddSink(s)
}

// RequestAnalysis runs one analysis for symbol, honoring the per-symbol
// in-flight guard. Returns analysis.ErrQuotaExceeded on rate limits and nil
// when the request was a no-op.
func (e *Engine) RequestAnalysis(ctx context.Context, symbol string) error {
	if e.orch == nil {
		return nil
	}
	return e.orch.RequestAnalysis(ctx, symbol)
}
