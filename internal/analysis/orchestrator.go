package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aurasignal/signal-dashboard/internal/watchlist"
)

// QuotaCooldown is how long automatic scanning pauses after a rate-limit
// error. Manual requests are still permitted during the window.
const QuotaCooldown = 60 * time.Second

// Orchestrator serializes one analysis request per symbol at a time and
// translates capability failures into user-facing states. The in-flight
// guard is the store's caller-observable IsAnalyzing flag, not a lock.
type Orchestrator struct {
	store    *watchlist.Store
	analyzer Analyzer
	logger   *slog.Logger
}

func NewOrchestrator(store *watchlist.Store, analyzer Analyzer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{store: store, analyzer: analyzer, logger: logger}
}

// RequestAnalysis analyzes one symbol. The call is a silent no-op when the
// entry has no snapshot yet or is already analyzing. On any failure the
// in-flight flag is cleared and the previous analysis result is left intact;
// rate limits surface as ErrQuotaExceeded.
func (o *Orchestrator) RequestAnalysis(ctx context.Context, symbol string) error {
	snapshot, ok := o.store.StartAnalysis(symbol)
	if !ok {
		return nil
	}

	result, err := o.analyzer.Analyze(ctx, snapshot)
	if err != nil {
		o.store.SetAnalyzing(symbol, false)
		if errors.Is(err, ErrQuotaExceeded) {
			o.logger.Warn("analysis quota exceeded", slog.String("symbol", symbol))
			return ErrQuotaExceeded
		}
		o.logger.Error("analysis failed", slog.String("symbol", symbol), slog.Any("error", err))
		return fmt.Errorf("analysis of %s failed: %w", symbol, err)
	}

	o.store.MergeAnalysis(symbol, result)
	o.logger.Info("analysis merged",
		slog.String("symbol", symbol),
		slog.String("status", result.QualificationStatus),
		slog.String("signal", result.Signal))
	return nil
}

// AutoScanner periodically analyzes the least-recently-analyzed watchlist
// entry. After a quota error it pauses automatic requests until the cooldown
// elapses; it never blocks manual requests.
type AutoScanner struct {
	orch     *Orchestrator
	store    *watchlist.Store
	interval time.Duration
	cooldown time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	pausedUntil time.Time
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewAutoScanner(orch *Orchestrator, store *watchlist.Store, interval time.Duration, logger *slog.Logger) *AutoScanner {
	return &AutoScanner{
		orch:     orch,
		store:    store,
		interval: interval,
		cooldown: QuotaCooldown,
		logger:   logger,
	}
}

// Start launches the scan loop. Idempotent.
func (a *AutoScanner) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.wg.Add(1)
	go a.run(ctx)
}

// Stop halts the scan loop. Idempotent.
func (a *AutoScanner) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	a.wg.Wait()
}

// PausedUntil reports the end of the current quota cooldown, if any.
func (a *AutoScanner) PausedUntil() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pausedUntil
}

func (a *AutoScanner) run(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.scanOnce(ctx)
		}
	}
}

func (a *AutoScanner) scanOnce(ctx context.Context) {
	a.mu.Lock()
	paused := time.Now().Before(a.pausedUntil)
	a.mu.Unlock()
	if paused {
		return
	}

	symbol, ok := a.nextSymbol()
	if !ok {
		return
	}
	if err := a.orch.RequestAnalysis(ctx, symbol); errors.Is(err, ErrQuotaExceeded) {
		a.mu.Lock()
		a.pausedUntil = time.Now().Add(a.cooldown)
		a.mu.Unlock()
		a.logger.Warn("auto-scan paused",
			slog.String("symbol", symbol),
			slog.Duration("cooldown", a.cooldown))
	}
}

// nextSymbol picks the analyzable entry that has gone longest without a
// result.
func (a *AutoScanner) nextSymbol() (string, bool) {
	var (
		best   string
		bestAt time.Time
		found  bool
	)
	for _, e := range a.store.Entries() {
		if e.Snapshot == nil || e.IsAnalyzing {
			continue
		}
		if !found || e.LastAnalyzedAt.Before(bestAt) {
			best = e.Symbol
			bestAt = e.LastAnalyzedAt
			found = true
		}
	}
	return best, found
}
