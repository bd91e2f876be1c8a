// Package simulator produces a bounded synthetic price series for a fixed
// set of instruments and publishes one tick batch per interval.
package simulator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aurasignal/signal-dashboard/internal/models"
)

// Price floor; the walk never produces a non-positive price.
const minPrice = 0.01

// Volatility per instrument class. Index/volatility instruments move more in
// percentage terms than single names.
const (
	DefaultVolatility = 0.001
	IndexVolatility   = 0.02
)

// Publisher receives each completed tick batch.
type Publisher interface {
	Publish(models.TickBatch)
}

// Instrument configures one simulated symbol.
type Instrument struct {
	Symbol       string
	Name         string
	Category     string
	InitialPrice float64
	Volatility   float64
	// Volumeless instruments (e.g. a volatility index) report zero volume.
	Volumeless bool
}

// DefaultInstruments is the instrument set the dashboard tracks out of the
// box: the six default watchlist symbols plus a volatility index.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{Symbol: "NVDA", Name: "NVIDIA Corp", Category: models.CategoryStock, InitialPrice: 875.50, Volatility: DefaultVolatility},
		{Symbol: "TSLA", Name: "Tesla Inc", Category: models.CategoryStock, InitialPrice: 248.40, Volatility: DefaultVolatility},
		{Symbol: "BTC-USD", Name: "Bitcoin", Category: models.CategoryCrypto, InitialPrice: 50000.00, Volatility: DefaultVolatility},
		{Symbol: "ETH-USD", Name: "Ethereum", Category: models.CategoryCrypto, InitialPrice: 2950.75, Volatility: DefaultVolatility},
		{Symbol: "EUR-USD", Name: "Euro / US Dollar", Category: models.CategoryForex, InitialPrice: 1.0850, Volatility: DefaultVolatility},
		{Symbol: "XAU-USD", Name: "Gold Spot", Category: models.CategoryCommodity, InitialPrice: 2380.00, Volatility: DefaultVolatility},
		{Symbol: "VIX", Name: "Volatility Index", Category: models.CategoryIndex, InitialPrice: 14.20, Volatility: IndexVolatility, Volumeless: true},
	}
}

type instrumentState struct {
	cfg      Instrument
	snapshot models.Snapshot
}

// Simulator owns the canonical per-symbol snapshot state and generates a new
// tick for every instrument on a fixed cadence. Start and Stop are
// idempotent; Stop guarantees no batch is published after it returns.
type Simulator struct {
	interval time.Duration
	pub      Publisher
	logger   *slog.Logger

	mu     sync.Mutex
	order  []string
	state  map[string]*instrumentState
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New seeds every instrument at its initial price with a full history ring
// of that price, so late subscribers always see 20 points.
func New(instruments []Instrument, interval time.Duration, pub Publisher, logger *slog.Logger) *Simulator {
	s := &Simulator{
		interval: interval,
		pub:      pub,
		logger:   logger,
		state:    make(map[string]*instrumentState, len(instruments)),
	}
	now := time.Now()
	for _, inst := range instruments {
		if inst.Volatility == 0 {
			inst.Volatility = DefaultVolatility
		}
		history := make([]float64, models.HistoryLength)
		for i := range history {
			history[i] = inst.InitialPrice
		}
		var volume int64
		if !inst.Volumeless {
			volume = rand.Int64N(5_000_000)
		}
		s.order = append(s.order, inst.Symbol)
		s.state[inst.Symbol] = &instrumentState{
			cfg: inst,
			snapshot: models.Snapshot{
				Symbol:    inst.Symbol,
				Price:     inst.InitialPrice,
				High:      inst.InitialPrice,
				Low:       inst.InitialPrice,
				Volume:    volume,
				History:   history,
				Timestamp: now,
			},
		}
	}
	return s
}

// Start begins periodic tick generation. Calling Start on a running
// simulator is a no-op.
func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("market stream connected", slog.Duration("interval", s.interval))
}

// Stop cancels periodic generation. Safe to call when not started; after
// Stop returns no further batches are observed.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("market stream disconnected")
}

// Snapshot returns the current state for symbol without side effects.
func (s *Simulator) Snapshot(symbol string) (models.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state[symbol]
	if !ok {
		return models.Snapshot{}, false
	}
	return cloneSnapshot(st.snapshot), true
}

// Batch returns the current snapshot of every instrument.
func (s *Simulator) Batch() models.TickBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batchLocked()
}

func (s *Simulator) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Re-check cancellation so a tick scheduled before Stop
			// does not fire after it.
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.pub.Publish(s.tick())
		}
	}
}

// tick advances every instrument one random-walk step and returns the
// resulting batch. All instruments update together; there is no
// partial-batch emission.
func (s *Simulator) tick() models.TickBatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, symbol := range s.order {
		st := s.state[symbol]
		cfg := st.cfg
		snap := &st.snapshot

		delta := snap.Price * (rand.Float64()*cfg.Volatility*2 - cfg.Volatility)
		price := snap.Price + delta
		if price < minPrice {
			price = minPrice
		}

		snap.Price = price
		// Drift is measured from session start, not tick-to-tick.
		snap.Change = price - cfg.InitialPrice
		snap.ChangePercent = (price - cfg.InitialPrice) / cfg.InitialPrice * 100
		if price > snap.High {
			snap.High = price
		}
		if price < snap.Low {
			snap.Low = price
		}
		snap.History = append(snap.History[1:], price)
		if !cfg.Volumeless {
			snap.Volume += rand.Int64N(1500)
		}
		snap.Timestamp = now
	}
	return s.batchLocked()
}

func (s *Simulator) batchLocked() models.TickBatch {
	var ts time.Time
	snapshots := make([]models.Snapshot, 0, len(s.order))
	for _, symbol := range s.order {
		snap := cloneSnapshot(s.state[symbol].snapshot)
		snapshots = append(snapshots, snap)
		ts = snap.Timestamp
	}
	return models.TickBatch{Snapshots: snapshots, Timestamp: ts}
}

func cloneSnapshot(snap models.Snapshot) models.Snapshot {
	history := make([]float64, len(snap.History))
	copy(history, snap.History)
	snap.History = history
	return snap
}
