// Package watchlist maintains the authoritative view of each tracked
// instrument, merging live ticks, user alert edits and analysis results.
package watchlist

import (
	"sync"
	"time"

	"github.com/aurasignal/signal-dashboard/internal/models"
)

// Entry composes one instrument's snapshot with its optional alert and last
// analysis result. The snapshot is nil until the first tick arrives, so an
// uninitialized entry renders as pending rather than crashing.
type Entry struct {
	Symbol         string                 `json:"symbol"`
	Name           string                 `json:"name"`
	Category       string                 `json:"category"`
	Snapshot       *models.Snapshot       `json:"snapshot"`
	Alert          *models.Alert          `json:"alert,omitempty"`
	Analysis       *models.AnalysisResult `json:"analysis,omitempty"`
	IsAnalyzing    bool                   `json:"is_analyzing"`
	LastAnalyzedAt time.Time              `json:"last_analyzed_at"`
}

// Instrument seeds one watchlist entry. Name defaults to the symbol and
// Category to the symbol naming convention; index instruments must set their
// category explicitly since no convention identifies them.
type Instrument struct {
	Symbol   string
	Name     string
	Category string
}

// Store holds exactly one entry per symbol for its whole life. It is the
// single mutable resource touched by tick delivery, user alert edits and
// analysis completion; every mutation is one short lock-held step, and the
// lock is never held across an external call.
type Store struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*Entry
}

// NewStore creates one entry per instrument with no snapshot, no alert and no
// analysis. The symbol set is fixed for the life of the store.
func NewStore(instruments []Instrument) *Store {
	s := &Store{entries: make(map[string]*Entry, len(instruments))}
	for _, inst := range instruments {
		if _, ok := s.entries[inst.Symbol]; ok {
			continue
		}
		name := inst.Name
		if name == "" {
			name = inst.Symbol
		}
		category := inst.Category
		if category == "" {
			category = models.CategoryForSymbol(inst.Symbol)
		}
		s.order = append(s.order, inst.Symbol)
		s.entries[inst.Symbol] = &Entry{
			Symbol:   inst.Symbol,
			Name:     name,
			Category: category,
		}
	}
	return s
}

// Entries returns a copy of every entry in watchlist order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.order))
	for _, sym := range s.order {
		out = append(out, *s.entries[sym])
	}
	return out
}

// Entry returns a copy of the entry for symbol.
func (s *Store) Entry(symbol string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[symbol]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// ApplyTickBatch replaces each entry's snapshot with the batch's
// (last-write-wins) and evaluates active alerts against the new prices in
// the same mutation step. A triggering alert is deactivated before the lock
// is released, which is what guarantees at-most-once firing: the next batch
// sees IsActive false and skips it even if the price stays past the
// threshold. Entries with no data in the batch are left untouched.
func (s *Store) ApplyTickBatch(batch models.TickBatch) []models.TriggeredAlert {
	s.mu.Lock()
	defer s.mu.Unlock()

	var triggered []models.TriggeredAlert
	for _, sym := range s.order {
		e := s.entries[sym]
		if snap, ok := batch.Get(sym); ok {
			e.Snapshot = &snap
		}
		if e.Alert == nil || !e.Alert.IsActive || e.Snapshot == nil {
			continue
		}
		price := e.Snapshot.Price
		fires := (e.Alert.Condition == models.ConditionAbove && price >= e.Alert.TargetPrice) ||
			(e.Alert.Condition == models.ConditionBelow && price <= e.Alert.TargetPrice)
		if !fires {
			continue
		}
		e.Alert.IsActive = false
		triggered = append(triggered, models.TriggeredAlert{
			Symbol: sym,
			Alert:  *e.Alert,
			Price:  price,
		})
	}
	return triggered
}

// SetAlert creates or replaces the alert for symbol, deriving the condition
// from the current price. No alert can be set before the first price
// arrives; without a snapshot the call is a deliberate no-op (callers are
// expected to disable the control).
func (s *Store) SetAlert(symbol string, targetPrice float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[symbol]
	if !ok || e.Snapshot == nil {
		return false
	}
	alert := models.NewAlert(targetPrice, e.Snapshot.Price)
	e.Alert = &alert
	return true
}

// ClearAlert removes the alert if present; no-op otherwise.
func (s *Store) ClearAlert(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[symbol]; ok {
		e.Alert = nil
	}
}

// StartAnalysis atomically checks the analysis preconditions (snapshot
// present, not already analyzing) and marks the entry in flight. It returns
// the snapshot to analyze, or ok=false when the request must be a no-op.
// Caller-observable state is the concurrency guard: at most one in-flight
// request per symbol.
func (s *Store) StartAnalysis(symbol string) (models.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[symbol]
	if !ok || e.Snapshot == nil || e.IsAnalyzing {
		return models.Snapshot{}, false
	}
	e.IsAnalyzing = true
	return *e.Snapshot, true
}

// SetAnalyzing toggles the in-flight marker.
func (s *Store) SetAnalyzing(symbol string, analyzing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[symbol]; ok {
		e.IsAnalyzing = analyzing
	}
}

// MergeAnalysis stores the result wholesale and clears the in-flight marker.
// A failed analysis never reaches this path, so a prior successful result is
// never overwritten by a failure.
func (s *Store) MergeAnalysis(symbol string, result *models.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[symbol]
	if !ok {
		return
	}
	e.Analysis = result
	e.IsAnalyzing = false
	e.LastAnalyzedAt = time.Now()
}

// Symbols returns the fixed symbol set in watchlist order.
func (s *Store) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
