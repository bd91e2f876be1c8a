package watchlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurasignal/signal-dashboard/internal/models"
)

func storeFor(symbols ...string) *Store {
	seeds := make([]Instrument, 0, len(symbols))
	for _, sym := range symbols {
		seeds = append(seeds, Instrument{Symbol: sym})
	}
	return NewStore(seeds)
}

func batchOf(prices map[string]float64) models.TickBatch {
	now := time.Now()
	snapshots := make([]models.Snapshot, 0, len(prices))
	for sym, price := range prices {
		snapshots = append(snapshots, models.Snapshot{Symbol: sym, Price: price, Timestamp: now})
	}
	return models.TickBatch{Snapshots: snapshots, Timestamp: now}
}

func TestNewStoreDerivesCategories(t *testing.T) {
	s := storeFor("NVDA", "BTC-USD", "ETH-USD", "EUR-USD", "XAU-USD")

	entries := s.Entries()
	require.Len(t, entries, 5)
	assert.Equal(t, models.CategoryStock, entries[0].Category)
	assert.Equal(t, models.CategoryCrypto, entries[1].Category)
	assert.Equal(t, models.CategoryCrypto, entries[2].Category)
	assert.Equal(t, models.CategoryForex, entries[3].Category)
	assert.Equal(t, models.CategoryCommodity, entries[4].Category)

	for _, e := range entries {
		assert.Nil(t, e.Snapshot, "no snapshot before the first tick")
		assert.Nil(t, e.Alert)
		assert.Nil(t, e.Analysis)
	}
}

func TestApplyTickBatchMergesLastWriteWins(t *testing.T) {
	s := storeFor("NVDA", "TSLA")

	s.ApplyTickBatch(batchOf(map[string]float64{"NVDA": 100}))
	s.ApplyTickBatch(batchOf(map[string]float64{"NVDA": 105}))

	e, ok := s.Entry("NVDA")
	require.True(t, ok)
	require.NotNil(t, e.Snapshot)
	assert.Equal(t, 105.0, e.Snapshot.Price)

	// TSLA never appeared in a batch and stays pending.
	e, ok = s.Entry("TSLA")
	require.True(t, ok)
	assert.Nil(t, e.Snapshot)
}

func TestSetAlertDerivesCondition(t *testing.T) {
	s := storeFor("BTC-USD")
	s.ApplyTickBatch(batchOf(map[string]float64{"BTC-USD": 50000}))

	t.Run("target above current is ABOVE", func(t *testing.T) {
		require.True(t, s.SetAlert("BTC-USD", 51000))
		e, _ := s.Entry("BTC-USD")
		require.NotNil(t, e.Alert)
		assert.Equal(t, models.ConditionAbove, e.Alert.Condition)
		assert.True(t, e.Alert.IsActive)
	})

	t.Run("target below current is BELOW", func(t *testing.T) {
		require.True(t, s.SetAlert("BTC-USD", 49000))
		e, _ := s.Entry("BTC-USD")
		assert.Equal(t, models.ConditionBelow, e.Alert.Condition)
	})

	t.Run("target equal to current is BELOW", func(t *testing.T) {
		require.True(t, s.SetAlert("BTC-USD", 50000))
		e, _ := s.Entry("BTC-USD")
		assert.Equal(t, models.ConditionBelow, e.Alert.Condition)
	})

	t.Run("replacing re-derives against the current price", func(t *testing.T) {
		s.ApplyTickBatch(batchOf(map[string]float64{"BTC-USD": 52000}))
		require.True(t, s.SetAlert("BTC-USD", 51000))
		e, _ := s.Entry("BTC-USD")
		assert.Equal(t, models.ConditionBelow, e.Alert.Condition)
	})
}

func TestSetAlertWithoutSnapshotIsRejected(t *testing.T) {
	s := storeFor("NVDA")

	assert.False(t, s.SetAlert("NVDA", 900))
	assert.False(t, s.SetAlert("UNKNOWN", 900))

	e, _ := s.Entry("NVDA")
	assert.Nil(t, e.Alert)
}

func TestAboveAlertFiresAtMostOnce(t *testing.T) {
	s := storeFor("BTC-USD")
	s.ApplyTickBatch(batchOf(map[string]float64{"BTC-USD": 50000}))
	require.True(t, s.SetAlert("BTC-USD", 51000))

	// Below the threshold: nothing fires.
	triggered := s.ApplyTickBatch(batchOf(map[string]float64{"BTC-USD": 50990}))
	assert.Empty(t, triggered)

	// Crossing fires exactly once and deactivates.
	triggered = s.ApplyTickBatch(batchOf(map[string]float64{"BTC-USD": 51050}))
	require.Len(t, triggered, 1)
	assert.Equal(t, "BTC-USD", triggered[0].Symbol)
	assert.Equal(t, models.ConditionAbove, triggered[0].Alert.Condition)
	assert.Equal(t, 51050.0, triggered[0].Price)

	e, _ := s.Entry("BTC-USD")
	require.NotNil(t, e.Alert)
	assert.False(t, e.Alert.IsActive, "fired alert stays visible but inactive")

	// Price still past the threshold: no refire.
	triggered = s.ApplyTickBatch(batchOf(map[string]float64{"BTC-USD": 52000}))
	assert.Empty(t, triggered)
}

func TestBelowAlertFiresOnTouch(t *testing.T) {
	s := storeFor("NVDA")
	s.ApplyTickBatch(batchOf(map[string]float64{"NVDA": 875.50}))
	require.True(t, s.SetAlert("NVDA", 870))

	triggered := s.ApplyTickBatch(batchOf(map[string]float64{"NVDA": 870}))
	require.Len(t, triggered, 1, "touch (equality) counts as a cross")
	assert.Equal(t, models.ConditionBelow, triggered[0].Alert.Condition)
}

func TestMultipleAlertsFireInOneBatch(t *testing.T) {
	s := storeFor("NVDA", "TSLA", "BTC-USD")
	s.ApplyTickBatch(batchOf(map[string]float64{"NVDA": 875, "TSLA": 248, "BTC-USD": 50000}))
	require.True(t, s.SetAlert("NVDA", 880))
	require.True(t, s.SetAlert("TSLA", 240))
	require.True(t, s.SetAlert("BTC-USD", 60000))

	triggered := s.ApplyTickBatch(batchOf(map[string]float64{"NVDA": 881, "TSLA": 239, "BTC-USD": 50100}))
	require.Len(t, triggered, 2)
	assert.Equal(t, "NVDA", triggered[0].Symbol)
	assert.Equal(t, "TSLA", triggered[1].Symbol)
}

func TestClearAlert(t *testing.T) {
	s := storeFor("NVDA")
	s.ApplyTickBatch(batchOf(map[string]float64{"NVDA": 875}))
	require.True(t, s.SetAlert("NVDA", 880))

	s.ClearAlert("NVDA")
	e, _ := s.Entry("NVDA")
	assert.Nil(t, e.Alert)

	// Clearing again or clearing an unknown symbol is a no-op.
	s.ClearAlert("NVDA")
	s.ClearAlert("UNKNOWN")
}

func TestStartAnalysisGuard(t *testing.T) {
	s := storeFor("NVDA", "TSLA")
	s.ApplyTickBatch(batchOf(map[string]float64{"NVDA": 875}))

	t.Run("no snapshot means no-op", func(t *testing.T) {
		_, ok := s.StartAnalysis("TSLA")
		assert.False(t, ok)
	})

	t.Run("unknown symbol means no-op", func(t *testing.T) {
		_, ok := s.StartAnalysis("UNKNOWN")
		assert.False(t, ok)
	})

	t.Run("second start while in flight is rejected", func(t *testing.T) {
		snap, ok := s.StartAnalysis("NVDA")
		require.True(t, ok)
		assert.Equal(t, 875.0, snap.Price)

		_, ok = s.StartAnalysis("NVDA")
		assert.False(t, ok)

		e, _ := s.Entry("NVDA")
		assert.True(t, e.IsAnalyzing)
	})

	t.Run("clearing the flag re-enables analysis", func(t *testing.T) {
		s.SetAnalyzing("NVDA", false)
		_, ok := s.StartAnalysis("NVDA")
		assert.True(t, ok)
	})
}

func TestMergeAnalysis(t *testing.T) {
	s := storeFor("NVDA")
	s.ApplyTickBatch(batchOf(map[string]float64{"NVDA": 875}))
	_, ok := s.StartAnalysis("NVDA")
	require.True(t, ok)

	result := &models.AnalysisResult{
		QualificationStatus: models.QualificationApproved,
		Signal:              models.SignalBuy,
		Confidence:          0.8,
	}
	s.MergeAnalysis("NVDA", result)

	e, _ := s.Entry("NVDA")
	require.NotNil(t, e.Analysis)
	assert.Equal(t, models.QualificationApproved, e.Analysis.QualificationStatus)
	assert.False(t, e.IsAnalyzing)
	assert.False(t, e.LastAnalyzedAt.IsZero())
}

func TestSymbolsPreserveOrder(t *testing.T) {
	s := storeFor("NVDA", "TSLA", "BTC-USD", "NVDA")
	assert.Equal(t, []string{"NVDA", "TSLA", "BTC-USD"}, s.Symbols(), "duplicates collapse, order holds")
}
