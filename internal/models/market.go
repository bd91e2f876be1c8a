package models

import (
	"strings"
	"time"
)

// HistoryLength is the number of recent prices kept per instrument.
const HistoryLength = 20

// Instrument category constants
const (
	CategoryStock     = "STOCK"
	CategoryCrypto    = "CRYPTO"
	CategoryForex     = "FOREX"
	CategoryCommodity = "COMMODITY"
	CategoryIndex     = "INDEX"
)

// Snapshot represents the current quote state of one instrument.
type Snapshot struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Volume        int64     `json:"volume"`
	History       []float64 `json:"history"`
	Timestamp     time.Time `json:"timestamp"`
}

// TickBatch is one synchronized update of every tracked instrument. All
// snapshots in a batch share the same timestamp.
type TickBatch struct {
	Snapshots []Snapshot `json:"snapshots"`
	Timestamp time.Time  `json:"timestamp"`
}

// Get returns the snapshot for symbol, or false if the batch has none.
func (b TickBatch) Get(symbol string) (Snapshot, bool) {
	for _, s := range b.Snapshots {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return Snapshot{}, false
}

// CategoryForSymbol derives an instrument category from the symbol naming
// convention: currency-quoted symbols are CRYPTO, COMMODITY or FOREX,
// everything else is a STOCK. Index instruments are configured explicitly.
func CategoryForSymbol(symbol string) string {
	if !strings.Contains(symbol, "USD") {
		return CategoryStock
	}
	switch {
	case strings.Contains(symbol, "BTC"), strings.Contains(symbol, "ETH"):
		return CategoryCrypto
	case strings.Contains(symbol, "XAU"):
		return CategoryCommodity
	default:
		return CategoryForex
	}
}
