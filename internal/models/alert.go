package models

import "time"

// Alert condition constants
const (
	ConditionAbove = "ABOVE"
	ConditionBelow = "BELOW"
)

// Alert is a user-defined price threshold plus trigger direction. The
// condition is derived once at creation time from the then-current price and
// is never recomputed; a triggered alert stays inactive until the user sets
// a new one.
type Alert struct {
	TargetPrice float64   `json:"target_price"`
	Condition   string    `json:"condition"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewAlert derives the trigger condition by comparing the target against the
// price at creation. A target equal to the current price resolves to BELOW.
func NewAlert(targetPrice, currentPrice float64) Alert {
	condition := ConditionBelow
	if targetPrice > currentPrice {
		condition = ConditionAbove
	}
	return Alert{
		TargetPrice: targetPrice,
		Condition:   condition,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
}

// TriggeredAlert records one alert firing inside a tick batch evaluation.
type TriggeredAlert struct {
	Symbol string
	Alert  Alert
	Price  float64
}

// Notification is an unacknowledged fired-alert record. Immutable once
// created; removed only by explicit user dismissal.
type Notification struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	FiredAt time.Time `json:"fired_at"`
}
