package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription plan constants
const (
	PlanFree = "FREE"
	PlanPro  = "PRO"
)

// User represents a registered dashboard account.
type User struct {
	UID              string    `json:"uid"`
	Email            string    `json:"email"`
	PhoneNumber      string    `json:"phone_number,omitempty"`
	SubscriptionPlan string    `json:"subscription_plan"`
	CreatedAt        time.Time `json:"created_at"`
}

// Transaction records one mock subscription payment.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Method    string          `json:"method"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
