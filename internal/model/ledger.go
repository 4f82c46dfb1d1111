package model

import "time"

type DebitRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
}

type RefundRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
}

type BalanceResult struct {
	AccountID  string `json:"account_id"`
	NewBalance int64  `json:"new_balance"`
}

// LedgerEntry is the journal record emitted for every applied delta.
// EntryID doubles as the idempotency key for the journal table, so the
// worker may replay the same event any number of times.
type LedgerEntry struct {
	EntryID   string    `json:"entry_id"`
	AccountID string    `json:"account_id"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal entry reasons.
const (
	ReasonGeneration = "generation"
	ReasonRefund     = "refund"
	ReasonPurchase   = "purchase"
	ReasonStarter    = "starter_grant"
)
