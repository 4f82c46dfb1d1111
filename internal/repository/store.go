package repository

import (
	"context"
	"errors"

	"wishforge/internal/model"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrDuplicatePurchase   = errors.New("purchase already recorded (idempotency)")
	ErrAccountNotFound     = errors.New("account not found")
	ErrCacheMiss           = errors.New("balance not found in cache")
)

// Store is the single source of truth for balances and purchase records.
// All balance mutation goes through ApplyDelta / CreditPurchase; callers
// never read a balance and write it back.
type Store interface {
	// ReadBalance returns the current credit balance.
	ReadBalance(ctx context.Context, accountID string) (int64, error)

	// ApplyDelta applies a signed delta as one conditional write: the store
	// itself evaluates "credits + delta >= 0" at write time. A delta that
	// would drive the balance negative returns ErrInsufficientCredits and
	// changes nothing.
	ApplyDelta(ctx context.Context, accountID string, delta int64) (int64, error)

	// CreditPurchase inserts the purchase record and applies its credit
	// delta as one atomic unit, keyed by rec.SessionID. A second call for
	// the same session returns ErrDuplicatePurchase with no mutation.
	CreditPurchase(ctx context.Context, rec model.PurchaseRecord) (int64, error)

	// EnsureAccount creates the account with the starter balance if it does
	// not exist yet. Reports whether it was created by this call.
	EnsureAccount(ctx context.Context, accountID string, starter int64) (bool, error)

	// InsertLedgerEntry appends one journal entry; replaying the same
	// EntryID is a no-op.
	InsertLedgerEntry(ctx context.Context, entry model.LedgerEntry) error
}

// MessageBus publishes serialized events to a topic. Implemented by the
// NATS transport.
type MessageBus interface {
	Publish(topic string, data []byte) error
}

// Bus topics.
const (
	TopicLedgerEntries    = "ledger.entries"
	TopicPaymentCompleted = "payments.session.completed"
)
