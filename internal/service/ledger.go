package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wishforge/internal/metrics"
	"wishforge/internal/model"
	"wishforge/internal/repository"
)

// Ledger owns the per-account credit balance. Every mutation is one atomic
// store primitive; the in-process code never reads a balance and writes a
// derived value back.
type Ledger struct {
	store   repository.Store
	cache   *repository.BalanceCache
	bus     repository.MessageBus
	cost    int64
	starter int64
}

// NewLedger wires the ledger. cache and bus may be nil; the cache is a read
// optimization and the bus feeds the journal worker, neither affects
// correctness of the balance itself.
func NewLedger(store repository.Store, cache *repository.BalanceCache, bus repository.MessageBus, cost, starter int64) *Ledger {
	return &Ledger{store: store, cache: cache, bus: bus, cost: cost, starter: starter}
}

// EnsureAccount creates the account with the starter grant on first access.
func (l *Ledger) EnsureAccount(ctx context.Context, accountID string) error {
	created, err := l.store.EnsureAccount(ctx, accountID, l.starter)
	if err != nil {
		return err
	}
	if created {
		slog.Info("account created with starter grant", "account_id", accountID, "credits", l.starter)
		l.publishEntry(accountID, l.starter, model.ReasonStarter, "")
	}
	return nil
}

// GetBalance serves reads through the cache, warming it from the store on a
// miss. The store stays the single source of truth.
func (l *Ledger) GetBalance(ctx context.Context, accountID string) (int64, error) {
	if l.cache != nil {
		balance, err := l.cache.Get(ctx, accountID)
		if err == nil {
			return balance, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			slog.Warn("balance cache read failed, falling through to store", "error", err)
		}
	}

	balance, err := l.store.ReadBalance(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if l.cache != nil {
		if err := l.cache.Warm(ctx, accountID, balance); err != nil {
			slog.Warn("balance cache warm failed", "error", err)
		}
	}
	return balance, nil
}

// CanGenerate is the derived entitlement flag: enough credits for one
// generation at the configured cost.
func (l *Ledger) CanGenerate(ctx context.Context, accountID string) (bool, error) {
	balance, err := l.GetBalance(ctx, accountID)
	if err != nil {
		return false, err
	}
	return balance >= l.cost, nil
}

// Debit decrements the balance if and only if it covers amount, as a single
// conditional store write. ErrInsufficientCredits leaves the balance
// untouched.
func (l *Ledger) Debit(ctx context.Context, accountID string, amount int64, reference string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	newBalance, err := l.store.ApplyDelta(ctx, accountID, -amount)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			metrics.Debits.WithLabelValues(metrics.OutcomeInsufficient).Inc()
		} else {
			metrics.Debits.WithLabelValues(metrics.OutcomeError).Inc()
		}
		return 0, err
	}
	metrics.Debits.WithLabelValues(metrics.OutcomeOK).Inc()
	l.afterMutation(ctx, accountID)
	l.publishEntry(accountID, -amount, model.ReasonGeneration, reference)
	return newBalance, nil
}

// Credit is the unconditional increase. Callers confirm idempotency before
// calling; the ledger itself applies whatever it is told.
func (l *Ledger) Credit(ctx context.Context, accountID string, amount int64, reason, reference string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	newBalance, err := l.store.ApplyDelta(ctx, accountID, amount)
	if err != nil {
		return 0, err
	}
	l.afterMutation(ctx, accountID)
	l.publishEntry(accountID, amount, reason, reference)
	return newBalance, nil
}

// Refund compensates a debit whose paired generation failed afterwards.
// Symmetric to Credit; it does not verify the original debit.
func (l *Ledger) Refund(ctx context.Context, accountID string, amount int64, reference string) (int64, error) {
	return l.Credit(ctx, accountID, amount, model.ReasonRefund, reference)
}

// ApplyPurchase applies a settled purchase atomically: record insert and
// balance increment in one store transaction, keyed by the session id.
func (l *Ledger) ApplyPurchase(ctx context.Context, rec model.PurchaseRecord) (int64, error) {
	newBalance, err := l.store.CreditPurchase(ctx, rec)
	if err != nil {
		return 0, err
	}
	l.afterMutation(ctx, rec.AccountID)
	l.publishEntry(rec.AccountID, rec.CreditsGranted, model.ReasonPurchase, rec.SessionID)
	return newBalance, nil
}

func (l *Ledger) afterMutation(ctx context.Context, accountID string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx, accountID); err != nil {
		slog.Warn("balance cache invalidate failed", "account_id", accountID, "error", err)
	}
}

func (l *Ledger) publishEntry(accountID string, delta int64, reason, reference string) {
	if l.bus == nil {
		return
	}
	entry := model.LedgerEntry{
		EntryID:   uuid.New().String(),
		AccountID: accountID,
		Delta:     delta,
		Reason:    reason,
		Reference: reference,
		CreatedAt: time.Now().UTC(),
	}
	data, _ := json.Marshal(entry)
	if err := l.bus.Publish(repository.TopicLedgerEntries, data); err != nil {
		slog.Warn("failed to publish ledger entry", "account_id", accountID, "error", err)
	}
}

var _ CreditService = (*Ledger)(nil)
