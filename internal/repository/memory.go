package repository

import (
	"context"
	"sync"

	"wishforge/internal/model"
)

// Memory is an in-process Store with the same conditional-write semantics
// as Postgres. Used by tests and by single-node development setups.
type Memory struct {
	mu        sync.Mutex
	balances  map[string]int64
	purchases map[string]model.PurchaseRecord
	journal   map[string]model.LedgerEntry
}

func NewMemory() *Memory {
	return &Memory{
		balances:  make(map[string]int64),
		purchases: make(map[string]model.PurchaseRecord),
		journal:   make(map[string]model.LedgerEntry),
	}
}

func (m *Memory) ReadBalance(ctx context.Context, accountID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[accountID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (m *Memory) ApplyDelta(ctx context.Context, accountID string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[accountID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if balance+delta < 0 {
		return 0, ErrInsufficientCredits
	}
	m.balances[accountID] = balance + delta
	return balance + delta, nil
}

func (m *Memory) CreditPurchase(ctx context.Context, rec model.PurchaseRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.purchases[rec.SessionID]; exists {
		return 0, ErrDuplicatePurchase
	}
	balance, ok := m.balances[rec.AccountID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	m.purchases[rec.SessionID] = rec
	m.balances[rec.AccountID] = balance + rec.CreditsGranted
	return balance + rec.CreditsGranted, nil
}

func (m *Memory) EnsureAccount(ctx context.Context, accountID string, starter int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.balances[accountID]; exists {
		return false, nil
	}
	m.balances[accountID] = starter
	return true, nil
}

func (m *Memory) InsertLedgerEntry(ctx context.Context, entry model.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.journal[entry.EntryID]; exists {
		return nil
	}
	m.journal[entry.EntryID] = entry
	return nil
}

// JournalLen reports how many distinct entries the journal holds.
func (m *Memory) JournalLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.journal)
}

var _ Store = (*Memory)(nil)
