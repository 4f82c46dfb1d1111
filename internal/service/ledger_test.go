package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"wishforge/internal/model"
	"wishforge/internal/repository"
)

type recordingBus struct {
	mu     sync.Mutex
	topics []string
}

func (b *recordingBus) Publish(topic string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	return nil
}

func (b *recordingBus) count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func newTestLedger(t *testing.T, balance int64) (*Ledger, *repository.Memory, *recordingBus) {
	t.Helper()
	store := repository.NewMemory()
	bus := &recordingBus{}
	ledger := NewLedger(store, nil, bus, 1, 0)
	_, err := store.EnsureAccount(context.Background(), "acct", 0)
	require.NoError(t, err)
	if balance > 0 {
		_, err = store.ApplyDelta(context.Background(), "acct", balance)
		require.NoError(t, err)
	}
	return ledger, store, bus
}

func TestDebit_SequentialUntilExhausted(t *testing.T) {
	ledger, _, _ := newTestLedger(t, 3)
	ctx := context.Background()

	for want := int64(2); want >= 0; want-- {
		got, err := ledger.Debit(ctx, "acct", 1, "")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ledger.Debit(ctx, "acct", 1, "")
	require.ErrorIs(t, err, repository.ErrInsufficientCredits)

	balance, err := ledger.GetBalance(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance, "failed debit must change nothing")
}

func TestDebit_ConcurrentNeverOversells(t *testing.T) {
	const start, callers = int64(7), 50

	ledger, _, _ := newTestLedger(t, start)
	ctx := context.Background()

	var mu sync.Mutex
	successes := 0

	g := new(errgroup.Group)
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			_, err := ledger.Debit(ctx, "acct", 1, "")
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return nil
			}
			if errors.Is(err, repository.ErrInsufficientCredits) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int(start), successes, "successful debits must equal min(N, B)")

	balance, err := ledger.GetBalance(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestCredit_Monotonic(t *testing.T) {
	ledger, _, _ := newTestLedger(t, 2)
	ctx := context.Background()

	got, err := ledger.Credit(ctx, "acct", 5, model.ReasonPurchase, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)
}

func TestRefund_CompensatesDebit(t *testing.T) {
	ledger, _, _ := newTestLedger(t, 1)
	ctx := context.Background()

	_, err := ledger.Debit(ctx, "acct", 1, "gen_42")
	require.NoError(t, err)

	got, err := ledger.Refund(ctx, "acct", 1, "gen_42")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestDebit_RejectsNonPositiveAmount(t *testing.T) {
	ledger, _, _ := newTestLedger(t, 5)
	ctx := context.Background()

	for _, amount := range []int64{0, -3} {
		_, err := ledger.Debit(ctx, "acct", amount, "")
		require.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestEnsureAccount_StarterGrantOnce(t *testing.T) {
	store := repository.NewMemory()
	bus := &recordingBus{}
	ledger := NewLedger(store, nil, bus, 1, 3)
	ctx := context.Background()

	require.NoError(t, ledger.EnsureAccount(ctx, "new"))
	require.NoError(t, ledger.EnsureAccount(ctx, "new"))

	balance, err := ledger.GetBalance(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance, "starter grant applies exactly once")
	assert.Equal(t, 1, bus.count(repository.TopicLedgerEntries))
}

func TestCanGenerate(t *testing.T) {
	ledger, _, _ := newTestLedger(t, 1)
	ctx := context.Background()

	ok, err := ledger.CanGenerate(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = ledger.Debit(ctx, "acct", 1, "")
	require.NoError(t, err)

	ok, err = ledger.CanGenerate(ctx, "acct")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_PublishesJournalEntries(t *testing.T) {
	ledger, _, bus := newTestLedger(t, 2)
	ctx := context.Background()

	_, err := ledger.Debit(ctx, "acct", 1, "")
	require.NoError(t, err)
	_, err = ledger.Credit(ctx, "acct", 4, model.ReasonPurchase, "sess_9")
	require.NoError(t, err)

	assert.Equal(t, 2, bus.count(repository.TopicLedgerEntries))
}

func TestGetBalance_UnknownAccount(t *testing.T) {
	ledger, _, _ := newTestLedger(t, 0)

	_, err := ledger.GetBalance(context.Background(), "ghost")
	require.ErrorIs(t, err, repository.ErrAccountNotFound)
}
