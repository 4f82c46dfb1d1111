package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"wishforge/internal/model"
	"wishforge/internal/repository"
)

// JournalWorker listens for ledger entry events and persists them to the
// append-only journal table. Entries are keyed by entry id, so redelivered
// events land as no-ops.
type JournalWorker struct {
	store    repository.Store
	natsConn *nats.Conn
}

func NewJournalWorker(store repository.Store, nc *nats.Conn) *JournalWorker {
	return &JournalWorker{store: store, natsConn: nc}
}

// Run subscribes to the journal topic and blocks until ctx is cancelled.
func (w *JournalWorker) Run(ctx context.Context) error {
	// QueueSubscribe: with several API replicas running, each event is
	// journalled by exactly one member of the group.
	sub, err := w.natsConn.QueueSubscribe(repository.TopicLedgerEntries, "journal_group", func(m *nats.Msg) {
		if err := w.process(ctx, m.Data); err != nil {
			slog.Error("worker: failed to journal ledger entry", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("worker: failed to subscribe to NATS: %w", err)
	}

	slog.Info("Journal worker is running")

	<-ctx.Done()

	slog.Info("Worker received shutdown signal, draining subscription...")
	return sub.Drain()
}

func (w *JournalWorker) process(ctx context.Context, data []byte) error {
	var entry model.LedgerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return fmt.Errorf("unmarshal ledger entry: %w", err)
	}
	if err := w.store.InsertLedgerEntry(ctx, entry); err != nil {
		return fmt.Errorf("insert ledger entry %s: %w", entry.EntryID, err)
	}
	slog.Info("worker: ledger entry journalled",
		"entry_id", entry.EntryID,
		"account_id", entry.AccountID,
		"delta", entry.Delta,
	)
	return nil
}

// Start implements the infrastructure.Server interface.
func (w *JournalWorker) Start(ctx context.Context) error {
	return w.Run(ctx)
}

// Stop implements the infrastructure.Server interface (no-op, shutdown is via ctx).
func (w *JournalWorker) Stop(ctx context.Context) error {
	return nil
}
