package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wishforge/internal/metrics"
	"wishforge/internal/model"
	"wishforge/internal/repository"
)

// PaymentProcessor fetches authoritative session state. Implemented by the
// payment package; stubbed in tests.
type PaymentProcessor interface {
	FetchSession(ctx context.Context, sessionID string) (model.PaymentSession, error)
}

// PurchaseReconciler grants credits for settled payment sessions. Both
// delivery paths — the processor's asynchronous push and the client's
// post-redirect confirmation pull — land here and may race or repeat
// arbitrarily; the purchase record's uniqueness on session id is the sole
// idempotency guard.
type PurchaseReconciler struct {
	processor PaymentProcessor
	ledger    *Ledger
	timeout   time.Duration
}

func NewPurchaseReconciler(processor PaymentProcessor, ledger *Ledger, timeout time.Duration) *PurchaseReconciler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PurchaseReconciler{processor: processor, ledger: ledger, timeout: timeout}
}

// Reconcile runs the session through fetch → resolve account → atomic
// record+credit. Non-"paid" sessions and sessions without a resolvable
// account terminate without mutation and without error: the triggering
// event must be acknowledged either way, or the processor redelivers
// forever.
func (r *PurchaseReconciler) Reconcile(ctx context.Context, sessionID string) (model.ReconcileResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	session, err := r.processor.FetchSession(fetchCtx, sessionID)
	if err != nil {
		metrics.Reconciles.WithLabelValues(metrics.OutcomeError).Inc()
		return model.ReconcileResult{}, fmt.Errorf("reconcile %s: %w", sessionID, err)
	}

	if session.Status != model.SessionStatusPaid {
		metrics.Reconciles.WithLabelValues(metrics.OutcomeNotPaid).Inc()
		slog.Info("session not paid, nothing to reconcile",
			"session_id", sessionID, "status", session.Status)
		return model.ReconcileResult{}, nil
	}

	if session.AccountID == "" {
		// Paid money with no account to credit is an operator problem, not
		// a retryable one: ack the event and leave a loud trace.
		metrics.Reconciles.WithLabelValues(metrics.OutcomeNoAccount).Inc()
		slog.Error("paid session has no resolvable account, skipping",
			"session_id", sessionID, "amount_cents", session.AmountCents)
		return model.ReconcileResult{}, nil
	}

	if session.Credits <= 0 {
		metrics.Reconciles.WithLabelValues(metrics.OutcomeNoAccount).Inc()
		slog.Error("paid session has no credits metadata, skipping",
			"session_id", sessionID, "account_id", session.AccountID)
		return model.ReconcileResult{}, nil
	}

	if err := r.ledger.EnsureAccount(ctx, session.AccountID); err != nil {
		metrics.Reconciles.WithLabelValues(metrics.OutcomeError).Inc()
		return model.ReconcileResult{}, fmt.Errorf("reconcile %s: %w", sessionID, err)
	}

	_, err = r.ledger.ApplyPurchase(ctx, model.PurchaseRecord{
		SessionID:      sessionID,
		AccountID:      session.AccountID,
		CreditsGranted: session.Credits,
		AmountCents:    session.AmountCents,
		Currency:       session.Currency,
		CreatedAt:      time.Now().UTC(),
	})
	if errors.Is(err, repository.ErrDuplicatePurchase) {
		// Another reconciliation already ran for this session. Success,
		// no-op: never surfaced as an error to the event source.
		metrics.Reconciles.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return model.ReconcileResult{OK: true, AlreadyProcessed: true}, nil
	}
	if err != nil {
		metrics.Reconciles.WithLabelValues(metrics.OutcomeError).Inc()
		return model.ReconcileResult{}, fmt.Errorf("reconcile %s: %w", sessionID, err)
	}

	metrics.Reconciles.WithLabelValues(metrics.OutcomeOK).Inc()
	slog.Info("purchase credited",
		"session_id", sessionID,
		"account_id", session.AccountID,
		"credits", session.Credits,
	)
	return model.ReconcileResult{OK: true, CreditsAdded: session.Credits}, nil
}

var _ PurchaseService = (*PurchaseReconciler)(nil)
