package service

import (
	"context"
	"errors"

	"wishforge/internal/model"
)

var ErrInvalidAmount = errors.New("amount must be positive")
var ErrUnknownSchema = errors.New("unknown extraction schema")

// CreditService is the ledger surface consumed by the transports.
type CreditService interface {
	GetBalance(ctx context.Context, accountID string) (int64, error)
	CanGenerate(ctx context.Context, accountID string) (bool, error)
	Debit(ctx context.Context, accountID string, amount int64, reference string) (int64, error)
	Refund(ctx context.Context, accountID string, amount int64, reference string) (int64, error)
}

// PurchaseService reconciles payment sessions; reachable from both the
// client confirmation pull and the processor push notification.
type PurchaseService interface {
	Reconcile(ctx context.Context, sessionID string) (model.ReconcileResult, error)
}

// GenerateService runs the debit-then-extract flow.
type GenerateService interface {
	Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error)
}
