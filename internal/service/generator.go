package service

import (
	"context"
	"fmt"

	"wishforge/internal/extract"
	"wishforge/internal/model"
)

// Generator ties entitlement, debit and extraction together: the balance is
// debited before any external-model budget is spent, and a rejected debit
// aborts the request without touching the provider at all.
type Generator struct {
	ledger    *Ledger
	extractor *extract.Extractor
	cost      int64
}

func NewGenerator(ledger *Ledger, extractor *extract.Extractor, cost int64) *Generator {
	return &Generator{ledger: ledger, extractor: extractor, cost: cost}
}

// Generate debits one generation's worth of credits, then runs the
// extraction pipeline. Extraction itself cannot fail — it degrades to the
// schema fallback — so once the debit holds, the caller always receives a
// usable value. Callers that fail after this returns compensate with
// Refund.
func (g *Generator) Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
	schema, ok := extract.Lookup(req.Schema)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, req.Schema)
	}

	if err := g.ledger.EnsureAccount(ctx, req.AccountID); err != nil {
		return nil, err
	}

	newBalance, err := g.ledger.Debit(ctx, req.AccountID, g.cost, "generate:"+req.Schema)
	if err != nil {
		return nil, err
	}

	extraction := g.extractor.Extract(ctx, req.Prompt, schema)
	return &model.GenerateResult{
		Extraction: extraction,
		NewBalance: newBalance,
	}, nil
}

var _ GenerateService = (*Generator)(nil)
