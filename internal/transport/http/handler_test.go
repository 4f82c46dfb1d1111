package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wishforge/internal/model"
	"wishforge/internal/repository"
)

type stubCredits struct {
	balance int64
	debit   func(amount int64) (int64, error)
}

func (s *stubCredits) GetBalance(ctx context.Context, accountID string) (int64, error) {
	if accountID == "ghost" {
		return 0, repository.ErrAccountNotFound
	}
	return s.balance, nil
}

func (s *stubCredits) CanGenerate(ctx context.Context, accountID string) (bool, error) {
	return s.balance > 0, nil
}

func (s *stubCredits) Debit(ctx context.Context, accountID string, amount int64, reference string) (int64, error) {
	return s.debit(amount)
}

func (s *stubCredits) Refund(ctx context.Context, accountID string, amount int64, reference string) (int64, error) {
	s.balance += amount
	return s.balance, nil
}

type stubPurchases struct {
	result model.ReconcileResult
	err    error
}

func (s *stubPurchases) Reconcile(ctx context.Context, sessionID string) (model.ReconcileResult, error) {
	return s.result, s.err
}

type stubGenerate struct {
	result *model.GenerateResult
	err    error
}

func (s *stubGenerate) Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResult, error) {
	return s.result, s.err
}

func newTestMux(credits *stubCredits, purchases *stubPurchases, generate *stubGenerate) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(credits, purchases, generate).Register(mux)
	return mux
}

func TestGetBalance(t *testing.T) {
	mux := newTestMux(&stubCredits{balance: 5}, &stubPurchases{}, &stubGenerate{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/balance?account_id=acct", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got model.BalanceResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(5), got.NewBalance)
}

func TestGetBalance_UnknownAccount(t *testing.T) {
	mux := newTestMux(&stubCredits{}, &stubPurchases{}, &stubGenerate{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/balance?account_id=ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebit_InsufficientCreditsIsPaymentRequired(t *testing.T) {
	credits := &stubCredits{debit: func(int64) (int64, error) {
		return 0, repository.ErrInsufficientCredits
	}}
	mux := newTestMux(credits, &stubPurchases{}, &stubGenerate{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credits/debit",
		strings.NewReader(`{"account_id": "acct"}`)))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient_credits")
}

func TestDebit_DefaultsToOneCredit(t *testing.T) {
	var gotAmount int64
	credits := &stubCredits{debit: func(amount int64) (int64, error) {
		gotAmount = amount
		return 4, nil
	}}
	mux := newTestMux(credits, &stubPurchases{}, &stubGenerate{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credits/debit",
		strings.NewReader(`{"account_id": "acct"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), gotAmount)
}

func TestConfirmPurchase_Duplicate(t *testing.T) {
	purchases := &stubPurchases{result: model.ReconcileResult{OK: true, AlreadyProcessed: true}}
	mux := newTestMux(&stubCredits{}, purchases, &stubGenerate{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchases/confirm",
		strings.NewReader(`{"session_id": "sess_1"}`)))

	// A repeated confirmation is a success, never an error.
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.ReconcileResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.AlreadyProcessed)
}

func TestConfirmPurchase_MissingSessionID(t *testing.T) {
	mux := newTestMux(&stubCredits{}, &stubPurchases{}, &stubGenerate{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchases/confirm",
		strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate_ReturnsExtraction(t *testing.T) {
	generate := &stubGenerate{result: &model.GenerateResult{
		Extraction: model.Extraction{
			Value:      map[string]any{"display": "hi"},
			Provenance: model.ProvenanceFallback,
			Attempts:   3,
		},
		NewBalance: 2,
	}}
	mux := newTestMux(&stubCredits{}, &stubPurchases{}, generate)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate",
		strings.NewReader(`{"account_id": "acct", "schema": "wish", "prompt": "p"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	var got model.GenerateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.ProvenanceFallback, got.Provenance)
	assert.Equal(t, int64(2), got.NewBalance)
}

func TestEntitlement(t *testing.T) {
	mux := newTestMux(&stubCredits{balance: 1}, &stubPurchases{}, &stubGenerate{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entitlement?account_id=acct", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"can_generate": true}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	mux := newTestMux(&stubCredits{}, &stubPurchases{}, &stubGenerate{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
