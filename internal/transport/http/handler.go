package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wishforge/internal/model"
	"wishforge/internal/repository"
	"wishforge/internal/service"
)

type Handler struct {
	credits   service.CreditService
	purchases service.PurchaseService
	generate  service.GenerateService
}

func NewHandler(credits service.CreditService, purchases service.PurchaseService, generate service.GenerateService) *Handler {
	return &Handler{credits: credits, purchases: purchases, generate: generate}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /balance", h.GetBalance)
	mux.HandleFunc("GET /entitlement", h.Entitlement)
	mux.HandleFunc("POST /credits/debit", h.Debit)
	mux.HandleFunc("POST /credits/refund", h.Refund)
	mux.HandleFunc("POST /purchases/confirm", h.ConfirmPurchase)
	mux.HandleFunc("POST /generate", h.Generate)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		h.respondError(w, http.StatusBadRequest, "missing_account_id")
		return
	}
	balance, err := h.credits.GetBalance(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			h.respondError(w, http.StatusNotFound, "account_not_found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	h.respondJSON(w, http.StatusOK, model.BalanceResult{AccountID: accountID, NewBalance: balance})
}

func (h *Handler) Entitlement(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		h.respondError(w, http.StatusBadRequest, "missing_account_id")
		return
	}
	ok, err := h.credits.CanGenerate(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			h.respondError(w, http.StatusNotFound, "account_not_found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"can_generate": ok})
}

func (h *Handler) Debit(w http.ResponseWriter, r *http.Request) {
	var req model.DebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Amount == 0 {
		req.Amount = 1
	}
	newBalance, err := h.credits.Debit(r.Context(), req.AccountID, req.Amount, "api")
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, model.BalanceResult{AccountID: req.AccountID, NewBalance: newBalance})
}

func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var req model.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Amount == 0 {
		req.Amount = 1
	}
	newBalance, err := h.credits.Refund(r.Context(), req.AccountID, req.Amount, "api")
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, model.BalanceResult{AccountID: req.AccountID, NewBalance: newBalance})
}

// ConfirmPurchase is the synchronous pull trigger: the client calls it
// after the checkout redirect. Safe to repeat; a duplicate reports
// already_processed instead of failing.
func (h *Handler) ConfirmPurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		h.respondError(w, http.StatusBadRequest, "missing_session_id")
		return
	}
	result, err := h.purchases.Reconcile(r.Context(), req.SessionID)
	if err != nil {
		h.respondError(w, http.StatusBadGateway, "payment_processor_unavailable")
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.AccountID == "" || req.Schema == "" {
		h.respondError(w, http.StatusBadRequest, "missing_params")
		return
	}
	result, err := h.generate.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSchema) {
			h.respondError(w, http.StatusBadRequest, "unknown_schema")
			return
		}
		h.respondLedgerError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrInsufficientCredits):
		h.respondError(w, http.StatusPaymentRequired, "insufficient_credits")
	case errors.Is(err, repository.ErrAccountNotFound):
		h.respondError(w, http.StatusNotFound, "account_not_found")
	case errors.Is(err, service.ErrInvalidAmount):
		h.respondError(w, http.StatusBadRequest, "invalid_amount")
	default:
		h.respondError(w, http.StatusInternalServerError, "internal_error")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
