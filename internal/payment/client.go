// Package payment is the HTTP client for the external payment processor.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"wishforge/internal/model"
)

// Client fetches authoritative checkout-session state from the processor.
// The processor's status is the only thing trusted for granting credits;
// webhook payloads are treated as hints, never as proof of payment.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sessionResponse struct {
	ID                string            `json:"id"`
	PaymentStatus     string            `json:"payment_status"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
}

func (c *Client) FetchSession(ctx context.Context, sessionID string) (model.PaymentSession, error) {
	url := fmt.Sprintf("%s/v1/checkout/sessions/%s", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.PaymentSession{}, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.PaymentSession{}, fmt.Errorf("fetch session %s: %w", sessionID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.PaymentSession{}, fmt.Errorf("payment processor returned %d for session %s: %s",
			resp.StatusCode, sessionID, payload)
	}

	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.PaymentSession{}, fmt.Errorf("decode session response: %w", err)
	}

	session := model.PaymentSession{
		SessionID:   out.ID,
		Status:      out.PaymentStatus,
		AccountID:   out.ClientReferenceID,
		AmountCents: out.AmountTotal,
		Currency:    out.Currency,
	}
	if session.AccountID == "" {
		session.AccountID = out.Metadata["account_id"]
	}
	if raw, ok := out.Metadata["credits"]; ok {
		credits, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.PaymentSession{}, fmt.Errorf("session %s: bad credits metadata %q", sessionID, raw)
		}
		session.Credits = credits
	}
	return session, nil
}
