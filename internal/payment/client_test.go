package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/sess_1", r.URL.Path)
		assert.Equal(t, "Bearer pk_test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"id": "sess_1",
			"payment_status": "paid",
			"client_reference_id": "acct_9",
			"metadata": {"credits": "25"},
			"amount_total": 999,
			"currency": "usd"
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pk_test", time.Second)
	session, err := c.FetchSession(context.Background(), "sess_1")
	require.NoError(t, err)

	assert.Equal(t, "paid", session.Status)
	assert.Equal(t, "acct_9", session.AccountID)
	assert.Equal(t, int64(25), session.Credits)
	assert.Equal(t, int64(999), session.AmountCents)
}

func TestFetchSession_AccountFromMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "sess_2",
			"payment_status": "paid",
			"metadata": {"account_id": "acct_7", "credits": "10"}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pk_test", time.Second)
	session, err := c.FetchSession(context.Background(), "sess_2")
	require.NoError(t, err)
	assert.Equal(t, "acct_7", session.AccountID)
}

func TestFetchSession_BadCreditsMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "sess_3", "payment_status": "paid", "metadata": {"credits": "lots"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pk_test", time.Second)
	_, err := c.FetchSession(context.Background(), "sess_3")
	require.ErrorContains(t, err, "bad credits metadata")
}

func TestFetchSession_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pk_test", time.Second)
	_, err := c.FetchSession(context.Background(), "sess_4")
	require.ErrorContains(t, err, "503")
}
