package model

import "time"

// PurchaseRecord is one settled external payment. SessionID is the payment
// processor's checkout-session identifier and the idempotency key: at most
// one record may ever exist per session, and the record's existence is
// proof the credits were granted.
type PurchaseRecord struct {
	SessionID      string    `json:"session_id"`
	AccountID      string    `json:"account_id"`
	CreditsGranted int64     `json:"credits_granted"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReconcileResult reports the outcome of reconciling one payment session.
type ReconcileResult struct {
	OK               bool  `json:"ok"`
	AlreadyProcessed bool  `json:"already_processed"`
	CreditsAdded     int64 `json:"credits_added"`
}

// PaymentSession is the authoritative session state fetched from the
// payment processor.
type PaymentSession struct {
	SessionID   string
	Status      string
	AccountID   string
	Credits     int64
	AmountCents int64
	Currency    string
}

// SessionStatusPaid is the only processor status that grants credits.
const SessionStatusPaid = "paid"
