package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"wishforge/internal/repository"
	"wishforge/internal/service"
)

// Handler is the asynchronous push trigger: the payment gateway publishes
// completed checkout sessions and every delivery is reconciled. Deliveries
// may repeat or race the client's confirmation pull; the reconciler's
// idempotency guard makes that harmless, so the handler never rejects a
// message.
type Handler struct {
	purchases service.PurchaseService
	nc        *nats.Conn
	subs      []*nats.Subscription
}

func NewHandler(purchases service.PurchaseService, nc *nats.Conn) *Handler {
	return &Handler{purchases: purchases, nc: nc}
}

type sessionCompletedEvent struct {
	SessionID string `json:"session_id"`
}

// Start subscribes to the payment topic and blocks until ctx is cancelled.
func (h *Handler) Start(ctx context.Context) error {
	sub, err := h.nc.QueueSubscribe(repository.TopicPaymentCompleted, "purchase_group", func(m *nats.Msg) {
		var event sessionCompletedEvent
		if err := json.Unmarshal(m.Data, &event); err != nil || event.SessionID == "" {
			slog.Error("nats: malformed payment event, dropping", "error", err)
			return
		}

		result, err := h.purchases.Reconcile(ctx, event.SessionID)
		if err != nil {
			// Transient processor failure; NATS redelivery (or the client
			// pull) will retry the session later.
			slog.Error("nats: reconcile failed", "session_id", event.SessionID, "error", err)
			return
		}
		slog.Info("nats: payment event reconciled",
			"session_id", event.SessionID,
			"ok", result.OK,
			"already_processed", result.AlreadyProcessed,
			"credits_added", result.CreditsAdded,
		)
	})
	if err != nil {
		return err
	}
	h.subs = append(h.subs, sub)

	slog.Info("NATS payment handler is running")

	<-ctx.Done()
	slog.Info("NATS payment handler shutting down, draining subscriptions...")

	for _, s := range h.subs {
		_ = s.Drain()
	}
	return nil
}

func (h *Handler) Stop(ctx context.Context) error {
	for _, s := range h.subs {
		_ = s.Unsubscribe()
	}
	return nil
}
