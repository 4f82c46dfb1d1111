package infrastructure

import (
	"context"

	"wishforge/internal/config"
	"wishforge/internal/extract"
	"wishforge/internal/genai"
	"wishforge/internal/payment"
	"wishforge/internal/repository"
	"wishforge/internal/service"
	transportHTTP "wishforge/internal/transport/http"
	transportNATS "wishforge/internal/transport/nats"
	"wishforge/internal/worker"
)

// Bootstrap initialises all dependencies from config and wires up the
// application. Every capability (store, cache, bus, model client, payment
// client) is constructed exactly once here and passed by reference — no
// package-level singletons anywhere downstream.
// Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context) (*App, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	db, err := connectPostgres(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	cleanupFns = append(cleanupFns, db.Close)

	rdb, err := connectRedis(ctx, cfg.RedisAddr())
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	cleanupFns = append(cleanupFns, func() { _ = rdb.Close() })

	nc, err := connectNats(cfg.NatsAddr())
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	cleanupFns = append(cleanupFns, nc.Close)

	// ── Capabilities ──────────────────────────────────────────────────────
	store := repository.NewPostgres(db)
	cache := repository.NewBalanceCache(rdb)
	bus := transportNATS.NewBus(nc)

	modelClient := genai.NewClient(cfg.ModelAPIURL, cfg.ModelAPIKey, cfg.ModelName, cfg.ModelTimeout)
	processor := payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentAPIKey, cfg.PaymentTimeout)

	// ── Services ──────────────────────────────────────────────────────────
	ledger := service.NewLedger(store, cache, bus, cfg.GenerationCost, cfg.StarterCredits)
	reconciler := service.NewPurchaseReconciler(processor, ledger, cfg.PaymentTimeout)
	extractor := extract.NewExtractor(modelClient, cfg.ExtractMaxAttempts, cfg.ModelTimeout, cfg.ModelRPS)
	generator := service.NewGenerator(ledger, extractor, cfg.GenerationCost)

	// ── Servers ───────────────────────────────────────────────────────────
	servers := []Server{
		worker.NewJournalWorker(store, nc),
		transportNATS.NewHandler(reconciler, nc),
	}
	if addr, apiErr := cfg.ApiAddr(); apiErr == nil {
		servers = append(servers, transportHTTP.NewServer(addr, ledger, reconciler, generator))
	}

	return NewApp(servers), runCleanup(cleanupFns), nil
}

// runCleanup returns a single function that calls all cleanup functions in reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
