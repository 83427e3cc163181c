package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attest/internal/anchor"
	"attest/internal/audit"
	credmetrics "attest/internal/credential/metrics"
	"attest/internal/credential/service"
	credstore "attest/internal/credential/store"
	"attest/internal/organization"
	"attest/internal/platform/config"
	"attest/internal/platform/database"
	"attest/internal/platform/health"
	"attest/internal/platform/httpserver"
	"attest/internal/platform/logger"
	platformredis "attest/internal/platform/redis"
	"attest/internal/qr"
	"attest/internal/ratelimit"
	"attest/internal/share"
	httptransport "attest/internal/transport/http"
	"attest/internal/verification"
	verifmetrics "attest/internal/verification/metrics"
	"attest/internal/verification/tracer"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing attest",
		"addr", cfg.Addr,
		"base_url", cfg.BaseURL,
		"ledger_configured", cfg.Ledger.RPCURL != "",
		"database_configured", cfg.Database.URL != "",
	)

	healthHandler := health.New()

	// Storage: PostgreSQL when configured, in-memory otherwise.
	var store credstore.Store
	var orgs organization.Store
	if cfg.Database.URL != "" {
		pool, err := database.New(cfg.Database)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close() //nolint:errcheck
		store = credstore.NewPostgres(pool.DB())
		orgs = organization.NewPostgres(pool.DB())
		healthHandler.RegisterCheck("database", func() error { return pool.Health(context.Background()) })
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
		store = credstore.NewInMemoryStore()
		orgs = organization.NewInMemoryStore()
	}

	// Anchoring: live ledger client when an RPC endpoint is configured, the
	// deterministic mock otherwise.
	var anchorer anchor.Anchorer
	if cfg.Ledger.RPCURL != "" {
		live, err := anchor.NewLive(cfg.Ledger)
		if err != nil {
			log.Error("failed to initialize ledger client", "error", err)
			os.Exit(1)
		}
		anchorer = live
	} else {
		log.Warn("LEDGER_RPC_URL not set, using mock anchorer")
		anchorer = anchor.NewMock()
	}

	// Verification rate limiting: shared Redis window when available,
	// per-instance token buckets otherwise.
	var tracker ratelimit.AttemptTracker
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		tracker = ratelimit.NewRedisTracker(redisClient.Client, cfg.VerifyRatePerMinute, time.Minute)
		healthHandler.RegisterCheck("redis", func() error { return redisClient.Health(context.Background()) })
	} else {
		tracker = ratelimit.NewInMemoryTracker(cfg.VerifyRatePerMinute, cfg.VerifyRateBurst)
	}

	codec := qr.New(cfg.BaseURL)
	auditor := audit.NewRecorder(audit.NewInMemoryStore(), log)
	lifecycleMetrics := credmetrics.New()

	lifecycle := service.NewService(store, orgs, anchorer, codec,
		service.WithLogger(log),
		service.WithAuditor(auditor),
		service.WithMetrics(lifecycleMetrics),
	)
	verifier := verification.NewService(store, anchorer, codec,
		verification.WithLogger(log),
		verification.WithAuditor(auditor),
		verification.WithMetrics(verifmetrics.New()),
		verification.WithTracer(tracer.NewOTel()),
	)
	shares := share.NewService(cfg.ShareSigningKey, cfg.BaseURL,
		share.WithMaxTTL(cfg.ShareMaxTTL),
	)

	handler := httptransport.NewHandler(lifecycle, verifier, shares, log)
	router := httptransport.NewRouter(handler, log, httptransport.RouterConfig{
		Health:  healthHandler,
		Tracker: tracker,
	})

	// Deferred anchoring worker picks up credentials left pending by ledger
	// outages during issuance.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	retryWorker := service.NewAnchorRetryWorker(store, anchorer,
		service.WithRetryLogger(log),
		service.WithRetryAuditor(auditor),
		service.WithRetryMetrics(lifecycleMetrics),
		service.WithRetryInterval(cfg.Anchor.Interval),
		service.WithRetryGrace(cfg.Anchor.Grace),
		service.WithRetryBatchSize(cfg.Anchor.BatchSize),
	)
	go func() {
		_ = retryWorker.Start(workerCtx)
	}()

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")
	stopWorker()

	if err := httpserver.Shutdown(srv, 10*time.Second); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
