package service

import (
	"context"
	"log/slog"
	"time"

	"attest/internal/anchor"
	"attest/internal/audit"
	"attest/internal/credential/metrics"
	"attest/internal/credential/models"
	"attest/internal/credential/store"
)

// SweepResult contains the results of a single deferred anchoring sweep.
type SweepResult struct {
	Scanned  int
	Anchored int
	Failed   int
	Duration time.Duration
}

type RetryOption func(*AnchorRetryWorker)

func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(w *AnchorRetryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithRetryInterval(interval time.Duration) RetryOption {
	return func(w *AnchorRetryWorker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithRetryGrace sets how old a PENDING record must be before the worker
// touches it. The grace keeps the worker from racing the inline anchor
// attempt made during issuance.
func WithRetryGrace(grace time.Duration) RetryOption {
	return func(w *AnchorRetryWorker) {
		if grace > 0 {
			w.grace = grace
		}
	}
}

func WithRetryBatchSize(size int) RetryOption {
	return func(w *AnchorRetryWorker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func WithRetryMetrics(m *metrics.Metrics) RetryOption {
	return func(w *AnchorRetryWorker) {
		w.metrics = m
	}
}

func WithRetryAuditor(auditor audit.Publisher) RetryOption {
	return func(w *AnchorRetryWorker) {
		w.auditor = auditor
	}
}

func WithRetryClock(now func() time.Time) RetryOption {
	return func(w *AnchorRetryWorker) {
		if now != nil {
			w.now = now
		}
	}
}

// AnchorRetryWorker sweeps PENDING credentials whose inline anchoring failed
// and retries them. Anchoring is idempotent on the ledger side, so a record
// that was actually anchored but never promoted locally converges too.
type AnchorRetryWorker struct {
	store     store.Store
	anchorer  anchor.Anchorer
	auditor   audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	interval  time.Duration
	grace     time.Duration
	batchSize int
	now       func() time.Time
}

func NewAnchorRetryWorker(credStore store.Store, anchorer anchor.Anchorer, opts ...RetryOption) *AnchorRetryWorker {
	worker := &AnchorRetryWorker{
		store:     credStore,
		anchorer:  anchorer,
		logger:    slog.Default(),
		interval:  time.Minute,
		grace:     30 * time.Second,
		batchSize: 50,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(worker)
	}
	return worker
}

func (w *AnchorRetryWorker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			startTime := time.Now()
			res, err := w.RunOnce(ctx)
			duration := time.Since(startTime)

			if err != nil {
				w.logger.Error("anchor_retry_sweep_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				continue
			}
			res.Duration = duration

			if res.Scanned > 0 {
				w.logger.Info("anchor_retry_sweep_completed",
					"scanned", res.Scanned,
					"anchored", res.Anchored,
					"failed", res.Failed,
					"duration_ms", duration.Milliseconds(),
				)
			}

		case <-ctx.Done():
			w.logger.Info("anchor retry worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single sweep. Per-credential failures are counted, not
// propagated; only a failure to list the batch aborts the sweep.
func (w *AnchorRetryWorker) RunOnce(ctx context.Context) (*SweepResult, error) {
	if w.metrics != nil {
		w.metrics.AnchorRetrySweeps.Inc()
	}

	cutoff := w.now().Add(-w.grace)
	pending, err := w.store.ListPendingOlderThan(ctx, cutoff, w.batchSize)
	if err != nil {
		return nil, err
	}

	res := &SweepResult{Scanned: len(pending)}
	for _, cred := range pending {
		if err := w.retryOne(ctx, cred); err != nil {
			res.Failed++
			w.logger.Warn("deferred anchoring failed",
				"credential_id", cred.ID,
				"fingerprint", cred.Fingerprint,
				"error", err,
			)
			if w.metrics != nil {
				w.metrics.ObserveAnchorOutcome("failure")
			}
			continue
		}
		res.Anchored++
	}
	return res, nil
}

func (w *AnchorRetryWorker) retryOne(ctx context.Context, cred models.Credential) error {
	receipt, err := w.anchorer.Anchor(ctx, cred.WalletAddress, cred.Payload, cred.Fingerprint)
	if err != nil {
		return err
	}

	minted := models.StatusMinted
	update := store.Update{
		AnchorToken:     &receipt.Token,
		AnchorTxHash:    &receipt.TxHash,
		AnchorBlock:     &receipt.BlockNumber,
		ContractAddress: &receipt.Contract,
		Status:          &minted,
	}
	if err := w.store.Update(ctx, cred.ID, update); err != nil {
		return err
	}

	if w.metrics != nil {
		w.metrics.ObserveAnchorOutcome("success")
		w.metrics.CredentialsMinted.Inc()
	}
	if w.auditor != nil {
		event := audit.NewEvent(cred.ID.String(), audit.ActionMinted)
		event.Actor = "anchor-retry-worker"
		_ = w.auditor.Emit(ctx, event)
	}
	return nil
}
