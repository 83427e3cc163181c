// Package verification implements the read side of the credential system:
// resolving a credential by identifier, fingerprint, access code, or scanned
// QR payload, cross-checking it against the ledger, and computing validity.
//
// The local record is authoritative for existence and revocation. The ledger
// contributes a tamper-evidence signal when reachable; when it is not, the
// check degrades to local state instead of failing the request.
package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"attest/internal/anchor"
	"attest/internal/audit"
	"attest/internal/credential/models"
	"attest/internal/credential/store"
	"attest/internal/platform/middleware"
	"attest/internal/qr"
	"attest/internal/sentinel"
	"attest/internal/verification/metrics"
	"attest/internal/verification/tracer"
	dErrors "attest/pkg/domain-errors"
)

// batchConcurrency bounds parallel ledger calls during batch verification.
const batchConcurrency = 8

// Report is the outcome of verifying one credential.
type Report struct {
	CredentialID     models.CredentialID    `json:"credential_id"`
	Status           models.Status          `json:"status"`
	Valid            bool                   `json:"valid"`
	Fingerprint      string                 `json:"fingerprint"`
	Payload          models.AcademicPayload `json:"payload"`
	OrganizationID   string                 `json:"organization_id"`
	AnchorToken      string                 `json:"anchor_token,omitempty"`
	AnchorTxHash     string                 `json:"anchor_tx_hash,omitempty"`
	RevocationReason string                 `json:"revocation_reason,omitempty"`
	LedgerChecked    bool                   `json:"ledger_checked"`
	LedgerValid      bool                   `json:"ledger_valid"`
	VerifyCount      int64                  `json:"verify_count"`
	VerifiedAt       time.Time              `json:"verified_at"`
}

// BatchItem pairs a batch input with its result. Exactly one of Report and
// Error is set.
type BatchItem struct {
	Input  string  `json:"input"`
	Report *Report `json:"report,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Stats is the public aggregate view over the credential collection.
type Stats struct {
	TotalCredentials   int64                   `json:"total_credentials"`
	TotalVerifications int64                   `json:"total_verifications"`
	ByStatus           map[models.Status]int64 `json:"by_status"`
}

type Option func(*Service)

// Service is the verification engine.
type Service struct {
	store    store.Store
	anchorer anchor.Anchorer
	codec    *qr.Codec
	tracer   tracer.Tracer
	metrics  *metrics.Metrics
	auditor  audit.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(credStore store.Store, anchorer anchor.Anchorer, codec *qr.Codec, opts ...Option) *Service {
	svc := &Service{
		store:    credStore,
		anchorer: anchorer,
		codec:    codec,
		tracer:   tracer.NewNoop(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for verification spans.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditor sets the audit publisher for verification events.
func WithAuditor(auditor audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// VerifyByID verifies a credential by its identifier.
func (s *Service) VerifyByID(ctx context.Context, rawID string) (*Report, error) {
	id, err := models.ParseCredentialID(rawID)
	if err != nil {
		return nil, err
	}
	cred, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookup(err)
	}
	return s.verify(ctx, cred, "id")
}

// VerifyByFingerprint verifies a credential by its content fingerprint.
func (s *Service) VerifyByFingerprint(ctx context.Context, rawFP string) (*Report, error) {
	fp, err := models.ParseFingerprint(rawFP)
	if err != nil {
		return nil, err
	}
	cred, err := s.store.FindByFingerprint(ctx, fp)
	if err != nil {
		return nil, translateLookup(err)
	}
	return s.verify(ctx, cred, "fingerprint")
}

// VerifyByAccessCode verifies a credential by its human-readable access code.
func (s *Service) VerifyByAccessCode(ctx context.Context, code string) (*Report, error) {
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "access code is required")
	}
	cred, err := s.store.FindByAccessCode(ctx, code)
	if err != nil {
		return nil, translateLookup(err)
	}
	return s.verify(ctx, cred, "access_code")
}

// VerifyQR classifies a scanned QR payload and verifies the credential it
// points at.
func (s *Service) VerifyQR(ctx context.Context, payload string) (*Report, error) {
	kind, value, err := s.codec.Classify(payload)
	if err != nil {
		return nil, err
	}
	switch kind {
	case qr.KindID:
		return s.VerifyByID(ctx, value)
	case qr.KindFingerprint:
		return s.VerifyByFingerprint(ctx, value)
	default:
		return nil, dErrors.New(dErrors.CodeInvalidPayload, "unrecognized QR payload")
	}
}

// VerifyBatch verifies a set of inputs concurrently. Each input is classified
// like a QR payload. Results preserve input order, and a failure on one item
// never aborts the others. The size cap lives at the transport boundary.
func (s *Service) VerifyBatch(ctx context.Context, inputs []string) ([]BatchItem, error) {
	if len(inputs) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "batch must not be empty")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanVerifyBatch,
		tracer.Int64(tracer.AttrBatchSize, int64(len(inputs))),
	)
	defer span.End(nil)

	if s.metrics != nil {
		s.metrics.BatchSize.Observe(float64(len(inputs)))
	}

	items := make([]BatchItem, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, input := range inputs {
		g.Go(func() error {
			report, err := s.VerifyQR(gctx, input)
			if err != nil {
				items[i] = BatchItem{Input: input, Error: err.Error()}
				return nil
			}
			items[i] = BatchItem{Input: input, Report: report}
			return nil
		})
	}
	// Workers report per-item errors in place, so Wait only observes context
	// cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// Stats returns the aggregate counters across all credentials.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	agg, err := s.store.AggregateStats(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate stats")
	}
	return &Stats{
		TotalCredentials:   agg.TotalCredentials,
		TotalVerifications: agg.TotalVerifications,
		ByStatus:           agg.ByStatus,
	}, nil
}

// verify computes validity for a loaded credential, records usage, and
// performs the observational MINTED to VERIFIED promotion.
func (s *Service) verify(ctx context.Context, cred models.Credential, via string) (report *Report, err error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify,
		tracer.String(tracer.AttrCredentialID, cred.ID.String()),
		tracer.String(tracer.AttrVia, via),
	)
	defer func() { span.End(err) }()

	ledgerChecked, ledgerValid := s.ledgerCheck(ctx, cred)

	valid := cred.Status.Active()
	if valid && ledgerChecked && !ledgerValid {
		// The ledger says the anchor is gone or revoked. Tampering or an
		// out-of-band revocation; either way the credential fails.
		valid = false
	}

	report = &Report{
		CredentialID:     cred.ID,
		Status:           cred.Status,
		Valid:            valid,
		Fingerprint:      cred.Fingerprint,
		Payload:          cred.Payload,
		OrganizationID:   cred.OrganizationID,
		AnchorToken:      cred.AnchorToken,
		AnchorTxHash:     cred.AnchorTxHash,
		RevocationReason: cred.RevocationReason,
		LedgerChecked:    ledgerChecked,
		LedgerValid:      ledgerValid,
		VerifyCount:      cred.VerifyCount,
		VerifiedAt:       start.UTC(),
	}

	s.recordUsage(ctx, cred, report, valid)

	span.SetAttributes(
		tracer.Bool(tracer.AttrValid, valid),
		tracer.String(tracer.AttrStatus, string(report.Status)),
	)
	if s.metrics != nil {
		s.metrics.ObserveVerdict(via, valid)
		s.metrics.VerifyLatency.Observe(s.now().Sub(start).Seconds())
	}
	s.emitAudit(ctx, cred.ID.String(), via)
	return report, nil
}

// ledgerCheck queries the ledger for a tamper-evidence signal. Any failure is
// swallowed: an unreachable ledger yields no signal, not an invalid verdict.
func (s *Service) ledgerCheck(ctx context.Context, cred models.Credential) (checked, valid bool) {
	if cred.AnchorToken == "" && cred.Fingerprint == "" {
		return false, false
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanLedgerCheck,
		tracer.String(tracer.AttrFingerprint, cred.Fingerprint),
	)

	var signalValid bool
	var err error
	if cred.AnchorToken != "" {
		report, verr := s.anchorer.Verify(ctx, cred.AnchorToken)
		signalValid, err = report.Valid, verr
	} else {
		report, ferr := s.anchorer.VerifyByFingerprint(ctx, cred.Fingerprint)
		signalValid, err = report.Valid, ferr
	}
	span.End(err)

	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "ledger cross-check unavailable",
				"credential_id", cred.ID,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.LedgerCrossChecks.WithLabelValues("unavailable").Inc()
			}
			return false, false
		}
		// A clean "not anchored" answer is a real signal for anchored
		// credentials and silence for pending ones.
		if cred.AnchorToken == "" {
			if s.metrics != nil {
				s.metrics.LedgerCrossChecks.WithLabelValues("not_anchored").Inc()
			}
			return false, false
		}
		if s.metrics != nil {
			s.metrics.LedgerCrossChecks.WithLabelValues("missing").Inc()
		}
		return true, false
	}

	if s.metrics != nil {
		s.metrics.LedgerCrossChecks.WithLabelValues("ok").Inc()
	}
	return true, signalValid
}

// recordUsage bumps the verification counter and performs the observational
// promotion to VERIFIED. Every verification counts as a usage event whatever
// the verdict; only the promotion requires a valid one. Both writes are best
// effort; a storage hiccup here must not fail a verification that already
// produced a verdict.
func (s *Service) recordUsage(ctx context.Context, cred models.Credential, report *Report, valid bool) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRecordUsage,
		tracer.String(tracer.AttrCredentialID, cred.ID.String()),
	)
	defer span.End(nil)

	count, err := s.store.RecordVerification(ctx, cred.ID, report.VerifiedAt)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record verification",
			"credential_id", cred.ID,
			"error", err,
		)
	} else {
		report.VerifyCount = count
	}

	if valid && cred.Status == models.StatusMinted {
		verified := models.StatusVerified
		if err := s.store.Update(ctx, cred.ID, store.Update{Status: &verified}); err != nil {
			s.logger.WarnContext(ctx, "failed to promote credential to verified",
				"credential_id", cred.ID,
				"error", err,
			)
		} else {
			report.Status = models.StatusVerified
		}
	}
}

func (s *Service) emitAudit(ctx context.Context, credentialID, via string) {
	if s.auditor == nil {
		return
	}
	event := audit.NewEvent(credentialID, audit.ActionVerified)
	event.Actor = "verifier"
	event.Reason = via
	event.RequestID = middleware.GetRequestID(ctx)
	event.Device = middleware.GetDevice(ctx)
	_ = s.auditor.Emit(ctx, event)
}

func translateLookup(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
}
