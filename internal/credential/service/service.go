// Package service implements the credential lifecycle: issuance with
// fingerprint derivation and access code assignment, ledger anchoring with
// graceful degradation, and revocation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"attest/internal/anchor"
	"attest/internal/audit"
	"attest/internal/credential/fingerprint"
	"attest/internal/credential/metrics"
	"attest/internal/credential/models"
	"attest/internal/credential/store"
	"attest/internal/organization"
	"attest/internal/platform/middleware"
	"attest/internal/qr"
	dErrors "attest/pkg/domain-errors"
)

// Availability wins over ledger consistency: a record that persists locally
// is a successful issuance even when anchoring fails. The anchor retry worker
// picks stranded PENDING records up later.
const maxIssueAttempts = 3

type Option func(*Service)

// Service is the credential lifecycle manager. It owns every state change a
// credential can undergo; reads happen through the verification engine.
type Service struct {
	store    store.Store
	orgs     organization.Store
	anchorer anchor.Anchorer
	codec    *qr.Codec
	auditor  audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(credStore store.Store, orgs organization.Store, anchorer anchor.Anchorer, codec *qr.Codec, opts ...Option) *Service {
	svc := &Service{
		store:    credStore,
		orgs:     orgs,
		anchorer: anchorer,
		codec:    codec,
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

// WithAuditor sets the audit publisher for lifecycle events.
func WithAuditor(auditor audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
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

// Issue creates a credential for the issuing principal's organization. The
// record persists locally first; anchoring is attempted afterwards and its
// failure surfaces as a warning, never as an issuance error.
func (s *Service) Issue(ctx context.Context, req models.IssueRequest) (*models.IssueResult, error) {
	start := s.now()

	if req.IssuerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing issuer identity")
	}
	if err := req.Payload.Validate(); err != nil {
		return nil, err
	}

	org, err := s.resolveOrganization(ctx, req.IssuerID)
	if err != nil {
		return nil, err
	}
	if !org.Authorized {
		return nil, dErrors.New(dErrors.CodeForbidden, "organization is not authorized to issue credentials")
	}

	payload := req.Payload.Normalized()

	cred, attempts, err := s.persistWithRetry(ctx, req.IssuerID, org, payload)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IssuanceRetries.Observe(float64(attempts))
		s.metrics.CredentialsIssued.Inc()
	}

	// The locator depends on the store-assigned ID, so it lands in a second
	// write. A crash between the two leaves a findable record without a
	// locator, which verification tolerates.
	locator := s.codec.EncodeID(cred.ID.String())
	locatorUpdate := store.Update{VerificationURL: &locator, QRPayload: &locator}
	if err := s.store.Update(ctx, cred.ID, locatorUpdate); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist verification locator",
			"credential_id", cred.ID,
			"error", err,
		)
	} else {
		cred.VerificationURL = locator
		cred.QRPayload = locator
	}

	s.emitAudit(ctx, cred.ID.String(), audit.ActionIssued, req.IssuerID, "")

	result := &models.IssueResult{
		ID:              cred.ID,
		Fingerprint:     cred.Fingerprint,
		AccessCode:      cred.AccessCode,
		VerificationURL: cred.VerificationURL,
		QRPayload:       cred.QRPayload,
		Status:          models.StatusPending,
	}

	receipt, anchorErr := s.anchorer.Anchor(ctx, cred.WalletAddress, payload, cred.Fingerprint)
	if anchorErr != nil {
		s.logger.WarnContext(ctx, "anchoring failed, credential remains pending",
			"credential_id", cred.ID,
			"fingerprint", cred.Fingerprint,
			"error", anchorErr,
		)
		if s.metrics != nil {
			s.metrics.ObserveAnchorOutcome("failure")
		}
		s.emitAudit(ctx, cred.ID.String(), audit.ActionAnchorFailed, req.IssuerID, anchorErr.Error())
		result.Warning = "credential issued but not yet anchored; anchoring will be retried"
	} else {
		if err := s.markMinted(ctx, cred.ID, receipt.Token, receipt.TxHash, receipt.BlockNumber, receipt.Contract); err != nil {
			// The ledger write landed but the local record did not follow. The
			// retry worker re-anchors idempotently and converges the status.
			s.logger.ErrorContext(ctx, "failed to record anchor receipt",
				"credential_id", cred.ID,
				"token", receipt.Token,
				"error", err,
			)
			result.Warning = "credential anchored but local status update failed"
		} else {
			if s.metrics != nil {
				s.metrics.ObserveAnchorOutcome("success")
				s.metrics.CredentialsMinted.Inc()
			}
			s.emitAudit(ctx, cred.ID.String(), audit.ActionMinted, req.IssuerID, "")
			result.Status = models.StatusMinted
			result.AnchorToken = receipt.Token
			result.AnchorTxHash = receipt.TxHash
		}
	}

	if s.metrics != nil {
		s.metrics.IssuanceLatency.Observe(s.now().Sub(start).Seconds())
	}
	return result, nil
}

// resolveOrganization maps the issuing principal to its single organization.
func (s *Service) resolveOrganization(ctx context.Context, issuerID string) (organization.Organization, error) {
	orgs, err := s.orgs.FindByIssuer(ctx, issuerID)
	if err != nil {
		return organization.Organization{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve issuer organization")
	}
	switch len(orgs) {
	case 1:
		return orgs[0], nil
	case 0:
		return organization.Organization{}, dErrors.New(dErrors.CodeNotAssociated, "issuer is not associated with any organization")
	default:
		return organization.Organization{}, dErrors.New(dErrors.CodeNotAssociated,
			fmt.Sprintf("issuer is associated with %d organizations, exactly one is required", len(orgs)))
	}
}

// persistWithRetry derives the fingerprint and access code, then persists the
// record. Both derive from the issuance timestamp, so a duplicate of either
// gets a fresh timestamp and fresh randomness on the next attempt.
func (s *Service) persistWithRetry(ctx context.Context, issuerID string, org organization.Organization, payload models.AcademicPayload) (*models.Credential, int, error) {
	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		issuedAt := s.now().UTC()
		cred := &models.Credential{
			Fingerprint:    fingerprint.Compute(payload, issuedAt),
			AccessCode:     fingerprint.NewAccessCode(org.Code, issuedAt),
			Payload:        payload,
			OrganizationID: org.ID,
			IssuerID:       issuerID,
			WalletAddress:  org.WalletAddress,
			Status:         models.StatusPending,
			IssuedAt:       issuedAt,
			UpdatedAt:      issuedAt,
		}

		id, err := s.store.Create(ctx, cred)
		if err == nil {
			cred.ID = id
			return cred, attempt, nil
		}
		if errors.Is(err, store.ErrDuplicateFingerprint) || errors.Is(err, store.ErrDuplicateAccessCode) {
			s.logger.WarnContext(ctx, "issuance collision, regenerating",
				"attempt", attempt,
				"error", err,
			)
			continue
		}
		return nil, attempt, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist credential")
	}
	return nil, maxIssueAttempts, dErrors.New(dErrors.CodeIssuanceFailed,
		fmt.Sprintf("could not issue credential after %d attempts", maxIssueAttempts))
}

// markMinted records a confirmed anchor receipt and promotes the credential.
func (s *Service) markMinted(ctx context.Context, id models.CredentialID, token, txHash string, block uint64, contract string) error {
	minted := models.StatusMinted
	return s.store.Update(ctx, id, store.Update{
		AnchorToken:     &token,
		AnchorTxHash:    &txHash,
		AnchorBlock:     &block,
		ContractAddress: &contract,
		Status:          &minted,
	})
}

// Revoke moves a credential to its terminal state. The ledger-side revocation
// is best effort: the local record is authoritative and a ledger failure does
// not keep a credential alive.
func (s *Service) Revoke(ctx context.Context, id models.CredentialID, actor, reason string) (models.Credential, error) {
	cred, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Credential{}, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return models.Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
	}
	if cred.Status == models.StatusRevoked {
		return models.Credential{}, dErrors.New(dErrors.CodeAlreadyRevoked, "credential is already revoked")
	}

	if cred.AnchorToken != "" {
		if _, err := s.anchorer.Revoke(ctx, cred.AnchorToken); err != nil {
			s.logger.WarnContext(ctx, "ledger revocation failed, revoking locally anyway",
				"credential_id", id,
				"token", cred.AnchorToken,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.LedgerRevokeFailures.Inc()
			}
		}
	}

	revoked := models.StatusRevoked
	update := store.Update{Status: &revoked, RevocationReason: &reason}
	if err := s.store.Update(ctx, id, update); err != nil {
		return models.Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke credential")
	}
	if s.metrics != nil {
		s.metrics.CredentialsRevoked.Inc()
	}
	s.emitAudit(ctx, id.String(), audit.ActionRevoked, actor, reason)

	cred.Status = models.StatusRevoked
	cred.RevocationReason = reason
	cred.UpdatedAt = s.now().UTC()
	return cred, nil
}

// Get returns a credential by identifier without verification side effects.
func (s *Service) Get(ctx context.Context, id models.CredentialID) (models.Credential, error) {
	cred, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Credential{}, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return models.Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
	}
	return cred, nil
}

// ListForIssuer returns the credentials of the issuing principal's
// organization, newest first.
func (s *Service) ListForIssuer(ctx context.Context, issuerID string) ([]models.Credential, error) {
	if issuerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing issuer identity")
	}
	org, err := s.resolveOrganization(ctx, issuerID)
	if err != nil {
		return nil, err
	}
	creds, err := s.store.ListByOrganization(ctx, org.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	return creds, nil
}

// QRCodePNG renders the credential's verification locator as a PNG image.
func (s *Service) QRCodePNG(ctx context.Context, id models.CredentialID, size int) ([]byte, error) {
	cred, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
	}
	locator := cred.QRPayload
	if locator == "" {
		locator = s.codec.EncodeID(cred.ID.String())
	}
	return qr.RenderPNG(locator, size)
}

func (s *Service) emitAudit(ctx context.Context, credentialID string, action audit.Action, actor, reason string) {
	if s.auditor == nil {
		return
	}
	event := audit.NewEvent(credentialID, action)
	event.Actor = actor
	event.Reason = reason
	event.RequestID = middleware.GetRequestID(ctx)
	event.Device = middleware.GetDevice(ctx)
	_ = s.auditor.Emit(ctx, event)
}
