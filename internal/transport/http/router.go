// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services, and encode; business rules stay in the services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attest/internal/credential/models"
	"attest/internal/credential/service"
	"attest/internal/platform/health"
	"attest/internal/platform/middleware"
	"attest/internal/ratelimit"
	"attest/internal/share"
	"attest/internal/verification"
)

// Lifecycle is the slice of the credential lifecycle manager the transport
// needs.
type Lifecycle interface {
	Issue(ctx context.Context, req models.IssueRequest) (*models.IssueResult, error)
	Revoke(ctx context.Context, id models.CredentialID, actor, reason string) (models.Credential, error)
	Get(ctx context.Context, id models.CredentialID) (models.Credential, error)
	ListForIssuer(ctx context.Context, issuerID string) ([]models.Credential, error)
	QRCodePNG(ctx context.Context, id models.CredentialID, size int) ([]byte, error)
}

// Verifier is the slice of the verification engine the transport needs.
type Verifier interface {
	VerifyByID(ctx context.Context, rawID string) (*verification.Report, error)
	VerifyByFingerprint(ctx context.Context, rawFP string) (*verification.Report, error)
	VerifyByAccessCode(ctx context.Context, code string) (*verification.Report, error)
	VerifyQR(ctx context.Context, payload string) (*verification.Report, error)
	VerifyBatch(ctx context.Context, inputs []string) ([]verification.BatchItem, error)
	Stats(ctx context.Context) (*verification.Stats, error)
}

// Handler holds the services behind the HTTP surface.
type Handler struct {
	lifecycle Lifecycle
	verifier  Verifier
	shares    *share.Service
	logger    *slog.Logger
}

func NewHandler(lifecycle Lifecycle, verifier Verifier, shares *share.Service, logger *slog.Logger) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		verifier:  verifier,
		shares:    shares,
		logger:    logger,
	}
}

// RouterConfig carries the transport-level collaborators that are not domain
// services.
type RouterConfig struct {
	Health  *health.Handler
	Tracker ratelimit.AttemptTracker
}

// NewRouter wires all endpoints with the middleware stack.
func NewRouter(h *Handler, logger *slog.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Device)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/credentials", func(r chi.Router) {
			r.Post("/", h.handleIssue)
			r.Get("/", h.handleListCredentials)
			r.Post("/{id}/revoke", h.handleRevoke)
			r.Get("/{id}/qrcode", h.handleQRCode)
			r.Post("/{id}/share", h.handleCreateShare)
		})

		r.Group(func(r chi.Router) {
			if cfg.Tracker != nil {
				r.Use(ratelimit.Middleware(cfg.Tracker, logger))
			}
			r.Get("/verify/{id}", h.handleVerifyByID)
			r.Get("/verify/fp/{fingerprint}", h.handleVerifyByFingerprint)
			r.Get("/verify/code/{accessCode}", h.handleVerifyByAccessCode)
			r.Post("/verify/qr", h.handleVerifyQR)
			r.Post("/verify/batch", h.handleVerifyBatch)
			r.Get("/shared", h.handleResolveShare)
		})

		r.Get("/stats", h.handleStats)
	})

	return r
}

// Compile-time checks that the real services satisfy the transport slices.
var (
	_ Lifecycle = (*service.Service)(nil)
	_ Verifier  = (*verification.Service)(nil)
)
