package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"attest/internal/credential/models"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/httputil"
)

// issuerHeader carries the authenticated issuing principal, injected by the
// fronting identity proxy.
const issuerHeader = "X-Issuer-ID"

type issueRequest struct {
	Payload models.AcademicPayload `json:"payload"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	issuerID := r.Header.Get(issuerHeader)
	if issuerID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing "+issuerHeader+" header"))
		return
	}

	body, err := httputil.Decode[issueRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.lifecycle.Issue(r.Context(), models.IssueRequest{
		IssuerID: issuerID,
		Payload:  body.Payload,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

type listResponse struct {
	Credentials []models.Credential `json:"credentials"`
	Count       int                 `json:"count"`
}

func (h *Handler) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	issuerID := r.Header.Get(issuerHeader)
	if issuerID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing "+issuerHeader+" header"))
		return
	}

	creds, err := h.lifecycle.ListForIssuer(r.Context(), issuerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if creds == nil {
		creds = []models.Credential{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Credentials: creds, Count: len(creds)})
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	issuerID := r.Header.Get(issuerHeader)
	if issuerID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing "+issuerHeader+" header"))
		return
	}
	id, err := models.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, err := httputil.Decode[revokeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cred, err := h.lifecycle.Revoke(r.Context(), id, issuerID, body.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cred)
}

func (h *Handler) handleQRCode(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size < 64 || size > 2048 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "size must be between 64 and 2048"))
			return
		}
	}

	png, err := h.lifecycle.QRCodePNG(r.Context(), id, size)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png) //nolint:errcheck
}

type createShareRequest struct {
	TTLHours int `json:"ttl_hours"`
}

type createShareResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, err := httputil.Decode[createShareRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// The share token embeds only identity claims; the resolve endpoint
	// re-verifies against the authoritative record.
	cred, err := h.lifecycle.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, expiresAt, err := h.shares.Issue(id, cred.Fingerprint, time.Duration(body.TTLHours)*time.Hour)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createShareResponse{
		Token:     token,
		URL:       "/api/v1/shared?token=" + token,
		ExpiresAt: expiresAt,
	})
}

func (h *Handler) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	id, err := h.shares.Validate(token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.verifier.VerifyByID(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
