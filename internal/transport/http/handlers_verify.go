package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/httputil"
)

func (h *Handler) handleVerifyByID(w http.ResponseWriter, r *http.Request) {
	report, err := h.verifier.VerifyByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleVerifyByFingerprint(w http.ResponseWriter, r *http.Request) {
	report, err := h.verifier.VerifyByFingerprint(r.Context(), chi.URLParam(r, "fingerprint"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleVerifyByAccessCode(w http.ResponseWriter, r *http.Request) {
	report, err := h.verifier.VerifyByAccessCode(r.Context(), chi.URLParam(r, "accessCode"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

type verifyQRRequest struct {
	Payload string `json:"payload"`
}

func (h *Handler) handleVerifyQR(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.Decode[verifyQRRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.verifier.VerifyQR(r.Context(), body.Payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

type verifyBatchRequest struct {
	Inputs []string `json:"inputs"`
}

// maxBatchInputs caps a single batch request at the HTTP boundary.
const maxBatchInputs = 100

func (h *Handler) handleVerifyBatch(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.Decode[verifyBatchRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(body.Inputs) > maxBatchInputs {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "batch exceeds maximum size"))
		return
	}

	items, err := h.verifier.VerifyBatch(r.Context(), body.Inputs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"results": items,
		"count":   len(items),
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.verifier.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
