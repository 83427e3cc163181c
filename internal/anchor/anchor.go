// Package anchor abstracts the external ledger used for tamper-evidence.
//
// The Anchorer interface is the seam between the credential lifecycle and the
// ledger: a live implementation talks to an on-chain registry contract, and a
// mock implementation stands in when no ledger is configured. The variant is
// selected once at startup, never per call.
package anchor

import (
	"context"

	"attest/internal/credential/models"

	"attest/contracts/ledger"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks attest/internal/anchor Anchorer

// Anchorer commits credential fingerprints to a ledger and answers
// verification queries against it. Implementations must be safe for
// concurrent use and must honor context cancellation.
type Anchorer interface {
	// Anchor commits the payload summary and fingerprint under the given
	// wallet. Safe to retry: anchoring the same fingerprint twice yields the
	// same token.
	Anchor(ctx context.Context, wallet string, payload models.AcademicPayload, fingerprint string) (ledger.AnchorReceipt, error)

	// Verify returns the ledger-side view of an anchored credential.
	Verify(ctx context.Context, token string) (ledger.VerifyReport, error)

	// VerifyByFingerprint resolves a fingerprint to its anchor, if any.
	VerifyByFingerprint(ctx context.Context, fingerprint string) (ledger.FingerprintReport, error)

	// Revoke marks the anchor invalid on the ledger.
	Revoke(ctx context.Context, token string) (ledger.RevocationReceipt, error)
}
