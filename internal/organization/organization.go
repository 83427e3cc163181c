// Package organization holds the read-only view of issuing institutions the
// credential core consumes: the authorization flag and the anchoring wallet.
package organization

import (
	"context"

	"attest/internal/sentinel"
)

// Organization is an issuing institution (college/university).
type Organization struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Authorized    bool   `json:"authorized"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

// Store resolves organizations and issuer associations. The credential core
// consumes this read-only; organization administration is out of scope.
type Store interface {
	FindByID(ctx context.Context, id string) (Organization, error)
	// FindByIssuer returns every organization the issuing principal is
	// associated with. Issuance requires exactly one.
	FindByIssuer(ctx context.Context, issuerID string) ([]Organization, error)
}

// ErrNotFound is returned when an organization does not exist.
var ErrNotFound = sentinel.ErrNotFound
