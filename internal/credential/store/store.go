package store

import (
	"context"
	"time"

	"attest/internal/credential/models"
	"attest/internal/sentinel"
)

// Storage errors shared by all implementations.
var (
	ErrNotFound             = sentinel.ErrNotFound
	ErrDuplicateFingerprint = sentinel.ErrDuplicateFingerprint
	ErrDuplicateAccessCode  = sentinel.ErrDuplicateAccessCode
)

// Update carries a partial credential update. Nil fields are left untouched.
type Update struct {
	VerificationURL  *string
	QRPayload        *string
	AnchorToken      *string
	AnchorTxHash     *string
	AnchorBlock      *uint64
	ContractAddress  *string
	Status           *models.Status
	RevocationReason *string
}

// Stats is the aggregate view over the whole credential collection.
type Stats struct {
	TotalCredentials   int64
	TotalVerifications int64
	ByStatus           map[models.Status]int64
}

//go:generate mockgen -destination=../service/mocks/mocks.go -package=mocks attest/internal/credential/store Store

// Store persists credential records. Implementations must enforce uniqueness
// on fingerprint and access code, and RecordVerification must be atomic under
// concurrent calls for the same credential.
type Store interface {
	// Create persists a new record. When the record has no ID, the store
	// assigns one. Returns ErrDuplicateFingerprint or ErrDuplicateAccessCode
	// on a uniqueness violation.
	Create(ctx context.Context, credential *models.Credential) (models.CredentialID, error)

	FindByID(ctx context.Context, id models.CredentialID) (models.Credential, error)
	FindByFingerprint(ctx context.Context, fingerprint string) (models.Credential, error)
	FindByAccessCode(ctx context.Context, accessCode string) (models.Credential, error)

	// Update applies a partial update to an existing record.
	Update(ctx context.Context, id models.CredentialID, update Update) error

	// RecordVerification atomically increments the verification counter and
	// sets the last-verified timestamp, returning the new count.
	RecordVerification(ctx context.Context, id models.CredentialID, at time.Time) (int64, error)

	// ListPendingOlderThan returns up to limit credentials still PENDING whose
	// issuance predates cutoff, oldest first. Feed for the anchor retry worker.
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.Credential, error)

	// ListByOrganization returns an organization's credentials, newest first.
	ListByOrganization(ctx context.Context, orgID string) ([]models.Credential, error)

	// AggregateStats computes totals in a single pass over the collection.
	AggregateStats(ctx context.Context) (Stats, error)
}
