package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"attest/internal/credential/models"
)

// InMemoryStore is an in-memory implementation of Store for tests or local use.
// It is safe for concurrent access but does not persist across process restarts.
type InMemoryStore struct {
	mu            sync.RWMutex
	credentials   map[models.CredentialID]*models.Credential
	byFingerprint map[string]models.CredentialID
	byAccessCode  map[string]models.CredentialID
}

// NewInMemoryStore constructs an empty in-memory credential store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		credentials:   make(map[models.CredentialID]*models.Credential),
		byFingerprint: make(map[string]models.CredentialID),
		byAccessCode:  make(map[string]models.CredentialID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, credential *models.Credential) (models.CredentialID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byFingerprint[credential.Fingerprint]; exists {
		return "", ErrDuplicateFingerprint
	}
	if _, exists := s.byAccessCode[credential.AccessCode]; exists {
		return "", ErrDuplicateAccessCode
	}

	if credential.ID == "" {
		credential.ID = models.NewCredentialID()
	}
	credential.UpdatedAt = time.Now().UTC()

	clone := *credential
	s.credentials[clone.ID] = &clone
	s.byFingerprint[clone.Fingerprint] = clone.ID
	s.byAccessCode[clone.AccessCode] = clone.ID
	return clone.ID, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id models.CredentialID) (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.credentials[id]; ok {
		return *c, nil
	}
	return models.Credential{}, ErrNotFound
}

func (s *InMemoryStore) FindByFingerprint(_ context.Context, fingerprint string) (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byFingerprint[fingerprint]; ok {
		return *s.credentials[id], nil
	}
	return models.Credential{}, ErrNotFound
}

func (s *InMemoryStore) FindByAccessCode(_ context.Context, accessCode string) (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byAccessCode[accessCode]; ok {
		return *s.credentials[id], nil
	}
	return models.Credential{}, ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, id models.CredentialID, update Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return ErrNotFound
	}
	if update.VerificationURL != nil {
		c.VerificationURL = *update.VerificationURL
	}
	if update.QRPayload != nil {
		c.QRPayload = *update.QRPayload
	}
	if update.AnchorToken != nil {
		c.AnchorToken = *update.AnchorToken
	}
	if update.AnchorTxHash != nil {
		c.AnchorTxHash = *update.AnchorTxHash
	}
	if update.AnchorBlock != nil {
		c.AnchorBlock = *update.AnchorBlock
	}
	if update.ContractAddress != nil {
		c.ContractAddress = *update.ContractAddress
	}
	if update.Status != nil {
		c.Status = *update.Status
	}
	if update.RevocationReason != nil {
		c.RevocationReason = *update.RevocationReason
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) RecordVerification(_ context.Context, id models.CredentialID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return 0, ErrNotFound
	}
	c.VerifyCount++
	ts := at.UTC()
	c.LastVerifiedAt = &ts
	c.UpdatedAt = ts
	return c.VerifyCount, nil
}

func (s *InMemoryStore) ListPendingOlderThan(_ context.Context, cutoff time.Time, limit int) ([]models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []models.Credential
	for _, c := range s.credentials {
		if c.Status == models.StatusPending && c.IssuedAt.Before(cutoff) {
			pending = append(pending, *c)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].IssuedAt.Before(pending[j].IssuedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *InMemoryStore) ListByOrganization(_ context.Context, orgID string) ([]models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Credential
	for _, c := range s.credentials {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out, nil
}

func (s *InMemoryStore) AggregateStats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{ByStatus: make(map[models.Status]int64)}
	for _, c := range s.credentials {
		stats.TotalCredentials++
		stats.TotalVerifications += c.VerifyCount
		stats.ByStatus[c.Status]++
	}
	return stats, nil
}
