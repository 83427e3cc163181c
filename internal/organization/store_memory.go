package organization

import (
	"context"
	"sync"
)

// InMemoryStore is an in-memory implementation of Store for tests or local use.
type InMemoryStore struct {
	mu       sync.RWMutex
	orgs     map[string]Organization
	byIssuer map[string][]string
}

// NewInMemoryStore constructs an empty in-memory organization store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orgs:     make(map[string]Organization),
		byIssuer: make(map[string][]string),
	}
}

// Put stores or overwrites an organization.
func (s *InMemoryStore) Put(org Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[org.ID] = org
}

// Associate links an issuing principal to an organization.
func (s *InMemoryStore) Associate(issuerID, orgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byIssuer[issuerID] = append(s.byIssuer[issuerID], orgID)
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if org, ok := s.orgs[id]; ok {
		return org, nil
	}
	return Organization{}, ErrNotFound
}

func (s *InMemoryStore) FindByIssuer(_ context.Context, issuerID string) ([]Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byIssuer[issuerID]
	out := make([]Organization, 0, len(ids))
	for _, id := range ids {
		if org, ok := s.orgs[id]; ok {
			out = append(out, org)
		}
	}
	return out, nil
}

var _ Store = (*InMemoryStore)(nil)
