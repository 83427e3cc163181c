package anchor

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"attest/internal/credential/models"
	"attest/internal/sentinel"

	"attest/contracts/ledger"
)

// MockAnchorer is the Anchorer used when no ledger endpoint is configured.
// It returns well-formed, deterministic placeholders: the token for a
// fingerprint is stable across calls so verify round-trips work, and anchors
// are kept in memory so Verify and Revoke behave like the live client.
type MockAnchorer struct {
	mu      sync.RWMutex
	byToken map[string]*mockAnchor
	byFP    map[string]string
	block   uint64
}

type mockAnchor struct {
	fingerprint string
	summary     string
	wallet      string
	anchoredAt  time.Time
	revoked     bool
}

// NewMock constructs an empty mock anchorer.
func NewMock() *MockAnchorer {
	return &MockAnchorer{
		byToken: make(map[string]*mockAnchor),
		byFP:    make(map[string]string),
		block:   1,
	}
}

// mockToken derives the stable anchor token for a fingerprint, matching what
// the registry contract would compute.
func mockToken(fingerprint string) string {
	raw, err := hex.DecodeString(fingerprint)
	if err != nil {
		raw = []byte(fingerprint)
	}
	return crypto.Keccak256Hash(raw).Hex()
}

func (m *MockAnchorer) Anchor(_ context.Context, wallet string, payload models.AcademicPayload, fingerprint string) (ledger.AnchorReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := mockToken(fingerprint)
	if _, exists := m.byToken[token]; !exists {
		m.byToken[token] = &mockAnchor{
			fingerprint: fingerprint,
			summary:     payload.Summary(),
			wallet:      wallet,
			anchoredAt:  time.Now().UTC(),
		}
		m.byFP[fingerprint] = token
	}
	m.block++

	return ledger.AnchorReceipt{
		Token:       token,
		TxHash:      m.placeholderTx("anchor", token),
		BlockNumber: m.block,
		Wallet:      wallet,
	}, nil
}

// placeholderTx yields a well-formed 32-byte tx hash that is stable for a
// given operation, token, and block height. Never real chain state.
func (m *MockAnchorer) placeholderTx(op, token string) string {
	return crypto.Keccak256Hash([]byte(op), []byte(token), []byte{byte(m.block)}).Hex()
}

func (m *MockAnchorer) Verify(_ context.Context, token string) (ledger.VerifyReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.byToken[token]
	if !ok {
		return ledger.VerifyReport{}, sentinel.ErrNotFound
	}
	return ledger.VerifyReport{
		Token:       token,
		Fingerprint: a.fingerprint,
		Summary:     a.summary,
		AnchoredAt:  a.anchoredAt.Unix(),
		Valid:       !a.revoked,
		Owner:       a.wallet,
	}, nil
}

func (m *MockAnchorer) VerifyByFingerprint(_ context.Context, fingerprint string) (ledger.FingerprintReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.byFP[fingerprint]
	if !ok {
		return ledger.FingerprintReport{}, sentinel.ErrNotFound
	}
	a := m.byToken[token]
	return ledger.FingerprintReport{
		Token:   token,
		Summary: a.summary,
		Valid:   !a.revoked,
	}, nil
}

func (m *MockAnchorer) Revoke(_ context.Context, token string) (ledger.RevocationReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byToken[token]
	if !ok {
		return ledger.RevocationReceipt{}, sentinel.ErrNotFound
	}
	a.revoked = true
	m.block++
	return ledger.RevocationReceipt{
		TxHash:      m.placeholderTx("revoke", token),
		BlockNumber: m.block,
	}, nil
}

var _ Anchorer = (*MockAnchorer)(nil)
