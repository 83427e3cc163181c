package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/credential/models"
	"attest/pkg/testutil"
)

func newCredential(i int) *models.Credential {
	return &models.Credential{
		Fingerprint:    fmt.Sprintf("%064d", i),
		AccessCode:     fmt.Sprintf("MIT-2025-ABC-%06d", i),
		OrganizationID: "org-1",
		IssuerID:       "issuer-1",
		Status:         models.StatusPending,
		IssuedAt:       time.Now().UTC(),
		Payload: models.AcademicPayload{
			StudentName:   "Ada Lovelace",
			RollNumber:    fmt.Sprintf("CS-%04d", i),
			Program:       "B.Tech",
			YearOfPassing: 2025,
		},
	}
}

func TestCreateAssignsID(t *testing.T) {
	s := NewInMemoryStore()

	id, err := s.Create(context.Background(), newCredential(1))
	require.NoError(t, err)
	assert.Len(t, id.String(), 24)

	found, err := s.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)
}

func TestCreateRejectsDuplicateFingerprint(t *testing.T) {
	s := NewInMemoryStore()

	first := newCredential(1)
	_, err := s.Create(context.Background(), first)
	require.NoError(t, err)

	dup := newCredential(2)
	dup.Fingerprint = first.Fingerprint
	_, err = s.Create(context.Background(), dup)
	assert.ErrorIs(t, err, ErrDuplicateFingerprint)
}

func TestCreateRejectsDuplicateAccessCode(t *testing.T) {
	s := NewInMemoryStore()

	first := newCredential(1)
	_, err := s.Create(context.Background(), first)
	require.NoError(t, err)

	dup := newCredential(2)
	dup.AccessCode = first.AccessCode
	_, err = s.Create(context.Background(), dup)
	assert.ErrorIs(t, err, ErrDuplicateAccessCode)
}

func TestFindByFingerprintAndAccessCode(t *testing.T) {
	s := NewInMemoryStore()
	cred := newCredential(1)
	id, err := s.Create(context.Background(), cred)
	require.NoError(t, err)

	byFP, err := s.FindByFingerprint(context.Background(), cred.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, id, byFP.ID)

	byCode, err := s.FindByAccessCode(context.Background(), cred.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, id, byCode.ID)

	_, err = s.FindByFingerprint(context.Background(), fmt.Sprintf("%064d", 999))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAppliesOnlySetFields(t *testing.T) {
	s := NewInMemoryStore()
	cred := newCredential(1)
	id, err := s.Create(context.Background(), cred)
	require.NoError(t, err)

	minted := models.StatusMinted
	token := "0xtoken"
	require.NoError(t, s.Update(context.Background(), id, Update{
		Status:      &minted,
		AnchorToken: &token,
	}))

	found, err := s.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMinted, found.Status)
	assert.Equal(t, "0xtoken", found.AnchorToken)
	assert.Equal(t, cred.Fingerprint, found.Fingerprint, "unset fields stay untouched")
	assert.Equal(t, cred.AccessCode, found.AccessCode)
}

func TestUpdateNotFound(t *testing.T) {
	s := NewInMemoryStore()
	minted := models.StatusMinted
	err := s.Update(context.Background(), models.NewCredentialID(), Update{Status: &minted})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordVerificationIncrements(t *testing.T) {
	s := NewInMemoryStore()
	id, err := s.Create(context.Background(), newCredential(1))
	require.NoError(t, err)

	at := time.Now().UTC()
	count, err := s.RecordVerification(context.Background(), id, at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = s.RecordVerification(context.Background(), id, at.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	found, err := s.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, found.LastVerifiedAt)
	assert.Equal(t, at.Add(time.Second), *found.LastVerifiedAt)
}

func TestRecordVerificationConcurrent(t *testing.T) {
	s := NewInMemoryStore()
	id, err := s.Create(context.Background(), newCredential(1))
	require.NoError(t, err)

	const goroutines = 50
	result := testutil.RunConcurrent(goroutines, func(int) error {
		_, err := s.RecordVerification(context.Background(), id, time.Now())
		return err
	})

	assert.Equal(t, int32(goroutines), result.Successes)

	found, err := s.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines), found.VerifyCount, "every concurrent verification must count exactly once")
}

func TestConcurrentCreateWithSameFingerprint(t *testing.T) {
	s := NewInMemoryStore()

	result := testutil.RunConcurrent(20, func(int) error {
		cred := newCredential(0)
		_, err := s.Create(context.Background(), cred)
		return err
	})

	assert.Equal(t, int32(1), result.Successes, "exactly one create may win")
	assert.Equal(t, int32(19), result.Conflicts)
}

func TestListPendingOlderThan(t *testing.T) {
	s := NewInMemoryStore()
	now := time.Now().UTC()

	old := newCredential(1)
	old.IssuedAt = now.Add(-10 * time.Minute)
	_, err := s.Create(context.Background(), old)
	require.NoError(t, err)

	recent := newCredential(2)
	recent.IssuedAt = now.Add(-5 * time.Second)
	_, err = s.Create(context.Background(), recent)
	require.NoError(t, err)

	minted := newCredential(3)
	minted.IssuedAt = now.Add(-10 * time.Minute)
	minted.Status = models.StatusMinted
	_, err = s.Create(context.Background(), minted)
	require.NoError(t, err)

	pending, err := s.ListPendingOlderThan(context.Background(), now.Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, old.Fingerprint, pending[0].Fingerprint)
}

func TestListPendingOlderThanHonorsLimit(t *testing.T) {
	s := NewInMemoryStore()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		cred := newCredential(i)
		cred.IssuedAt = now.Add(-time.Duration(i+2) * time.Hour)
		_, err := s.Create(context.Background(), cred)
		require.NoError(t, err)
	}

	pending, err := s.ListPendingOlderThan(context.Background(), now.Add(-time.Hour), 3)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.True(t, pending[0].IssuedAt.Before(pending[1].IssuedAt), "oldest first")
}

func TestListByOrganizationNewestFirst(t *testing.T) {
	s := NewInMemoryStore()
	now := time.Now().UTC()

	older := newCredential(1)
	older.IssuedAt = now.Add(-time.Hour)
	_, err := s.Create(context.Background(), older)
	require.NoError(t, err)

	newer := newCredential(2)
	newer.IssuedAt = now
	_, err = s.Create(context.Background(), newer)
	require.NoError(t, err)

	other := newCredential(3)
	other.OrganizationID = "org-2"
	_, err = s.Create(context.Background(), other)
	require.NoError(t, err)

	creds, err := s.ListByOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, newer.Fingerprint, creds[0].Fingerprint)
}

func TestAggregateStats(t *testing.T) {
	s := NewInMemoryStore()

	pending := newCredential(1)
	_, err := s.Create(context.Background(), pending)
	require.NoError(t, err)

	minted := newCredential(2)
	minted.Status = models.StatusMinted
	id, err := s.Create(context.Background(), minted)
	require.NoError(t, err)
	_, err = s.RecordVerification(context.Background(), id, time.Now())
	require.NoError(t, err)

	stats, err := s.AggregateStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalCredentials)
	assert.Equal(t, int64(1), stats.TotalVerifications)
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusPending])
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusMinted])
}

func TestCloneSemantics(t *testing.T) {
	s := NewInMemoryStore()
	cred := newCredential(1)
	id, err := s.Create(context.Background(), cred)
	require.NoError(t, err)

	// Mutating the caller's struct after Create must not leak into the store.
	cred.Status = models.StatusRevoked

	found, err := s.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, found.Status)
}
