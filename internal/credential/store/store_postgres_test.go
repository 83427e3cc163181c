package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/credential/models"
)

const pgTestID = "65a1b2c3d4e5f60718293f01"

func newPostgresMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	return NewPostgres(db), mock
}

func credentialRows(t *testing.T, cred models.Credential) *sqlmock.Rows {
	t.Helper()
	payload, err := json.Marshal(cred.Payload)
	require.NoError(t, err)
	rows := sqlmock.NewRows([]string{
		"id", "fingerprint", "access_code", "payload",
		"organization_id", "issuer_id",
		"anchor_token", "anchor_tx_hash", "anchor_block", "wallet_address", "contract_address",
		"verification_url", "qr_payload", "revocation_reason",
		"status", "verify_count", "last_verified_at", "issued_at", "updated_at",
	})
	rows.AddRow(
		cred.ID.String(), cred.Fingerprint, cred.AccessCode, payload,
		cred.OrganizationID, cred.IssuerID,
		nullable(cred.AnchorToken), nullable(cred.AnchorTxHash), int64(cred.AnchorBlock),
		nullable(cred.WalletAddress), nullable(cred.ContractAddress),
		nullable(cred.VerificationURL), nullable(cred.QRPayload), nullable(cred.RevocationReason),
		string(cred.Status), cred.VerifyCount, nullableTime(cred.LastVerifiedAt), cred.IssuedAt, cred.UpdatedAt,
	)
	return rows
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func pgCredential() models.Credential {
	return models.Credential{
		ID:             models.CredentialID(pgTestID),
		Fingerprint:    "f0e1d2c3b4a5968778695a4b3c2d1e0ff0e1d2c3b4a5968778695a4b3c2d1e0f",
		AccessCode:     "MIT-2025-ABCDEF-G1H2I3",
		OrganizationID: "org-1",
		IssuerID:       "issuer-1",
		Status:         models.StatusMinted,
		AnchorToken:    "0xtoken",
		VerifyCount:    3,
		IssuedAt:       time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
		Payload: models.AcademicPayload{
			StudentName:   "Ada Lovelace",
			RollNumber:    "CS-1815",
			Program:       "B.Tech",
			YearOfPassing: 2025,
		},
	}
}

func TestPostgresCreate(t *testing.T) {
	store, mock := newPostgresMock(t)
	cred := pgCredential()
	cred.Status = models.StatusPending

	mock.ExpectExec(`INSERT INTO credentials`).
		WithArgs(
			cred.ID.String(), cred.Fingerprint, cred.AccessCode, sqlmock.AnyArg(),
			cred.OrganizationID, cred.IssuerID, cred.WalletAddress,
			string(models.StatusPending), cred.IssuedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := store.Create(context.Background(), &cred)
	require.NoError(t, err)
	assert.Equal(t, cred.ID, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateAssignsIDWhenEmpty(t *testing.T) {
	store, mock := newPostgresMock(t)
	cred := pgCredential()
	cred.ID = ""

	mock.ExpectExec(`INSERT INTO credentials`).WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := store.Create(context.Background(), &cred)
	require.NoError(t, err)
	assert.Len(t, id.String(), 24)
}

func TestPostgresCreateTranslatesDuplicateFingerprint(t *testing.T) {
	store, mock := newPostgresMock(t)
	cred := pgCredential()

	mock.ExpectExec(`INSERT INTO credentials`).WillReturnError(&pgconn.PgError{
		Code:           "23505",
		ConstraintName: "credentials_fingerprint_key",
	})

	_, err := store.Create(context.Background(), &cred)
	assert.ErrorIs(t, err, ErrDuplicateFingerprint)
}

func TestPostgresCreateTranslatesDuplicateAccessCode(t *testing.T) {
	store, mock := newPostgresMock(t)
	cred := pgCredential()

	mock.ExpectExec(`INSERT INTO credentials`).WillReturnError(&pgconn.PgError{
		Code:           "23505",
		ConstraintName: "credentials_access_code_key",
	})

	_, err := store.Create(context.Background(), &cred)
	assert.ErrorIs(t, err, ErrDuplicateAccessCode)
}

func TestPostgresFindByID(t *testing.T) {
	store, mock := newPostgresMock(t)
	cred := pgCredential()

	mock.ExpectQuery(`SELECT .+ FROM credentials WHERE id = \$1`).
		WithArgs(pgTestID).
		WillReturnRows(credentialRows(t, cred))

	found, err := store.FindByID(context.Background(), models.CredentialID(pgTestID))
	require.NoError(t, err)
	assert.Equal(t, cred.Fingerprint, found.Fingerprint)
	assert.Equal(t, models.StatusMinted, found.Status)
	assert.Equal(t, "0xtoken", found.AnchorToken)
	assert.Equal(t, "Ada Lovelace", found.Payload.StudentName)
	assert.NotNil(t, found.Payload.Grades, "payload collections are normalized after scan")
}

func TestPostgresFindByIDNotFound(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectQuery(`SELECT .+ FROM credentials WHERE id = \$1`).
		WithArgs(pgTestID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.FindByID(context.Background(), models.CredentialID(pgTestID))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresFindByFingerprint(t *testing.T) {
	store, mock := newPostgresMock(t)
	cred := pgCredential()

	mock.ExpectQuery(`SELECT .+ FROM credentials WHERE fingerprint = \$1`).
		WithArgs(cred.Fingerprint).
		WillReturnRows(credentialRows(t, cred))

	found, err := store.FindByFingerprint(context.Background(), cred.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, cred.ID, found.ID)
}

func TestPostgresUpdateBuildsPartialSet(t *testing.T) {
	store, mock := newPostgresMock(t)
	minted := models.StatusMinted
	token := "0xtoken"

	mock.ExpectExec(`UPDATE credentials SET updated_at = NOW\(\), anchor_token = \$2, status = \$3 WHERE id = \$1`).
		WithArgs(pgTestID, token, string(minted)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Update(context.Background(), models.CredentialID(pgTestID), Update{
		AnchorToken: &token,
		Status:      &minted,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateNotFound(t *testing.T) {
	store, mock := newPostgresMock(t)
	minted := models.StatusMinted

	mock.ExpectExec(`UPDATE credentials SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), models.CredentialID(pgTestID), Update{Status: &minted})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRecordVerification(t *testing.T) {
	store, mock := newPostgresMock(t)
	at := time.Now()

	mock.ExpectQuery(`UPDATE credentials\s+SET verify_count = verify_count \+ 1`).
		WithArgs(pgTestID, at.UTC()).
		WillReturnRows(sqlmock.NewRows([]string{"verify_count"}).AddRow(int64(4)))

	count, err := store.RecordVerification(context.Background(), models.CredentialID(pgTestID), at)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestPostgresRecordVerificationNotFound(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectQuery(`UPDATE credentials\s+SET verify_count = verify_count \+ 1`).
		WillReturnRows(sqlmock.NewRows([]string{"verify_count"}))

	_, err := store.RecordVerification(context.Background(), models.CredentialID(pgTestID), time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresListPendingOlderThan(t *testing.T) {
	store, mock := newPostgresMock(t)
	cred := pgCredential()
	cred.Status = models.StatusPending

	mock.ExpectQuery(`SELECT .+ FROM credentials\s+WHERE status = \$1 AND issued_at < \$2`).
		WithArgs(string(models.StatusPending), sqlmock.AnyArg(), 25).
		WillReturnRows(credentialRows(t, cred))

	pending, err := store.ListPendingOlderThan(context.Background(), time.Now(), 25)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.StatusPending, pending[0].Status)
}

func TestPostgresAggregateStats(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\), COALESCE\(SUM\(verify_count\), 0\)`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count", "sum"}).
			AddRow("MINTED", int64(6), int64(40)).
			AddRow("PENDING", int64(4), int64(0)))

	stats, err := store.AggregateStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalCredentials)
	assert.Equal(t, int64(40), stats.TotalVerifications)
	assert.Equal(t, int64(6), stats.ByStatus[models.StatusMinted])
}
