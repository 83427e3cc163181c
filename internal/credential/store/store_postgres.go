package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"attest/internal/credential/models"
)

// PostgresStore persists credentials in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const pgUniqueViolation = "23505"

// translateDuplicate maps a unique-index violation onto the store's duplicate
// errors so the service can regenerate and retry.
func translateDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "fingerprint"):
		return ErrDuplicateFingerprint
	case strings.Contains(pgErr.ConstraintName, "access_code"):
		return ErrDuplicateAccessCode
	}
	return err
}

func (s *PostgresStore) Create(ctx context.Context, credential *models.Credential) (models.CredentialID, error) {
	if credential.ID == "" {
		credential.ID = models.NewCredentialID()
	}
	payloadBytes, err := json.Marshal(credential.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal credential payload: %w", err)
	}

	query := `
		INSERT INTO credentials (
			id, fingerprint, access_code, payload,
			organization_id, issuer_id, wallet_address,
			status, verify_count, issued_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, NOW())
	`
	_, err = s.db.ExecContext(ctx, query,
		credential.ID.String(),
		credential.Fingerprint,
		credential.AccessCode,
		payloadBytes,
		credential.OrganizationID,
		credential.IssuerID,
		credential.WalletAddress,
		string(credential.Status),
		credential.IssuedAt,
	)
	if err != nil {
		if dup := translateDuplicate(err); dup != err {
			return "", dup
		}
		return "", fmt.Errorf("create credential: %w", err)
	}
	return credential.ID, nil
}

const credentialColumns = `
	id, fingerprint, access_code, payload,
	organization_id, issuer_id,
	anchor_token, anchor_tx_hash, anchor_block, wallet_address, contract_address,
	verification_url, qr_payload, revocation_reason,
	status, verify_count, last_verified_at, issued_at, updated_at
`

func (s *PostgresStore) FindByID(ctx context.Context, id models.CredentialID) (models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`
	return s.findOne(ctx, query, id.String())
}

func (s *PostgresStore) FindByFingerprint(ctx context.Context, fingerprint string) (models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE fingerprint = $1`
	return s.findOne(ctx, query, fingerprint)
}

func (s *PostgresStore) FindByAccessCode(ctx context.Context, accessCode string) (models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE access_code = $1`
	return s.findOne(ctx, query, accessCode)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (models.Credential, error) {
	record, err := scanCredential(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Credential{}, ErrNotFound
		}
		return models.Credential{}, fmt.Errorf("find credential: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Update(ctx context.Context, id models.CredentialID, update Update) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{id.String()}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.VerificationURL != nil {
		add("verification_url", *update.VerificationURL)
	}
	if update.QRPayload != nil {
		add("qr_payload", *update.QRPayload)
	}
	if update.AnchorToken != nil {
		add("anchor_token", *update.AnchorToken)
	}
	if update.AnchorTxHash != nil {
		add("anchor_tx_hash", *update.AnchorTxHash)
	}
	if update.AnchorBlock != nil {
		add("anchor_block", int64(*update.AnchorBlock))
	}
	if update.ContractAddress != nil {
		add("contract_address", *update.ContractAddress)
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.RevocationReason != nil {
		add("revocation_reason", *update.RevocationReason)
	}

	query := fmt.Sprintf("UPDATE credentials SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RecordVerification(ctx context.Context, id models.CredentialID, at time.Time) (int64, error) {
	// Single UPDATE so concurrent verifications never lose increments.
	query := `
		UPDATE credentials
		SET verify_count = verify_count + 1, last_verified_at = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING verify_count
	`
	var count int64
	err := s.db.QueryRowContext(ctx, query, id.String(), at.UTC()).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("record verification: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.Credential, error) {
	query := `SELECT ` + credentialColumns + `
		FROM credentials
		WHERE status = $1 AND issued_at < $2
		ORDER BY issued_at ASC
		LIMIT $3`
	return s.findMany(ctx, query, string(models.StatusPending), cutoff.UTC(), limit)
}

func (s *PostgresStore) ListByOrganization(ctx context.Context, orgID string) ([]models.Credential, error) {
	query := `SELECT ` + credentialColumns + `
		FROM credentials
		WHERE organization_id = $1
		ORDER BY issued_at DESC`
	return s.findMany(ctx, query, orgID)
}

func (s *PostgresStore) findMany(ctx context.Context, query string, args ...any) ([]models.Credential, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []models.Credential
	for rows.Next() {
		record, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AggregateStats(ctx context.Context) (Stats, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(verify_count), 0)
		FROM credentials
		GROUP BY status
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{ByStatus: make(map[models.Status]int64)}
	for rows.Next() {
		var status string
		var count, verifications int64
		if err := rows.Scan(&status, &count, &verifications); err != nil {
			return Stats{}, fmt.Errorf("scan stats row: %w", err)
		}
		stats.ByStatus[models.Status(status)] = count
		stats.TotalCredentials += count
		stats.TotalVerifications += verifications
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

type credentialRow interface {
	Scan(dest ...any) error
}

func scanCredential(row credentialRow) (models.Credential, error) {
	var (
		record       models.Credential
		id           string
		payloadBytes []byte
		anchorToken  sql.NullString
		anchorTx     sql.NullString
		anchorBlock  sql.NullInt64
		wallet       sql.NullString
		contract     sql.NullString
		verifyURL    sql.NullString
		qrPayload    sql.NullString
		revocation   sql.NullString
		status       string
		lastVerified sql.NullTime
	)
	err := row.Scan(
		&id, &record.Fingerprint, &record.AccessCode, &payloadBytes,
		&record.OrganizationID, &record.IssuerID,
		&anchorToken, &anchorTx, &anchorBlock, &wallet, &contract,
		&verifyURL, &qrPayload, &revocation,
		&status, &record.VerifyCount, &lastVerified, &record.IssuedAt, &record.UpdatedAt,
	)
	if err != nil {
		return models.Credential{}, err
	}

	record.ID = models.CredentialID(id)
	record.Status = models.Status(status)
	record.AnchorToken = anchorToken.String
	record.AnchorTxHash = anchorTx.String
	if anchorBlock.Valid {
		record.AnchorBlock = uint64(anchorBlock.Int64)
	}
	record.WalletAddress = wallet.String
	record.ContractAddress = contract.String
	record.VerificationURL = verifyURL.String
	record.QRPayload = qrPayload.String
	record.RevocationReason = revocation.String
	if lastVerified.Valid {
		ts := lastVerified.Time
		record.LastVerifiedAt = &ts
	}

	if err := json.Unmarshal(payloadBytes, &record.Payload); err != nil {
		return models.Credential{}, fmt.Errorf("unmarshal credential payload: %w", err)
	}
	record.Payload = record.Payload.Normalized()
	return record, nil
}
