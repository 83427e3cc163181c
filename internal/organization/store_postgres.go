package organization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore resolves organizations from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed organization store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Organization, error) {
	query := `
		SELECT id, code, name, authorized, COALESCE(wallet_address, '')
		FROM organizations
		WHERE id = $1
	`
	var org Organization
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Code, &org.Name, &org.Authorized, &org.WalletAddress,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, fmt.Errorf("find organization: %w", err)
	}
	return org, nil
}

func (s *PostgresStore) FindByIssuer(ctx context.Context, issuerID string) ([]Organization, error) {
	query := `
		SELECT o.id, o.code, o.name, o.authorized, COALESCE(o.wallet_address, '')
		FROM organizations o
		JOIN organization_issuers oi ON oi.organization_id = o.id
		WHERE oi.issuer_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, issuerID)
	if err != nil {
		return nil, fmt.Errorf("find organizations by issuer: %w", err)
	}
	defer rows.Close()

	var out []Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Code, &org.Name, &org.Authorized, &org.WalletAddress); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}
	return out, nil
}

var _ Store = (*PostgresStore)(nil)
