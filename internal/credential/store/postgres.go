package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"credverse/internal/credential/models"
	"credverse/internal/ledger/hash"
	"credverse/pkg/platform/sentinel"
)

// PostgresStore persists credentials in the credentials table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const credentialColumns = `
	id, issuer_id, template_id, recipient, recipient_email, payload,
	content_hash, token, status, ledger_ref, revoked, ledger_revoked,
	revocation_reason, usage_count, created_at, anchored_at, revoked_at, expires_at`

func (s *PostgresStore) Create(ctx context.Context, cred *models.Credential) error {
	payload, err := json.Marshal(cred.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		cred.ID, cred.IssuerID, cred.TemplateID, cred.Recipient, cred.RecipientEmail,
		payload, cred.ContentHash.Hex(), cred.Token, string(cred.Status), cred.LedgerRef,
		cred.Revoked, cred.LedgerRevoked, cred.RevocationReason, cred.UsageCount,
		cred.CreatedAt, cred.AnchoredAt, cred.RevokedAt, cred.ExpiresAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, cred *models.Credential) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE credentials
		SET status = $2, ledger_ref = $3, revoked = $4, ledger_revoked = $5,
		    revocation_reason = $6, anchored_at = $7, revoked_at = $8
		WHERE id = $1`,
		cred.ID, string(cred.Status), cred.LedgerRef, cred.Revoked,
		cred.LedgerRevoked, cred.RevocationReason, cred.AnchoredAt, cred.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, id)
	return scanCredential(row)
}

func (s *PostgresStore) FindByHash(ctx context.Context, h common.Hash) (*models.Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE content_hash = $1`, h.Hex())
	return scanCredential(row)
}

func (s *PostgresStore) ListByIssuer(ctx context.Context, issuerID uuid.UUID) ([]*models.Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE issuer_id = $1 ORDER BY created_at ASC`,
		issuerID)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	var out []*models.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cred)
	}
	return out, rows.Err()
}

func (s *PostgresStore) IncrementUsage(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE credentials SET usage_count = usage_count + 1
		WHERE id = $1
		RETURNING usage_count`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		cred        models.Credential
		payload     []byte
		contentHash string
		status      string
	)
	err := row.Scan(
		&cred.ID, &cred.IssuerID, &cred.TemplateID, &cred.Recipient, &cred.RecipientEmail,
		&payload, &contentHash, &cred.Token, &status, &cred.LedgerRef,
		&cred.Revoked, &cred.LedgerRevoked, &cred.RevocationReason, &cred.UsageCount,
		&cred.CreatedAt, &cred.AnchoredAt, &cred.RevokedAt, &cred.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	if len(payload) > 0 {
		var p hash.Payload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		cred.Payload = p
	}
	cred.ContentHash = common.HexToHash(contentHash)
	cred.Status = models.Status(status)
	return &cred, nil
}
