package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"credverse/internal/issuer/models"
	"credverse/pkg/platform/sentinel"
)

// PostgresStore persists issuers in the issuers table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, issuer *models.Issuer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO issuers (id, name, did, domain, identity, secret_hash, webhook_url, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		issuer.ID, issuer.Name, issuer.DID, issuer.Domain,
		issuer.Identity.Hex(), issuer.SecretHash, issuer.WebhookURL,
		issuer.Revoked, issuer.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert issuer: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, issuer *models.Issuer) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE issuers
		SET name = $2, domain = $3, webhook_url = $4, revoked = $5, revoked_at = $6
		WHERE id = $1`,
		issuer.ID, issuer.Name, issuer.Domain, issuer.WebhookURL,
		issuer.Revoked, issuer.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("update issuer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update issuer rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Issuer, error) {
	return s.findOne(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) FindByDID(ctx context.Context, did string) (*models.Issuer, error) {
	return s.findOne(ctx, `WHERE did = $1`, did)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*models.Issuer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, did, domain, identity, secret_hash, webhook_url, revoked, created_at, revoked_at
		FROM issuers `+where, arg)

	var (
		issuer   models.Issuer
		identity string
	)
	err := row.Scan(
		&issuer.ID, &issuer.Name, &issuer.DID, &issuer.Domain, &identity,
		&issuer.SecretHash, &issuer.WebhookURL, &issuer.Revoked,
		&issuer.CreatedAt, &issuer.RevokedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan issuer: %w", err)
	}
	issuer.Identity = common.HexToAddress(identity)
	return &issuer, nil
}
