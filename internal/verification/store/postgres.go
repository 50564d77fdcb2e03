package store

import (
	"context"
	"database/sql"
	"fmt"

	"credverse/internal/verification/models"
)

// PostgresStore persists verification records in the verification_records
// table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record models.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_records (id, credential_id, content_hash, verifier_id, result, reason, ip, device, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.CredentialID, record.ContentHash, record.VerifierID,
		string(record.Result), record.Reason, record.IP, record.Device, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCredential(ctx context.Context, credentialID string) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, credential_id, content_hash, verifier_id, result, reason, ip, device, created_at
		FROM verification_records
		WHERE credential_id = $1
		ORDER BY created_at ASC`, credentialID)
	if err != nil {
		return nil, fmt.Errorf("query verification records: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var (
			r      models.Record
			result string
		)
		if err := rows.Scan(&r.ID, &r.CredentialID, &r.ContentHash, &r.VerifierID,
			&result, &r.Reason, &r.IP, &r.Device, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan verification record: %w", err)
		}
		r.Result = models.Result(result)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByVerifier(ctx context.Context, verifierID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM verification_records WHERE verifier_id = $1`, verifierID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count verification records: %w", err)
	}
	return count, nil
}
