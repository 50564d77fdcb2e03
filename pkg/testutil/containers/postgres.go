//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// schema holds the full relational layout. Applied once per container so
// individual suites only need to truncate between tests.
const schema = `
CREATE TABLE IF NOT EXISTS issuers (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	did TEXT NOT NULL UNIQUE,
	domain TEXT NOT NULL DEFAULT '',
	identity TEXT NOT NULL,
	secret_hash BYTEA NOT NULL,
	webhook_url TEXT NOT NULL DEFAULT '',
	revoked BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	revoked_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS credentials (
	id UUID PRIMARY KEY,
	issuer_id UUID NOT NULL,
	template_id TEXT NOT NULL,
	recipient TEXT NOT NULL,
	recipient_email TEXT NOT NULL DEFAULT '',
	payload JSONB,
	content_hash TEXT NOT NULL UNIQUE,
	token TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	ledger_ref TEXT NOT NULL DEFAULT '',
	revoked BOOLEAN NOT NULL DEFAULT FALSE,
	ledger_revoked BOOLEAN NOT NULL DEFAULT FALSE,
	revocation_reason TEXT NOT NULL DEFAULT '',
	usage_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	anchored_at TIMESTAMPTZ,
	revoked_at TIMESTAMPTZ,
	expires_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_credentials_issuer ON credentials (issuer_id, created_at);

CREATE TABLE IF NOT EXISTS verification_records (
	id UUID PRIMARY KEY,
	credential_id TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	verifier_id TEXT NOT NULL DEFAULT '',
	result TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	ip TEXT NOT NULL DEFAULT '',
	device TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_verification_credential ON verification_records (credential_id, created_at);
CREATE INDEX IF NOT EXISTS idx_verification_verifier ON verification_records (verifier_id);

CREATE TABLE IF NOT EXISTS audit_events (
	id UUID PRIMARY KEY,
	action TEXT NOT NULL,
	issuer_id TEXT NOT NULL DEFAULT '',
	credential_id TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL DEFAULT '',
	detail JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_issuer ON audit_events (issuer_id, created_at);
`

// PostgresContainer wraps a testcontainers Postgres instance with an open
// connection pool and the schema already applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("credverse_test"),
		tcpostgres.WithUsername("credverse"),
		tcpostgres.WithPassword("credverse"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables clears the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s", strings.Join(tables, ", ")))
	return err
}
