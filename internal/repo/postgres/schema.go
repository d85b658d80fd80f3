package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is created idempotently at startup, matching how the serverless
// deployment provisioned itself on first request.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pricing_magic_links (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		used_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS pricing_sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS booking_access_tokens (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		client_id TEXT NOT NULL,
		booking_type TEXT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		used_at TIMESTAMPTZ,
		created_by TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS booking_sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		client_id TEXT NOT NULL,
		booking_type TEXT NOT NULL,
		client_email TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contact_email TEXT NOT NULL UNIQUE,
		company TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_magic_links_token_hash
		ON pricing_magic_links(token_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_magic_links_email_created
		ON pricing_magic_links(email, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires
		ON pricing_sessions(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_booking_tokens_hash
		ON booking_access_tokens(token_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_booking_sessions_expires
		ON booking_sessions(expires_at)`,
}

// InitSchema creates tables and indexes if they don't exist.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
