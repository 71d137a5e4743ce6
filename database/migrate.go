package database

import (
	"context"
	"fmt"
)

// Schema bootstrap. The partial unique index is what turns a lost
// find-or-new race into a unique violation instead of a duplicate
// pending proposal; expiry and acceptance are part of the predicate so
// resolved tokens free the key.
var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS users (
		id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		email      text NOT NULL UNIQUE,
		name       text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS proposal_tokens (
		id              uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		token           text NOT NULL,
		email           text NOT NULL,
		proposable_type text NOT NULL,
		resource_type   text,
		resource_id     text,
		proposer_type   text,
		proposer_id     text,
		arguments       jsonb,
		expires_at      timestamptz NOT NULL,
		accepted_at     timestamptz,
		reminded_at     timestamptz,
		created_at      timestamptz NOT NULL DEFAULT now(),
		updated_at      timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS proposal_tokens_token_idx
		ON proposal_tokens (token)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS proposal_tokens_pending_idx
		ON proposal_tokens (
			email,
			proposable_type,
			COALESCE(resource_type, ''),
			COALESCE(resource_id, ''),
			expires_at
		)
		WHERE accepted_at IS NULL`,

	`CREATE INDEX IF NOT EXISTS proposal_tokens_resource_idx
		ON proposal_tokens (resource_type, resource_id)`,

	`CREATE INDEX IF NOT EXISTS proposal_tokens_email_idx
		ON proposal_tokens (email)`,
}

// Migrate applies the schema statements in order. Every statement is
// idempotent, so this is safe to run on each startup.
func Migrate(ctx context.Context, db *DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
