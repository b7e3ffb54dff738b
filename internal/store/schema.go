// internal/store/schema.go
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema for the three logical collections. notification_log is
// append-only; rows are never updated or deleted by the application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS clinics (
		id          TEXT PRIMARY KEY,
		url         TEXT NOT NULL DEFAULT '',
		name        TEXT NOT NULL DEFAULT 'N/A',
		address     TEXT NOT NULL DEFAULT 'N/A',
		phone       TEXT NOT NULL DEFAULT 'N/A',
		district    TEXT NOT NULL DEFAULT 'N/A',
		province    TEXT NOT NULL DEFAULT 'N/A',
		status      TEXT NOT NULL DEFAULT 'UNCERTAIN',
		languages   TEXT[] NOT NULL DEFAULT ARRAY['English'],
		vacancy     TEXT NOT NULL DEFAULT 'N/A',
		evidence    TEXT NOT NULL DEFAULT 'N/A',
		reason      TEXT NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id                  TEXT PRIMARY KEY,
		email               TEXT NOT NULL DEFAULT '',
		phone_number        TEXT NOT NULL DEFAULT '',
		is_premium          BOOLEAN NOT NULL DEFAULT FALSE,
		areas               TEXT[] NOT NULL DEFAULT '{}',
		languages           TEXT[] NOT NULL DEFAULT '{}',
		premium_since       TIMESTAMPTZ,
		last_payment_amount TEXT NOT NULL DEFAULT '',
		last_payment_date   TEXT NOT NULL DEFAULT '',
		is_subscription     BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS notification_log (
		id          TEXT PRIMARY KEY,
		clinic_id   TEXT NOT NULL DEFAULT '',
		user_id     TEXT NOT NULL,
		phone       TEXT NOT NULL,
		message_sid TEXT NOT NULL DEFAULT '',
		type        TEXT NOT NULL,
		sent_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_is_premium ON users (is_premium)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_log_clinic ON notification_log (clinic_id)`,
}

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
