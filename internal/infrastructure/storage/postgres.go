package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables when missing. The unique indexes on
// (external_id, detecting_context) are load-bearing: they are what makes
// concurrent scans racing on one natural key produce a single record.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS opportunities (
			external_id          TEXT NOT NULL,
			detecting_context    TEXT NOT NULL,
			kind                 TEXT NOT NULL,
			source_type          TEXT NOT NULL,
			author               TEXT NOT NULL DEFAULT '',
			content              TEXT NOT NULL,
			match_score          DOUBLE PRECISION NOT NULL,
			matched_keywords     TEXT[] NOT NULL DEFAULT '{}',
			is_question          BOOLEAN NOT NULL DEFAULT FALSE,
			seeks_advice         BOOLEAN NOT NULL DEFAULT FALSE,
			shares_experience    BOOLEAN NOT NULL DEFAULT FALSE,
			controversial        BOOLEAN NOT NULL DEFAULT FALSE,
			asks_recommendation  BOOLEAN NOT NULL DEFAULT FALSE,
			engagement_potential DOUBLE PRECISION NOT NULL,
			priority             TEXT NOT NULL,
			published_at         TIMESTAMPTZ,
			created_at           TIMESTAMPTZ NOT NULL,
			expires_at           TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (external_id, detecting_context)
		)`,
		`CREATE TABLE IF NOT EXISTS approval_items (
			id                TEXT PRIMARY KEY,
			external_id       TEXT NOT NULL,
			detecting_context TEXT NOT NULL,
			draft_text        TEXT NOT NULL,
			status            TEXT NOT NULL,
			priority          TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL,
			expires_at        TIMESTAMPTZ NOT NULL,
			resolved_at       TIMESTAMPTZ,
			resolution_note   TEXT NOT NULL DEFAULT '',
			remote_id         TEXT NOT NULL DEFAULT '',
			UNIQUE (external_id, detecting_context)
		)`,
		`CREATE TABLE IF NOT EXISTS notification_records (
			id          BIGSERIAL PRIMARY KEY,
			user_id     TEXT NOT NULL,
			channel     TEXT NOT NULL,
			sent_at     TIMESTAMPTZ NOT NULL,
			payload_ref TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notification_records_user_channel
			ON notification_records (user_id, channel, sent_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
