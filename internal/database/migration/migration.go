// Package migration applies the schema as named, idempotent steps. Applied
// step names are recorded in schema_migrations so new steps can be appended.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type Step struct {
	Name string
	SQL  string
}

const createMigrationsTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
  name       TEXT        PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

var steps = []Step{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  file_name    TEXT        NOT NULL,
  storage_path TEXT        NOT NULL UNIQUE,
  file_size    BIGINT      NOT NULL CHECK (file_size >= 0),
  file_type    TEXT        NOT NULL DEFAULT '',
  doc_prefix   TEXT        NOT NULL DEFAULT 'DKC',
  doc_type     TEXT        NOT NULL,
  company_name TEXT        NOT NULL,
  doc_serial   TEXT        NOT NULL,
  doc_date_raw CHAR(8)     NOT NULL,
  doc_date     DATE        NOT NULL,
  identity_key TEXT        NOT NULL,
  version      INTEGER     NOT NULL CHECK (version >= 1),
  parent_id    UUID        REFERENCES documents (id) ON DELETE SET NULL,
  is_latest    BOOLEAN     NOT NULL DEFAULT true,
  uploaded_by  TEXT,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		// At most one latest version per identity key; losers of a race get 23505.
		Name: "create_index_documents_latest_identity_key",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS documents_latest_identity_key ON documents (identity_key) WHERE is_latest;`,
	},
	{
		Name: "create_index_documents_identity_key_version",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS documents_identity_key_version ON documents (identity_key, version);`,
	},
	{
		Name: "create_index_documents_doc_type",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_doc_type ON documents (doc_type) WHERE is_latest;`,
	},
	{
		Name: "create_index_documents_company_name",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_company_name ON documents (company_name) WHERE is_latest;`,
	},
	{
		Name: "create_index_documents_doc_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_doc_date ON documents (doc_date);`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);`,
	},
	{
		Name: "create_table_quarantine_documents",
		SQL: `CREATE TABLE IF NOT EXISTS quarantine_documents (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  file_name     TEXT        NOT NULL,
  storage_path  TEXT        NOT NULL UNIQUE,
  file_size     BIGINT      NOT NULL CHECK (file_size >= 0),
  file_type     TEXT        NOT NULL DEFAULT '',
  error_message TEXT        NOT NULL,
  uploaded_by   TEXT,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_tags",
		SQL: `CREATE TABLE IF NOT EXISTS tags (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name       TEXT        NOT NULL UNIQUE,
  color      TEXT        NOT NULL DEFAULT '#6b7280',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_document_tags",
		SQL: `CREATE TABLE IF NOT EXISTS document_tags (
  document_id UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  tag_id      UUID        NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (document_id, tag_id)
);`,
	},
	{
		Name: "create_table_audit_logs",
		SQL: `CREATE TABLE IF NOT EXISTS audit_logs (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  action        TEXT        NOT NULL,
  resource_type TEXT        NOT NULL,
  resource_id   TEXT,
  user_id       TEXT,
  user_email    TEXT,
  details       JSONB,
  ip_address    TEXT,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_audit_logs_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at DESC);`,
	},
	{
		Name: "create_table_shared_links",
		SQL: `CREATE TABLE IF NOT EXISTS shared_links (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  document_id UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  token       TEXT        NOT NULL UNIQUE,
  pin_hash    TEXT,
  expires_at  TIMESTAMPTZ NOT NULL,
  max_views   INTEGER     CHECK (max_views > 0),
  view_count  INTEGER     NOT NULL DEFAULT 0,
  created_by  TEXT,
  revoked_at  TIMESTAMPTZ,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
}

// Steps returns the ordered migration steps.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// EnsureMigrated applies every step not yet recorded in schema_migrations.
// Each step runs in its own transaction together with its bookkeeping row.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With("component", "database", "db_host", dbHost)

	log.Info("db_migration_check", "status", "starting")

	if _, err := db.ExecContext(ctx, createMigrationsTableSQL); err != nil {
		log.Error("db_migration_failed", "status", "error", "error_message", err.Error(),
			"duration_ms", time.Since(start).Milliseconds())
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedSteps(ctx, db)
	if err != nil {
		log.Error("db_migration_failed", "status", "error", "error_message", err.Error(),
			"duration_ms", time.Since(start).Milliseconds())
		return fmt.Errorf("read applied migrations: %w", err)
	}

	pending := 0
	for _, step := range steps {
		if applied[step.Name] {
			continue
		}
		pending++
		stepStart := time.Now()
		if err := applyStep(ctx, db, step); err != nil {
			log.Error("db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	if pending == 0 {
		log.Info("db_migration_skip", "status", "success", "duration_ms", time.Since(start).Milliseconds())
		return nil
	}
	log.Info("db_migration_success", "status", "success", "applied_steps", pending,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func appliedSteps(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func applyStep(ctx context.Context, db *sql.DB, step Step) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, step.Name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
