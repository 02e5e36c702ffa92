package storage

import (
	"context"
	"fmt"
	"time"
)

var sqliteMigrations = [][]string{
	// 1: inventory, budgets, people
	{
		`CREATE TABLE IF NOT EXISTS suppliers (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL DEFAULT '',
			active     BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id                    TEXT PRIMARY KEY,
			name                  TEXT NOT NULL,
			category              TEXT NOT NULL DEFAULT '',
			unit                  TEXT NOT NULL DEFAULT '',
			quantity              REAL NOT NULL DEFAULT 0,
			minimum_level         REAL NOT NULL DEFAULT 0,
			reorder_point         REAL NOT NULL DEFAULT 0,
			maximum_level         REAL NOT NULL DEFAULT 0,
			economic_order_qty    REAL NOT NULL DEFAULT 0,
			unit_cost             REAL NOT NULL DEFAULT 0,
			preferred_supplier_id TEXT NOT NULL DEFAULT '',
			active                BOOLEAN NOT NULL DEFAULT 1,
			last_ordered_at       DATETIME,
			created_at            DATETIME NOT NULL,
			updated_at            DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)`,
		`CREATE TABLE IF NOT EXISTS budgets (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			department TEXT NOT NULL DEFAULT '',
			period     TEXT NOT NULL DEFAULT '',
			allocated  REAL NOT NULL DEFAULT 0,
			spent      REAL NOT NULL DEFAULT 0,
			active     BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL DEFAULT '',
			role       TEXT NOT NULL,
			department TEXT NOT NULL DEFAULT '',
			active     BOOLEAN NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS user_notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			data       TEXT NOT NULL DEFAULT '{}',
			read_at    DATETIME,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON user_notifications(user_id, created_at)`,
	},
	// 2: alert ledger
	{
		`CREATE TABLE IF NOT EXISTS alerts (
			id               TEXT PRIMARY KEY,
			entity_id        TEXT NOT NULL,
			kind             TEXT NOT NULL,
			severity         TEXT NOT NULL,
			observed_value   REAL NOT NULL DEFAULT 0,
			threshold        REAL NOT NULL DEFAULT 0,
			message          TEXT NOT NULL DEFAULT '',
			suggested_action TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL CHECK(status IN ('active', 'resolved')),
			triggered_at     DATETIME NOT NULL,
			resolved_at      DATETIME,
			created_at       DATETIME NOT NULL,
			updated_at       DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_one_active ON alerts(entity_id, kind) WHERE status = 'active'`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status, kind)`,
	},
	// 3: purchase orders and job runs
	{
		`CREATE TABLE IF NOT EXISTS purchase_orders (
			id             TEXT PRIMARY KEY,
			number         TEXT NOT NULL UNIQUE,
			supplier_id    TEXT NOT NULL,
			status         TEXT NOT NULL CHECK(status IN ('pending', 'approved', 'received')),
			total          REAL NOT NULL DEFAULT 0,
			auto_generated BOOLEAN NOT NULL DEFAULT 0,
			approved_by    TEXT NOT NULL DEFAULT '',
			approved_at    DATETIME,
			notes          TEXT NOT NULL DEFAULT '',
			created_at     DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_order_lines (
			id         TEXT PRIMARY KEY,
			order_id   TEXT NOT NULL REFERENCES purchase_orders(id),
			item_id    TEXT NOT NULL,
			quantity   REAL NOT NULL,
			unit_cost  REAL NOT NULL,
			line_total REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_lines_item ON purchase_order_lines(item_id)`,
		`CREATE TABLE IF NOT EXISTS job_runs (
			id          TEXT PRIMARY KEY,
			job         TEXT NOT NULL,
			status      TEXT NOT NULL,
			params      TEXT NOT NULL DEFAULT '{}',
			stats       TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			attempts    INTEGER NOT NULL DEFAULT 0,
			started_at  DATETIME NOT NULL,
			finished_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_job_runs_job ON job_runs(job, started_at)`,
	},
}

var postgresMigrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS suppliers (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL DEFAULT '',
			active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id                    TEXT PRIMARY KEY,
			name                  TEXT NOT NULL,
			category              TEXT NOT NULL DEFAULT '',
			unit                  TEXT NOT NULL DEFAULT '',
			quantity              DOUBLE PRECISION NOT NULL DEFAULT 0,
			minimum_level         DOUBLE PRECISION NOT NULL DEFAULT 0,
			reorder_point         DOUBLE PRECISION NOT NULL DEFAULT 0,
			maximum_level         DOUBLE PRECISION NOT NULL DEFAULT 0,
			economic_order_qty    DOUBLE PRECISION NOT NULL DEFAULT 0,
			unit_cost             DOUBLE PRECISION NOT NULL DEFAULT 0,
			preferred_supplier_id TEXT NOT NULL DEFAULT '',
			active                BOOLEAN NOT NULL DEFAULT TRUE,
			last_ordered_at       TIMESTAMPTZ,
			created_at            TIMESTAMPTZ NOT NULL,
			updated_at            TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)`,
		`CREATE TABLE IF NOT EXISTS budgets (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			department TEXT NOT NULL DEFAULT '',
			period     TEXT NOT NULL DEFAULT '',
			allocated  DOUBLE PRECISION NOT NULL DEFAULT 0,
			spent      DOUBLE PRECISION NOT NULL DEFAULT 0,
			active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL DEFAULT '',
			role       TEXT NOT NULL,
			department TEXT NOT NULL DEFAULT '',
			active     BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS user_notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			data       TEXT NOT NULL DEFAULT '{}',
			read_at    TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON user_notifications(user_id, created_at)`,
	},
	{
		`CREATE TABLE IF NOT EXISTS alerts (
			id               TEXT PRIMARY KEY,
			entity_id        TEXT NOT NULL,
			kind             TEXT NOT NULL,
			severity         TEXT NOT NULL,
			observed_value   DOUBLE PRECISION NOT NULL DEFAULT 0,
			threshold        DOUBLE PRECISION NOT NULL DEFAULT 0,
			message          TEXT NOT NULL DEFAULT '',
			suggested_action TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL CHECK(status IN ('active', 'resolved')),
			triggered_at     TIMESTAMPTZ NOT NULL,
			resolved_at      TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_one_active ON alerts(entity_id, kind) WHERE status = 'active'`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status, kind)`,
	},
	{
		`CREATE TABLE IF NOT EXISTS purchase_orders (
			id             TEXT PRIMARY KEY,
			number         TEXT NOT NULL UNIQUE,
			supplier_id    TEXT NOT NULL,
			status         TEXT NOT NULL CHECK(status IN ('pending', 'approved', 'received')),
			total          DOUBLE PRECISION NOT NULL DEFAULT 0,
			auto_generated BOOLEAN NOT NULL DEFAULT FALSE,
			approved_by    TEXT NOT NULL DEFAULT '',
			approved_at    TIMESTAMPTZ,
			notes          TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_order_lines (
			id         TEXT PRIMARY KEY,
			order_id   TEXT NOT NULL REFERENCES purchase_orders(id),
			item_id    TEXT NOT NULL,
			quantity   DOUBLE PRECISION NOT NULL,
			unit_cost  DOUBLE PRECISION NOT NULL,
			line_total DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_lines_item ON purchase_order_lines(item_id)`,
		`CREATE TABLE IF NOT EXISTS job_runs (
			id          TEXT PRIMARY KEY,
			job         TEXT NOT NULL,
			status      TEXT NOT NULL,
			params      TEXT NOT NULL DEFAULT '{}',
			stats       TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			attempts    INTEGER NOT NULL DEFAULT 0,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_job_runs_job ON job_runs(job, started_at)`,
	},
}

// migrate applies pending schema migrations for the store's dialect.
func (s *SQLStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(s.dialect.migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}
		for _, stmt := range s.dialect.migrations[i] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("apply migration %d: %w", i+1, err)
			}
		}
		query, args, err := s.sb.Insert("schema_migrations").
			Columns("version", "applied_at").
			Values(i+1, time.Now().UTC().Format(time.RFC3339)).
			ToSql()
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("build migration record: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}
	return nil
}
