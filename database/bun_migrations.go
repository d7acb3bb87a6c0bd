package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// runMigrations runs all Bun migrations
func (b *BunDB) runMigrations(ctx context.Context) error {
	// Create a simple migrations tracking table (portable across sqlite and postgres)
	_, err := b.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS bun_schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Check which migrations have been applied
	type AppliedMigration struct {
		bun.BaseModel `bun:"table:bun_schema_migrations"`
		Version       string `bun:"version"`
	}
	var applied []AppliedMigration
	err = b.db.NewSelect().
		Model(&applied).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to check applied migrations: %w", err)
	}

	appliedMap := make(map[string]bool)
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	// Run migrations in order
	migrations := []struct {
		version string
		name    string
		up      func(context.Context, *bun.DB) error
	}{
		{"001", "initial_schema", init001CreatePreviewsTable},
		{"002", "create_jobs_table", init002CreateJobsTable},
		{"003", "create_stats_metadata", init003CreateStatsMetadata},
	}

	for _, m := range migrations {
		if appliedMap[m.version] {
			continue
		}

		Logger.Info("Running migration", "version", m.version, "name", m.name)
		if err := m.up(ctx, b.db); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.version, err)
		}

		// Mark as applied
		_, err = b.db.NewInsert().
			Model(&AppliedMigration{Version: m.version}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark migration %s as applied: %w", m.version, err)
		}
	}

	Logger.Info("All migrations completed successfully")
	return nil
}

// Migration 001: Create initial schema (previews and server_config tables)
func init001CreatePreviewsTable(ctx context.Context, db *bun.DB) error {
	Logger.Info("Running migration 001: Create initial schema")

	isPostgres := db.Dialect().Name() == dialect.PG

	// Create previews table
	var createTableSQL string
	if isPostgres {
		createTableSQL = `
			CREATE TABLE IF NOT EXISTS previews (
				id SERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				source_path TEXT NOT NULL UNIQUE,
				folder TEXT NOT NULL,
				hash TEXT NOT NULL,
				ulid TEXT NOT NULL UNIQUE,
				source_type TEXT NOT NULL,
				paragraphs INTEGER DEFAULT 0,
				page_count INTEGER DEFAULT 0,
				image_width INTEGER DEFAULT 0,
				image_height INTEGER DEFAULT 0,
				pdf_path TEXT,
				image_path TEXT,
				data_url_path TEXT,
				ingress_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				url TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
	} else {
		createTableSQL = `
			CREATE TABLE IF NOT EXISTS previews (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				source_path TEXT NOT NULL UNIQUE,
				folder TEXT NOT NULL,
				hash TEXT NOT NULL,
				ulid TEXT NOT NULL UNIQUE,
				source_type TEXT NOT NULL,
				paragraphs INTEGER DEFAULT 0,
				page_count INTEGER DEFAULT 0,
				image_width INTEGER DEFAULT 0,
				image_height INTEGER DEFAULT 0,
				pdf_path TEXT,
				image_path TEXT,
				data_url_path TEXT,
				ingress_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				url TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
	}

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create previews table: %w", err)
	}

	// Create indexes for previews
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_previews_hash ON previews(hash)",
		"CREATE INDEX IF NOT EXISTS idx_previews_ulid ON previews(ulid)",
		"CREATE INDEX IF NOT EXISTS idx_previews_folder ON previews(folder)",
		"CREATE INDEX IF NOT EXISTS idx_previews_name ON previews(name)",
		"CREATE INDEX IF NOT EXISTS idx_previews_ingress_time ON previews(ingress_time DESC)",
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// Create server_config table
	var createConfigSQL string
	var insertConfigSQL string
	if isPostgres {
		createConfigSQL = `
			CREATE TABLE IF NOT EXISTS server_config (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				listen_addr_ip TEXT DEFAULT '',
				listen_addr_port TEXT NOT NULL DEFAULT '8000',
				ingress_path TEXT NOT NULL DEFAULT '',
				ingress_delete BOOLEAN NOT NULL DEFAULT false,
				ingress_move_folder TEXT NOT NULL DEFAULT '',
				ingress_preserve BOOLEAN NOT NULL DEFAULT true,
				ingress_interval INTEGER NOT NULL DEFAULT 10,
				soffice_path TEXT DEFAULT '',
				convert_timeout INTEGER NOT NULL DEFAULT 120,
				convert_service_url TEXT DEFAULT '',
				renderer TEXT NOT NULL DEFAULT 'fitz',
				zoom_x DOUBLE PRECISION NOT NULL DEFAULT 2.0,
				zoom_y DOUBLE PRECISION NOT NULL DEFAULT 2.0,
				jpeg_quality INTEGER NOT NULL DEFAULT 95,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
		insertConfigSQL = `INSERT INTO server_config (id) VALUES (1) ON CONFLICT (id) DO NOTHING`
	} else {
		createConfigSQL = `
			CREATE TABLE IF NOT EXISTS server_config (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				listen_addr_ip TEXT DEFAULT '',
				listen_addr_port TEXT NOT NULL DEFAULT '8000',
				ingress_path TEXT NOT NULL DEFAULT '',
				ingress_delete BOOLEAN NOT NULL DEFAULT 0,
				ingress_move_folder TEXT NOT NULL DEFAULT '',
				ingress_preserve BOOLEAN NOT NULL DEFAULT 1,
				ingress_interval INTEGER NOT NULL DEFAULT 10,
				soffice_path TEXT DEFAULT '',
				convert_timeout INTEGER NOT NULL DEFAULT 120,
				convert_service_url TEXT DEFAULT '',
				renderer TEXT NOT NULL DEFAULT 'fitz',
				zoom_x REAL NOT NULL DEFAULT 2.0,
				zoom_y REAL NOT NULL DEFAULT 2.0,
				jpeg_quality INTEGER NOT NULL DEFAULT 95,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
		insertConfigSQL = `INSERT OR IGNORE INTO server_config (id) VALUES (1)`
	}

	_, err = db.ExecContext(ctx, createConfigSQL)
	if err != nil {
		return fmt.Errorf("failed to create server_config table: %w", err)
	}

	// Insert default config row
	_, err = db.ExecContext(ctx, insertConfigSQL)
	if err != nil {
		return fmt.Errorf("failed to insert default config: %w", err)
	}

	Logger.Info("Migration 001 completed successfully")
	return nil
}

// Migration 002: Create jobs table
func init002CreateJobsTable(ctx context.Context, db *bun.DB) error {
	Logger.Info("Running migration 002: Create jobs table")

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			status TEXT DEFAULT 'pending',
			progress INTEGER DEFAULT 0,
			current_step TEXT DEFAULT '',
			total_steps INTEGER DEFAULT 0,
			message TEXT DEFAULT '',
			error TEXT,
			result TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			started_at TIMESTAMP,
			completed_at TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_type ON jobs(type)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_completed_at ON jobs(completed_at) WHERE completed_at IS NOT NULL",
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			// Partial indexes might not be supported in all SQLite versions
			Logger.Warn("Could not create index (might not be supported)", "error", err)
		}
	}

	Logger.Info("Migration 002 completed successfully")
	return nil
}

// Migration 003: Create stats_metadata table
func init003CreateStatsMetadata(ctx context.Context, db *bun.DB) error {
	Logger.Info("Running migration 003: Create stats_metadata table")

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS stats_metadata (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_scan TIMESTAMP,
			artifact_files INTEGER NOT NULL DEFAULT 0,
			artifact_bytes BIGINT NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create stats_metadata table: %w", err)
	}

	// Insert the single metadata row
	var insertSQL string
	if db.Dialect().Name() == dialect.PG {
		insertSQL = `INSERT INTO stats_metadata (id) VALUES (1) ON CONFLICT (id) DO NOTHING`
	} else {
		insertSQL = `INSERT OR IGNORE INTO stats_metadata (id) VALUES (1)`
	}
	if _, err := db.ExecContext(ctx, insertSQL); err != nil {
		return fmt.Errorf("failed to insert stats metadata row: %w", err)
	}

	Logger.Info("Migration 003 completed successfully")
	return nil
}
