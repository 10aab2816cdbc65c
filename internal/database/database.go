package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate runs database migrations
func (db *DB) Migrate(ctx context.Context) error {
	// Create migrations table if not exists
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Run migrations
	for _, m := range migrations {
		if err := db.runMigration(ctx, m); err != nil {
			return err
		}
	}

	return nil
}

func (db *DB) runMigration(ctx context.Context, m migration) error {
	// Check if already applied
	var exists bool
	err := db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
		m.version,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check migration %d: %w", m.version, err)
	}

	if exists {
		return nil
	}

	// Run migration
	_, err = db.Pool.Exec(ctx, m.sql)
	if err != nil {
		return fmt.Errorf("failed to run migration %d: %w", m.version, err)
	}

	// Record migration
	_, err = db.Pool.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)",
		m.version,
	)
	if err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.version, err)
	}

	return nil
}

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
			-- =============================================================================
			-- ENUMS
			-- =============================================================================

			CREATE TYPE sync_session_status AS ENUM ('running', 'completed', 'failed', 'partial');
			CREATE TYPE event_mapping_status AS ENUM ('pending', 'synced', 'failed', 'conflict', 'deleted');

			-- =============================================================================
			-- USERS
			-- =============================================================================

			CREATE TABLE users (
				id UUID PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,

				portal_username TEXT,
				portal_password_ciphertext TEXT,

				oauth_access_token TEXT,
				oauth_refresh_token TEXT,
				oauth_token_type TEXT,
				oauth_expiry TIMESTAMPTZ,

				downstream_calendar_id TEXT,

				email_verified BOOLEAN NOT NULL DEFAULT false,
				portal_credentials_set BOOLEAN NOT NULL DEFAULT false,
				downstream_connected BOOLEAN NOT NULL DEFAULT false,
				active BOOLEAN NOT NULL DEFAULT true,

				last_sync TIMESTAMPTZ,

				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_users_email ON users(email);
			CREATE INDEX idx_users_eligible_for_sync
				ON users (id)
				WHERE email_verified AND portal_credentials_set AND downstream_connected AND active;

			-- =============================================================================
			-- SYNC CONFIGURATIONS
			-- =============================================================================

			CREATE TABLE sync_configurations (
				user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
				sync_enabled BOOLEAN NOT NULL DEFAULT true,
				frequency_hours INT NOT NULL DEFAULT 24,
				display_name TEXT NOT NULL DEFAULT 'Insper Sync',
				add_insper_prefix BOOLEAN NOT NULL DEFAULT true,
				include_instructor BOOLEAN NOT NULL DEFAULT true,
				include_discipline_code BOOLEAN NOT NULL DEFAULT true,
				excluded_event_kinds TEXT[] NOT NULL DEFAULT '{}',
				excluded_disciplines TEXT[] NOT NULL DEFAULT '{}',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			-- =============================================================================
			-- UPSTREAM EVENTS (scraped from the academic portal)
			-- =============================================================================

			CREATE TABLE upstream_events (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				upstream_event_id TEXT NOT NULL,

				title TEXT NOT NULL,
				description TEXT,
				start_datetime TIMESTAMPTZ NOT NULL,
				end_datetime TIMESTAMPTZ NOT NULL,
				all_day BOOLEAN NOT NULL DEFAULT false,
				disciplina_codigo TEXT,
				docente TEXT,
				turma TEXT,
				dependencia TEXT,
				tipo_evento TEXT NOT NULL,
				timezone TEXT NOT NULL DEFAULT 'America/Sao_Paulo',

				raw_data JSONB NOT NULL,
				content_hash TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT true,
				last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE(user_id, upstream_event_id)
			);

			CREATE INDEX idx_upstream_events_user_start ON upstream_events(user_id, start_datetime);
			CREATE INDEX idx_upstream_events_content_hash ON upstream_events(content_hash);
			CREATE INDEX idx_upstream_events_active_user ON upstream_events(is_active, user_id);

			-- =============================================================================
			-- DOWNSTREAM EVENTS (mirrored into the user's calendar)
			-- =============================================================================

			CREATE TABLE downstream_events (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				downstream_event_id TEXT NOT NULL,
				calendar_id TEXT NOT NULL,

				title TEXT NOT NULL,
				description TEXT,
				start_datetime TIMESTAMPTZ NOT NULL,
				end_datetime TIMESTAMPTZ NOT NULL,
				all_day BOOLEAN NOT NULL DEFAULT false,
				location TEXT,
				html_link TEXT,
				raw_data JSONB,

				content_hash TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT true,
				synced_from_upstream BOOLEAN NOT NULL DEFAULT true,

				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE(user_id, downstream_event_id)
			);

			CREATE INDEX idx_downstream_events_user_start ON downstream_events(user_id, start_datetime);
			CREATE INDEX idx_downstream_events_active_user ON downstream_events(is_active, user_id);

			-- =============================================================================
			-- SYNC SESSIONS
			-- =============================================================================

			CREATE TABLE sync_sessions (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				start_date DATE NOT NULL,
				end_date DATE NOT NULL,

				status sync_session_status NOT NULL DEFAULT 'running',
				started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				completed_at TIMESTAMPTZ,

				upstream_found INT NOT NULL DEFAULT 0,
				downstream_found INT NOT NULL DEFAULT 0,
				created INT NOT NULL DEFAULT 0,
				updated INT NOT NULL DEFAULT 0,
				deleted INT NOT NULL DEFAULT 0,
				failed INT NOT NULL DEFAULT 0,

				error_message TEXT,
				error_details JSONB
			);

			CREATE INDEX idx_sync_sessions_status_started ON sync_sessions(status, started_at DESC);
			CREATE INDEX idx_sync_sessions_user_started ON sync_sessions(user_id, started_at DESC);

			-- =============================================================================
			-- EVENT MAPPINGS
			-- =============================================================================

			CREATE TABLE event_mappings (
				id UUID PRIMARY KEY,
				sync_session_id UUID NOT NULL REFERENCES sync_sessions(id) ON DELETE CASCADE,
				upstream_event_id UUID NOT NULL REFERENCES upstream_events(id) ON DELETE CASCADE,
				downstream_event_id UUID REFERENCES downstream_events(id) ON DELETE CASCADE,

				status event_mapping_status NOT NULL DEFAULT 'pending',
				direction TEXT NOT NULL DEFAULT 'upstream_to_downstream',
				error_message TEXT,
				needs_review BOOLEAN NOT NULL DEFAULT false,

				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE(upstream_event_id, downstream_event_id)
			);

			CREATE INDEX idx_event_mappings_session ON event_mappings(sync_session_id);
		`,
	},
}
