/*
Package storage provides SQLite database migrations.

This file contains schema definitions and migration logic for the learning
tables: policy, episodes, sequences, executions, recommendations, metrics.
*/
package storage

import (
	"fmt"
	"log"
)

// runMigrations executes database schema migrations.
func (s *SQLiteStorage) runMigrations() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "learning_schema", up: s.migration001LearningSchema},
	}

	for _, m := range migrations {
		if version < m.version {
			log.Printf("Running migration %d: %s", m.version, m.name)
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m.version); err != nil {
				return err
			}
		}
	}

	return nil
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStorage) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}

	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *SQLiteStorage) setMigrationVersion(version int) error {
	_, err := s.db.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		version, fmt.Sprintf("migration_%d", version),
	)
	return err
}

// migration001LearningSchema creates the learning tables.
func (s *SQLiteStorage) migration001LearningSchema() error {
	// Learned policy: one row per (tool, context) key.
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rl_policy (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tool_name TEXT NOT NULL,
			context_hash TEXT NOT NULL,
			action_value REAL NOT NULL DEFAULT 0.0,
			visit_count INTEGER NOT NULL DEFAULT 0,
			last_updated TEXT NOT NULL,
			UNIQUE(tool_name, context_hash)
		)
	`); err != nil {
		return fmt.Errorf("failed to create rl_policy table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_rl_policy_tool
		ON rl_policy(tool_name)
	`); err != nil {
		return fmt.Errorf("failed to create rl_policy tool index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_rl_policy_context
		ON rl_policy(context_hash)
	`); err != nil {
		return fmt.Errorf("failed to create rl_policy context index: %w", err)
	}

	// Finalized episodes: one row per session.
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rl_episodes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL UNIQUE,
			tool_sequence TEXT NOT NULL,
			episode_reward REAL NOT NULL DEFAULT 0.0,
			outcome TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create rl_episodes table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_rl_episodes_outcome
		ON rl_episodes(outcome, created_at DESC)
	`); err != nil {
		return fmt.Errorf("failed to create rl_episodes outcome index: %w", err)
	}

	// Mined tool N-grams.
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rl_tool_sequences (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sequence_key TEXT NOT NULL UNIQUE,
			count INTEGER NOT NULL DEFAULT 1,
			avg_reward REAL NOT NULL DEFAULT 0.0,
			success_rate REAL NOT NULL DEFAULT 0.0,
			last_seen TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create rl_tool_sequences table: %w", err)
	}

	// Execution history, source of per-tool aggregate stats.
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tool_executions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tool_name TEXT NOT NULL,
			session_id TEXT NOT NULL,
			success INTEGER NOT NULL,
			latency_ms REAL NOT NULL DEFAULT 0.0,
			rating INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create tool_executions table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tool_executions_tool
		ON tool_executions(tool_name)
	`); err != nil {
		return fmt.Errorf("failed to create tool_executions tool index: %w", err)
	}

	// Served recommendation snapshots.
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS recommendations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recommend_id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			context_hash TEXT NOT NULL,
			top_tool TEXT NOT NULL,
			candidate_count INTEGER NOT NULL,
			explored INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create recommendations table: %w", err)
	}

	// Diagnostic metric samples.
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rl_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			metric_name TEXT NOT NULL,
			metric_value REAL NOT NULL,
			timestamp TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create rl_metrics table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_rl_metrics_name
		ON rl_metrics(metric_name, timestamp DESC)
	`); err != nil {
		return fmt.Errorf("failed to create rl_metrics name index: %w", err)
	}

	return nil
}
