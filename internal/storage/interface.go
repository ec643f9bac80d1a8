/*
Package storage implements a persistent storage layer for the learning system.

This package provides SQLite-based storage for the learned policy table,
finalized episodes, mined tool sequences, execution history, and diagnostic
metrics, with graceful degradation if the database is unavailable.

The database is stored at ~/.tool-advisor/advisor.db and uses
modernc.org/sqlite (a pure Go, CGo-free implementation).
*/
package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Storage defines the interface for persistent learning state.
type Storage interface {
	// Init initializes the database and runs migrations.
	Init() error

	// GetPolicy retrieves the policy entry for a (tool, context) key.
	// Absent keys return a zero-valued entry, not an error.
	GetPolicy(toolName, contextHash string) (PolicyEntry, error)

	// UpdatePolicy applies one Q-learning update to a (tool, context) key:
	//   Q_new = Q_old + alpha*(reward + gamma*bestNext - Q_old)
	// and increments the visit count, atomically per key.
	UpdatePolicy(toolName, contextHash string, reward, alpha, gamma, bestNext float64) (PolicyEntry, error)

	// PoliciesForContext returns all entries for a context, keyed by tool name.
	PoliciesForContext(contextHash string) (map[string]PolicyEntry, error)

	// TopPolicies returns the highest-valued entries across all keys.
	TopPolicies(limit int) ([]PolicyEntry, error)

	// PolicyAggregate summarizes all entries for one tool.
	PolicyAggregate(toolName string) (PolicyAggregate, error)

	// SaveEpisode persists a finalized episode. A session's episode is
	// written at most once; later writes for the same session are rejected.
	SaveEpisode(ep Episode) error

	// GetEpisode retrieves the episode for a session, if one was finalized.
	GetEpisode(sessionID string) (Episode, bool, error)

	// SuccessfulEpisodes returns recent episodes with outcome "success",
	// optionally filtered to those containing toolName.
	SuccessfulEpisodes(toolName string, limit int) ([]Episode, error)

	// UpsertSequence records one observation of a tool N-gram.
	UpsertSequence(key string, reward float64, success bool) error

	// GetSequence retrieves stats for a sequence key, if observed.
	GetSequence(key string) (SequenceStat, bool, error)

	// RecordExecution appends one completed execution to the history.
	RecordExecution(e Execution) error

	// ToolMetrics aggregates execution history for one tool.
	ToolMetrics(toolName string) (ToolMetrics, error)

	// AllToolMetrics aggregates execution history for every recorded tool.
	AllToolMetrics() ([]ToolMetrics, error)

	// RecordRecommendation stores a served recommendation snapshot.
	RecordRecommendation(r Recommendation) error

	// RecordMetric stores one diagnostic metric sample.
	RecordMetric(name string, value float64) error

	// RecentMetrics returns the most recent samples for a metric name.
	RecentMetrics(name string, limit int) ([]MetricPoint, error)

	// Cleanup removes execution and metric records older than the retention.
	Cleanup(retention time.Duration) error

	// Clear deletes all learned state: policies, episodes, sequences,
	// executions, recommendations, and metrics.
	Clear() error

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	mu       sync.Mutex
	initOnce sync.Once
}

// NewStorage creates a new SQLite storage instance.
//
// The database is created at ~/.tool-advisor/advisor.db. If the directory
// doesn't exist, it will be created. If the database cannot be opened, the
// storage is disabled and operations become no-ops.
func NewStorage() *SQLiteStorage {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: failed to get home directory: %v", err)
		return &SQLiteStorage{enabled: false}
	}

	return NewStorageAt(filepath.Join(home, ".tool-advisor", "advisor.db"))
}

// NewStorageAt creates a SQLite storage instance at an explicit path.
func NewStorageAt(dbPath string) *SQLiteStorage {
	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: true,
	}
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled and subsequent operations
// become no-ops (graceful degradation).
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}

	var initErr error
	s.initOnce.Do(func() {
		dbDir := filepath.Dir(s.dbPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.enabled = false
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.enabled = false
			log.Printf("Warning: %v", initErr)
			return
		}
		s.db = db

		if err := db.Ping(); err != nil {
			initErr = fmt.Errorf("failed to ping database: %w", err)
			s.enabled = false
			log.Printf("Warning: %v", initErr)
			return
		}

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.enabled = false
			log.Printf("Warning: %v", initErr)
			return
		}
	})

	return initErr
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// Cleanup removes execution and metric records older than the retention.
// Policy entries and episodes are kept indefinitely.
func (s *SQLiteStorage) Cleanup(retention time.Duration) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention).Format(time.RFC3339)

	if _, err := s.db.Exec("DELETE FROM tool_executions WHERE created_at < ?", cutoff); err != nil {
		return fmt.Errorf("failed to clean up executions: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM rl_metrics WHERE timestamp < ?", cutoff); err != nil {
		return fmt.Errorf("failed to clean up metrics: %w", err)
	}

	return nil
}

// Clear deletes all learned state.
func (s *SQLiteStorage) Clear() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"rl_policy", "rl_episodes", "rl_tool_sequences",
		"tool_executions", "recommendations", "rl_metrics",
	}
	for _, table := range tables {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return nil
}
