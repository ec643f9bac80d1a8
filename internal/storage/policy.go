package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// GetPolicy retrieves the policy entry for a (tool, context) key.
// Absent keys return a zero-valued entry with the key filled in.
func (s *SQLiteStorage) GetPolicy(toolName, contextHash string) (PolicyEntry, error) {
	entry := PolicyEntry{ToolName: toolName, ContextHash: contextHash}

	if !s.enabled || s.db == nil {
		return entry, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT action_value, visit_count, last_updated
		FROM rl_policy
		WHERE tool_name = ? AND context_hash = ?
	`, toolName, contextHash)

	var updatedStr string
	err := row.Scan(&entry.Value, &entry.Visits, &updatedStr)
	if err == sql.ErrNoRows {
		return entry, nil
	}
	if err != nil {
		return entry, fmt.Errorf("failed to read policy: %w", err)
	}

	entry.LastUpdated, _ = time.Parse(time.RFC3339, updatedStr)
	return entry, nil
}

// UpdatePolicy applies one Q-learning update to a (tool, context) key:
//
//	Q_new = Q_old + alpha*(reward + gamma*bestNext - Q_old)
//
// The read-modify-write happens in a single UPSERT statement, so concurrent
// updates to the same key serialize without lost writes and the visit count
// equals the number of completed updates exactly.
func (s *SQLiteStorage) UpdatePolicy(toolName, contextHash string, reward, alpha, gamma, bestNext float64) (PolicyEntry, error) {
	entry := PolicyEntry{ToolName: toolName, ContextHash: contextHash}

	if !s.enabled || s.db == nil {
		return entry, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := reward + gamma*bestNext
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.Exec(`
		INSERT INTO rl_policy (tool_name, context_hash, action_value, visit_count, last_updated)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(tool_name, context_hash) DO UPDATE SET
			action_value = action_value + ? * (? - action_value),
			visit_count = visit_count + 1,
			last_updated = excluded.last_updated
	`, toolName, contextHash, alpha*target, now, alpha, target)
	if err != nil {
		return entry, fmt.Errorf("failed to update policy: %w", err)
	}

	row := s.db.QueryRow(`
		SELECT action_value, visit_count, last_updated
		FROM rl_policy
		WHERE tool_name = ? AND context_hash = ?
	`, toolName, contextHash)

	var updatedStr string
	if err := row.Scan(&entry.Value, &entry.Visits, &updatedStr); err != nil {
		return entry, fmt.Errorf("failed to read back policy: %w", err)
	}

	entry.LastUpdated, _ = time.Parse(time.RFC3339, updatedStr)
	return entry, nil
}

// PoliciesForContext returns all entries for a context, keyed by tool name.
func (s *SQLiteStorage) PoliciesForContext(contextHash string) (map[string]PolicyEntry, error) {
	entries := make(map[string]PolicyEntry)

	if !s.enabled || s.db == nil {
		return entries, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT tool_name, action_value, visit_count, last_updated
		FROM rl_policy
		WHERE context_hash = ?
	`, contextHash)
	if err != nil {
		return entries, fmt.Errorf("failed to query context policies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry := PolicyEntry{ContextHash: contextHash}
		var updatedStr string
		if err := rows.Scan(&entry.ToolName, &entry.Value, &entry.Visits, &updatedStr); err != nil {
			return entries, fmt.Errorf("failed to scan policy row: %w", err)
		}
		entry.LastUpdated, _ = time.Parse(time.RFC3339, updatedStr)
		entries[entry.ToolName] = entry
	}

	return entries, rows.Err()
}

// TopPolicies returns the highest-valued entries across all keys.
func (s *SQLiteStorage) TopPolicies(limit int) ([]PolicyEntry, error) {
	if !s.enabled || s.db == nil {
		return []PolicyEntry{}, nil
	}

	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT tool_name, context_hash, action_value, visit_count, last_updated
		FROM rl_policy
		ORDER BY action_value DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top policies: %w", err)
	}
	defer rows.Close()

	var entries []PolicyEntry
	for rows.Next() {
		var entry PolicyEntry
		var updatedStr string
		if err := rows.Scan(&entry.ToolName, &entry.ContextHash, &entry.Value, &entry.Visits, &updatedStr); err != nil {
			return entries, fmt.Errorf("failed to scan policy row: %w", err)
		}
		entry.LastUpdated, _ = time.Parse(time.RFC3339, updatedStr)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// PolicyAggregate summarizes all entries for one tool.
func (s *SQLiteStorage) PolicyAggregate(toolName string) (PolicyAggregate, error) {
	agg := PolicyAggregate{ToolName: toolName}

	if !s.enabled || s.db == nil {
		return agg, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(visit_count), 0),
		       COALESCE(AVG(action_value), 0.0),
		       COALESCE(MAX(action_value), 0.0)
		FROM rl_policy
		WHERE tool_name = ?
	`, toolName)

	if err := row.Scan(&agg.Contexts, &agg.TotalVisits, &agg.AvgValue, &agg.MaxValue); err != nil {
		return agg, fmt.Errorf("failed to aggregate policy: %w", err)
	}

	return agg, nil
}
