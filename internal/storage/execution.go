package storage

import (
	"fmt"
	"time"
)

// RecordExecution appends one completed execution to the history.
func (s *SQLiteStorage) RecordExecution(e Execution) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	success := 0
	if e.Success {
		success = 1
	}

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO tool_executions (tool_name, session_id, success, latency_ms, rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ToolName, e.SessionID, success, e.LatencyMS, e.Rating, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}

	return nil
}

// ToolMetrics aggregates execution history for one tool.
func (s *SQLiteStorage) ToolMetrics(toolName string) (ToolMetrics, error) {
	m := ToolMetrics{ToolName: toolName}

	if !s.enabled || s.db == nil {
		return m, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(AVG(success), 0.0),
		       COALESCE(AVG(latency_ms), 0.0),
		       COALESCE(AVG(CASE WHEN rating > 0 THEN CAST(rating AS REAL) END), 0.0),
		       COALESCE(SUM(CASE WHEN rating > 0 THEN 1 ELSE 0 END), 0)
		FROM tool_executions
		WHERE tool_name = ?
	`, toolName)

	if err := row.Scan(&m.TotalCalls, &m.SuccessRate, &m.AvgLatencyMS, &m.AvgRating, &m.RatedCalls); err != nil {
		return m, fmt.Errorf("failed to aggregate executions: %w", err)
	}

	return m, nil
}

// AllToolMetrics aggregates execution history for every recorded tool.
func (s *SQLiteStorage) AllToolMetrics() ([]ToolMetrics, error) {
	if !s.enabled || s.db == nil {
		return []ToolMetrics{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT tool_name,
		       COUNT(*),
		       COALESCE(AVG(success), 0.0),
		       COALESCE(AVG(latency_ms), 0.0),
		       COALESCE(AVG(CASE WHEN rating > 0 THEN CAST(rating AS REAL) END), 0.0),
		       COALESCE(SUM(CASE WHEN rating > 0 THEN 1 ELSE 0 END), 0)
		FROM tool_executions
		GROUP BY tool_name
		ORDER BY tool_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate executions: %w", err)
	}
	defer rows.Close()

	var metrics []ToolMetrics
	for rows.Next() {
		var m ToolMetrics
		if err := rows.Scan(&m.ToolName, &m.TotalCalls, &m.SuccessRate, &m.AvgLatencyMS, &m.AvgRating, &m.RatedCalls); err != nil {
			return metrics, fmt.Errorf("failed to scan metrics row: %w", err)
		}
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

// RecordRecommendation stores a served recommendation snapshot.
func (s *SQLiteStorage) RecordRecommendation(r Recommendation) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	explored := 0
	if r.Explored {
		explored = 1
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO recommendations (recommend_id, session_id, context_hash, top_tool, candidate_count, explored, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.RecommendID, r.SessionID, r.ContextHash, r.TopTool, r.Candidates, explored, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record recommendation: %w", err)
	}

	return nil
}
