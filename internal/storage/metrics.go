package storage

import (
	"fmt"
	"time"
)

// RecordMetric stores one diagnostic metric sample.
func (s *SQLiteStorage) RecordMetric(name string, value float64) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO rl_metrics (metric_name, metric_value, timestamp)
		VALUES (?, ?, ?)
	`, name, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", err)
	}

	return nil
}

// RecentMetrics returns the most recent samples for a metric name.
func (s *SQLiteStorage) RecentMetrics(name string, limit int) ([]MetricPoint, error) {
	if !s.enabled || s.db == nil {
		return []MetricPoint{}, nil
	}

	if limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT metric_name, metric_value, timestamp
		FROM rl_metrics
		WHERE metric_name = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var points []MetricPoint
	for rows.Next() {
		var p MetricPoint
		var tsStr string
		if err := rows.Scan(&p.Name, &p.Value, &tsStr); err != nil {
			return points, fmt.Errorf("failed to scan metric row: %w", err)
		}
		p.Timestamp, _ = time.Parse(time.RFC3339, tsStr)
		points = append(points, p)
	}

	return points, rows.Err()
}
