package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertSequence records one observation of a tool N-gram, maintaining
// running averages for reward and success rate in a single statement.
func (s *SQLiteStorage) UpsertSequence(key string, reward float64, success bool) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	successVal := 0.0
	if success {
		successVal = 1.0
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.Exec(`
		INSERT INTO rl_tool_sequences (sequence_key, count, avg_reward, success_rate, last_seen)
		VALUES (?, 1, ?, ?, ?)
		ON CONFLICT(sequence_key) DO UPDATE SET
			avg_reward = (avg_reward * count + ?) / (count + 1),
			success_rate = (success_rate * count + ?) / (count + 1),
			count = count + 1,
			last_seen = excluded.last_seen
	`, key, reward, successVal, now, reward, successVal)
	if err != nil {
		return fmt.Errorf("failed to upsert sequence: %w", err)
	}

	return nil
}

// GetSequence retrieves stats for a sequence key, if observed.
func (s *SQLiteStorage) GetSequence(key string) (SequenceStat, bool, error) {
	stat := SequenceStat{Key: key}

	if !s.enabled || s.db == nil {
		return stat, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT count, avg_reward, success_rate, last_seen
		FROM rl_tool_sequences
		WHERE sequence_key = ?
	`, key)

	var seenStr string
	err := row.Scan(&stat.Count, &stat.AvgReward, &stat.SuccessRate, &seenStr)
	if err == sql.ErrNoRows {
		return stat, false, nil
	}
	if err != nil {
		return stat, false, fmt.Errorf("failed to read sequence: %w", err)
	}

	stat.LastSeen, _ = time.Parse(time.RFC3339, seenStr)
	return stat, true, nil
}
