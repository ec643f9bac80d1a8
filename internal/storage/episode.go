package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SaveEpisode persists a finalized episode. The session_id column is unique,
// so a second write for the same session fails instead of overwriting the
// historical record.
func (s *SQLiteStorage) SaveEpisode(ep Episode) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sequence, err := json.Marshal(ep.Sequence)
	if err != nil {
		return fmt.Errorf("failed to marshal tool sequence: %w", err)
	}

	createdAt := ep.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.Exec(`
		INSERT INTO rl_episodes (session_id, tool_sequence, episode_reward, outcome, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, ep.SessionID, string(sequence), ep.TotalReward, ep.Outcome, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save episode: %w", err)
	}

	return nil
}

// GetEpisode retrieves the episode for a session, if one was finalized.
func (s *SQLiteStorage) GetEpisode(sessionID string) (Episode, bool, error) {
	ep := Episode{SessionID: sessionID}

	if !s.enabled || s.db == nil {
		return ep, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT tool_sequence, episode_reward, outcome, created_at
		FROM rl_episodes
		WHERE session_id = ?
	`, sessionID)

	var sequenceStr, createdStr string
	err := row.Scan(&sequenceStr, &ep.TotalReward, &ep.Outcome, &createdStr)
	if err == sql.ErrNoRows {
		return ep, false, nil
	}
	if err != nil {
		return ep, false, fmt.Errorf("failed to read episode: %w", err)
	}

	if err := json.Unmarshal([]byte(sequenceStr), &ep.Sequence); err != nil {
		return ep, false, fmt.Errorf("failed to unmarshal tool sequence: %w", err)
	}
	ep.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)

	return ep, true, nil
}

// SuccessfulEpisodes returns recent episodes with outcome "success", most
// recent first, optionally filtered to those containing toolName.
func (s *SQLiteStorage) SuccessfulEpisodes(toolName string, limit int) ([]Episode, error) {
	if !s.enabled || s.db == nil {
		return []Episode{}, nil
	}

	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Fetch extra rows when filtering; the sequence filter runs in Go
	// because the sequence is stored as a JSON array.
	fetch := limit
	if toolName != "" {
		fetch = limit * 2
	}

	rows, err := s.db.Query(`
		SELECT session_id, tool_sequence, episode_reward, outcome, created_at
		FROM rl_episodes
		WHERE outcome = 'success'
		ORDER BY created_at DESC
		LIMIT ?
	`, fetch)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var ep Episode
		var sequenceStr, createdStr string
		if err := rows.Scan(&ep.SessionID, &sequenceStr, &ep.TotalReward, &ep.Outcome, &createdStr); err != nil {
			return episodes, fmt.Errorf("failed to scan episode row: %w", err)
		}
		if err := json.Unmarshal([]byte(sequenceStr), &ep.Sequence); err != nil {
			continue
		}
		ep.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)

		if toolName != "" && !containsTool(ep.Sequence, toolName) {
			continue
		}

		episodes = append(episodes, ep)
		if len(episodes) >= limit {
			break
		}
	}

	return episodes, rows.Err()
}

func containsTool(sequence []string, toolName string) bool {
	for _, name := range sequence {
		if name == toolName {
			return true
		}
	}
	return false
}
