package learning

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/toolsmith-ai/advisor/internal/storage"
)

// ErrSessionFinalized is returned when a step arrives for a session whose
// episode has already been finalized.
var ErrSessionFinalized = errors.New("session already finalized")

// episodeState is the in-progress record for one open session.
type episodeState struct {
	sequence    []string
	totalReward float64
	finalized   bool
	snapshot    storage.Episode
}

// EpisodeTracker tracks one episode per session: the ordered tool sequence
// and cumulative reward, finalized exactly once.
//
// Steps within one session are expected to arrive from a single writer in
// true execution order; concurrent writers on the same session are out of
// contract and handled best-effort. Distinct sessions are fully independent.
// Finalized sessions keep a terminal marker in memory so late steps are
// rejected instead of reopening the session.
type EpisodeTracker struct {
	store    storage.Storage
	mu       sync.RWMutex
	sessions map[string]*episodeState
}

// NewEpisodeTracker creates a tracker over the given storage.
func NewEpisodeTracker(store storage.Storage) *EpisodeTracker {
	return &EpisodeTracker{
		store:    store,
		sessions: make(map[string]*episodeState),
	}
}

// RecordStep appends a tool to the session's sequence and accumulates its
// reward. A first step for an unknown session opens it. Steps after
// finalization are rejected with ErrSessionFinalized and have no effect on
// the persisted episode.
func (t *EpisodeTracker) RecordStep(sessionID, toolName string, reward float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.sessions[sessionID]
	if !ok {
		state = &episodeState{}
		t.sessions[sessionID] = state
	}

	if state.finalized {
		return fmt.Errorf("record step for session %s: %w", sessionID, ErrSessionFinalized)
	}

	state.sequence = append(state.sequence, toolName)
	state.totalReward += reward
	return nil
}

// StepCount returns the number of steps recorded for a session.
func (t *EpisodeTracker) StepCount(sessionID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if state, ok := t.sessions[sessionID]; ok {
		return len(state.sequence)
	}
	return 0
}

// LastTool returns the most recently recorded tool for a session, or ""
// if the session has no steps.
func (t *EpisodeTracker) LastTool(sessionID string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.sessions[sessionID]
	if !ok || len(state.sequence) == 0 {
		return ""
	}
	return state.sequence[len(state.sequence)-1]
}

// RecentTools returns up to n most recent tools for a session, oldest first.
func (t *EpisodeTracker) RecentTools(sessionID string, n int) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.sessions[sessionID]
	if !ok || n <= 0 {
		return nil
	}

	start := len(state.sequence) - n
	if start < 0 {
		start = 0
	}
	recent := make([]string, len(state.sequence)-start)
	copy(recent, state.sequence[start:])
	return recent
}

// Finalize transitions a session to its terminal state and persists the
// episode snapshot. Finalizing an already-finalized session is idempotent:
// it returns the persisted episode unchanged with already == true and does
// not touch storage again. Finalizing an unknown session persists an
// empty-sequence episode.
func (t *EpisodeTracker) Finalize(sessionID string, outcome Outcome) (ep storage.Episode, already bool, err error) {
	t.mu.Lock()

	state, ok := t.sessions[sessionID]
	if !ok {
		state = &episodeState{}
		t.sessions[sessionID] = state
	}

	if state.finalized {
		snapshot := state.snapshot
		t.mu.Unlock()
		return snapshot, true, nil
	}

	sequence := make([]string, len(state.sequence))
	copy(sequence, state.sequence)

	snapshot := storage.Episode{
		SessionID:   sessionID,
		Sequence:    sequence,
		TotalReward: state.totalReward,
		Outcome:     string(outcome),
		CreatedAt:   time.Now().UTC(),
	}

	// The terminal transition happens before the storage write so a failed
	// persist cannot reopen the session.
	state.finalized = true
	state.snapshot = snapshot
	t.mu.Unlock()

	if err := t.store.SaveEpisode(snapshot); err != nil {
		return snapshot, false, fmt.Errorf("failed to persist episode for session %s: %w", sessionID, err)
	}

	return snapshot, false, nil
}

// SuccessfulSequences returns recent successful episodes, optionally
// filtered to those containing toolName, most recent first.
func (t *EpisodeTracker) SuccessfulSequences(toolName string, limit int) ([]storage.Episode, error) {
	return t.store.SuccessfulEpisodes(toolName, limit)
}
