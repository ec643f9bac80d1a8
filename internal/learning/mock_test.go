package learning

import (
	"errors"
	"sync"
	"time"

	"github.com/toolsmith-ai/advisor/internal/storage"
)

// mockStore is an in-memory implementation of storage.Storage for testing.
// UpdatePolicy applies the same Q-learning rule as the SQLite store, so
// learning behavior can be asserted end to end without a database.
type mockStore struct {
	mu              sync.Mutex
	policies        map[string]storage.PolicyEntry
	episodes        map[string]storage.Episode
	episodeOrder    []string
	sequences       map[string]storage.SequenceStat
	executions      []storage.Execution
	recommendations []storage.Recommendation
	metrics         []storage.MetricPoint
	failSaveEpisode bool
}

func newMockStore() *mockStore {
	return &mockStore{
		policies:  make(map[string]storage.PolicyEntry),
		episodes:  make(map[string]storage.Episode),
		sequences: make(map[string]storage.SequenceStat),
	}
}

func policyKey(toolName, contextHash string) string {
	return toolName + ":" + contextHash
}

func (m *mockStore) Init() error  { return nil }
func (m *mockStore) Close() error { return nil }

func (m *mockStore) GetPolicy(toolName, contextHash string) (storage.PolicyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.policies[policyKey(toolName, contextHash)]; ok {
		return entry, nil
	}
	return storage.PolicyEntry{ToolName: toolName, ContextHash: contextHash}, nil
}

func (m *mockStore) UpdatePolicy(toolName, contextHash string, reward, alpha, gamma, bestNext float64) (storage.PolicyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := policyKey(toolName, contextHash)
	entry, ok := m.policies[key]
	if !ok {
		entry = storage.PolicyEntry{ToolName: toolName, ContextHash: contextHash}
	}

	target := reward + gamma*bestNext
	entry.Value += alpha * (target - entry.Value)
	entry.Visits++
	entry.LastUpdated = time.Now()
	m.policies[key] = entry

	return entry, nil
}

func (m *mockStore) PoliciesForContext(contextHash string) (map[string]storage.PolicyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make(map[string]storage.PolicyEntry)
	for _, entry := range m.policies {
		if entry.ContextHash == contextHash {
			entries[entry.ToolName] = entry
		}
	}
	return entries, nil
}

func (m *mockStore) TopPolicies(limit int) ([]storage.PolicyEntry, error) {
	return nil, nil
}

func (m *mockStore) PolicyAggregate(toolName string) (storage.PolicyAggregate, error) {
	return storage.PolicyAggregate{ToolName: toolName}, nil
}

func (m *mockStore) SaveEpisode(ep storage.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSaveEpisode {
		return errors.New("storage unavailable")
	}
	if _, ok := m.episodes[ep.SessionID]; ok {
		return errors.New("episode already exists")
	}
	m.episodes[ep.SessionID] = ep
	m.episodeOrder = append(m.episodeOrder, ep.SessionID)
	return nil
}

func (m *mockStore) GetEpisode(sessionID string) (storage.Episode, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ep, ok := m.episodes[sessionID]
	return ep, ok, nil
}

func (m *mockStore) SuccessfulEpisodes(toolName string, limit int) ([]storage.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var episodes []storage.Episode
	for i := len(m.episodeOrder) - 1; i >= 0 && len(episodes) < limit; i-- {
		ep := m.episodes[m.episodeOrder[i]]
		if ep.Outcome != string(OutcomeSuccess) {
			continue
		}
		if toolName != "" && !containsName(ep.Sequence, toolName) {
			continue
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

func containsName(sequence []string, name string) bool {
	for _, s := range sequence {
		if s == name {
			return true
		}
	}
	return false
}

func (m *mockStore) UpsertSequence(key string, reward float64, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stat, ok := m.sequences[key]
	if !ok {
		stat = storage.SequenceStat{Key: key}
	}
	successVal := 0.0
	if success {
		successVal = 1.0
	}
	count := float64(stat.Count)
	stat.AvgReward = (stat.AvgReward*count + reward) / (count + 1)
	stat.SuccessRate = (stat.SuccessRate*count + successVal) / (count + 1)
	stat.Count++
	stat.LastSeen = time.Now()
	m.sequences[key] = stat
	return nil
}

func (m *mockStore) GetSequence(key string) (storage.SequenceStat, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stat, ok := m.sequences[key]
	return stat, ok, nil
}

func (m *mockStore) RecordExecution(e storage.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.executions = append(m.executions, e)
	return nil
}

func (m *mockStore) ToolMetrics(toolName string) (storage.ToolMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.aggregateLocked(toolName), nil
}

func (m *mockStore) AllToolMetrics() ([]storage.ToolMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	var metrics []storage.ToolMetrics
	for _, e := range m.executions {
		if seen[e.ToolName] {
			continue
		}
		seen[e.ToolName] = true
		metrics = append(metrics, m.aggregateLocked(e.ToolName))
	}
	return metrics, nil
}

func (m *mockStore) aggregateLocked(toolName string) storage.ToolMetrics {
	agg := storage.ToolMetrics{ToolName: toolName}
	var successes int
	var latencySum, ratingSum float64
	for _, e := range m.executions {
		if e.ToolName != toolName {
			continue
		}
		agg.TotalCalls++
		if e.Success {
			successes++
		}
		latencySum += e.LatencyMS
		if e.Rating > 0 {
			agg.RatedCalls++
			ratingSum += float64(e.Rating)
		}
	}
	if agg.TotalCalls > 0 {
		agg.SuccessRate = float64(successes) / float64(agg.TotalCalls)
		agg.AvgLatencyMS = latencySum / float64(agg.TotalCalls)
	}
	if agg.RatedCalls > 0 {
		agg.AvgRating = ratingSum / float64(agg.RatedCalls)
	}
	return agg
}

func (m *mockStore) RecordRecommendation(r storage.Recommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recommendations = append(m.recommendations, r)
	return nil
}

func (m *mockStore) RecordMetric(name string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics = append(m.metrics, storage.MetricPoint{Name: name, Value: value, Timestamp: time.Now()})
	return nil
}

func (m *mockStore) RecentMetrics(name string, limit int) ([]storage.MetricPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var points []storage.MetricPoint
	for i := len(m.metrics) - 1; i >= 0 && len(points) < limit; i-- {
		if m.metrics[i].Name == name {
			points = append(points, m.metrics[i])
		}
	}
	return points, nil
}

func (m *mockStore) Cleanup(retention time.Duration) error { return nil }
func (m *mockStore) Clear() error                          { return nil }
