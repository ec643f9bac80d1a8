package storage

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store := NewStorageAt(filepath.Join(t.TempDir(), "advisor.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestInitCreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "advisor.db")
	store := NewStorageAt(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("expected database file at %s: %v", dbPath, err)
	}
}

func TestInitIdempotent(t *testing.T) {
	store := newTestStorage(t)

	if err := store.Init(); err != nil {
		t.Errorf("repeated Init failed: %v", err)
	}
}

func TestGetPolicyDefault(t *testing.T) {
	store := newTestStorage(t)

	entry, err := store.GetPolicy("unseen", "ctx")
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if entry.ToolName != "unseen" || entry.ContextHash != "ctx" {
		t.Errorf("expected key filled in, got %+v", entry)
	}
	if entry.Value != 0 || entry.Visits != 0 {
		t.Errorf("expected zero-valued entry for absent key, got %+v", entry)
	}
}

func TestUpdatePolicyMath(t *testing.T) {
	store := newTestStorage(t)

	// First update starts from zero: Q = alpha * reward.
	entry, err := store.UpdatePolicy("A", "ctx", 10.0, 0.1, 0, 0)
	if err != nil {
		t.Fatalf("UpdatePolicy failed: %v", err)
	}
	if math.Abs(entry.Value-1.0) > 1e-9 {
		t.Errorf("expected value 1.0 after first update, got %.6f", entry.Value)
	}
	if entry.Visits != 1 {
		t.Errorf("expected 1 visit, got %d", entry.Visits)
	}

	// Second update: Q = 1.0 + 0.1*(10 - 1.0) = 1.9.
	entry, err = store.UpdatePolicy("A", "ctx", 10.0, 0.1, 0, 0)
	if err != nil {
		t.Fatalf("UpdatePolicy failed: %v", err)
	}
	if math.Abs(entry.Value-1.9) > 1e-9 {
		t.Errorf("expected value 1.9 after second update, got %.6f", entry.Value)
	}
	if entry.Visits != 2 {
		t.Errorf("expected 2 visits, got %d", entry.Visits)
	}

	// The future-value term enters the target: Q = 1.9 + 0.1*(10 + 0.9*5 - 1.9).
	entry, err = store.UpdatePolicy("A", "ctx", 10.0, 0.1, 0.9, 5.0)
	if err != nil {
		t.Fatalf("UpdatePolicy failed: %v", err)
	}
	expected := 1.9 + 0.1*(10.0+0.9*5.0-1.9)
	if math.Abs(entry.Value-expected) > 1e-9 {
		t.Errorf("expected value %.6f with bootstrap term, got %.6f", expected, entry.Value)
	}
}

func TestUpdatePolicyReadBack(t *testing.T) {
	store := newTestStorage(t)

	store.UpdatePolicy("A", "ctx", 4.0, 0.5, 0, 0)

	entry, err := store.GetPolicy("A", "ctx")
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if math.Abs(entry.Value-2.0) > 1e-9 {
		t.Errorf("expected persisted value 2.0, got %.6f", entry.Value)
	}
	if entry.LastUpdated.IsZero() {
		t.Error("expected last-updated timestamp to be set")
	}
}

func TestUpdatePolicyConcurrent(t *testing.T) {
	store := newTestStorage(t)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.UpdatePolicy("A", "ctx", 10.0, 0.1, 0, 0); err != nil {
				t.Errorf("concurrent UpdatePolicy failed: %v", err)
			}
		}()
	}
	wg.Wait()

	entry, err := store.GetPolicy("A", "ctx")
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if entry.Visits != n {
		t.Errorf("expected visit count %d (one per completed update), got %d", n, entry.Visits)
	}
	if entry.Value <= 0 || entry.Value >= 10.0 {
		t.Errorf("value %.4f outside (0, 10) after %d identical updates", entry.Value, n)
	}
}

func TestPoliciesForContext(t *testing.T) {
	store := newTestStorage(t)

	store.UpdatePolicy("A", "ctx1", 8.0, 1.0, 0, 0)
	store.UpdatePolicy("B", "ctx1", 4.0, 1.0, 0, 0)
	store.UpdatePolicy("A", "ctx2", 2.0, 1.0, 0, 0)

	entries, err := store.PoliciesForContext("ctx1")
	if err != nil {
		t.Fatalf("PoliciesForContext failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for ctx1, got %d", len(entries))
	}
	if math.Abs(entries["A"].Value-8.0) > 1e-9 {
		t.Errorf("expected A value 8.0, got %.4f", entries["A"].Value)
	}
	if math.Abs(entries["B"].Value-4.0) > 1e-9 {
		t.Errorf("expected B value 4.0, got %.4f", entries["B"].Value)
	}
}

func TestTopPolicies(t *testing.T) {
	store := newTestStorage(t)

	store.UpdatePolicy("low", "ctx", 1.0, 1.0, 0, 0)
	store.UpdatePolicy("high", "ctx", 9.0, 1.0, 0, 0)
	store.UpdatePolicy("mid", "ctx", 5.0, 1.0, 0, 0)

	entries, err := store.TopPolicies(2)
	if err != nil {
		t.Fatalf("TopPolicies failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ToolName != "high" || entries[1].ToolName != "mid" {
		t.Errorf("expected [high mid], got [%s %s]", entries[0].ToolName, entries[1].ToolName)
	}
}

func TestPolicyAggregateSummary(t *testing.T) {
	store := newTestStorage(t)

	store.UpdatePolicy("A", "ctx1", 4.0, 1.0, 0, 0)
	store.UpdatePolicy("A", "ctx1", 4.0, 1.0, 0, 0)
	store.UpdatePolicy("A", "ctx2", 8.0, 1.0, 0, 0)
	store.UpdatePolicy("B", "ctx1", 100.0, 1.0, 0, 0)

	agg, err := store.PolicyAggregate("A")
	if err != nil {
		t.Fatalf("PolicyAggregate failed: %v", err)
	}
	if agg.Contexts != 2 {
		t.Errorf("expected 2 contexts, got %d", agg.Contexts)
	}
	if agg.TotalVisits != 3 {
		t.Errorf("expected 3 total visits, got %d", agg.TotalVisits)
	}
	if math.Abs(agg.AvgValue-6.0) > 1e-9 {
		t.Errorf("expected avg value 6.0, got %.4f", agg.AvgValue)
	}
	if math.Abs(agg.MaxValue-8.0) > 1e-9 {
		t.Errorf("expected max value 8.0, got %.4f", agg.MaxValue)
	}
}

func TestEpisodeRoundTrip(t *testing.T) {
	store := newTestStorage(t)

	saved := Episode{
		SessionID:   "s1",
		Sequence:    []string{"a", "b", "c"},
		TotalReward: 22.5,
		Outcome:     "success",
		CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.SaveEpisode(saved); err != nil {
		t.Fatalf("SaveEpisode failed: %v", err)
	}

	ep, found, err := store.GetEpisode("s1")
	if err != nil {
		t.Fatalf("GetEpisode failed: %v", err)
	}
	if !found {
		t.Fatal("expected episode to be found")
	}
	if len(ep.Sequence) != 3 || ep.Sequence[0] != "a" || ep.Sequence[2] != "c" {
		t.Errorf("expected sequence [a b c], got %v", ep.Sequence)
	}
	if math.Abs(ep.TotalReward-22.5) > 1e-9 {
		t.Errorf("expected reward 22.5, got %.4f", ep.TotalReward)
	}
	if ep.Outcome != "success" {
		t.Errorf("expected success outcome, got %s", ep.Outcome)
	}
	if !ep.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("expected created-at %v, got %v", saved.CreatedAt, ep.CreatedAt)
	}

	_, found, err = store.GetEpisode("missing")
	if err != nil {
		t.Fatalf("GetEpisode failed: %v", err)
	}
	if found {
		t.Error("expected missing session to report not found")
	}
}

func TestSaveEpisodeRejectsRewrite(t *testing.T) {
	store := newTestStorage(t)

	first := Episode{SessionID: "s1", Sequence: []string{"a"}, TotalReward: 5.0, Outcome: "success"}
	if err := store.SaveEpisode(first); err != nil {
		t.Fatalf("SaveEpisode failed: %v", err)
	}

	second := Episode{SessionID: "s1", Sequence: []string{"x", "y"}, TotalReward: -1.0, Outcome: "failure"}
	if err := store.SaveEpisode(second); err == nil {
		t.Fatal("expected rewrite of a finalized episode to be rejected")
	}

	ep, _, err := store.GetEpisode("s1")
	if err != nil {
		t.Fatalf("GetEpisode failed: %v", err)
	}
	if ep.Outcome != "success" || len(ep.Sequence) != 1 {
		t.Errorf("rejected rewrite mutated the record: %+v", ep)
	}
}

func TestSuccessfulEpisodes(t *testing.T) {
	store := newTestStorage(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	episodes := []Episode{
		{SessionID: "s1", Sequence: []string{"a", "b"}, Outcome: "success", CreatedAt: base},
		{SessionID: "s2", Sequence: []string{"c"}, Outcome: "failure", CreatedAt: base.Add(time.Minute)},
		{SessionID: "s3", Sequence: []string{"b", "c"}, Outcome: "success", CreatedAt: base.Add(2 * time.Minute)},
		{SessionID: "s4", Sequence: []string{"a"}, Outcome: "success", CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, ep := range episodes {
		if err := store.SaveEpisode(ep); err != nil {
			t.Fatalf("SaveEpisode failed: %v", err)
		}
	}

	all, err := store.SuccessfulEpisodes("", 10)
	if err != nil {
		t.Fatalf("SuccessfulEpisodes failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 successful episodes, got %d", len(all))
	}
	if all[0].SessionID != "s4" || all[2].SessionID != "s1" {
		t.Errorf("expected most recent first, got %s..%s", all[0].SessionID, all[2].SessionID)
	}

	filtered, err := store.SuccessfulEpisodes("b", 10)
	if err != nil {
		t.Fatalf("SuccessfulEpisodes failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 episodes containing b, got %d", len(filtered))
	}
	for _, ep := range filtered {
		if !containsTool(ep.Sequence, "b") {
			t.Errorf("episode %s does not contain b: %v", ep.SessionID, ep.Sequence)
		}
	}
}

func TestUpsertSequenceRunningAverages(t *testing.T) {
	store := newTestStorage(t)

	if err := store.UpsertSequence("a->b", 2.0, true); err != nil {
		t.Fatalf("UpsertSequence failed: %v", err)
	}
	if err := store.UpsertSequence("a->b", 4.0, false); err != nil {
		t.Fatalf("UpsertSequence failed: %v", err)
	}

	stat, found, err := store.GetSequence("a->b")
	if err != nil {
		t.Fatalf("GetSequence failed: %v", err)
	}
	if !found {
		t.Fatal("expected sequence to be found")
	}
	if stat.Count != 2 {
		t.Errorf("expected count 2, got %d", stat.Count)
	}
	if math.Abs(stat.AvgReward-3.0) > 1e-9 {
		t.Errorf("expected avg reward 3.0, got %.4f", stat.AvgReward)
	}
	if math.Abs(stat.SuccessRate-0.5) > 1e-9 {
		t.Errorf("expected success rate 0.5, got %.4f", stat.SuccessRate)
	}

	_, found, err = store.GetSequence("never->seen")
	if err != nil {
		t.Fatalf("GetSequence failed: %v", err)
	}
	if found {
		t.Error("expected unobserved sequence to report not found")
	}
}

func TestToolMetricsAggregates(t *testing.T) {
	store := newTestStorage(t)

	executions := []Execution{
		{ToolName: "A", SessionID: "s1", Success: true, LatencyMS: 100, Rating: 5},
		{ToolName: "A", SessionID: "s1", Success: true, LatencyMS: 200},
		{ToolName: "A", SessionID: "s2", Success: false, LatencyMS: 300},
		{ToolName: "B", SessionID: "s2", Success: true, LatencyMS: 50, Rating: 3},
	}
	for _, e := range executions {
		if err := store.RecordExecution(e); err != nil {
			t.Fatalf("RecordExecution failed: %v", err)
		}
	}

	m, err := store.ToolMetrics("A")
	if err != nil {
		t.Fatalf("ToolMetrics failed: %v", err)
	}
	if m.TotalCalls != 3 {
		t.Errorf("expected 3 calls, got %d", m.TotalCalls)
	}
	if math.Abs(m.SuccessRate-2.0/3.0) > 1e-9 {
		t.Errorf("expected success rate 2/3, got %.4f", m.SuccessRate)
	}
	if math.Abs(m.AvgLatencyMS-200.0) > 1e-9 {
		t.Errorf("expected avg latency 200, got %.4f", m.AvgLatencyMS)
	}
	// The rating average covers rated calls only.
	if math.Abs(m.AvgRating-5.0) > 1e-9 {
		t.Errorf("expected avg rating 5.0, got %.4f", m.AvgRating)
	}
	if m.RatedCalls != 1 {
		t.Errorf("expected 1 rated call, got %d", m.RatedCalls)
	}

	all, err := store.AllToolMetrics()
	if err != nil {
		t.Fatalf("AllToolMetrics failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected metrics for 2 tools, got %d", len(all))
	}
	if all[0].ToolName != "A" || all[1].ToolName != "B" {
		t.Errorf("expected [A B], got [%s %s]", all[0].ToolName, all[1].ToolName)
	}
	if all[1].TotalCalls != 1 || math.Abs(all[1].AvgRating-3.0) > 1e-9 {
		t.Errorf("unexpected aggregate for B: %+v", all[1])
	}
}

func TestToolMetricsEmpty(t *testing.T) {
	store := newTestStorage(t)

	m, err := store.ToolMetrics("unseen")
	if err != nil {
		t.Fatalf("ToolMetrics failed: %v", err)
	}
	if m.TotalCalls != 0 || m.SuccessRate != 0 || m.AvgLatencyMS != 0 || m.AvgRating != 0 {
		t.Errorf("expected zero aggregates for unseen tool, got %+v", m)
	}
}

func TestRecordRecommendation(t *testing.T) {
	store := newTestStorage(t)

	err := store.RecordRecommendation(Recommendation{
		RecommendID: "r1",
		SessionID:   "s1",
		ContextHash: "ctx",
		TopTool:     "A",
		Candidates:  3,
		Explored:    true,
	})
	if err != nil {
		t.Errorf("RecordRecommendation failed: %v", err)
	}
}

func TestRecentMetrics(t *testing.T) {
	store := newTestStorage(t)

	for _, v := range []float64{1.0, 2.0, 3.0} {
		if err := store.RecordMetric("reward", v); err != nil {
			t.Fatalf("RecordMetric failed: %v", err)
		}
	}
	store.RecordMetric("td_error", 0.5)

	points, err := store.RecentMetrics("reward", 2)
	if err != nil {
		t.Fatalf("RecentMetrics failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Value != 3.0 || points[1].Value != 2.0 {
		t.Errorf("expected most recent first [3 2], got [%.1f %.1f]", points[0].Value, points[1].Value)
	}
	for _, p := range points {
		if p.Name != "reward" {
			t.Errorf("expected reward samples only, got %s", p.Name)
		}
	}
}

func TestCleanupRetention(t *testing.T) {
	store := newTestStorage(t)

	old := Execution{ToolName: "A", Success: true, CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	recent := Execution{ToolName: "A", Success: true}
	store.RecordExecution(old)
	store.RecordExecution(recent)
	store.RecordMetric("reward", 1.0)

	if err := store.Cleanup(24 * time.Hour); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	m, _ := store.ToolMetrics("A")
	if m.TotalCalls != 1 {
		t.Errorf("expected 1 execution after cleanup, got %d", m.TotalCalls)
	}

	points, _ := store.RecentMetrics("reward", 10)
	if len(points) != 1 {
		t.Errorf("expected recent metric to survive cleanup, got %d points", len(points))
	}
}

func TestClearRemovesAllState(t *testing.T) {
	store := newTestStorage(t)

	store.UpdatePolicy("A", "ctx", 5.0, 1.0, 0, 0)
	store.SaveEpisode(Episode{SessionID: "s1", Sequence: []string{"a"}, Outcome: "success"})
	store.UpsertSequence("a->b", 1.0, true)
	store.RecordExecution(Execution{ToolName: "A", Success: true})
	store.RecordMetric("reward", 1.0)

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	entry, _ := store.GetPolicy("A", "ctx")
	if entry.Visits != 0 {
		t.Error("expected policies to be cleared")
	}
	if _, found, _ := store.GetEpisode("s1"); found {
		t.Error("expected episodes to be cleared")
	}
	if _, found, _ := store.GetSequence("a->b"); found {
		t.Error("expected sequences to be cleared")
	}
	m, _ := store.ToolMetrics("A")
	if m.TotalCalls != 0 {
		t.Error("expected executions to be cleared")
	}
	if points, _ := store.RecentMetrics("reward", 10); len(points) != 0 {
		t.Error("expected metrics to be cleared")
	}
}

func TestDisabledStorageNoOps(t *testing.T) {
	store := &SQLiteStorage{}

	if err := store.Init(); err != nil {
		t.Errorf("Init on disabled storage should be a no-op: %v", err)
	}
	if _, err := store.UpdatePolicy("A", "ctx", 1.0, 0.1, 0, 0); err != nil {
		t.Errorf("UpdatePolicy on disabled storage should be a no-op: %v", err)
	}
	entry, err := store.GetPolicy("A", "ctx")
	if err != nil || entry.Visits != 0 {
		t.Errorf("GetPolicy on disabled storage should return a zero entry: %+v, %v", entry, err)
	}
	if err := store.SaveEpisode(Episode{SessionID: "s1"}); err != nil {
		t.Errorf("SaveEpisode on disabled storage should be a no-op: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close on disabled storage should be a no-op: %v", err)
	}
}
