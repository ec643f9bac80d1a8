package learning

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/toolsmith-ai/advisor/internal/storage"
)

// BootstrapMode selects the Q-learning next-state model.
type BootstrapMode string

const (
	// BootstrapSingle treats every update as single-step: the future-value
	// term is zero and the policy degenerates to an exponentially-weighted
	// average of observed rewards. This is the default.
	BootstrapSingle BootstrapMode = "single"

	// BootstrapEpisode bootstraps within the session: the future-value
	// term is the max learned value over candidate tools at the successor
	// context.
	BootstrapEpisode BootstrapMode = "episode"
)

// Catalog enumerates the registered tools available for selection. Tool
// names are opaque to the learning engine.
type Catalog interface {
	List() []string
}

// Config holds the learning parameters.
type Config struct {
	// Alpha is the Q-learning learning rate.
	Alpha float64 `json:"alpha"`

	// Gamma is the Q-learning discount factor.
	Gamma float64 `json:"gamma"`

	// Epsilon is the initial exploration rate.
	Epsilon float64 `json:"epsilon"`

	// EpsilonDecay is applied to epsilon after every selection.
	EpsilonDecay float64 `json:"epsilonDecay"`

	// MinEpsilon is the exploration rate floor.
	MinEpsilon float64 `json:"minEpsilon"`

	// MinSamples is the execution count below which only aggregate
	// success rate informs confidence.
	MinSamples int `json:"minSamples"`

	// Bootstrap selects the next-state model for policy updates.
	Bootstrap BootstrapMode `json:"bootstrap"`

	// Reward holds the reward weights.
	Reward RewardConfig `json:"reward"`
}

// DefaultConfig returns the standard learning parameters.
func DefaultConfig() Config {
	return Config{
		Alpha:        0.1,
		Gamma:        0.9,
		Epsilon:      0.1,
		EpsilonDecay: 0.995,
		MinEpsilon:   0.01,
		MinSamples:   5,
		Bootstrap:    BootstrapSingle,
		Reward:       DefaultRewardConfig(),
	}
}

// Service coordinates the learning components behind the three operations
// the orchestrator calls: Recommend, OnExecutionComplete, FinalizeSession.
//
// Failures inside the service are isolated: a broken storage layer degrades
// recommendations to neutral output and drops updates with a logged
// warning, but never blocks or fails the surrounding tool execution.
type Service struct {
	store     storage.Storage
	catalog   Catalog
	cfg       Config
	selector  *Selector
	episodes  *EpisodeTracker
	sequences *SequenceLearner
	metrics   *MetricsTracker

	mu          sync.Mutex
	lastContext map[string]string
	lastQuery   map[string]string
}

// NewService wires a learning service over the given storage and catalog.
// The seed drives the exploration random source; any fixed seed makes
// selection reproducible.
func NewService(store storage.Storage, catalog Catalog, cfg Config, seed int64) *Service {
	return &Service{
		store:       store,
		catalog:     catalog,
		cfg:         cfg,
		selector:    NewSelector(cfg.Epsilon, cfg.EpsilonDecay, cfg.MinEpsilon, cfg.MinSamples, seed),
		episodes:    NewEpisodeTracker(store),
		sequences:   NewSequenceLearner(store),
		metrics:     NewMetricsTracker(store),
		lastContext: make(map[string]string),
		lastQuery:   make(map[string]string),
	}
}

// Close stops background processing and flushes pending diagnostics.
func (s *Service) Close() {
	s.metrics.Stop()
}

// Recommend returns the registered tools ranked for the session's current
// context. An empty catalog yields an empty list. Cold start (no learned
// data yet) degrades to neutral recommendations, never to an error.
func (s *Service) Recommend(sessionID, query, previousTool string) []Recommendation {
	candidates := s.catalog.List()
	if len(candidates) == 0 {
		return []Recommendation{}
	}

	if previousTool == "" {
		previousTool = s.episodes.LastTool(sessionID)
	}
	contextHash := EncodeContext(query, previousTool, s.episodes.StepCount(sessionID))

	policies, err := s.store.PoliciesForContext(contextHash)
	if err != nil {
		log.Printf("Warning: policy lookup failed, recommending without learned values: %v", err)
		policies = map[string]storage.PolicyEntry{}
	}

	stats, err := s.toolStats()
	if err != nil {
		log.Printf("Warning: aggregate stats unavailable, treating tools as unsampled: %v", err)
		stats = map[string]storage.ToolMetrics{}
	}

	recs := s.selector.Rank(candidates, contextHash, policies, stats)

	s.mu.Lock()
	s.lastContext[sessionID] = contextHash
	s.lastQuery[sessionID] = query
	s.mu.Unlock()

	if len(recs) > 0 {
		snapshot := storage.Recommendation{
			RecommendID: uuid.NewString(),
			SessionID:   sessionID,
			ContextHash: contextHash,
			TopTool:     recs[0].ToolName,
			Candidates:  len(candidates),
			Explored:    recs[0].Explored,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.store.RecordRecommendation(snapshot); err != nil {
			log.Printf("Warning: failed to record recommendation: %v", err)
		}
	}

	return recs
}

// OnExecutionComplete ingests one completed execution: it computes the
// reward, applies the Q-learning policy update, and appends the episode
// step. Records without a definitive outcome are skipped. Malformed input
// is corrected defensively; persistence failures are returned as non-fatal
// errors after the in-memory episode step is still applied.
func (s *Service) OnExecutionComplete(rec ExecutionRecord) error {
	if rec.ToolName == "" {
		log.Printf("Warning: dropping execution record without tool name (session %s)", rec.SessionID)
		return nil
	}
	if rec.Outcome != OutcomeSuccess && rec.Outcome != OutcomeFailure {
		log.Printf("Warning: dropping execution of %s with indefinite outcome %q", rec.ToolName, rec.Outcome)
		return nil
	}
	if rec.LatencyMS < 0 {
		rec.LatencyMS = 0
	}

	// Historical average latency is read before this record lands, so the
	// efficiency bonus compares against prior history only.
	avgLatency := 0.0
	if m, err := s.store.ToolMetrics(rec.ToolName); err == nil && m.TotalCalls > 0 {
		avgLatency = m.AvgLatencyMS
	}

	reward := s.cfg.Reward.Calculate(rec, avgLatency)

	if err := s.store.RecordExecution(storage.Execution{
		ToolName:  rec.ToolName,
		SessionID: rec.SessionID,
		Success:   rec.Outcome == OutcomeSuccess,
		LatencyMS: rec.LatencyMS,
		Rating:    rec.Rating,
		CreatedAt: rec.Timestamp,
	}); err != nil {
		log.Printf("Warning: failed to record execution: %v", err)
	}

	contextHash, query := s.executionContext(rec.SessionID)

	var bestNext float64
	if s.cfg.Bootstrap == BootstrapEpisode {
		bestNext = s.bestNextValue(query, rec.ToolName, s.episodes.StepCount(rec.SessionID)+1)
	}

	before, err := s.store.GetPolicy(rec.ToolName, contextHash)
	if err != nil {
		log.Printf("Warning: failed to read policy before update: %v", err)
	}

	stepErr := s.episodes.RecordStep(rec.SessionID, rec.ToolName, reward)
	if stepErr != nil {
		// Late record after finalize: the episode is immutable, and the
		// policy must not learn from a step outside any episode.
		return stepErr
	}

	if _, err := s.store.UpdatePolicy(rec.ToolName, contextHash, reward, s.cfg.Alpha, s.cfg.Gamma, bestNext); err != nil {
		return fmt.Errorf("policy update failed: %w", err)
	}

	// Advance the session context chain so the next update still has a
	// consistent state even if no Recommend call happens in between.
	next := EncodeContext(query, rec.ToolName, s.episodes.StepCount(rec.SessionID))
	s.mu.Lock()
	s.lastContext[rec.SessionID] = next
	s.mu.Unlock()

	s.metrics.Record("reward", reward)
	s.metrics.Record("td_error", math.Abs(reward+s.cfg.Gamma*bestNext-before.Value))
	s.metrics.Record("exploration_rate", s.selector.Epsilon())

	return nil
}

// FinalizeSession closes a session's episode with the given outcome and
// mines its tool sequence. Repeated calls are idempotent: they return the
// already-persisted episode unchanged.
func (s *Service) FinalizeSession(sessionID string, outcome Outcome) (storage.Episode, error) {
	ep, already, err := s.episodes.Finalize(sessionID, outcome)
	if already {
		return ep, nil
	}

	s.mu.Lock()
	delete(s.lastContext, sessionID)
	delete(s.lastQuery, sessionID)
	s.mu.Unlock()

	s.sequences.RecordEpisode(ep.Sequence, ep.TotalReward, outcome == OutcomeSuccess)
	s.metrics.Record("episode_reward", ep.TotalReward)
	s.metrics.Record("episode_length", float64(len(ep.Sequence)))

	return ep, err
}

// Confidence reports the squashed learned value for a (tool, context) key
// in [0, 1], for observability collaborators.
func (s *Service) Confidence(toolName, contextHash string) float64 {
	entry, err := s.store.GetPolicy(toolName, contextHash)
	if err != nil {
		log.Printf("Warning: failed to read policy for confidence: %v", err)
		return 0.5
	}
	return logistic(entry.Value / s.selector.QScale)
}

// SuccessfulSequences returns recent successful episodes, optionally
// filtered by tool, most recent first.
func (s *Service) SuccessfulSequences(toolName string, limit int) ([]storage.Episode, error) {
	return s.episodes.SuccessfulSequences(toolName, limit)
}

// NextToolSuggestions returns sequence-pattern suggestions for the
// session's recent tools.
func (s *Service) NextToolSuggestions(sessionID string, topK int) []SequenceSuggestion {
	recent := s.episodes.RecentTools(sessionID, maxNGram-1)
	return s.sequences.NextToolSuggestions(recent, s.catalog.List(), topK)
}

// LearningStats summarizes learning progress for diagnostics.
func (s *Service) LearningStats() map[string]any {
	selections, explorations := s.selector.Stats()
	stats := map[string]any{
		"epsilon":      s.selector.Epsilon(),
		"selections":   selections,
		"explorations": explorations,
		"bootstrap":    string(s.cfg.Bootstrap),
	}

	for _, name := range []string{"reward", "td_error", "episode_reward"} {
		count, mean, min, max, latest := s.metrics.Summary(name, 100)
		if count == 0 {
			continue
		}
		stats[name] = map[string]float64{
			"count":  float64(count),
			"mean":   mean,
			"min":    min,
			"max":    max,
			"latest": latest,
		}
	}

	return stats
}

// executionContext resolves the context the pending execution was selected
// under: the one cached at Recommend time, or a freshly encoded one from
// session state when no Recommend preceded the execution.
func (s *Service) executionContext(sessionID string) (contextHash, query string) {
	s.mu.Lock()
	contextHash = s.lastContext[sessionID]
	query = s.lastQuery[sessionID]
	s.mu.Unlock()

	if contextHash == "" {
		contextHash = EncodeContext(query, s.episodes.LastTool(sessionID), s.episodes.StepCount(sessionID))
	}
	return contextHash, query
}

// bestNextValue computes max Q over all candidate tools at the successor
// context, the intra-episode bootstrap term.
func (s *Service) bestNextValue(query, executedTool string, nextStep int) float64 {
	nextContext := EncodeContext(query, executedTool, nextStep)
	policies, err := s.store.PoliciesForContext(nextContext)
	if err != nil {
		log.Printf("Warning: failed to read successor policies: %v", err)
		return 0
	}

	best := 0.0
	for _, entry := range policies {
		if entry.Value > best {
			best = entry.Value
		}
	}
	return best
}

// toolStats fetches aggregate execution stats keyed by tool name.
func (s *Service) toolStats() (map[string]storage.ToolMetrics, error) {
	all, err := s.store.AllToolMetrics()
	if err != nil {
		return nil, err
	}

	stats := make(map[string]storage.ToolMetrics, len(all))
	for _, m := range all {
		stats[m.ToolName] = m
	}
	return stats, nil
}
