/*
Package storage provides data models for the learning persistence layer.

These models represent learned policy entries, finalized episodes, mined tool
sequences, execution records, and diagnostic metrics used by the learning
system and the observability commands.
*/
package storage

import "time"

// PolicyEntry is one learned (tool, context) value estimate.
type PolicyEntry struct {
	// ToolName is the tool (action) this entry scores.
	ToolName string `json:"tool_name"`

	// ContextHash identifies the encoded context (state) for this entry.
	ContextHash string `json:"context_hash"`

	// Value is the learned value estimate (Q-value).
	Value float64 `json:"value"`

	// Visits is the number of completed updates applied to this entry.
	Visits int `json:"visits"`

	// LastUpdated is when the entry was last updated.
	LastUpdated time.Time `json:"last_updated"`
}

// PolicyAggregate summarizes all policy entries for a single tool.
type PolicyAggregate struct {
	// ToolName is the tool being summarized.
	ToolName string `json:"tool_name"`

	// Contexts is the number of distinct contexts with an entry for the tool.
	Contexts int `json:"contexts"`

	// TotalVisits is the sum of visit counts across those contexts.
	TotalVisits int `json:"total_visits"`

	// AvgValue is the mean value estimate across contexts.
	AvgValue float64 `json:"avg_value"`

	// MaxValue is the highest value estimate across contexts.
	MaxValue float64 `json:"max_value"`
}

// Episode is a finalized session: the ordered tool sequence and its reward.
type Episode struct {
	// SessionID identifies the session this episode belongs to.
	SessionID string `json:"session_id"`

	// Sequence is the ordered list of tool names executed in the session.
	Sequence []string `json:"sequence"`

	// TotalReward is the cumulative reward over all steps.
	TotalReward float64 `json:"total_reward"`

	// Outcome is "success", "partial", or "failure".
	Outcome string `json:"outcome"`

	// CreatedAt is when the episode was finalized.
	CreatedAt time.Time `json:"created_at"`
}

// SequenceStat is an N-gram of consecutive tools mined from episodes.
type SequenceStat struct {
	// Key is the sequence key, e.g. "get_dimensions->get_members".
	Key string `json:"key"`

	// Count is how many times the sequence has been observed.
	Count int `json:"count"`

	// AvgReward is the running average per-step reward for the sequence.
	AvgReward float64 `json:"avg_reward"`

	// SuccessRate is the fraction of observations from successful episodes.
	SuccessRate float64 `json:"success_rate"`

	// LastSeen is when the sequence was last observed.
	LastSeen time.Time `json:"last_seen"`
}

// Execution is one completed tool call delivered by the execution log.
type Execution struct {
	// ToolName is the tool that was executed.
	ToolName string `json:"tool_name"`

	// SessionID identifies the session the call belongs to.
	SessionID string `json:"session_id"`

	// Success indicates whether the call succeeded.
	Success bool `json:"success"`

	// LatencyMS is the execution time in milliseconds.
	LatencyMS float64 `json:"latency_ms"`

	// Rating is the user's feedback rating (1-5), or 0 if not rated.
	Rating int `json:"rating"`

	// CreatedAt is when the execution completed.
	CreatedAt time.Time `json:"created_at"`
}

// ToolMetrics aggregates execution history for one tool.
type ToolMetrics struct {
	// ToolName is the tool being aggregated.
	ToolName string `json:"tool_name"`

	// TotalCalls is the number of recorded executions.
	TotalCalls int `json:"total_calls"`

	// SuccessRate is the fraction of successful executions (0-1).
	SuccessRate float64 `json:"success_rate"`

	// AvgLatencyMS is the mean execution time in milliseconds.
	AvgLatencyMS float64 `json:"avg_latency_ms"`

	// AvgRating is the mean rating over rated executions, or 0 if none.
	AvgRating float64 `json:"avg_rating"`

	// RatedCalls is the number of executions that carried a rating.
	RatedCalls int `json:"rated_calls"`
}

// Recommendation is a snapshot of one served recommendation, kept for analytics.
type Recommendation struct {
	// RecommendID is a unique identifier for this recommendation (UUID).
	RecommendID string `json:"recommend_id"`

	// SessionID identifies the requesting session.
	SessionID string `json:"session_id"`

	// ContextHash is the encoded context the recommendation was made for.
	ContextHash string `json:"context_hash"`

	// TopTool is the highest-ranked tool returned.
	TopTool string `json:"top_tool"`

	// Candidates is the number of candidate tools considered.
	Candidates int `json:"candidates"`

	// Explored indicates whether an exploration pick was surfaced.
	Explored bool `json:"explored"`

	// CreatedAt is when the recommendation was served.
	CreatedAt time.Time `json:"created_at"`
}

// MetricPoint is a single diagnostic metric sample.
type MetricPoint struct {
	// Name is the metric name, e.g. "reward" or "td_error".
	Name string `json:"name"`

	// Value is the sampled value.
	Value float64 `json:"value"`

	// Timestamp is when the sample was recorded.
	Timestamp time.Time `json:"timestamp"`
}
