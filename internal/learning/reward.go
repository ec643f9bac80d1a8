/*
Package learning implements the tool-selection learning engine: reward
calculation, context encoding, a Q-learning policy over persistent storage,
an epsilon-greedy tool selector, and per-session episode tracking with
sequence mining.

All randomness is injected through seeded generators so selection behavior
is reproducible in tests. All persistence goes through storage.Storage.
*/
package learning

import (
	"log"
	"time"
)

// Outcome classifies the result of an execution or a finished session.
type Outcome string

const (
	// OutcomeSuccess marks a successful execution or session.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailure marks a failed execution or session.
	OutcomeFailure Outcome = "failure"

	// OutcomePartial marks a session that achieved part of its goal.
	// It applies to episodes only, never to single executions.
	OutcomePartial Outcome = "partial"

	// OutcomeUnknown marks a cancelled or timed-out execution whose real
	// result never became known. Such records carry no learning signal.
	OutcomeUnknown Outcome = "unknown"
)

// ExecutionRecord is one completed tool call delivered by the execution log.
type ExecutionRecord struct {
	// ToolName is the tool that was executed.
	ToolName string

	// SessionID identifies the session the call belongs to.
	SessionID string

	// Outcome is the definitive result of the call.
	Outcome Outcome

	// LatencyMS is the execution time in milliseconds.
	LatencyMS float64

	// Rating is the user's feedback rating (1-5), or 0 if not rated.
	Rating int

	// Timestamp is when the execution completed.
	Timestamp time.Time
}

// RewardConfig holds the reward weights. Success is rewarded more than
// failure is penalized, so tools are not punished into oblivion for
// occasional errors.
type RewardConfig struct {
	// SuccessReward is added on success.
	SuccessReward float64 `json:"successReward"`

	// FailurePenalty is subtracted on failure.
	FailurePenalty float64 `json:"failurePenalty"`

	// NeutralRating is the rating treated as neither good nor bad.
	NeutralRating float64 `json:"neutralRating"`

	// RatingWeight scales the distance from the neutral rating.
	RatingWeight float64 `json:"ratingWeight"`

	// LatencyWeight scales the per-second latency penalty.
	LatencyWeight float64 `json:"latencyWeight"`

	// EfficiencyBonus is added when a call beats the tool's historical
	// average latency by the efficiency threshold.
	EfficiencyBonus float64 `json:"efficiencyBonus"`

	// EfficiencyThreshold is the fraction of the historical average a
	// call must stay under to earn the bonus.
	EfficiencyThreshold float64 `json:"efficiencyThreshold"`

	// MinReward and MaxReward bound the final reward.
	MinReward float64 `json:"minReward"`
	MaxReward float64 `json:"maxReward"`
}

// DefaultRewardConfig returns the standard reward weights.
func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		SuccessReward:       10.0,
		FailurePenalty:      5.0,
		NeutralRating:       3.0,
		RatingWeight:        2.0,
		LatencyWeight:       0.1,
		EfficiencyBonus:     2.0,
		EfficiencyThreshold: 0.8,
		MinReward:           -20.0,
		MaxReward:           20.0,
	}
}

// Calculate maps one completed execution to a bounded scalar reward.
//
// reward = success term + rating term + latency penalty + efficiency bonus.
// avgLatencyMS is the tool's historical average latency; pass 0 or less
// when no history exists (cold start), which disables the efficiency bonus.
// Pure and side-effect-free apart from a diagnostic log on invalid input.
func (c RewardConfig) Calculate(rec ExecutionRecord, avgLatencyMS float64) float64 {
	latency := rec.LatencyMS
	if latency < 0 {
		log.Printf("Warning: negative latency %.1fms for tool %s, clamping to 0", latency, rec.ToolName)
		latency = 0
	}

	var reward float64
	if rec.Outcome == OutcomeSuccess {
		reward += c.SuccessReward
	} else {
		reward -= c.FailurePenalty
	}

	if rec.Rating > 0 {
		reward += (float64(rec.Rating) - c.NeutralRating) * c.RatingWeight
	}

	reward -= c.LatencyWeight * (latency / 1000.0)

	if avgLatencyMS > 0 && latency < avgLatencyMS*c.EfficiencyThreshold {
		reward += c.EfficiencyBonus
	}

	if reward < c.MinReward {
		reward = c.MinReward
	}
	if reward > c.MaxReward {
		reward = c.MaxReward
	}

	return reward
}
