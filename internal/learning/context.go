package learning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Step buckets keep the context state space bounded: the raw step count
// collapses into coarse session-depth ranges.
const (
	bucketFirstCall = "first_call"
	bucketEarly     = "early"
	bucketDeep      = "deep"

	earlySessionLimit = 4
)

// canonicalContext is the structure that gets hashed into a context id.
// Field order is fixed by the struct definition, keywords are pre-sorted,
// so equal canonical inputs always serialize to identical bytes.
type canonicalContext struct {
	Keywords     []string `json:"keywords"`
	PreviousTool string   `json:"previous_tool"`
	StepBucket   string   `json:"step_bucket"`
	Vocabulary   string   `json:"vocabulary"`
}

// EncodeContext maps situational features to a stable context id.
//
// The query is normalized into a sorted, stop-word-filtered keyword set,
// the step count is bucketed, and the canonical structure is hashed with
// SHA256. The same canonical input yields the same id across restarts.
func EncodeContext(query, previousTool string, sessionStep int) string {
	ctx := canonicalContext{
		Keywords:     Keywords(query),
		PreviousTool: previousTool,
		StepBucket:   stepBucket(sessionStep),
		Vocabulary:   stopwordsVersion,
	}
	if ctx.Keywords == nil {
		ctx.Keywords = []string{}
	}

	data, err := json.Marshal(ctx)
	if err != nil {
		// canonicalContext contains only strings; Marshal cannot fail.
		return ""
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// stepBucket collapses a raw session step count into a coarse range.
func stepBucket(step int) string {
	switch {
	case step <= 0:
		return bucketFirstCall
	case step < earlySessionLimit:
		return bucketEarly
	default:
		return bucketDeep
	}
}
