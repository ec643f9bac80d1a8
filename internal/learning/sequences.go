package learning

import (
	"fmt"
	"log"
	"strings"

	"github.com/toolsmith-ai/advisor/internal/storage"
)

const (
	// maxNGram is the longest tool N-gram mined from episodes.
	maxNGram = 3

	// minSequenceCount is the minimum observations before a sequence
	// contributes to suggestions.
	minSequenceCount = 2

	// Sequence suggestion score weights.
	seqRewardWeight  = 0.4
	seqSuccessWeight = 0.4
	seqCountWeight   = 0.2
)

// SequenceSuggestion is one next-tool suggestion from sequence patterns.
type SequenceSuggestion struct {
	// ToolName is the suggested next tool.
	ToolName string `json:"tool_name"`

	// Score ranks the suggestion.
	Score float64 `json:"score"`

	// Reason describes the matched sequence.
	Reason string `json:"reason"`
}

// SequenceLearner mines tool N-grams from finalized episodes and suggests
// likely next tools from the accumulated patterns.
type SequenceLearner struct {
	store storage.Storage
}

// NewSequenceLearner creates a learner over the given storage.
func NewSequenceLearner(store storage.Storage) *SequenceLearner {
	return &SequenceLearner{store: store}
}

// RecordEpisode records every 2..maxNGram N-gram of a finalized episode's
// tool sequence, crediting each with the episode's per-step reward.
func (l *SequenceLearner) RecordEpisode(sequence []string, totalReward float64, success bool) {
	if len(sequence) < 2 {
		return
	}

	perStep := totalReward / float64(len(sequence))

	for n := 2; n <= maxNGram && n <= len(sequence); n++ {
		for i := 0; i+n <= len(sequence); i++ {
			key := sequenceKey(sequence[i : i+n])
			if err := l.store.UpsertSequence(key, perStep, success); err != nil {
				log.Printf("Warning: failed to record sequence %s: %v", key, err)
			}
		}
	}
}

// NextToolSuggestions scores each candidate as a continuation of the
// recently executed tools, using the best matching N-gram suffix. Only
// sequences seen at least minSequenceCount times contribute.
func (l *SequenceLearner) NextToolSuggestions(recent, candidates []string, topK int) []SequenceSuggestion {
	if len(recent) == 0 || topK <= 0 {
		return nil
	}

	var suggestions []SequenceSuggestion
	for _, tool := range candidates {
		best, ok := l.bestContinuation(recent, tool)
		if ok {
			suggestions = append(suggestions, best)
		}
	}

	// Highest score first; ties resolve by tool name for stable output.
	for i := 0; i < len(suggestions); i++ {
		for j := i + 1; j < len(suggestions); j++ {
			if suggestions[j].Score > suggestions[i].Score ||
				(suggestions[j].Score == suggestions[i].Score && suggestions[j].ToolName < suggestions[i].ToolName) {
				suggestions[i], suggestions[j] = suggestions[j], suggestions[i]
			}
		}
	}

	if len(suggestions) > topK {
		suggestions = suggestions[:topK]
	}
	return suggestions
}

// bestContinuation finds the strongest N-gram ending in tool that extends
// a suffix of recent.
func (l *SequenceLearner) bestContinuation(recent []string, tool string) (SequenceSuggestion, bool) {
	best := SequenceSuggestion{ToolName: tool}
	found := false

	for n := 1; n < maxNGram && n <= len(recent); n++ {
		prefix := recent[len(recent)-n:]
		key := sequenceKey(append(append([]string{}, prefix...), tool))

		stat, ok, err := l.store.GetSequence(key)
		if err != nil {
			log.Printf("Warning: failed to read sequence %s: %v", key, err)
			continue
		}
		if !ok || stat.Count < minSequenceCount {
			continue
		}

		score := seqRewardWeight*stat.AvgReward +
			seqSuccessWeight*stat.SuccessRate*10 +
			seqCountWeight*minf(float64(stat.Count)/10.0, 1.0)

		if score > best.Score || !found {
			best.Score = score
			best.Reason = fmt.Sprintf("follows %s (%dx, %.0f%% success)",
				sequenceKey(prefix), stat.Count, stat.SuccessRate*100)
			found = true
		}
	}

	return best, found
}

// sequenceKey joins a tool N-gram into its storage key.
func sequenceKey(tools []string) string {
	return strings.Join(tools, "->")
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
