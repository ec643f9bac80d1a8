package learning

import (
	"testing"
)

func TestSequenceLearnerRecordsNGrams(t *testing.T) {
	store := newMockStore()
	learner := NewSequenceLearner(store)

	learner.RecordEpisode([]string{"a", "b", "c"}, 9.0, true)

	// Bigrams a->b, b->c and the trigram a->b->c.
	for _, key := range []string{"a->b", "b->c", "a->b->c"} {
		stat, ok, _ := store.GetSequence(key)
		if !ok {
			t.Errorf("expected sequence %s to be recorded", key)
			continue
		}
		if stat.Count != 1 {
			t.Errorf("sequence %s: expected count 1, got %d", key, stat.Count)
		}
		if stat.AvgReward != 3.0 {
			t.Errorf("sequence %s: expected per-step reward 3.0, got %.2f", key, stat.AvgReward)
		}
		if stat.SuccessRate != 1.0 {
			t.Errorf("sequence %s: expected success rate 1.0, got %.2f", key, stat.SuccessRate)
		}
	}
}

func TestSequenceLearnerShortSequenceIgnored(t *testing.T) {
	store := newMockStore()
	learner := NewSequenceLearner(store)

	learner.RecordEpisode([]string{"a"}, 5.0, true)
	if len(store.sequences) != 0 {
		t.Errorf("single-step episode should record no sequences, got %d", len(store.sequences))
	}
}

func TestNextToolSuggestions(t *testing.T) {
	store := newMockStore()
	learner := NewSequenceLearner(store)

	// Observed twice so it clears the minimum count.
	learner.RecordEpisode([]string{"a", "b"}, 10.0, true)
	learner.RecordEpisode([]string{"a", "b"}, 10.0, true)
	learner.RecordEpisode([]string{"a", "c"}, 2.0, false)
	learner.RecordEpisode([]string{"a", "c"}, 2.0, false)

	suggestions := learner.NextToolSuggestions([]string{"a"}, []string{"b", "c", "d"}, 5)
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].ToolName != "b" {
		t.Errorf("expected b ranked first, got %s", suggestions[0].ToolName)
	}
	if suggestions[0].Score <= suggestions[1].Score {
		t.Errorf("expected b to outscore c: %.2f vs %.2f", suggestions[0].Score, suggestions[1].Score)
	}
	if suggestions[0].Reason == "" {
		t.Error("expected a reason naming the matched sequence")
	}
}

func TestNextToolSuggestionsMinCountGuard(t *testing.T) {
	store := newMockStore()
	learner := NewSequenceLearner(store)

	// Seen only once: below the minimum observation count.
	learner.RecordEpisode([]string{"a", "b"}, 10.0, true)

	suggestions := learner.NextToolSuggestions([]string{"a"}, []string{"b"}, 5)
	if len(suggestions) != 0 {
		t.Errorf("expected no suggestions below the minimum count, got %v", suggestions)
	}
}

func TestNextToolSuggestionsEmptyRecent(t *testing.T) {
	store := newMockStore()
	learner := NewSequenceLearner(store)

	if got := learner.NextToolSuggestions(nil, []string{"a"}, 5); got != nil {
		t.Errorf("expected nil for empty recent tools, got %v", got)
	}
}
