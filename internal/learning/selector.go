package learning

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/toolsmith-ai/advisor/internal/storage"
)

const (
	// Confidence blend weights for tools with enough samples.
	qValueWeight      = 0.5
	successRateWeight = 0.3
	latencyWeight     = 0.2

	// lowInfoWeight dampens the success-rate signal for tools below the
	// minimum sample threshold, keeping their confidence near neutral.
	lowInfoWeight = 0.1

	// exploitTopSize is the size of the exploit-ranked top set; an
	// exploration pick promotes a tool from outside it.
	exploitTopSize = 3
)

// Recommendation is one ranked tool with its confidence and rationale.
type Recommendation struct {
	// ToolName is the recommended tool.
	ToolName string `json:"tool_name"`

	// Confidence is the blended selection confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Rationale lists the signals behind the confidence.
	Rationale string `json:"rationale"`

	// Explored is true when the tool was surfaced by exploration
	// ahead of its natural rank.
	Explored bool `json:"explored"`
}

// Selector ranks candidate tools by blending learned policy values with
// aggregate execution statistics under an epsilon-greedy policy.
//
// The random source is injected at construction so exploration is
// reproducible with a fixed seed. Selector never executes a tool.
type Selector struct {
	// MinSamples is the execution count below which a tool's learned
	// value is ignored and only the flat success rate is used.
	MinSamples int

	// QScale is the logistic squashing scale for learned values.
	QScale float64

	mu           sync.Mutex
	epsilon      float64
	minEpsilon   float64
	epsilonDecay float64
	rng          *rand.Rand
	selections   int
	explorations int
}

// NewSelector creates a selector with the given exploration parameters and
// a seeded random source.
func NewSelector(epsilon, epsilonDecay, minEpsilon float64, minSamples int, seed int64) *Selector {
	return &Selector{
		MinSamples:   minSamples,
		QScale:       3.0,
		epsilon:      epsilon,
		minEpsilon:   minEpsilon,
		epsilonDecay: epsilonDecay,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Rank returns candidates ordered by confidence, with an occasional
// exploration pick promoted to the front.
//
// Tools with no aggregate stats are treated as zero-sample tools. An empty
// candidate set yields an empty result, not an error.
func (s *Selector) Rank(candidates []string, contextHash string, policies map[string]storage.PolicyEntry, stats map[string]storage.ToolMetrics) []Recommendation {
	if len(candidates) == 0 {
		return []Recommendation{}
	}

	recs := make([]Recommendation, 0, len(candidates))
	for _, tool := range candidates {
		recs = append(recs, s.score(tool, policies[tool], stats[tool], candidates, stats))
	}

	// Deterministic order: confidence desc, then visit count desc, then
	// lexical tool name.
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Confidence != recs[j].Confidence {
			return recs[i].Confidence > recs[j].Confidence
		}
		vi := policies[recs[i].ToolName].Visits
		vj := policies[recs[j].ToolName].Visits
		if vi != vj {
			return vi > vj
		}
		return recs[i].ToolName < recs[j].ToolName
	})

	s.mu.Lock()
	s.selections++
	explore := s.rng.Float64() < s.epsilon
	var pick int
	if explore {
		pick = s.rng.Intn(len(recs))
	}
	s.epsilon = math.Max(s.minEpsilon, s.epsilon*s.epsilonDecay)
	s.mu.Unlock()

	if explore {
		if idx, ok := s.explorationIndex(recs, stats, pick); ok {
			promoted := recs[idx]
			promoted.Explored = true
			promoted.Rationale = "exploration: " + promoted.Rationale
			copy(recs[1:idx+1], recs[:idx])
			recs[0] = promoted
			s.mu.Lock()
			s.explorations++
			s.mu.Unlock()
		}
	}

	return recs
}

// score computes confidence and rationale for one tool.
func (s *Selector) score(tool string, policy storage.PolicyEntry, m storage.ToolMetrics, candidates []string, stats map[string]storage.ToolMetrics) Recommendation {
	if m.TotalCalls < s.MinSamples {
		// Low-information prior: flat success rate only, centered at
		// neutral. The learned value must not leak in below threshold.
		successRate := 0.5
		if m.TotalCalls > 0 {
			successRate = m.SuccessRate
		}
		return Recommendation{
			ToolName:   tool,
			Confidence: clamp01(0.5 + lowInfoWeight*(successRate-0.5)),
			Rationale:  "insufficient samples",
		}
	}

	qScore := logistic(policy.Value / s.QScale)
	latScore := latencyPercentile(tool, m, candidates, stats, s.MinSamples)
	confidence := clamp01(qValueWeight*qScore + successRateWeight*m.SuccessRate + latencyWeight*latScore)

	var signals []string
	if qScore > 0.6 {
		signals = append(signals, "high learned value")
	}
	if m.SuccessRate > 0.8 {
		signals = append(signals, "high success rate")
	}
	if m.AvgRating >= 4.0 {
		signals = append(signals, "high user rating")
	}
	if latScore > 0.7 {
		signals = append(signals, "fast execution")
	}

	rationale := "mixed signals"
	if len(signals) > 0 {
		rationale = strings.Join(signals, ", ")
	}

	return Recommendation{
		ToolName:   tool,
		Confidence: confidence,
		Rationale:  rationale,
	}
}

// explorationIndex finds the exploration pick: a tool outside the exploit
// top set with at least one recorded sample. pick spreads the starting
// offset so repeated explorations don't always promote the same tool.
func (s *Selector) explorationIndex(recs []Recommendation, stats map[string]storage.ToolMetrics, pick int) (int, bool) {
	top := exploitTopSize
	if top >= len(recs) {
		return 0, false
	}

	eligible := make([]int, 0, len(recs)-top)
	for i := top; i < len(recs); i++ {
		if stats[recs[i].ToolName].TotalCalls >= 1 {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return 0, false
	}

	return eligible[pick%len(eligible)], true
}

// latencyPercentile scores a tool by how its average latency ranks among
// candidates with enough samples: 1.0 means fastest, approaching 0 means
// slowest.
func latencyPercentile(tool string, m storage.ToolMetrics, candidates []string, stats map[string]storage.ToolMetrics, minSamples int) float64 {
	slower := 0
	total := 0
	for _, other := range candidates {
		om, ok := stats[other]
		if !ok || om.TotalCalls < minSamples {
			continue
		}
		total++
		if om.AvgLatencyMS >= m.AvgLatencyMS {
			slower++
		}
	}
	if total == 0 {
		return 0.5
	}
	return float64(slower) / float64(total)
}

// Epsilon returns the current exploration rate.
func (s *Selector) Epsilon() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epsilon
}

// Stats reports selection counters for diagnostics.
func (s *Selector) Stats() (selections, explorations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selections, s.explorations
}

func logistic(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
