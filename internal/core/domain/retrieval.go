package domain

// RetrievedChunk is one scored retrieval hit. Rank is 1-based in descending
// score order; Used reports whether the chunk cleared the similarity
// threshold and fed the generation prompt.
type RetrievedChunk struct {
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Used   bool    `json:"used"`
}

// QueryContext carries the question before and after lexical rewriting.
type QueryContext struct {
	Original  string `json:"original"`
	Rewritten string `json:"rewritten"`
}

// RetrievalReport is the per-query retrieval debug trace.
type RetrievalReport struct {
	TopK            int              `json:"top_k"`
	Threshold       float64          `json:"threshold"`
	TotalChunks     int              `json:"total_chunks"`
	RetrievedChunks int              `json:"retrieved_chunks"`
	UsedChunks      int              `json:"used_chunks"`
	Chunks          []RetrievedChunk `json:"chunks"`
}

// EvaluationMetrics scores one answered query. RecallAtK is a presence
// indicator (1.0 when any retrieved score cleared the threshold), not a
// recall measure against a labeled relevant set.
type EvaluationMetrics struct {
	RecallAtK       float64 `json:"recall_at_k"`
	ContextCoverage float64 `json:"context_coverage"`
	Faithful        bool    `json:"faithful"`
	GroundingScore  float64 `json:"grounding_score"`
}

// Grounding-score interpretation bands. Display hints only: nothing in the
// pipeline branches on them.
const (
	GroundingPartialFloor = 0.6
	GroundingWellFloor    = 0.75
)

func GroundingBand(score float64) string {
	switch {
	case score >= GroundingWellFloor:
		return "well grounded"
	case score >= GroundingPartialFloor:
		return "partial grounding"
	default:
		return "high hallucination risk"
	}
}

type LatencyReport struct {
	RetrievalSec float64 `json:"retrieval_sec"`
	LLMSec       float64 `json:"llm_sec"`
	TotalSec     float64 `json:"total_sec"`
}

type CostReport struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

type PerformanceReport struct {
	Latency LatencyReport `json:"latency"`
	Cost    CostReport    `json:"cost"`
}

const FailureBelowThreshold = "BELOW_THRESHOLD"

// Failure describes the designed terminal outcome when no retrieved chunk
// cleared the similarity threshold. MaxScore is the best score seen across
// all retrieved chunks, 0.0 when retrieval came back empty.
type Failure struct {
	Type      string  `json:"type"`
	Reason    string  `json:"reason"`
	Threshold float64 `json:"threshold"`
	MaxScore  float64 `json:"max_score"`
}

// QueryResult is the full structured response for one question. Failure is
// nil on the success branch; on the below-threshold branch Answer is empty,
// Sources is empty and metrics/cost are zeroed.
type QueryResult struct {
	Query       QueryContext      `json:"query"`
	Answer      string            `json:"answer"`
	Sources     []string          `json:"sources"`
	Retrieval   RetrievalReport   `json:"retrieval"`
	Failure     *Failure          `json:"failure,omitempty"`
	Metrics     EvaluationMetrics `json:"metrics"`
	Performance PerformanceReport `json:"performance"`
}

// BelowThreshold reports whether the query ended on the failure branch.
func (r *QueryResult) BelowThreshold() bool {
	return r.Failure != nil && r.Failure.Type == FailureBelowThreshold
}
