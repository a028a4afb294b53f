package usecase

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/kirillkom/ragqa/internal/core/domain"
	"github.com/kirillkom/ragqa/internal/core/ports"
)

// DefaultFaithfulnessBar is the coverage level an answer must exceed to be
// reported faithful. Overridable via config.
const DefaultFaithfulnessBar = 0.5

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Evaluator scores answered queries: lexical coverage against the used
// context, a coverage-bar faithfulness judgment, and a semantic grounding
// score via the embedding collaborator.
type Evaluator struct {
	embedder        ports.Embedder
	faithfulnessBar float64
}

func NewEvaluator(embedder ports.Embedder, faithfulnessBar float64) *Evaluator {
	if faithfulnessBar <= 0 || faithfulnessBar >= 1 {
		faithfulnessBar = DefaultFaithfulnessBar
	}
	return &Evaluator{
		embedder:        embedder,
		faithfulnessBar: faithfulnessBar,
	}
}

func (e *Evaluator) Evaluate(
	ctx context.Context,
	answer string,
	retrieved []domain.RetrievedChunk,
	usedTexts []string,
	threshold float64,
) (domain.EvaluationMetrics, error) {
	coverage := contextCoverage(answer, usedTexts)
	metrics := domain.EvaluationMetrics{
		RecallAtK:       recallAtK(retrieved, threshold),
		ContextCoverage: coverage,
		Faithful:        coverage > e.faithfulnessBar,
	}

	grounding, err := e.groundingScore(ctx, answer, usedTexts)
	if err != nil {
		return domain.EvaluationMetrics{}, err
	}
	metrics.GroundingScore = grounding
	return metrics, nil
}

// recallAtK is a presence indicator: 1.0 when any retrieved score cleared
// the threshold. Not a recall measure against a labeled relevant set.
func recallAtK(retrieved []domain.RetrievedChunk, threshold float64) float64 {
	for _, r := range retrieved {
		if r.Score >= threshold {
			return 1.0
		}
	}
	return 0.0
}

// contextCoverage is the share of distinct answer words that also appear in
// the concatenated used-context text. 0.0 when either side has no words.
func contextCoverage(answer string, usedTexts []string) float64 {
	answerWords := wordSet(answer)
	if len(answerWords) == 0 {
		return 0.0
	}
	contextWords := wordSet(strings.Join(usedTexts, " "))
	if len(contextWords) == 0 {
		return 0.0
	}

	overlap := 0
	for word := range answerWords {
		if _, ok := contextWords[word]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(answerWords))
}

func (e *Evaluator) groundingScore(ctx context.Context, answer string, usedTexts []string) (float64, error) {
	vectors, err := e.embedder.Embed(ctx, []string{answer, strings.Join(usedTexts, " ")})
	if err != nil {
		return 0, domain.WrapError(domain.ErrEmbedderUnavailable, "grounding score", err)
	}
	if len(vectors) != 2 {
		return 0, nil
	}
	return cosine(vectors[0], vectors[1]), nil
}

func wordSet(s string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(s), -1)
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
