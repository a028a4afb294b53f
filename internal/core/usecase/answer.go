package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kirillkom/ragqa/internal/core/domain"
	"github.com/kirillkom/ragqa/internal/core/ports"
)

const belowThresholdReason = "No retrieved chunks passed the similarity threshold"

type AnswerConfig struct {
	// MaxAnswerTokens caps the generation collaborator's output length.
	MaxAnswerTokens int
	// GenerationTimeout bounds the single generation call; zero disables it.
	GenerationTimeout time.Duration
}

// AnswerUseCase is the orchestrator every front end consumes: rewrite,
// retrieve, partition against the threshold, generate, evaluate, account.
// It never mutates the corpus index and performs no retries of its own.
type AnswerUseCase struct {
	embedder   ports.Embedder
	index      ports.CorpusIndex
	generator  ports.Generator
	evaluator  *Evaluator
	accountant *Accountant
	cfg        AnswerConfig
}

func NewAnswerUseCase(
	embedder ports.Embedder,
	index ports.CorpusIndex,
	generator ports.Generator,
	evaluator *Evaluator,
	accountant *Accountant,
	cfg AnswerConfig,
) *AnswerUseCase {
	if cfg.MaxAnswerTokens <= 0 {
		cfg.MaxAnswerTokens = 200
	}
	return &AnswerUseCase{
		embedder:   embedder,
		index:      index,
		generator:  generator,
		evaluator:  evaluator,
		accountant: accountant,
		cfg:        cfg,
	}
}

func (uc *AnswerUseCase) Answer(
	ctx context.Context,
	question string,
	topK int,
	threshold float64,
) (*domain.QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("question is empty"))
	}
	if topK < 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("top_k must be >= 1, got %d", topK))
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("threshold must be in [0,1], got %v", threshold))
	}

	start := time.Now()
	query := domain.QueryContext{
		Original:  question,
		Rewritten: RewriteQuery(question),
	}

	// Retrieval time covers query embedding plus the index scan.
	retrievalStart := time.Now()
	queryVector, err := uc.embedder.EmbedQuery(ctx, query.Rewritten)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbedderUnavailable, "embed query", err)
	}
	retrieved := uc.index.Search(queryVector, topK)
	retrievalDur := time.Since(retrievalStart)

	// maxScore is the best score actually seen, which may be negative; 0.0
	// is reserved for empty retrieval.
	usedTexts := make([]string, 0, len(retrieved))
	maxScore := 0.0
	for i := range retrieved {
		if i == 0 || retrieved[i].Score > maxScore {
			maxScore = retrieved[i].Score
		}
		if retrieved[i].Score >= threshold {
			retrieved[i].Used = true
			usedTexts = append(usedTexts, retrieved[i].Text)
		}
	}

	report := domain.RetrievalReport{
		TopK:            topK,
		Threshold:       threshold,
		TotalChunks:     uc.index.TotalChunks(),
		RetrievedChunks: len(retrieved),
		UsedChunks:      len(usedTexts),
		Chunks:          retrieved,
	}

	if len(usedTexts) == 0 {
		// Terminal failure branch: the generator is never invoked and
		// metrics/cost stay zeroed.
		return &domain.QueryResult{
			Query:     query,
			Answer:    "",
			Sources:   []string{},
			Retrieval: report,
			Failure: &domain.Failure{
				Type:      domain.FailureBelowThreshold,
				Reason:    belowThresholdReason,
				Threshold: threshold,
				MaxScore:  maxScore,
			},
			Performance: domain.PerformanceReport{
				Latency: domain.LatencyReport{
					RetrievalSec: roundSeconds(retrievalDur),
					TotalSec:     roundSeconds(time.Since(start)),
				},
			},
		}, nil
	}

	answer, llmDur, err := uc.generate(ctx, query.Original, usedTexts)
	if err != nil {
		return nil, err
	}

	metrics, err := uc.evaluator.Evaluate(ctx, answer, retrieved, usedTexts, threshold)
	if err != nil {
		return nil, err
	}

	return &domain.QueryResult{
		Query:     query,
		Answer:    answer,
		Sources:   usedSources(retrieved),
		Retrieval: report,
		Metrics:   metrics,
		Performance: domain.PerformanceReport{
			Latency: domain.LatencyReport{
				RetrievalSec: roundSeconds(retrievalDur),
				LLMSec:       roundSeconds(llmDur),
				TotalSec:     roundSeconds(time.Since(start)),
			},
			Cost: uc.accountant.Cost(strings.Join(usedTexts, " "), answer),
		},
	}, nil
}

func (uc *AnswerUseCase) generate(ctx context.Context, question string, usedTexts []string) (string, time.Duration, error) {
	genCtx := ctx
	if uc.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, uc.cfg.GenerationTimeout)
		defer cancel()
	}

	prompt := buildAnswerPrompt(question, usedTexts)
	llmStart := time.Now()
	answer, err := uc.generator.Generate(genCtx, prompt, uc.cfg.MaxAnswerTokens)
	if err != nil {
		return "", 0, domain.WrapError(domain.ErrGeneratorUnavailable, "generate answer", err)
	}
	return answer, time.Since(llmStart), nil
}

// usedSources de-duplicates source identifiers of used chunks, first seen
// first.
func usedSources(retrieved []domain.RetrievedChunk) []string {
	seen := make(map[string]struct{}, len(retrieved))
	out := make([]string, 0, len(retrieved))
	for _, r := range retrieved {
		if !r.Used {
			continue
		}
		if _, ok := seen[r.Source]; ok {
			continue
		}
		seen[r.Source] = struct{}{}
		out = append(out, r.Source)
	}
	return out
}
