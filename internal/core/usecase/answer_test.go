package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/ragqa/internal/core/domain"
)

type answerEmbedderFake struct {
	err error
}

func (f *answerEmbedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *answerEmbedderFake) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

type indexFake struct {
	results []domain.RetrievedChunk
	total   int
	lastK   int
}

func (f *indexFake) Reload(context.Context, []domain.Document) error { return nil }
func (f *indexFake) TotalChunks() int                                { return f.total }
func (f *indexFake) Sources() []string                               { return nil }
func (f *indexFake) Search(_ []float32, k int) []domain.RetrievedChunk {
	f.lastK = k
	results := f.results
	if k < len(results) {
		results = results[:k]
	}
	out := make([]domain.RetrievedChunk, len(results))
	copy(out, results)
	return out
}

type generatorFake struct {
	answer string
	err    error
	calls  int
	prompt string
}

func (f *generatorFake) Generate(_ context.Context, prompt string, _ int) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newAnswerUseCase(embedder *answerEmbedderFake, index *indexFake, generator *generatorFake) *AnswerUseCase {
	return NewAnswerUseCase(
		embedder,
		index,
		generator,
		NewEvaluator(embedder, DefaultFaithfulnessBar),
		NewAccountant(DefaultTokenCostUSD),
		AnswerConfig{MaxAnswerTokens: 200},
	)
}

func skyIndex() *indexFake {
	return &indexFake{
		total: 3,
		results: []domain.RetrievedChunk{
			{Rank: 1, Score: 0.92, Text: "The sky is blue.", Source: "weather.txt"},
			{Rank: 2, Score: 0.15, Text: "Water is wet.", Source: "weather.txt"},
		},
	}
}

func TestAnswerSuccessPath(t *testing.T) {
	embedder := &answerEmbedderFake{}
	index := skyIndex()
	generator := &generatorFake{answer: "The sky is blue."}
	uc := newAnswerUseCase(embedder, index, generator)

	result, err := uc.Answer(context.Background(), "What color is the sky?", 2, 0.3)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if result.Failure != nil {
		t.Fatalf("unexpected failure: %+v", result.Failure)
	}
	if !strings.Contains(result.Answer, "blue") {
		t.Fatalf("answer should reference blue: %q", result.Answer)
	}
	if len(result.Sources) != 1 || result.Sources[0] != "weather.txt" {
		t.Fatalf("sources = %v, want [weather.txt]", result.Sources)
	}
	if generator.calls != 1 {
		t.Fatalf("generator called %d times, want 1", generator.calls)
	}
	if !strings.Contains(generator.prompt, "What color is the sky?") {
		t.Fatal("prompt must carry the original question")
	}
	if result.Query.Rewritten != "what color is the sky?" {
		t.Fatalf("rewritten query = %q", result.Query.Rewritten)
	}
	if result.Retrieval.TotalChunks != 3 || result.Retrieval.RetrievedChunks != 2 || result.Retrieval.UsedChunks != 1 {
		t.Fatalf("retrieval report off: %+v", result.Retrieval)
	}
	if result.Metrics.RecallAtK != 1.0 {
		t.Fatalf("recall = %v, want 1.0", result.Metrics.RecallAtK)
	}
	if result.Performance.Cost.TotalTokens != result.Performance.Cost.PromptTokens+result.Performance.Cost.CompletionTokens {
		t.Fatalf("token totals inconsistent: %+v", result.Performance.Cost)
	}
	if result.Performance.Cost.TotalTokens < 1 {
		t.Fatalf("expected positive token estimate: %+v", result.Performance.Cost)
	}
}

func TestAnswerPartitionIsExhaustive(t *testing.T) {
	uc := newAnswerUseCase(&answerEmbedderFake{}, skyIndex(), &generatorFake{answer: "blue"})
	result, err := uc.Answer(context.Background(), "sky?", 2, 0.3)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	used, ignored := 0, 0
	for _, c := range result.Retrieval.Chunks {
		if c.Used {
			used++
		} else {
			ignored++
		}
	}
	if used+ignored != result.Retrieval.RetrievedChunks {
		t.Fatalf("used %d + ignored %d != retrieved %d", used, ignored, result.Retrieval.RetrievedChunks)
	}
	if used != result.Retrieval.UsedChunks {
		t.Fatalf("used count mismatch: %d vs %d", used, result.Retrieval.UsedChunks)
	}
}

func TestAnswerBelowThresholdNeverCallsGenerator(t *testing.T) {
	generator := &generatorFake{answer: "should not appear"}
	uc := newAnswerUseCase(&answerEmbedderFake{}, skyIndex(), generator)

	result, err := uc.Answer(context.Background(), "sky?", 2, 0.99)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if generator.calls != 0 {
		t.Fatalf("generator invoked %d times on the failure branch", generator.calls)
	}
	if !result.BelowThreshold() {
		t.Fatalf("expected below-threshold failure, got %+v", result.Failure)
	}
	if result.Failure.Reason != belowThresholdReason {
		t.Fatalf("unexpected reason %q", result.Failure.Reason)
	}
	if result.Failure.Threshold != 0.99 {
		t.Fatalf("failure threshold = %v", result.Failure.Threshold)
	}
	if result.Failure.MaxScore != 0.92 {
		t.Fatalf("max score = %v, want 0.92", result.Failure.MaxScore)
	}
	if result.Answer != "" || len(result.Sources) != 0 {
		t.Fatalf("failure response must be empty: %+v", result)
	}
	if result.Metrics != (domain.EvaluationMetrics{}) {
		t.Fatalf("metrics must be zeroed: %+v", result.Metrics)
	}
	if result.Performance.Cost != (domain.CostReport{}) {
		t.Fatalf("cost must be zeroed: %+v", result.Performance.Cost)
	}
}

func TestAnswerBelowThresholdReportsNegativeMaxScore(t *testing.T) {
	index := &indexFake{
		total: 2,
		results: []domain.RetrievedChunk{
			{Rank: 1, Score: -0.2, Text: "unrelated", Source: "noise.txt"},
			{Rank: 2, Score: -0.7, Text: "also unrelated", Source: "noise.txt"},
		},
	}
	uc := newAnswerUseCase(&answerEmbedderFake{}, index, &generatorFake{})

	result, err := uc.Answer(context.Background(), "q", 2, 0.5)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !result.BelowThreshold() {
		t.Fatalf("expected below-threshold failure, got %+v", result.Failure)
	}
	// 0.0 is reserved for empty retrieval; with chunks present the report
	// carries the real (negative) maximum.
	if result.Failure.MaxScore != -0.2 {
		t.Fatalf("max score = %v, want -0.2", result.Failure.MaxScore)
	}
}

func TestAnswerEmptyCorpus(t *testing.T) {
	generator := &generatorFake{}
	uc := newAnswerUseCase(&answerEmbedderFake{}, &indexFake{}, generator)

	result, err := uc.Answer(context.Background(), "anything?", 3, 0.3)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !result.BelowThreshold() {
		t.Fatal("empty corpus must end below threshold")
	}
	if result.Failure.MaxScore != 0.0 {
		t.Fatalf("max score = %v, want 0.0", result.Failure.MaxScore)
	}
	if result.Retrieval.RetrievedChunks != 0 || result.Retrieval.TotalChunks != 0 {
		t.Fatalf("retrieval report off: %+v", result.Retrieval)
	}
	if generator.calls != 0 {
		t.Fatal("generator must not run against an empty corpus")
	}
}

func TestAnswerRejectsInvalidArguments(t *testing.T) {
	uc := newAnswerUseCase(&answerEmbedderFake{}, skyIndex(), &generatorFake{})
	cases := []struct {
		name      string
		question  string
		topK      int
		threshold float64
	}{
		{"empty question", "  ", 3, 0.3},
		{"zero top_k", "q", 0, 0.3},
		{"negative top_k", "q", -1, 0.3},
		{"negative threshold", "q", 3, -0.1},
		{"threshold above one", "q", 3, 1.1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Answer(context.Background(), tc.question, tc.topK, tc.threshold)
			if err == nil {
				t.Fatal("expected error")
			}
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAnswerEmbedderFailure(t *testing.T) {
	uc := newAnswerUseCase(&answerEmbedderFake{err: errors.New("down")}, skyIndex(), &generatorFake{})
	_, err := uc.Answer(context.Background(), "q", 3, 0.3)
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrEmbedderUnavailable) {
		t.Fatalf("expected ErrEmbedderUnavailable, got %v", err)
	}
}

func TestAnswerGeneratorFailure(t *testing.T) {
	uc := newAnswerUseCase(&answerEmbedderFake{}, skyIndex(), &generatorFake{err: errors.New("timeout")})
	_, err := uc.Answer(context.Background(), "q", 2, 0.3)
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrGeneratorUnavailable) {
		t.Fatalf("expected ErrGeneratorUnavailable, got %v", err)
	}
}

func TestAnswerDeduplicatesSources(t *testing.T) {
	index := &indexFake{
		total: 4,
		results: []domain.RetrievedChunk{
			{Rank: 1, Score: 0.9, Text: "a", Source: "doc.txt"},
			{Rank: 2, Score: 0.8, Text: "b", Source: "doc.txt"},
			{Rank: 3, Score: 0.7, Text: "c", Source: "other.txt"},
		},
	}
	uc := newAnswerUseCase(&answerEmbedderFake{}, index, &generatorFake{answer: "a b c"})
	result, err := uc.Answer(context.Background(), "q", 3, 0.5)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("sources = %v, want two distinct", result.Sources)
	}
}
