package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kirillkom/ragqa/internal/core/domain"
)

type evalEmbedderFake struct {
	vectors [][]float32
	err     error
	calls   int
}

func (f *evalEmbedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *evalEmbedderFake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func TestRecallAtK(t *testing.T) {
	retrieved := []domain.RetrievedChunk{
		{Score: 0.2},
		{Score: 0.4},
	}
	if got := recallAtK(retrieved, 0.3); got != 1.0 {
		t.Fatalf("expected recall 1.0, got %v", got)
	}
	if got := recallAtK(retrieved, 0.5); got != 0.0 {
		t.Fatalf("expected recall 0.0, got %v", got)
	}
	if got := recallAtK(nil, 0.1); got != 0.0 {
		t.Fatalf("expected recall 0.0 for empty retrieval, got %v", got)
	}
}

func TestContextCoverageBounds(t *testing.T) {
	cases := []struct {
		name    string
		answer  string
		context []string
		want    float64
	}{
		{"full overlap", "sky blue", []string{"the sky is blue"}, 1.0},
		{"half overlap", "sky green", []string{"the sky is blue"}, 0.5},
		{"no overlap", "water wet", []string{"the sky is blue"}, 0.0},
		{"empty answer", "", []string{"the sky is blue"}, 0.0},
		{"empty context", "sky", nil, 0.0},
		{"punctuation only answer", "?! ...", []string{"text"}, 0.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := contextCoverage(tc.answer, tc.context)
			if got != tc.want {
				t.Fatalf("contextCoverage(%q) = %v, want %v", tc.answer, got, tc.want)
			}
			if got < 0 || got > 1 {
				t.Fatalf("coverage out of [0,1]: %v", got)
			}
		})
	}
}

func TestEvaluateFaithfulnessBar(t *testing.T) {
	embedder := &evalEmbedderFake{}
	evaluator := NewEvaluator(embedder, 0.5)

	metrics, err := evaluator.Evaluate(
		context.Background(),
		"sky blue",
		[]domain.RetrievedChunk{{Score: 0.9}},
		[]string{"the sky is blue"},
		0.3,
	)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !metrics.Faithful {
		t.Fatalf("coverage %v should exceed the bar", metrics.ContextCoverage)
	}
	if metrics.RecallAtK != 1.0 {
		t.Fatalf("expected recall 1.0, got %v", metrics.RecallAtK)
	}
	if math.Abs(metrics.GroundingScore-1.0) > 1e-9 {
		t.Fatalf("identical vectors should ground at 1.0, got %v", metrics.GroundingScore)
	}
}

func TestEvaluateCoverageAtBarIsNotFaithful(t *testing.T) {
	evaluator := NewEvaluator(&evalEmbedderFake{}, 0.5)
	metrics, err := evaluator.Evaluate(
		context.Background(),
		"sky green",
		nil,
		[]string{"the sky is blue"},
		0.3,
	)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if metrics.ContextCoverage != 0.5 {
		t.Fatalf("expected coverage 0.5, got %v", metrics.ContextCoverage)
	}
	if metrics.Faithful {
		t.Fatal("coverage equal to the bar must not count as faithful")
	}
}

func TestEvaluateGroundingUsesOpposedVectors(t *testing.T) {
	embedder := &evalEmbedderFake{vectors: [][]float32{{1, 0}, {-1, 0}}}
	evaluator := NewEvaluator(embedder, 0)
	metrics, err := evaluator.Evaluate(context.Background(), "a", nil, []string{"b"}, 0.3)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if math.Abs(metrics.GroundingScore+1.0) > 1e-9 {
		t.Fatalf("expected grounding -1.0, got %v", metrics.GroundingScore)
	}
}

func TestEvaluateEmbedderFailure(t *testing.T) {
	evaluator := NewEvaluator(&evalEmbedderFake{err: errors.New("down")}, 0.5)
	_, err := evaluator.Evaluate(context.Background(), "a", nil, []string{"b"}, 0.3)
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrEmbedderUnavailable) {
		t.Fatalf("expected ErrEmbedderUnavailable, got %v", err)
	}
}
