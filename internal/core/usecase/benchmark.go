package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/ragqa/internal/core/domain"
	"github.com/kirillkom/ragqa/internal/core/ports"
)

// BenchmarkUseCase runs the offline retrieval evaluation: Hit@K and mean
// reciprocal rank over a labeled eval set, against the current index
// snapshot. It never touches the generation collaborator.
type BenchmarkUseCase struct {
	embedder ports.Embedder
	index    ports.CorpusIndex
}

func NewBenchmarkUseCase(embedder ports.Embedder, index ports.CorpusIndex) *BenchmarkUseCase {
	return &BenchmarkUseCase{
		embedder: embedder,
		index:    index,
	}
}

func (uc *BenchmarkUseCase) Run(ctx context.Context, queries []domain.EvalQuery, k int) (*domain.BenchmarkReport, error) {
	if len(queries) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "benchmark", fmt.Errorf("eval set is empty"))
	}
	if k < 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "benchmark", fmt.Errorf("k must be >= 1, got %d", k))
	}

	hits := 0.0
	reciprocalRanks := 0.0
	for _, q := range queries {
		queryVector, err := uc.embedder.EmbedQuery(ctx, RewriteQuery(q.Question))
		if err != nil {
			return nil, domain.WrapError(domain.ErrEmbedderUnavailable, "embed eval query", err)
		}

		retrieved := uc.index.Search(queryVector, k)
		for _, r := range retrieved {
			if !matchesRelevant(r.Source, q.RelevantSources) {
				continue
			}
			hits++
			reciprocalRanks += 1.0 / float64(r.Rank)
			break
		}
	}

	n := float64(len(queries))
	return &domain.BenchmarkReport{
		Queries: len(queries),
		HitAtK:  hits / n,
		MRR:     reciprocalRanks / n,
	}, nil
}

func matchesRelevant(source string, relevant []string) bool {
	for _, rel := range relevant {
		if rel != "" && strings.Contains(source, rel) {
			return true
		}
	}
	return false
}
