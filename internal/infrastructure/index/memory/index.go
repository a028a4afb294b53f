package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/kirillkom/ragqa/internal/core/domain"
	"github.com/kirillkom/ragqa/internal/core/ports"
)

// snapshot is one fully built generation of the corpus: chunks and vectors
// are index-aligned and never mutated after publication.
type snapshot struct {
	chunks  []domain.Chunk
	vectors [][]float32
	sources []string
}

// Index is the in-memory corpus index. Reload builds a complete snapshot off
// to the side and publishes it with a single atomic pointer store, so a
// concurrent Search sees either the old generation in full or the new one in
// full. Brute-force cosine scan is deliberate: corpus sizes here do not
// justify an approximate structure.
type Index struct {
	chunker  ports.Chunker
	embedder ports.Embedder
	current  atomic.Pointer[snapshot]
}

func NewIndex(chunker ports.Chunker, embedder ports.Embedder) *Index {
	idx := &Index{
		chunker:  chunker,
		embedder: embedder,
	}
	idx.current.Store(&snapshot{})
	return idx
}

// Reload replaces the corpus wholesale. On any failure the previous snapshot
// stays published and keeps serving queries.
func (i *Index) Reload(ctx context.Context, docs []domain.Document) error {
	chunks := i.chunker.Split(docs)

	next := &snapshot{
		chunks:  chunks,
		sources: documentSources(docs),
	}
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for j, c := range chunks {
			texts[j] = c.Text
		}
		vectors, err := i.embedder.Embed(ctx, texts)
		if err != nil {
			return domain.WrapError(domain.ErrEmbedderUnavailable, "reload corpus", err)
		}
		if len(vectors) != len(chunks) {
			return domain.WrapError(
				domain.ErrInvalidInput,
				"reload corpus",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
			)
		}
		next.vectors = vectors
	}

	i.current.Store(next)
	return nil
}

// Search scores every indexed chunk against queryVector by cosine similarity
// and returns at most k results in descending score order. Equal scores keep
// original index order. An empty index yields an empty non-nil slice, not an
// error, so the result always serializes as a JSON array.
func (i *Index) Search(queryVector []float32, k int) []domain.RetrievedChunk {
	snap := i.current.Load()
	if k <= 0 || len(snap.chunks) == 0 {
		return []domain.RetrievedChunk{}
	}

	scored := make([]domain.RetrievedChunk, len(snap.chunks))
	for j := range snap.chunks {
		scored[j] = domain.RetrievedChunk{
			Score:  cosineSimilarity(queryVector, snap.vectors[j]),
			Text:   snap.chunks[j].Text,
			Source: snap.chunks[j].Source,
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	for j := range scored {
		scored[j].Rank = j + 1
	}
	return scored
}

func (i *Index) TotalChunks() int {
	return len(i.current.Load().chunks)
}

func (i *Index) Sources() []string {
	snap := i.current.Load()
	out := make([]string, len(snap.sources))
	copy(out, snap.sources)
	return out
}

func cosineSimilarity(a, b []float32) float64 {
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

func documentSources(docs []domain.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Source)
	}
	return out
}
