package ports

import (
	"context"
	"io"

	"github.com/kirillkom/ragqa/internal/core/domain"
)

// Embedder maps text to fixed-length normalized vectors. The model behind it
// is an external collaborator; the core only depends on this contract.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces the final answer text for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Chunker splits documents into source-tagged retrieval windows.
type Chunker interface {
	Split(docs []domain.Document) []domain.Chunk
}

// CorpusIndex holds the current chunk/vector snapshot. Reload builds a
// complete replacement off to the side and publishes it atomically; Search
// never observes a half-built index and never blocks a concurrent reload.
type CorpusIndex interface {
	Reload(ctx context.Context, docs []domain.Document) error
	Search(queryVector []float32, k int) []domain.RetrievedChunk
	TotalChunks() int
	Sources() []string
}

// DocumentStore is the directory of corpus source files.
type DocumentStore interface {
	List(ctx context.Context) ([]domain.Document, error)
	ListSources(ctx context.Context) ([]string, error)
	Save(ctx context.Context, source string, data io.Reader) (int64, error)
	Delete(ctx context.Context, source string) error
}

// DocumentRepository keeps the upload audit trail.
type DocumentRepository interface {
	RecordUpload(ctx context.Context, rec *domain.DocumentRecord) error
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkDeletedBySource(ctx context.Context, source string) error
	ListRecords(ctx context.Context) ([]domain.DocumentRecord, error)
}

// CorpusEvents fans corpus-changed notifications out to peer replicas so
// every instance reloads its in-memory index.
type CorpusEvents interface {
	PublishCorpusChanged(ctx context.Context, source string) error
	SubscribeCorpusChanged(ctx context.Context, handler func(context.Context, string) error) error
}
