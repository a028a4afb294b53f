package ports

import (
	"context"
	"io"

	"github.com/kirillkom/ragqa/internal/core/domain"
)

// AnswerService is the inbound contract every front end (HTTP, CLI) consumes.
type AnswerService interface {
	Answer(ctx context.Context, question string, topK int, threshold float64) (*domain.QueryResult, error)
}

// CorpusAdmin is the inbound contract for document management. Upload and
// Delete trigger a corpus reload before returning.
type CorpusAdmin interface {
	ListSources(ctx context.Context) ([]string, error)
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.DocumentRecord, error)
	Delete(ctx context.Context, source string) error
	Reload(ctx context.Context) error
}
