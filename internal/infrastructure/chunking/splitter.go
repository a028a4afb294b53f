package chunking

import (
	"fmt"

	"github.com/kirillkom/ragqa/internal/core/domain"
)

// Splitter slides a fixed-size character window over each document,
// advancing by windowSize-overlap, so consecutive chunks share overlap
// characters and together cover the full document text.
type Splitter struct {
	windowSize int
	overlap    int
}

func NewSplitter(windowSize, overlap int) (*Splitter, error) {
	if windowSize <= 0 {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"chunking config",
			fmt.Errorf("window size must be positive, got %d", windowSize),
		)
	}
	if overlap < 0 || overlap >= windowSize {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"chunking config",
			fmt.Errorf("overlap must be in [0, window), got overlap=%d window=%d", overlap, windowSize),
		)
	}
	return &Splitter{
		windowSize: windowSize,
		overlap:    overlap,
	}, nil
}

func (s *Splitter) Split(docs []domain.Document) []domain.Chunk {
	var out []domain.Chunk
	for _, doc := range docs {
		out = append(out, s.splitDocument(doc)...)
	}
	return out
}

func (s *Splitter) splitDocument(doc domain.Document) []domain.Chunk {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}

	step := s.windowSize - s.overlap
	chunks := make([]domain.Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.windowSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			Text:   string(runes[start:end]),
			Source: doc.Source,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
