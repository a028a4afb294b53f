package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/kirillkom/ragqa/internal/core/domain"
	"github.com/kirillkom/ragqa/internal/infrastructure/extractor"
)

// Storage keeps corpus source files in one flat directory. The file name is
// the document source identity used everywhere downstream.
type Storage struct {
	basePath   string
	extractors *extractor.Registry
}

func New(basePath string, extractors *extractor.Registry) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/docs"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create docs dir: %w", err)
	}
	return &Storage{basePath: basePath, extractors: extractors}, nil
}

func (s *Storage) List(ctx context.Context) ([]domain.Document, error) {
	sources, err := s.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(sources))
	for _, source := range sources {
		ext, err := s.extractors.ForFile(source)
		if err != nil {
			slog.Warn("skipping document", "source", source, "error", err)
			continue
		}
		f, err := os.Open(filepath.Join(s.basePath, source))
		if err != nil {
			return nil, fmt.Errorf("open document %s: %w", source, err)
		}
		text, err := ext.Extract(f)
		f.Close()
		if err != nil {
			slog.Warn("skipping unreadable document", "source", source, "error", err)
			continue
		}
		if text == "" {
			continue
		}
		docs = append(docs, domain.Document{Source: source, Text: text})
	}
	return docs, nil
}

func (s *Storage) ListSources(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("read docs dir: %w", err)
	}

	sources := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		sources = append(sources, entry.Name())
	}
	sort.Strings(sources)
	return sources, nil
}

func (s *Storage) Save(_ context.Context, source string, data io.Reader) (int64, error) {
	if !s.extractors.Supports(source) {
		return 0, domain.WrapError(domain.ErrInvalidInput, "save document",
			fmt.Errorf("unsupported file type: %s", source))
	}

	f, err := os.Create(filepath.Join(s.basePath, source))
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, data)
	if err != nil {
		return 0, fmt.Errorf("write file: %w", err)
	}
	return written, nil
}

func (s *Storage) Delete(_ context.Context, source string) error {
	err := os.Remove(filepath.Join(s.basePath, source))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", fmt.Errorf("%s", source))
	}
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
