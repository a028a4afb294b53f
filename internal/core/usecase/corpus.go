package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/ragqa/internal/core/domain"
	"github.com/kirillkom/ragqa/internal/core/ports"
)

// CorpusUseCase owns the corpus lifecycle: it is the single state holder the
// service entry point wires in, and the only component allowed to trigger an
// index reload. Queries keep serving the prior snapshot until a reload
// completes.
type CorpusUseCase struct {
	store  ports.DocumentStore
	index  ports.CorpusIndex
	repo   ports.DocumentRepository
	events ports.CorpusEvents
}

func NewCorpusUseCase(
	store ports.DocumentStore,
	index ports.CorpusIndex,
	repo ports.DocumentRepository,
	events ports.CorpusEvents,
) *CorpusUseCase {
	return &CorpusUseCase{
		store:  store,
		index:  index,
		repo:   repo,
		events: events,
	}
}

func (uc *CorpusUseCase) ListSources(ctx context.Context) ([]string, error) {
	sources, err := uc.store.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corpus sources: %w", err)
	}
	return sources, nil
}

// Reload rebuilds the in-memory index from the document directory. On
// failure the previous snapshot stays in effect.
func (uc *CorpusUseCase) Reload(ctx context.Context) error {
	start := time.Now()
	docs, err := uc.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load corpus documents: %w", err)
	}
	if err := uc.index.Reload(ctx, docs); err != nil {
		return err
	}
	slog.Info("corpus_reloaded",
		"documents", len(docs),
		"chunks", uc.index.TotalChunks(),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return nil
}

func (uc *CorpusUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.DocumentRecord, error) {
	source := sanitizeFilename(filename)
	size, err := uc.store.Save(ctx, source, body)
	if err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	now := time.Now().UTC()
	rec := &domain.DocumentRecord{
		ID:        uuid.NewString(),
		Source:    source,
		MimeType:  mimeType,
		SizeBytes: size,
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.RecordUpload(ctx, rec); err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}

	if err := uc.Reload(ctx); err != nil {
		if statusErr := uc.repo.UpdateStatus(ctx, rec.ID, domain.StatusFailed, err.Error()); statusErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, statusErr)
		}
		return nil, err
	}
	if err := uc.repo.UpdateStatus(ctx, rec.ID, domain.StatusIndexed, ""); err != nil {
		return nil, fmt.Errorf("mark indexed status: %w", err)
	}
	rec.Status = domain.StatusIndexed

	uc.notifyPeers(ctx, source)
	return rec, nil
}

func (uc *CorpusUseCase) Delete(ctx context.Context, source string) error {
	if err := uc.store.Delete(ctx, source); err != nil {
		return err
	}
	if err := uc.repo.MarkDeletedBySource(ctx, source); err != nil {
		return fmt.Errorf("mark record deleted: %w", err)
	}
	if err := uc.Reload(ctx); err != nil {
		return err
	}
	uc.notifyPeers(ctx, source)
	return nil
}

// notifyPeers is best effort: the local reload already happened and a lost
// event only delays peer convergence.
func (uc *CorpusUseCase) notifyPeers(ctx context.Context, source string) {
	if err := uc.events.PublishCorpusChanged(ctx, source); err != nil {
		slog.Warn("corpus_event_publish_failed", "source", source, "error", err)
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.txt"
	}
	return base
}
