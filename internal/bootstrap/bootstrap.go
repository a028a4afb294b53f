package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/ragqa/internal/config"
	"github.com/kirillkom/ragqa/internal/core/ports"
	"github.com/kirillkom/ragqa/internal/core/usecase"
	"github.com/kirillkom/ragqa/internal/infrastructure/chunking"
	"github.com/kirillkom/ragqa/internal/infrastructure/extractor"
	"github.com/kirillkom/ragqa/internal/infrastructure/extractor/excel"
	"github.com/kirillkom/ragqa/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/ragqa/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/ragqa/internal/infrastructure/index/memory"
	"github.com/kirillkom/ragqa/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/ragqa/internal/infrastructure/queue/nats"
	"github.com/kirillkom/ragqa/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/ragqa/internal/infrastructure/resilience"
	"github.com/kirillkom/ragqa/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/ragqa/internal/observability/metrics"
)

// App owns all wiring. The corpus index lives here as injected state: nothing
// in the tree reaches for package-level globals.
type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	Repo        ports.DocumentRepository
	AnswerUC    *usecase.AnswerUseCase
	CorpusUC    *usecase.CorpusUseCase
	BenchmarkUC *usecase.BenchmarkUseCase

	events  ports.CorpusEvents
	index   ports.CorpusIndex
	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init corpus events: %w", err)
	}

	core, err := BuildCore(cfg, executor)
	if err != nil {
		queue.Close()
		return nil, err
	}

	corpusUC := usecase.NewCorpusUseCase(core.Store, core.Index, repo, queue)

	return &App{
		Config:      cfg,
		Metrics:     metrics.NewHTTPServerMetrics("ragqa-api"),
		Repo:        repo,
		AnswerUC:    core.AnswerUC,
		CorpusUC:    corpusUC,
		BenchmarkUC: core.BenchmarkUC,
		events:      queue,
		index:       core.Index,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// Core is the retrieval pipeline without postgres or NATS. The CLI and the
// offline benchmark wire this directly.
type Core struct {
	Store       ports.DocumentStore
	Index       ports.CorpusIndex
	AnswerUC    *usecase.AnswerUseCase
	BenchmarkUC *usecase.BenchmarkUseCase
}

func BuildCore(cfg config.Config, executor *resilience.Executor) (*Core, error) {
	registry := extractor.NewRegistry()
	text := plaintext.New()
	registry.Register(".txt", text)
	registry.Register(".md", text)
	registry.Register(".pdf", pdf.New())
	registry.Register(".xlsx", excel.New())

	store, err := localfs.New(cfg.DocsPath, registry)
	if err != nil {
		return nil, fmt.Errorf("init document store: %w", err)
	}

	splitter, err := chunking.NewSplitter(cfg.ChunkWindow, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	client := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(client)
	generator := ollama.NewGenerator(client)

	index := memory.NewIndex(splitter, embedder)

	answerUC := usecase.NewAnswerUseCase(
		embedder,
		index,
		generator,
		usecase.NewEvaluator(embedder, cfg.FaithfulnessBar),
		usecase.NewAccountant(cfg.TokenCostUSD),
		usecase.AnswerConfig{
			MaxAnswerTokens:   cfg.GenMaxTokens,
			GenerationTimeout: time.Duration(cfg.GenTimeoutSeconds) * time.Second,
		},
	)

	return &Core{
		Store:       store,
		Index:       index,
		AnswerUC:    answerUC,
		BenchmarkUC: usecase.NewBenchmarkUseCase(embedder, index),
	}, nil
}

// InitialReload builds the first index snapshot. A failure is reported but
// not fatal: the service starts with an empty corpus and recovers on the
// next successful reload.
func (a *App) InitialReload(ctx context.Context) {
	a.reloadWithMetrics(ctx)
}

// RunEventLoop blocks until ctx is done, reloading the index whenever a peer
// replica announces a corpus change.
func (a *App) RunEventLoop(ctx context.Context) error {
	return a.events.SubscribeCorpusChanged(ctx, func(ctx context.Context, source string) error {
		slog.Info("corpus_change_event", "source", source)
		a.reloadWithMetrics(ctx)
		return nil
	})
}

func (a *App) reloadWithMetrics(ctx context.Context) {
	start := time.Now()
	err := a.CorpusUC.Reload(ctx)
	a.Metrics.RecordReload("ragqa-api", a.index.TotalChunks(), time.Since(start), err)
	if err != nil {
		slog.Error("corpus_reload_failed", "error", err)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
