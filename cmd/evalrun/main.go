package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kirillkom/ragqa/internal/bootstrap"
	"github.com/kirillkom/ragqa/internal/config"
	"github.com/kirillkom/ragqa/internal/evalset"
	"github.com/kirillkom/ragqa/internal/infrastructure/resilience"
	"github.com/kirillkom/ragqa/internal/observability/logging"
)

// Offline retrieval benchmark: Hit@K and MRR over a labeled YAML eval set.
func main() {
	cfg := config.Load()

	path := flag.String("evalset", "eval.yaml", "path to the labeled eval set")
	topK := flag.Int("k", cfg.RAGTopK, "retrieval depth")
	flag.Parse()

	slog.SetDefault(logging.NewJSONLogger("ragqa-evalrun", "warn"))

	queries, err := evalset.Load(*path)
	if err != nil {
		fatalf("load eval set: %v", err)
	}

	core, err := bootstrap.BuildCore(cfg, resilience.NewExecutor(resilience.DefaultConfig()))
	if err != nil {
		fatalf("setup failed: %v", err)
	}

	ctx := context.Background()
	docs, err := core.Store.List(ctx)
	if err != nil {
		fatalf("load documents: %v", err)
	}
	if err := core.Index.Reload(ctx, docs); err != nil {
		fatalf("build index: %v", err)
	}

	report, err := core.BenchmarkUC.Run(ctx, queries, *topK)
	if err != nil {
		fatalf("benchmark failed: %v", err)
	}

	fmt.Printf("queries: %d\n", report.Queries)
	fmt.Printf("hit@%d:  %.4f\n", *topK, report.HitAtK)
	fmt.Printf("mrr:     %.4f\n", report.MRR)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
