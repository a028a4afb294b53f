package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kirillkom/ragqa/internal/bootstrap"
	"github.com/kirillkom/ragqa/internal/config"
	"github.com/kirillkom/ragqa/internal/core/domain"
	"github.com/kirillkom/ragqa/internal/infrastructure/resilience"
	"github.com/kirillkom/ragqa/internal/observability/logging"
)

// One-shot question answering against the local document directory. Builds
// the index in process; no api server, postgres or NATS required.
func main() {
	cfg := config.Load()

	query := flag.String("query", "", "question to answer")
	topK := flag.Int("k", cfg.RAGTopK, "retrieval depth")
	threshold := flag.Float64("threshold", cfg.RAGScoreThreshold, "similarity threshold")
	verbose := flag.Bool("v", false, "print retrieval trace")
	flag.Parse()

	if strings.TrimSpace(*query) == "" {
		fmt.Fprintln(os.Stderr, "usage: ragcli -query \"...\" [-k N] [-threshold X]")
		os.Exit(2)
	}

	slog.SetDefault(logging.NewJSONLogger("ragqa-cli", "warn"))

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
	fmt.Printf("indexed %d chunks from %d documents\n\n", core.Index.TotalChunks(), len(docs))

	result, err := core.AnswerUC.Answer(ctx, *query, *topK, *threshold)
	if err != nil {
		fatalf("query failed: %v", err)
	}

	printResult(result, *verbose)
}

func printResult(result *domain.QueryResult, verbose bool) {
	if result.BelowThreshold() {
		fmt.Printf("no answer: %s\n", result.Failure.Reason)
		fmt.Printf("  threshold: %.2f, best score: %.4f\n", result.Failure.Threshold, result.Failure.MaxScore)
		return
	}

	fmt.Printf("answer: %s\n\n", result.Answer)
	fmt.Printf("sources: %s\n", strings.Join(result.Sources, ", "))
	fmt.Printf("grounding: %.4f (%s)\n", result.Metrics.GroundingScore, domain.GroundingBand(result.Metrics.GroundingScore))
	fmt.Printf("coverage: %.4f, faithful: %v\n", result.Metrics.ContextCoverage, result.Metrics.Faithful)
	fmt.Printf("latency: retrieval %.3fs, llm %.3fs, total %.3fs\n",
		result.Performance.Latency.RetrievalSec,
		result.Performance.Latency.LLMSec,
		result.Performance.Latency.TotalSec,
	)
	fmt.Printf("cost: %d tokens, $%.6f\n", result.Performance.Cost.TotalTokens, result.Performance.Cost.EstimatedCostUSD)

	if !verbose {
		return
	}
	fmt.Println("\nretrieval trace:")
	for _, chunk := range result.Retrieval.Chunks {
		marker := " "
		if chunk.Used {
			marker = "*"
		}
		fmt.Printf("  %s #%d %.4f %s\n", marker, chunk.Rank, chunk.Score, chunk.Source)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
