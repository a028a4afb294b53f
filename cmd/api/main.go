package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/ragqa/internal/adapters/http"
	"github.com/kirillkom/ragqa/internal/bootstrap"
	"github.com/kirillkom/ragqa/internal/config"
	"github.com/kirillkom/ragqa/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("ragqa-api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	app.InitialReload(ctx)
	go func() {
		if err := app.RunEventLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("corpus event loop stopped", "error", err)
		}
	}()

	router := httpadapter.NewRouter(app.AnswerUC, app.CorpusUC, app.Repo, app.Metrics, httpadapter.RouterConfig{
		ServiceName:      "ragqa-api",
		DefaultTopK:      cfg.RAGTopK,
		DefaultThreshold: cfg.RAGScoreThreshold,
		RateLimitRPS:     cfg.APIRateLimitRPS,
		RateLimitBurst:   cfg.APIRateLimitBurst,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
