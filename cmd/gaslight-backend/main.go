// Command gaslight-backend runs the grading-enrichment and
// tournament-statistics engine: it accepts raw tournament results from
// the evaluation runner, enriches and persists them, and serves the
// statistics and standings views.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/rhaversen/GaslightBackend/infrastructure/evaluation"
	"github.com/rhaversen/GaslightBackend/infrastructure/middleware"
	"github.com/rhaversen/GaslightBackend/infrastructure/notification"
	"github.com/rhaversen/GaslightBackend/infrastructure/storage"
	"github.com/rhaversen/GaslightBackend/internal/application"
	"github.com/rhaversen/GaslightBackend/internal/ports"
)

// recordStore is the set of store views both backends provide.
type recordStore interface {
	Gradings() ports.GradingStore
	Tournaments() ports.TournamentStore
	Submissions() ports.SubmissionStore
	Users() ports.UserReader
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gaslight-backend: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	flag.Parse()

	// Missing .env is fine; environment variables may come from the
	// process environment directly.
	_ = godotenv.Load()

	cfg, err := application.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	metrics := middleware.NewPrometheusMetrics()
	events := notification.NewLogSink(logger)

	client := evaluation.NewClient(
		evaluation.Config{Host: cfg.Evaluation.Host, AuthToken: cfg.Evaluation.AuthToken},
		evaluation.RateLimitMiddleware(rate.Limit(cfg.Evaluation.RequestsPerSecond), cfg.Evaluation.Burst),
		evaluation.RetryMiddleware(cfg.Evaluation.MaxRetries, time.Second, 30*time.Second),
		evaluation.TimeoutMiddleware(time.Duration(cfg.Evaluation.TimeoutSeconds)*time.Second),
	)

	builder := application.NewGradingBuilder(
		store.Gradings(), store.Tournaments(), store.Submissions(), events, metrics, logger)
	queries := application.NewTournamentQueries(
		store.Gradings(), store.Tournaments(), store.Submissions(), store.Users(), logger)
	evaluator, err := application.NewSubmissionEvaluator(
		store.Submissions(), client, application.EvaluationPolicy{
			StrategyLoadingTimeoutMs:   cfg.Evaluation.StrategyLoadingTimeoutMs,
			StrategyExecutionTimeoutMs: cfg.Evaluation.StrategyExecutionTimeoutMs,
		}, logger)
	if err != nil {
		return err
	}

	srv := &server{
		builder:     builder,
		queries:     queries,
		evaluator:   evaluator,
		logger:      logger,
		authToken:   cfg.Evaluation.AuthToken,
		previewSize: cfg.Standings.PreviewSize,
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Server.Addr),
			slog.String("storage", cfg.Storage.Backend))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *application.Config) (recordStore, func(), error) {
	switch cfg.Storage.Backend {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		store, err := storage.NewMongoStore(connectCtx, cfg.Storage.MongoURI, cfg.Storage.Database)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				slog.Warn("closing mongo store", slog.String("error", err.Error()))
			}
		}
		return store, cleanup, nil
	default:
		return storage.NewMemoryStore(), func() {}, nil
	}
}
