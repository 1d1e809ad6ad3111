package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gradfeed/ingest/internal/model"
	"github.com/gradfeed/ingest/internal/pipeline"
	"github.com/gradfeed/ingest/internal/queue"
	"github.com/gradfeed/ingest/internal/ratelimit"
	"github.com/gradfeed/ingest/internal/scheduler"
	"github.com/gradfeed/ingest/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ingestion daemon",
	Long:  "Start the scheduler, queue worker, and admin server; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"schedule", cfg.Schedule,
		"store", cfg.Store.Driver,
		"adzuna", cfg.Sources.Adzuna.Enabled,
		"arbeitnow", cfg.Sources.Arbeitnow.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer jobStore.Close()

	q, err := queue.Open(cfg.Queue.DBPath, queue.Options{
		BackoffBase:       cfg.Queue.BackoffBase,
		BackoffCap:        cfg.Queue.BackoffCap,
		MaxAttemptsByType: cfg.Queue.MaxAttempts,
	})
	if err != nil {
		logger.Error("failed to open queue", "error", err)
		os.Exit(1)
	}
	defer q.Close()

	httpClient := newHTTPClient()
	sources := buildSources(cfg, httpClient, logger)
	if len(sources) == 0 {
		logger.Error("no sources enabled")
		os.Exit(1)
	}

	rotation, err := setupRotation(cfg)
	if err != nil {
		logger.Error("invalid track rotation", "error", err)
		os.Exit(1)
	}
	classifier, err := setupClassifier(cfg)
	if err != nil {
		logger.Error("invalid classifier terms", "error", err)
		os.Exit(1)
	}

	runner := pipeline.NewRunner(sources, rotation, classifier, q, jobStore, cfg.Location, logger)

	n := setupNotifier(cfg, httpClient, logger)
	scorer := setupScorer(cfg, logger)
	handlers := pipeline.NewHandlers(jobStore, scorer, n, logger)

	worker := queue.NewWorker(q, cfg.Queue.PollInterval, logger)
	handlers.Register(worker)

	windowStore, closeWindows, err := openWindowStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open rate limit store", "error", err)
		os.Exit(1)
	}
	defer closeWindows()
	limiter := ratelimit.New(windowStore, logger)

	admin := server.New(q, limiter, cfg.Admin.RateLimit, cfg.Admin.RateWindow, cfg.Admin.OperatorToken,
		func(ctx context.Context, date time.Time, dryRun bool) (model.RunMetadata, error) {
			return runner.Run(ctx, date, dryRun)
		}, logger)

	sweep := func() {
		runner.SweepSeenSets()
		if ms, ok := windowStore.(*ratelimit.MemoryStore); ok {
			ms.Sweep(time.Now())
		}
	}

	sched := scheduler.New(cfg.Schedule, func(ctx context.Context, date time.Time) error {
		_, err := runner.Run(ctx, date, false)
		return err
	}, sweep, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	errCh := make(chan error, 2)
	go func() {
		errCh <- worker.Run(ctx)
	}()
	go func() {
		errCh <- admin.ListenAndServe(ctx, cfg.Admin.ListenAddr)
	}()
	logger.Info("daemon running", "admin_addr", cfg.Admin.ListenAddr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("daemon component failed", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("goodbye")
	return nil
}
