package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gradfeed/ingest/internal/model"
	"github.com/gradfeed/ingest/internal/pipeline"
	"github.com/gradfeed/ingest/internal/queue"
	"github.com/gradfeed/ingest/internal/store"
)

var (
	runDate   string
	runDryRun bool
)

// nopEnqueuer satisfies the runner's queue dependency in dry-run mode,
// where nothing is ever enqueued.
type nopEnqueuer struct{}

func (nopEnqueuer) Enqueue(context.Context, string, json.RawMessage, int, time.Time) (string, error) {
	return "", nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion cycle, then exit",
	Long:  "One-shot ingestion: fetch, classify, deduplicate, and enqueue the batch. With --dry-run nothing is enqueued or persisted.",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "run as this date, YYYY-MM-DD (default: today)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "fetch and count, do not enqueue or persist")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	date := time.Now().UTC()
	if runDate != "" {
		date, err = time.Parse("2006-01-02", runDate)
		if err != nil {
			logger.Error("invalid --date, want YYYY-MM-DD", "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var jobStore model.JobStore
	var q pipeline.Enqueuer
	if runDryRun {
		logger.Info("dry-run mode enabled, nothing will be enqueued or persisted")
		jobStore = store.NewNopStore()
		q = nopEnqueuer{}
	} else {
		jobStore, err = openStore(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer jobStore.Close()

		queueDB, err := queue.Open(cfg.Queue.DBPath, queue.Options{
			BackoffBase:       cfg.Queue.BackoffBase,
			BackoffCap:        cfg.Queue.BackoffCap,
			MaxAttemptsByType: cfg.Queue.MaxAttempts,
		})
		if err != nil {
			logger.Error("failed to open queue", "error", err)
			os.Exit(1)
		}
		defer queueDB.Close()
		q = queueDB
	}

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
	meta, err := runner.Run(ctx, date, runDryRun)
	if err != nil {
		logger.Error("ingestion run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("run complete",
		"track", meta.Track,
		"found", meta.TotalFound,
		"kept", meta.Kept,
		"unique", meta.Unique,
		"requests_used", meta.RequestsUsed,
		"errors", meta.Errors,
	)
	return nil
}
