package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/gradfeed/ingest/internal/adapter"
	"github.com/gradfeed/ingest/internal/classify"
	"github.com/gradfeed/ingest/internal/config"
	"github.com/gradfeed/ingest/internal/govern"
	"github.com/gradfeed/ingest/internal/match"
	"github.com/gradfeed/ingest/internal/model"
	"github.com/gradfeed/ingest/internal/notifier"
	"github.com/gradfeed/ingest/internal/ratelimit"
	"github.com/gradfeed/ingest/internal/store"
	"github.com/gradfeed/ingest/internal/track"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "gradfeed",
	Short: "Early-career job ingestion daemon",
	Long:  "Gradfeed pulls postings from public job boards, keeps the early-career ones, and feeds them through a durable work queue.",
	// Default to `start` so that `gradfeed` with no args runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: GRADFEED_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > GRADFEED_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("GRADFEED_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

func setupScorer(cfg *config.Config, logger *slog.Logger) model.MatchScorer {
	if cfg.Match.Type == "http" {
		logger.Info("using http match scorer", "url", cfg.Match.URL)
		return &match.FallbackScorer{
			Primary:  match.NewHTTPScorer(cfg.Match.URL, cfg.Match.Timeout),
			Fallback: match.RuleScorer{},
			Logger:   logger,
		}
	}
	return match.RuleScorer{}
}

func setupClassifier(cfg *config.Config) (*classify.Classifier, error) {
	if len(cfg.Classifier.ExtraPositiveTerms) == 0 && len(cfg.Classifier.ExtraNegativeTerms) == 0 {
		return classify.NewDefault(), nil
	}
	positive := append([]string{}, classify.DefaultPositiveTerms...)
	positive = append(positive, cfg.Classifier.ExtraPositiveTerms...)
	negative := append([]string{}, classify.DefaultNegativeTerms...)
	negative = append(negative, cfg.Classifier.ExtraNegativeTerms...)
	return classify.New(positive, negative)
}

func setupRotation(cfg *config.Config) (*track.Rotation, error) {
	if len(cfg.Tracks) == 0 {
		return track.NewRotation(track.DefaultTracks)
	}
	tracks := make([]track.Track, 0, len(cfg.Tracks))
	for _, t := range cfg.Tracks {
		tracks = append(tracks, track.Track{Label: t.Label, Query: t.Query})
	}
	return track.NewRotation(tracks)
}

func buildSources(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []*govern.Source {
	var sources []*govern.Source

	register := func(a model.SourceAdapter) {
		interval, cap := cfg.Governor.BudgetFor(a.Name())
		g := govern.New(a.Name(), govern.Budget{MinInterval: interval, HourlyCap: cap})
		sources = append(sources, govern.NewSource(a, g, govern.SourceOptions{}, logger))
		logger.Info("registered source", "name", a.Name(), "min_interval", interval.String(), "hourly_cap", cap)
	}

	if cfg.Sources.Adzuna.Enabled {
		register(adapter.NewAdzunaAdapter(
			cfg.Sources.Adzuna.AppID,
			cfg.Sources.Adzuna.AppKey,
			cfg.Sources.Adzuna.Country,
			httpClient,
		))
	}
	if cfg.Sources.Arbeitnow.Enabled {
		register(adapter.NewArbeitnowAdapter(httpClient))
	}
	return sources
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (model.JobStore, error) {
	if cfg.Store.Driver == "postgres" {
		logger.Info("using postgres store")
		return store.NewPostgresStore(ctx, cfg.Store.DSN)
	}
	logger.Info("using sqlite store", "path", cfg.Store.Path)
	return store.NewSQLiteStore(cfg.Store.Path)
}

// openWindowStore picks the boundary limiter's backend: redis when
// configured, otherwise the in-process store. The returned cleanup closes
// the redis connection and is a no-op for the memory store.
func openWindowStore(cfg *config.Config, logger *slog.Logger) (ratelimit.WindowStore, func(), error) {
	if cfg.Redis.URL == "" {
		logger.Info("no redis configured, rate limit windows held in process")
		return ratelimit.NewMemoryStore(), func() {}, nil
	}
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opt)
	logger.Info("rate limit windows backed by redis", "addr", opt.Addr)
	return ratelimit.NewRedisWindowStore(client), func() { client.Close() }, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
