package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the gradfeed ingestion daemon.
type Config struct {
	Schedule     string // cron expression for the daily ingestion run
	Location     string // search location passed to every source
	Sources      SourcesConfig
	Tracks       []TrackConfig
	Classifier   ClassifierConfig
	Governor     GovernorConfig
	Queue        QueueConfig
	Store        StoreConfig
	Redis        RedisConfig
	Admin        AdminConfig
	Notification NotificationConfig
	Match        MatchConfig
}

// SourcesConfig enables and configures the upstream job boards.
type SourcesConfig struct {
	Adzuna    AdzunaConfig    `yaml:"adzuna"`
	Arbeitnow ArbeitnowConfig `yaml:"arbeitnow"`
}

// AdzunaConfig holds Adzuna API credentials.
type AdzunaConfig struct {
	Enabled bool   `yaml:"enabled"`
	AppID   string `yaml:"app_id"`  // expanded from env var by Load
	AppKey  string `yaml:"app_key"` // expanded from env var by Load
	Country string `yaml:"country"` // ISO country code, e.g. "gb"
}

// ArbeitnowConfig enables the keyless Arbeitnow board.
type ArbeitnowConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TrackConfig overrides one entry of the built-in track rotation.
type TrackConfig struct {
	Label string `yaml:"label"`
	Query string `yaml:"query"`
}

// ClassifierConfig extends the built-in early-career term lists.
type ClassifierConfig struct {
	ExtraPositiveTerms []string `yaml:"extra_positive_terms"`
	ExtraNegativeTerms []string `yaml:"extra_negative_terms"`
}

// GovernorConfig sets the per-source request budget.
type GovernorConfig struct {
	MinInterval time.Duration           // minimum gap between requests to the same source
	HourlyCap   int                     // max requests per source per hour
	Overrides   map[string]BudgetConfig // per-source overrides, keyed by source name
}

// BudgetConfig is one source's override of the default budget.
type BudgetConfig struct {
	MinInterval time.Duration
	HourlyCap   int
}

// BudgetFor returns the budget for the given source, falling back to the defaults.
func (g GovernorConfig) BudgetFor(source string) (time.Duration, int) {
	if b, ok := g.Overrides[source]; ok {
		interval := b.MinInterval
		if interval <= 0 {
			interval = g.MinInterval
		}
		cap := b.HourlyCap
		if cap <= 0 {
			cap = g.HourlyCap
		}
		return interval, cap
	}
	return g.MinInterval, g.HourlyCap
}

// QueueConfig controls the durable work queue and its worker.
type QueueConfig struct {
	DBPath       string
	PollInterval time.Duration
	BackoffBase  time.Duration
	BackoffCap   time.Duration
	MaxAttempts  map[string]int // per task type
}

// StoreConfig selects the job store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	Path   string `yaml:"path"`   // sqlite file path
	DSN    string `yaml:"dsn"`    // postgres connection string, expanded from env
}

// RedisConfig points the boundary rate limiter at redis. An empty URL
// falls back to the in-process window store.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// AdminConfig controls the HTTP admin surface.
type AdminConfig struct {
	ListenAddr    string
	OperatorToken string
	RateLimit     int           // requests allowed per window, per client
	RateWindow    time.Duration // sliding window length
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
	Recipient  string `yaml:"recipient"`
}

// MatchConfig controls the match scorer used by trigger_match tasks.
type MatchConfig struct {
	Type    string // "rule" or "http"
	URL     string // scoring service endpoint, required if type is "http"
	Timeout time.Duration
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Schedule     string             `yaml:"schedule"`
	Location     string             `yaml:"location"`
	Sources      SourcesConfig      `yaml:"sources"`
	Tracks       []TrackConfig      `yaml:"tracks"`
	Classifier   ClassifierConfig   `yaml:"classifier"`
	Governor     rawGovernorConfig  `yaml:"governor"`
	Queue        rawQueueConfig     `yaml:"queue"`
	Store        StoreConfig        `yaml:"store"`
	Redis        RedisConfig        `yaml:"redis"`
	Admin        rawAdminConfig     `yaml:"admin"`
	Notification NotificationConfig `yaml:"notification"`
	Match        rawMatchConfig     `yaml:"match"`
}

type rawGovernorConfig struct {
	MinInterval string                     `yaml:"min_interval"`
	HourlyCap   int                        `yaml:"hourly_cap"`
	Overrides   map[string]rawBudgetConfig `yaml:"overrides"`
}

type rawBudgetConfig struct {
	MinInterval string `yaml:"min_interval"`
	HourlyCap   int    `yaml:"hourly_cap"`
}

type rawQueueConfig struct {
	DBPath       string         `yaml:"db_path"`
	PollInterval string         `yaml:"poll_interval"`
	BackoffBase  string         `yaml:"backoff_base"`
	BackoffCap   string         `yaml:"backoff_cap"`
	MaxAttempts  map[string]int `yaml:"max_attempts"`
}

type rawAdminConfig struct {
	ListenAddr    string `yaml:"listen_addr"`
	OperatorToken string `yaml:"operator_token"`
	RateLimit     int    `yaml:"rate_limit"`
	RateWindow    string `yaml:"rate_window"`
}

type rawMatchConfig struct {
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	minInterval := 2 * time.Second // default
	if raw.Governor.MinInterval != "" {
		minInterval, err = time.ParseDuration(raw.Governor.MinInterval)
		if err != nil {
			return nil, fmt.Errorf("parse governor.min_interval %q: %w", raw.Governor.MinInterval, err)
		}
	}
	hourlyCap := raw.Governor.HourlyCap
	if hourlyCap == 0 {
		hourlyCap = 100 // default
	}

	overrides := make(map[string]BudgetConfig)
	for source, rb := range raw.Governor.Overrides {
		var b BudgetConfig
		if rb.MinInterval != "" {
			b.MinInterval, err = time.ParseDuration(rb.MinInterval)
			if err != nil {
				return nil, fmt.Errorf("parse governor.overrides[%q].min_interval: %w", source, err)
			}
		}
		b.HourlyCap = rb.HourlyCap
		overrides[source] = b
	}

	pollInterval := 2 * time.Second // default
	if raw.Queue.PollInterval != "" {
		pollInterval, err = time.ParseDuration(raw.Queue.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("parse queue.poll_interval %q: %w", raw.Queue.PollInterval, err)
		}
	}
	backoffBase := 5 * time.Second // default
	if raw.Queue.BackoffBase != "" {
		backoffBase, err = time.ParseDuration(raw.Queue.BackoffBase)
		if err != nil {
			return nil, fmt.Errorf("parse queue.backoff_base %q: %w", raw.Queue.BackoffBase, err)
		}
	}
	backoffCap := 5 * time.Minute // default
	if raw.Queue.BackoffCap != "" {
		backoffCap, err = time.ParseDuration(raw.Queue.BackoffCap)
		if err != nil {
			return nil, fmt.Errorf("parse queue.backoff_cap %q: %w", raw.Queue.BackoffCap, err)
		}
	}

	rateWindow := time.Minute // default
	if raw.Admin.RateWindow != "" {
		rateWindow, err = time.ParseDuration(raw.Admin.RateWindow)
		if err != nil {
			return nil, fmt.Errorf("parse admin.rate_window %q: %w", raw.Admin.RateWindow, err)
		}
	}
	rateLimit := raw.Admin.RateLimit
	if rateLimit == 0 {
		rateLimit = 60 // default: 60 requests per window
	}

	matchTimeout := 20 * time.Second // default
	if raw.Match.Timeout != "" {
		matchTimeout, err = time.ParseDuration(raw.Match.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse match.timeout %q: %w", raw.Match.Timeout, err)
		}
	}
	matchType := raw.Match.Type
	if matchType == "" {
		matchType = "rule"
	}

	schedule := raw.Schedule
	if schedule == "" {
		schedule = "0 6 * * *" // default: daily at 06:00
	}

	queueDBPath := raw.Queue.DBPath
	if queueDBPath == "" {
		queueDBPath = "gradfeed-queue.db"
	}

	storeDriver := raw.Store.Driver
	if storeDriver == "" {
		storeDriver = "sqlite"
	}
	storePath := raw.Store.Path
	if storeDriver == "sqlite" && storePath == "" {
		storePath = "gradfeed.db"
	}

	listenAddr := raw.Admin.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	notifType := raw.Notification.Type
	if notifType == "" {
		notifType = "log"
	}

	cfg := &Config{
		Schedule:   schedule,
		Location:   raw.Location,
		Sources:    raw.Sources,
		Tracks:     raw.Tracks,
		Classifier: raw.Classifier,
		Governor: GovernorConfig{
			MinInterval: minInterval,
			HourlyCap:   hourlyCap,
			Overrides:   overrides,
		},
		Queue: QueueConfig{
			DBPath:       queueDBPath,
			PollInterval: pollInterval,
			BackoffBase:  backoffBase,
			BackoffCap:   backoffCap,
			MaxAttempts:  raw.Queue.MaxAttempts,
		},
		Store: StoreConfig{
			Driver: storeDriver,
			Path:   storePath,
			DSN:    raw.Store.DSN,
		},
		Redis: raw.Redis,
		Admin: AdminConfig{
			ListenAddr:    listenAddr,
			OperatorToken: raw.Admin.OperatorToken,
			RateLimit:     rateLimit,
			RateWindow:    rateWindow,
		},
		Notification: NotificationConfig{
			Type:       notifType,
			WebhookURL: raw.Notification.WebhookURL,
			Recipient:  raw.Notification.Recipient,
		},
		Match: MatchConfig{
			Type:    matchType,
			URL:     raw.Match.URL,
			Timeout: matchTimeout,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if !cfg.Sources.Adzuna.Enabled && !cfg.Sources.Arbeitnow.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}
	if cfg.Sources.Adzuna.Enabled {
		if cfg.Sources.Adzuna.AppID == "" || cfg.Sources.Adzuna.AppKey == "" {
			return fmt.Errorf("sources.adzuna.app_id and app_key are required when adzuna is enabled")
		}
		if cfg.Sources.Adzuna.Country == "" {
			return fmt.Errorf("sources.adzuna.country is required when adzuna is enabled")
		}
	}

	if cfg.Governor.MinInterval <= 0 {
		return fmt.Errorf("governor.min_interval must be positive, got %v", cfg.Governor.MinInterval)
	}
	if cfg.Governor.HourlyCap <= 0 {
		return fmt.Errorf("governor.hourly_cap must be positive, got %d", cfg.Governor.HourlyCap)
	}

	seen := make(map[string]bool)
	for i, tr := range cfg.Tracks {
		if tr.Label == "" || tr.Query == "" {
			return fmt.Errorf("tracks[%d]: label and query are required", i)
		}
		if seen[tr.Label] {
			return fmt.Errorf("tracks: duplicate label %q", tr.Label)
		}
		seen[tr.Label] = true
	}

	if cfg.Store.Driver != "sqlite" && cfg.Store.Driver != "postgres" {
		return fmt.Errorf("store.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Store.Driver)
	}
	if cfg.Store.Driver == "postgres" && cfg.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required when store.driver is \"postgres\"")
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	}

	if cfg.Match.Type != "rule" && cfg.Match.Type != "http" {
		return fmt.Errorf("match.type must be \"rule\" or \"http\", got %q", cfg.Match.Type)
	}
	if cfg.Match.Type == "http" && cfg.Match.URL == "" {
		return fmt.Errorf("match.url is required when match.type is \"http\"")
	}

	if cfg.Admin.OperatorToken == "" {
		return fmt.Errorf("admin.operator_token is required")
	}

	return nil
}
