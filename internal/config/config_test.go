package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
sources:
  adzuna:
    enabled: true
    app_id: "app-1"
    app_key: "key-1"
    country: gb
  arbeitnow:
    enabled: true
governor:
  min_interval: 3s
  hourly_cap: 40
  overrides:
    arbeitnow:
      min_interval: 10s
queue:
  db_path: queue.db
  poll_interval: 500ms
admin:
  operator_token: "secret"
  rate_limit: 30
  rate_window: 2m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Sources.Adzuna.Enabled || cfg.Sources.Adzuna.Country != "gb" {
		t.Errorf("Adzuna = %+v", cfg.Sources.Adzuna)
	}
	if cfg.Governor.MinInterval != 3*time.Second || cfg.Governor.HourlyCap != 40 {
		t.Errorf("Governor = %+v", cfg.Governor)
	}
	if cfg.Queue.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.Queue.PollInterval)
	}
	if cfg.Admin.RateLimit != 30 || cfg.Admin.RateWindow != 2*time.Minute {
		t.Errorf("Admin = %+v", cfg.Admin)
	}

	// Overrides fall back to defaults for unset fields.
	interval, cap := cfg.Governor.BudgetFor("arbeitnow")
	if interval != 10*time.Second || cap != 40 {
		t.Errorf("BudgetFor(arbeitnow) = %v, %d", interval, cap)
	}
	interval, cap = cfg.Governor.BudgetFor("adzuna")
	if interval != 3*time.Second || cap != 40 {
		t.Errorf("BudgetFor(adzuna) = %v, %d", interval, cap)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
sources:
  arbeitnow:
    enabled: true
admin:
  operator_token: "secret"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule != "0 6 * * *" {
		t.Errorf("Schedule = %q", cfg.Schedule)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.Path == "" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Queue.BackoffBase != 5*time.Second || cfg.Queue.BackoffCap != 5*time.Minute {
		t.Errorf("Queue backoff = %+v", cfg.Queue)
	}
	if cfg.Match.Type != "rule" || cfg.Match.Timeout != 20*time.Second {
		t.Errorf("Match = %+v", cfg.Match)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("Notification.Type = %q", cfg.Notification.Type)
	}
	if cfg.Admin.ListenAddr != ":8080" || cfg.Admin.RateLimit != 60 {
		t.Errorf("Admin = %+v", cfg.Admin)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_ADZUNA_KEY", "expanded-key")
	path := writeConfig(t, `
sources:
  adzuna:
    enabled: true
    app_id: "app-1"
    app_key: "${TEST_ADZUNA_KEY}"
    country: gb
admin:
  operator_token: "secret"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sources.Adzuna.AppKey != "expanded-key" {
		t.Errorf("AppKey = %q, want expanded value", cfg.Sources.Adzuna.AppKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "sources: [broken")
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_NoEnabledSources(t *testing.T) {
	path := writeConfig(t, `
sources:
  adzuna:
    enabled: false
admin:
  operator_token: "secret"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error when no source is enabled")
	}
}

func TestLoad_AdzunaMissingCredentials(t *testing.T) {
	path := writeConfig(t, `
sources:
  adzuna:
    enabled: true
    country: gb
admin:
  operator_token: "secret"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for missing adzuna credentials")
	}
}

func TestLoad_DuplicateTrackLabels(t *testing.T) {
	path := writeConfig(t, `
sources:
  arbeitnow:
    enabled: true
tracks:
  - label: A
    query: "junior developer"
  - label: A
    query: "graduate analyst"
admin:
  operator_token: "secret"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for duplicate track labels")
	}
}

func TestLoad_MissingOperatorToken(t *testing.T) {
	path := writeConfig(t, `
sources:
  arbeitnow:
    enabled: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for missing operator token")
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	path := writeConfig(t, `
sources:
  arbeitnow:
    enabled: true
store:
  driver: postgres
admin:
  operator_token: "secret"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for postgres without dsn")
	}
}
