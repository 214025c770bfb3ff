package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batchd.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Listen != DefaultListenAddr {
		t.Errorf("Listen = %q, want %q", cfg.Listen, DefaultListenAddr)
	}

	sc, err := cfg.SchedulerConfig()
	if err != nil {
		t.Fatalf("SchedulerConfig returned error: %v", err)
	}
	if sc.MaxConcurrency != 3 {
		t.Errorf("MaxConcurrency = %d, want default 3", sc.MaxConcurrency)
	}
	if sc.MinStartInterval != domain.DefaultMinStartInterval {
		t.Errorf("MinStartInterval = %v, want %v", sc.MinStartInterval, domain.DefaultMinStartInterval)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
database_url: "postgresql://test@localhost/test"
scheduler:
  max_concurrency: 8
  min_start_interval: 100ms
  max_attempts: 5
  backoff_base: 2s
  backoff_cap: 1m
recurring:
  - name: nightly-sync
    schedule: "0 3 * * *"
    tasks:
      - name: sync
        type: http
        payload:
          url: http://example.com/sync
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q, want :9090", cfg.Listen)
	}
	if cfg.DatabaseURL == "" {
		t.Error("expected database_url to be set")
	}

	sc, err := cfg.SchedulerConfig()
	if err != nil {
		t.Fatalf("SchedulerConfig returned error: %v", err)
	}
	if sc.MaxConcurrency != 8 || sc.MaxAttempts != 5 {
		t.Errorf("scheduler = %+v, want concurrency 8 attempts 5", sc)
	}
	if sc.MinStartInterval != 100*time.Millisecond {
		t.Errorf("MinStartInterval = %v, want 100ms", sc.MinStartInterval)
	}
	if sc.BackoffBase != 2*time.Second || sc.BackoffCap != time.Minute {
		t.Errorf("backoff = %v/%v, want 2s/1m", sc.BackoffBase, sc.BackoffCap)
	}

	if len(cfg.Recurring) != 1 {
		t.Fatalf("len(Recurring) = %d, want 1", len(cfg.Recurring))
	}
	r := cfg.Recurring[0]
	if r.Name != "nightly-sync" || r.Schedule != "0 3 * * *" || len(r.Tasks) != 1 {
		t.Errorf("unexpected recurring entry: %+v", r)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `listen: ":9090"`)

	t.Setenv("BATCHD_LISTEN", ":7070")
	t.Setenv("AMQP_URL", "amqp://guest:guest@mq:5672/")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Listen != ":7070" {
		t.Errorf("Listen = %q, want env override :7070", cfg.Listen)
	}
	if cfg.AMQPURL != "amqp://guest:guest@mq:5672/" {
		t.Errorf("AMQPURL = %q, want env override", cfg.AMQPURL)
	}
}

func TestLoadRejectsInvalidRecurring(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "missing schedule",
			yaml: "recurring:\n  - name: x\n    tasks:\n      - type: http\n",
		},
		{
			name: "missing tasks",
			yaml: "recurring:\n  - name: x\n    schedule: \"@hourly\"\n",
		},
		{
			name: "missing task type",
			yaml: "recurring:\n  - name: x\n    schedule: \"@hourly\"\n    tasks:\n      - name: y\n",
		},
		{
			name: "bad duration",
			yaml: "scheduler:\n  backoff_base: sometimes\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
