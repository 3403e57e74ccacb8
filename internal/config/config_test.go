package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RISK_ENGINE_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":50051" {
		t.Fatalf("unexpected address %q", cfg.Server.Address)
	}
	if cfg.Classifier.Forest.Trees != 100 || cfg.Classifier.MinSamplesPerClass != 10 {
		t.Fatalf("unexpected classifier defaults: %+v", cfg.Classifier)
	}
	if cfg.Engine.Risk.HighSeverityDepth != 50 {
		t.Fatalf("unexpected engine defaults: %+v", cfg.Engine.Risk)
	}
	if cfg.Cache.ModelKey == "" || cfg.Cache.ForecastMemo <= 0 {
		t.Fatalf("unexpected cache defaults: %+v", cfg.Cache)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
server:
  address: ":6000"
  gracefulTimeout: 3s
classifier:
  minSamplesPerClass: 25
  forest:
    trees: 40
engine:
  risk:
    highSeverityDepth: 60
`)
	t.Setenv("RISK_ENGINE_SERVER_ADDRESS", ":7000")
	t.Setenv("RISK_ENGINE_CACHE_ENABLED", "true")
	t.Setenv("RISK_ENGINE_CACHE_ADDR", "redis:6379")
	t.Setenv("RISK_ENGINE_CACHE_MODEL_TTL", "1h")
	t.Setenv("RISK_ENGINE_FOREST_SEED", "9")
	t.Setenv("RISK_ENGINE_LOG_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":7000" {
		t.Fatalf("env override not applied: %q", cfg.Server.Address)
	}
	if cfg.Server.GracefulTimeout != 3*time.Second {
		t.Fatalf("expected graceful timeout from file, got %v", cfg.Server.GracefulTimeout)
	}
	if cfg.Classifier.MinSamplesPerClass != 25 || cfg.Classifier.Forest.Trees != 40 || cfg.Classifier.Forest.Seed != 9 {
		t.Fatalf("unexpected classifier config: %+v", cfg.Classifier)
	}
	if cfg.Classifier.Forest.MaxDepth != 10 {
		t.Fatalf("partial yaml must keep defaults, got depth %d", cfg.Classifier.Forest.MaxDepth)
	}
	if cfg.Engine.Risk.HighSeverityDepth != 60 {
		t.Fatalf("expected risk depth 60, got %v", cfg.Engine.Risk.HighSeverityDepth)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Redis().Addr != "redis:6379" || cfg.Cache.ModelTTL != time.Hour {
		t.Fatalf("unexpected cache config: %+v", cfg.Cache)
	}
	if !cfg.Logging.JSON {
		t.Fatalf("expected json logging")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadMergesApplicabilityTable(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "applicability.yaml")
	if err := os.WriteFile(table, []byte("applicability:\n  crane: [UZK, RGK]\n"), 0644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	path := writeConfig(t, dir, `
rules:
  applicabilityPath: `+table+`
engine:
  recommend:
    applicability:
      compressor: [UTWM]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	app := cfg.Engine.Recommend.Applicability
	if len(app["crane"]) != 2 || len(app["compressor"]) != 1 {
		t.Fatalf("unexpected applicability: %v", app)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "engine:\n  topRisks: 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- Watch(ctx, path, logger, func(cfg *Config) { reloaded <- cfg })
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Engine.TopRisks != 7 {
				continue
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("watch returned %v", err)
			}
			return
		case <-tick.C:
			// Rewrite until the watcher has registered and observed a change.
			writeConfig(t, dir, "engine:\n  topRisks: 7\n")
		case <-deadline:
			t.Fatalf("config reload not observed")
		}
	}
}
