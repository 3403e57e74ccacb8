package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/integrityos/risk-engine/internal/cache"
	"github.com/integrityos/risk-engine/internal/config"
	"github.com/integrityos/risk-engine/internal/grpc/riskv1"
)

const sampleDataset = `{
  "pipelines": [{"id": "P1", "name": "North"}],
  "objects": [
    {"id": "grow", "pipeline_id": "P1", "type": "pipeline_section"},
    {"id": "fresh", "pipeline_id": "P1", "type": "crane"}
  ],
  "observations": [
    {"id": "g1", "object_id": "grow", "method": "UZK", "date": "2019-06-01", "depth_percent": 20, "defect_found": true},
    {"id": "g2", "object_id": "grow", "method": "UZK", "date": "2020-06-01", "depth_percent": 30, "defect_found": true},
    {"id": "g3", "object_id": "grow", "method": "MFL", "date": "2021-06-01", "depth_percent": 40, "defect_found": true}
  ]
}`

func TestAnalyzeCommandPrintsReport(t *testing.T) {
	t.Setenv("RISK_ENGINE_CONFIG", "")
	path := filepath.Join(t.TempDir(), "dataset.json")
	if err := os.WriteFile(path, []byte(sampleDataset), 0644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"analyze", "--dataset", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var report riskv1.AnalysisReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out.String())
	}
	if report.DatasetVersion != 1 || report.ClassifierMethod != "rule_based" {
		t.Fatalf("unexpected header %+v", report)
	}
	if len(report.Assessments) != 2 || report.Assessments[0].Object.ID != "grow" {
		t.Fatalf("unexpected assessments %+v", report.Assessments)
	}
	if report.Assessments[1].Forecast.Status != "unassessable" {
		t.Fatalf("expected fresh object to be unassessable, got %+v", report.Assessments[1].Forecast)
	}
	if len(report.Pipelines) != 1 || report.Pipelines[0].ObservationCount != 3 {
		t.Fatalf("unexpected pipelines %+v", report.Pipelines)
	}
}

func TestNewProviderFallsBackToMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := map[string]config.CacheConfig{
		"disabled":    {ModelTTL: time.Hour},
		"unreachable": {Enabled: true, Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond},
	}
	for name, cfg := range cases {
		provider := newProvider(cfg, logger)
		mem, ok := provider.(*cache.MemoryProvider)
		if !ok {
			t.Fatalf("%s: expected memory provider, got %T", name, provider)
		}
		ctx := context.Background()
		if err := mem.Set(ctx, "model", []byte("snapshot"), 0); err != nil {
			t.Fatalf("%s: set: %v", name, err)
		}
		if got, err := mem.Get(ctx, "model"); err != nil || string(got) != "snapshot" {
			t.Fatalf("%s: expected stored snapshot, got %q %v", name, got, err)
		}
		_ = provider.Close()
	}
}
