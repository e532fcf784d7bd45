package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "machshop.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Store.Path != "machshop.db" {
		t.Errorf("unexpected default store path: %q", cfg.Store.Path)
	}
	if cfg.Planner.HighImpactThreshold != 100000 {
		t.Errorf("unexpected default impact threshold: %v", cfg.Planner.HighImpactThreshold)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  path: /var/lib/machshop/eco.db
  max_open_conns: 10
erp:
  base_url: https://erp.plant.local/api/v1
  timeout_seconds: 15
planner:
  high_impact_threshold: 250000
telemetry:
  logging:
    level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Store.Path != "/var/lib/machshop/eco.db" {
		t.Errorf("store path not applied: %q", cfg.Store.Path)
	}
	if cfg.Store.MaxOpenConns != 10 {
		t.Errorf("store pool size not applied: %d", cfg.Store.MaxOpenConns)
	}
	if cfg.ERP.BaseURL != "https://erp.plant.local/api/v1" {
		t.Errorf("ERP base URL not applied: %q", cfg.ERP.BaseURL)
	}
	if cfg.ERP.TimeoutSeconds != 15 {
		t.Errorf("ERP timeout not applied: %d", cfg.ERP.TimeoutSeconds)
	}
	if cfg.Planner.HighImpactThreshold != 250000 {
		t.Errorf("planner threshold not applied: %v", cfg.Planner.HighImpactThreshold)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("log level not applied: %q", cfg.Telemetry.Logging.Level)
	}

	// Untouched sections keep their defaults.
	if cfg.Planner.NonInterchangeableExtensionDays != 30 {
		t.Errorf("default planner extension lost: %d", cfg.Planner.NonInterchangeableExtensionDays)
	}
}

func TestLoadRejectsMissingStorePath(t *testing.T) {
	path := writeConfig(t, `
store:
  path: ""
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for empty store path")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "store: [unclosed")

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
