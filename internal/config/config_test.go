package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retention.SessionTTLHours != 24 {
		t.Errorf("expected default session_ttl_hours 24, got %d", cfg.Retention.SessionTTLHours)
	}
	if !cfg.Cipher.Enabled {
		t.Error("expected cipher enabled by default")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected default logging format json, got %q", cfg.Logging.Format)
	}
}

func TestLoad_ParsesYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "riskguard.yaml")
	contents := `
retention:
  session_ttl_hours: 12
  sweep_interval: 30m
logging:
  format: text
  level: debug
audit:
  enabled: true
  path: /tmp/audit.db
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retention.SessionTTLHours != 12 {
		t.Errorf("expected session_ttl_hours 12, got %d", cfg.Retention.SessionTTLHours)
	}
	if cfg.Retention.SweepInterval != 30*time.Minute {
		t.Errorf("expected sweep_interval 30m, got %v", cfg.Retention.SweepInterval)
	}
	if cfg.Logging.Format != "text" || cfg.Logging.Level != "debug" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Path != "/tmp/audit.db" {
		t.Errorf("unexpected audit config: %+v", cfg.Audit)
	}
	// Untouched field still carries its default.
	if cfg.Retention.MaxSessionAgeHours != 48 {
		t.Errorf("expected default max_session_age_hours 48, got %d", cfg.Retention.MaxSessionAgeHours)
	}
}

func TestLoad_EnvOverridesWinOverYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "riskguard.yaml")
	if err := os.WriteFile(path, []byte("retention:\n  session_ttl_hours: 12\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("SESSION_TTL_HOURS", "6")
	t.Setenv("ENABLE_DATA_ENCRYPTION", "false")
	t.Setenv("RISKGUARD_RISK_BUS_ENABLED", "true")
	t.Setenv("RISKGUARD_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retention.SessionTTLHours != 6 {
		t.Errorf("expected env override session_ttl_hours 6, got %d", cfg.Retention.SessionTTLHours)
	}
	if cfg.Cipher.Enabled {
		t.Error("expected ENABLE_DATA_ENCRYPTION=false to disable cipher")
	}
	if !cfg.RiskBus.Enabled || cfg.RiskBus.Addr != "redis.internal:6379" {
		t.Errorf("unexpected risk bus config: %+v", cfg.RiskBus)
	}
}

func TestLoad_InvalidLoggingFormatFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "riskguard.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  format: xml\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for logging.format = xml")
	}
}

func TestLoad_NegativeRetentionFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "riskguard.yaml")
	if err := os.WriteFile(path, []byte("retention:\n  pii_retention_days: -1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for negative pii_retention_days")
	}
}

func TestValidate_ZeroSweepIntervalRejected(t *testing.T) {
	cfg := defaults()
	cfg.Retention.SweepInterval = 0
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for zero sweep_interval")
	}
}
