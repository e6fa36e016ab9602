// Package config loads riskguardd's configuration: retention policy,
// cipher key source, and the ambient logging/telemetry/redaction
// toggles, following a YAML-plus-env-override pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for riskguardd.
type Config struct {
	Retention RetentionConfig `yaml:"retention"`
	Cipher    CipherConfig    `yaml:"cipher"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Redaction RedactionConfig `yaml:"redaction"`
	Audit     AuditConfig     `yaml:"audit"`
	RiskBus   RiskBusConfig   `yaml:"risk_bus"`
}

// RetentionConfig mirrors session.RetentionPolicy's fields; the
// environment variables that override them are read in applyEnvOverrides.
type RetentionConfig struct {
	SessionTTLHours    int           `yaml:"session_ttl_hours"`    // 0 disables idle expiry
	MaxSessionAgeHours int           `yaml:"max_session_age_hours"`
	EventRetentionDays int           `yaml:"event_retention_days"`
	PIIRetentionDays   int           `yaml:"pii_retention_days"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
}

// CipherConfig selects the PayloadCipher's key source.
type CipherConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Key      string `yaml:"key"`      // direct symmetric key, if set
	Password string `yaml:"password"` // password+salt KDF path otherwise
	Salt     string `yaml:"salt"`
}

// LoggingConfig holds structured-logging configuration.
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" or "text"
	Level  string `yaml:"level"`
}

// TelemetryConfig holds OpenTelemetry tracing configuration.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Exporter    string `yaml:"exporter"` // "otlp", "stdout", or "none"
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// RedactionConfig controls PII/secret scrubbing applied to diagnostic
// log lines (never to stored session data, which is encrypted, not
// redacted).
type RedactionConfig struct {
	Enabled        bool              `yaml:"enabled"`
	CustomPatterns []PatternOverride `yaml:"patterns"`
}

// PatternOverride is one operator-supplied additional redaction pattern.
type PatternOverride struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// AuditConfig controls the optional SQLite audit trail.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RiskBusConfig controls the optional Redis risk-escalation notifier.
type RiskBusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// Load reads and parses the configuration file, applying defaults, then
// environment overrides, then validation, in that order.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- config path from trusted CLI flag
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaults()
			cfg.applyEnvOverrides()
			if verr := cfg.validate(); verr != nil {
				return nil, fmt.Errorf("validating config: %w", verr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config with the standard environment-variable
// defaults for a fresh deployment.
func defaults() *Config {
	return &Config{
		Retention: RetentionConfig{
			SessionTTLHours:    24,
			MaxSessionAgeHours: 48,
			EventRetentionDays: 30,
			PIIRetentionDays:   90,
			SweepInterval:      time.Hour,
		},
		Cipher: CipherConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Format: "json",
			Level:  "info",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Exporter:    "none",
			ServiceName: "riskguard-engine",
			Endpoint:    "localhost:4317",
			Insecure:    true,
		},
		Redaction: RedactionConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    "data/riskguard-audit.db",
		},
		RiskBus: RiskBusConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			Channel: "riskguard:escalations",
		},
	}
}

// applyEnvOverrides applies the environment-variable surface.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SESSION_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Retention.SessionTTLHours = n
		}
	}
	if v := os.Getenv("MAX_SESSION_AGE_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Retention.MaxSessionAgeHours = n
		}
	}
	if v := os.Getenv("EVENT_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Retention.EventRetentionDays = n
		}
	}
	if v := os.Getenv("PII_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Retention.PIIRetentionDays = n
		}
	}
	if v := os.Getenv("ENABLE_DATA_ENCRYPTION"); v != "" {
		c.Cipher.Enabled = v == "true"
	}
	if v := os.Getenv("RISKGUARD_CIPHER_KEY"); v != "" {
		c.Cipher.Key = v
	}
	if v := os.Getenv("RISKGUARD_CIPHER_PASSWORD"); v != "" {
		c.Cipher.Password = v
	}
	if v := os.Getenv("RISKGUARD_CIPHER_SALT"); v != "" {
		c.Cipher.Salt = v
	}

	if v := os.Getenv("RISKGUARD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("RISKGUARD_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	if os.Getenv("RISKGUARD_TELEMETRY_ENABLED") == "true" {
		c.Telemetry.Enabled = true
	}
	if v := os.Getenv("RISKGUARD_TELEMETRY_EXPORTER"); v != "" {
		c.Telemetry.Exporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Enabled = true
		c.Telemetry.Exporter = "otlp"
		c.Telemetry.Endpoint = v
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true" {
		c.Telemetry.Insecure = true
	}

	if os.Getenv("RISKGUARD_AUDIT_ENABLED") == "true" {
		c.Audit.Enabled = true
	}
	if v := os.Getenv("RISKGUARD_AUDIT_PATH"); v != "" {
		c.Audit.Path = v
	}

	if os.Getenv("RISKGUARD_RISK_BUS_ENABLED") == "true" {
		c.RiskBus.Enabled = true
	}
	if v := os.Getenv("RISKGUARD_REDIS_ADDR"); v != "" {
		c.RiskBus.Addr = v
	}
}

// validate checks that the configuration is internally consistent.
func (c *Config) validate() error {
	if c.Retention.SessionTTLHours < 0 {
		return fmt.Errorf("retention.session_ttl_hours must be >= 0")
	}
	if c.Retention.MaxSessionAgeHours < 0 {
		return fmt.Errorf("retention.max_session_age_hours must be >= 0")
	}
	if c.Retention.EventRetentionDays < 0 {
		return fmt.Errorf("retention.event_retention_days must be >= 0")
	}
	if c.Retention.PIIRetentionDays < 0 {
		return fmt.Errorf("retention.pii_retention_days must be >= 0")
	}
	if c.Retention.SweepInterval <= 0 {
		return fmt.Errorf("retention.sweep_interval must be positive")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be \"json\" or \"text\", got %q", c.Logging.Format)
	}
	return nil
}
