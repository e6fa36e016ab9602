// Command riskguardd runs the risk-assessment session engine as a
// long-lived process: it loads configuration, wires the cipher, the
// in-memory session store, the optional audit trail and risk bus, and
// the retention supervisor, then blocks until told to shut down.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/riskguard/engine/internal/audit"
	"github.com/riskguard/engine/internal/cipher"
	"github.com/riskguard/engine/internal/config"
	"github.com/riskguard/engine/internal/redaction"
	"github.com/riskguard/engine/internal/riskbus"
	"github.com/riskguard/engine/internal/riskengine"
	"github.com/riskguard/engine/internal/session"
	"github.com/riskguard/engine/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "configs/riskguard.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("starting riskguardd",
		"version", "0.1.0",
		"session_ttl_hours", cfg.Retention.SessionTTLHours,
		"max_session_age_hours", cfg.Retention.MaxSessionAgeHours,
		"encryption_enabled", cfg.Cipher.Enabled,
	)

	payloadCipher, err := cipher.New(cipher.KeySource{
		Key:      cfg.Cipher.Key,
		Password: cfg.Cipher.Password,
		Salt:     cfg.Cipher.Salt,
	}, cfg.Cipher.Enabled)
	if err != nil {
		slog.Error("failed to initialize cipher", "error", err)
		os.Exit(1)
	}

	store := session.NewMemoryStore(payloadCipher, session.RetentionPolicy{
		SessionTTLHours:    cfg.Retention.SessionTTLHours,
		MaxSessionAgeHours: cfg.Retention.MaxSessionAgeHours,
		EventRetentionDays: cfg.Retention.EventRetentionDays,
		PIIRetentionDays:   cfg.Retention.PIIRetentionDays,
		EncryptionEnabled:  cfg.Cipher.Enabled,
	})

	opts := []riskengine.Option{}

	tp := telemetry.NoopProvider()
	if cfg.Telemetry.Enabled {
		provider, err := telemetry.NewProvider(telemetry.Config{
			Enabled:     cfg.Telemetry.Enabled,
			Exporter:    cfg.Telemetry.Exporter,
			Endpoint:    cfg.Telemetry.Endpoint,
			ServiceName: cfg.Telemetry.ServiceName,
			Insecure:    cfg.Telemetry.Insecure,
		})
		if err != nil {
			slog.Warn("telemetry initialization failed, continuing without tracing", "error", err)
		} else {
			tp = provider
			opts = append(opts, riskengine.WithTelemetry(tp))
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					slog.Error("telemetry shutdown error", "error", err)
				}
			}()
		}
	}

	var ledger *audit.SQLiteLedger
	if cfg.Audit.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Audit.Path), 0o750); err != nil {
			slog.Error("failed to create audit data directory", "error", err)
			os.Exit(1)
		}
		sqliteLedger, err := audit.NewSQLiteLedger(cfg.Audit.Path)
		if err != nil {
			slog.Error("failed to initialize audit ledger", "error", err)
			os.Exit(1)
		}
		ledger = sqliteLedger
		opts = append(opts, riskengine.WithAudit(ledger))
		defer sqliteLedger.Close()
	}

	var bus riskbus.Publisher = riskbus.NoopPublisher{}
	if cfg.RiskBus.Enabled {
		redisBus, err := riskbus.NewRedisPublisher(cfg.RiskBus.Addr, cfg.RiskBus.Channel)
		if err != nil {
			slog.Warn("risk bus initialization failed, escalations will not be published", "error", err)
		} else {
			bus = redisBus
			defer redisBus.Close()
		}
	}
	opts = append(opts, riskengine.WithRiskBus(bus))

	if cfg.Redaction.Enabled {
		redactor := redaction.NewPatternRedactor()
		for _, p := range cfg.Redaction.CustomPatterns {
			if err := redactor.AddPattern(p.Name, p.Pattern, p.Replacement); err != nil {
				slog.Warn("skipping invalid custom redaction pattern", "name", p.Name, "error", err)
			}
		}
		opts = append(opts, riskengine.WithRedactor(redactor))
	} else {
		opts = append(opts, riskengine.WithRedactor(&redaction.NoopRedactor{}))
	}

	engine := riskengine.New(store, opts...)
	_ = engine // the engine is the library surface consumed by callers embedding riskguardd

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	retentionOpts := []session.RetentionOption{
		session.WithSweepObserver(func(sweepCtx context.Context, idle, hardCap, events int) {
			tp.RecordRetentionSweep(sweepCtx, idle, hardCap, events)
		}),
	}
	if ledger != nil {
		retentionOpts = append(retentionOpts, session.WithAuditPrune(func(sweepCtx context.Context) (int64, error) {
			return ledger.Prune(sweepCtx, cfg.Retention.EventRetentionDays)
		}))
	}

	supervisor := session.NewRetentionSupervisor(store, cfg.Retention.SweepInterval, retentionOpts...)
	supervisor.Start(ctx)

	slog.Info("riskguardd ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("received shutdown signal", "signal", sig)

	cancel()
	supervisor.Stop()

	slog.Info("riskguardd stopped")
}
