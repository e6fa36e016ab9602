package unit

import (
	"context"
	"testing"

	"github.com/riskguard/engine/internal/riskmodel"
	"github.com/riskguard/engine/internal/telemetry"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := telemetry.NewProvider(telemetry.Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Enabled() {
		t.Error("disabled provider should return Enabled() = false")
	}
	if provider.Tracer() == nil {
		t.Error("tracer should not be nil even when disabled")
	}
}

func TestNewProvider_StdoutExporter(t *testing.T) {
	provider, err := telemetry.NewProvider(telemetry.Config{
		Enabled:     true,
		Exporter:    "stdout",
		ServiceName: "riskguard-test",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	if !provider.Enabled() {
		t.Error("provider should be enabled with stdout exporter")
	}
}

func TestNewProvider_NoneExporter(t *testing.T) {
	provider, err := telemetry.NewProvider(telemetry.Config{Enabled: true, Exporter: "none"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Enabled() {
		t.Error("provider with 'none' exporter should not be enabled")
	}
}

func TestNoopProvider(t *testing.T) {
	provider := telemetry.NoopProvider()
	if provider.Enabled() {
		t.Error("noop provider should not be enabled")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("noop provider shutdown should not error: %v", err)
	}
}

func TestStartAndEndDispatchSpan(t *testing.T) {
	provider, err := telemetry.NewProvider(telemetry.Config{
		Enabled:     true,
		Exporter:    "stdout",
		ServiceName: "riskguard-test",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	ctx, span := provider.StartDispatchSpan(context.Background(), "sess-1", riskmodel.CallGuard)
	if !span.IsRecording() {
		t.Error("span should be recording")
	}

	provider.EndDispatchSpan(span, riskmodel.RiskResponse{Score: 65, Level: riskmodel.LevelMedium}, nil)

	if telemetry.SpanFromContext(ctx) == nil {
		t.Error("context should contain span")
	}
}

func TestStartSessionAndAppendEventSpans(t *testing.T) {
	provider := telemetry.NoopProvider()

	ctx, span := provider.StartSessionSpan(context.Background(), "sess-2", riskmodel.MoneyGuard)
	span.End()

	_, evtSpan := provider.StartAppendEventSpan(ctx, "sess-2", "assess")
	evtSpan.End()
}

func TestRecordRetentionSweep(t *testing.T) {
	provider, err := telemetry.NewProvider(telemetry.Config{
		Enabled:     true,
		Exporter:    "stdout",
		ServiceName: "riskguard-test",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	// Should not panic.
	provider.RecordRetentionSweep(context.Background(), 2, 1, 5)
}
