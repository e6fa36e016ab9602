// Package telemetry wraps OpenTelemetry tracing for the engine's
// session lifecycle: starting a session, appending evidence, dispatching
// a risk assessment, and the retention supervisor's sweeps.
package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskguard/engine/internal/riskmodel"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled     bool
	Exporter    string // "otlp", "stdout", or "none"
	Endpoint    string
	ServiceName string
	Insecure    bool
}

// Provider manages OpenTelemetry tracing for the engine.
type Provider struct {
	config   Config
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// NewProvider creates a new telemetry provider.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{config: cfg, tracer: otel.Tracer("riskguard")}, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "riskguard-engine"
	}

	slog.Info("creating telemetry exporter", "type", cfg.Exporter)

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "otlp":
		exporter, err = createOTLPExporter(cfg)
		if err != nil {
			return nil, err
		}
		slog.Info("otlp exporter initialized", "endpoint", cfg.Endpoint)
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			slog.Error("stdout exporter creation failed", "error", err)
			return nil, err
		}
		slog.Info("stdout trace exporter initialized")
	default:
		return &Provider{config: cfg, tracer: otel.Tracer("riskguard")}, nil
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	return &Provider{
		config:   cfg,
		tracer:   tp.Tracer("riskguard"),
		provider: tp,
	}, nil
}

func createOTLPExporter(cfg Config) (sdktrace.SpanExporter, error) {
	ctx := context.Background()

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	return otlptracegrpc.New(ctx, opts...)
}

// Tracer returns the tracer for creating spans.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown gracefully shuts down the trace provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}

// Enabled returns whether telemetry is enabled.
func (p *Provider) Enabled() bool {
	return p.config.Enabled && p.provider != nil
}

// Span attributes.
const (
	AttrSessionID = "riskguard.session.id"
	AttrModule    = "riskguard.module"
	AttrScore     = "riskguard.score"
	AttrLevel     = "riskguard.level"
	AttrEventType = "riskguard.event.type"
)

// StartSessionSpan starts a span for session creation.
func (p *Provider) StartSessionSpan(ctx context.Context, sessionID string, module riskmodel.Module) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "session.start",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
			attribute.String(AttrModule, string(module)),
		),
	)
}

// StartAppendEventSpan starts a span for appending an event to a session.
func (p *Provider) StartAppendEventSpan(ctx context.Context, sessionID, eventType string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "session.append_event",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
			attribute.String(AttrEventType, eventType),
		),
	)
}

// StartDispatchSpan starts a span for a dispatch/assessment cycle.
func (p *Provider) StartDispatchSpan(ctx context.Context, sessionID string, module riskmodel.Module) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "session.dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
			attribute.String(AttrModule, string(module)),
		),
	)
}

// EndDispatchSpan records the outcome of a dispatch span and ends it.
func (p *Provider) EndDispatchSpan(span trace.Span, resp riskmodel.RiskResponse, err error) {
	span.SetAttributes(
		attribute.Int(AttrScore, resp.Score),
		attribute.String(AttrLevel, string(resp.Level)),
	)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// RecordRetentionSweep records a retention sweep as a span event on a
// freshly created internal span, for visibility into background cleanup.
func (p *Provider) RecordRetentionSweep(ctx context.Context, idleDeleted, hardCapDeleted, eventsDropped int) {
	_, span := p.tracer.Start(ctx, "retention.sweep", trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.Int("riskguard.retention.idle_deleted", idleDeleted),
		attribute.Int("riskguard.retention.hard_cap_deleted", hardCapDeleted),
		attribute.Int("riskguard.retention.events_dropped", eventsDropped),
	)
	span.End()
}

// NoopProvider returns a provider that does nothing (for testing).
func NoopProvider() *Provider {
	return &Provider{config: Config{Enabled: false}, tracer: otel.Tracer("riskguard-noop")}
}

// SpanFromContext extracts a span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
