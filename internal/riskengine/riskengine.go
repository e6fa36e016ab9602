// Package riskengine is the facade exposing the engine's external
// operations: start a session, append evidence, dispatch an assessment,
// fetch a view, and summarize. It wraps session.Dispatcher with
// panic recovery, optional audit persistence, and optional
// risk-escalation publishing.
package riskengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/riskguard/engine/internal/audit"
	"github.com/riskguard/engine/internal/redaction"
	"github.com/riskguard/engine/internal/riskbus"
	"github.com/riskguard/engine/internal/riskmodel"
	"github.com/riskguard/engine/internal/session"
	"github.com/riskguard/engine/internal/telemetry"
)

// Sentinel errors mirroring the session package's taxonomy, plus
// ErrInvalidInput. The internal failure kind has no sentinel: Dispatch
// reports a recovered Scorer panic as a plain wrapped error.
var (
	ErrNotFound     = session.ErrNotFound
	ErrNoEvidence   = session.ErrNoEvidence
	ErrInvalidInput = errors.New("riskengine: invalid input")
)

// Engine composes the session store, dispatcher, and the optional
// ambient sinks (audit trail, risk bus, telemetry).
type Engine struct {
	store      session.Store
	dispatcher *session.Dispatcher
	ledger     audit.Ledger // nil disables audit persistence
	bus        riskbus.Publisher
	telemetry  *telemetry.Provider
	redactor   redaction.Redactor
}

// Option configures an Engine.
type Option func(*Engine)

// WithAudit attaches an audit ledger; every dispatch is recorded.
func WithAudit(l audit.Ledger) Option {
	return func(e *Engine) { e.ledger = l }
}

// WithRiskBus attaches a risk-escalation publisher.
func WithRiskBus(p riskbus.Publisher) Option {
	return func(e *Engine) { e.bus = p }
}

// WithTelemetry attaches a telemetry provider for span instrumentation.
func WithTelemetry(p *telemetry.Provider) Option {
	return func(e *Engine) { e.telemetry = p }
}

// WithRedactor overrides the default diagnostic-log redactor.
func WithRedactor(r redaction.Redactor) Option {
	return func(e *Engine) { e.redactor = r }
}

// New builds an Engine over store, defaulting the risk bus to a no-op
// and the redactor to the default pattern set.
func New(store session.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		dispatcher: session.NewDispatcher(store),
		bus:        riskbus.NoopPublisher{},
		telemetry:  telemetry.NoopProvider(),
		redactor:   redaction.NewPatternRedactor(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSession begins tracking a new session for module.
func (e *Engine) StartSession(ctx context.Context, userID, deviceID string, module riskmodel.Module) string {
	_, span := e.telemetry.StartSessionSpan(ctx, "", module)
	id := e.store.StartSession(userID, deviceID, module)
	span.End()
	return id
}

// AppendEvent records one piece of evidence against sessionID.
func (e *Engine) AppendEvent(ctx context.Context, sessionID string, in session.EventInput) (session.Event, error) {
	_, span := e.telemetry.StartAppendEventSpan(ctx, sessionID, in.Type)
	defer span.End()

	evt, ok := e.store.AppendEvent(sessionID, in)
	if !ok {
		return session.Event{}, ErrNotFound
	}
	return evt, nil
}

// GetSession returns the current decrypted view of a session.
func (e *Engine) GetSession(sessionID string) (session.SessionView, error) {
	view, ok := e.store.GetSession(sessionID)
	if !ok {
		return session.SessionView{}, ErrNotFound
	}
	return view, nil
}

// Dispatch re-scores sessionID, recovering from any panic raised by a
// Scorer and reporting it as an internal error with the offending
// evidence redacted in the diagnostic log line.
func (e *Engine) Dispatch(ctx context.Context, sessionID string) (resp riskmodel.RiskResponse, err error) {
	view, ok := e.store.GetSession(sessionID)
	if !ok {
		return riskmodel.RiskResponse{}, ErrNotFound
	}

	ctx, span := e.telemetry.StartDispatchSpan(ctx, sessionID, view.Module)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch panic recovered",
				"session_id", sessionID,
				"module", view.Module,
				"panic", r,
				"evidence", e.redactEvidence(view),
			)
			err = fmt.Errorf("riskengine: internal error assessing module %s: %v", view.Module, r)
		}
		e.telemetry.EndDispatchSpan(span, resp, err)
	}()

	resp, err = e.dispatcher.Dispatch(sessionID)
	if err != nil {
		return riskmodel.RiskResponse{}, err
	}

	// The audit trail and risk bus are external sinks (disk, Redis); reasons
	// can echo back raw evidence (phone numbers, amounts, message text), so
	// they're scrubbed before leaving the process.
	sunk := resp
	sunk.Reasons = e.redactReasons(resp.Reasons)

	if e.ledger != nil {
		if recErr := e.ledger.Record(ctx, sessionID, view.Module, sunk); recErr != nil {
			slog.Warn("audit record failed", "session_id", sessionID, "error", recErr)
		}
	}
	// Only a transition into high is an escalation; a session already at
	// high before this dispatch is not republished.
	if view.LastRisk == nil || view.LastRisk.Level != riskmodel.LevelHigh {
		if busErr := e.bus.PublishEscalation(ctx, sessionID, view.Module, sunk); busErr != nil {
			slog.Warn("risk bus publish failed", "session_id", sessionID, "error", busErr)
		}
	}

	return resp, nil
}

// Summarize closes out a session with a plain-language takeaway list.
func (e *Engine) Summarize(sessionID string, keyTakeaways []string) (session.SessionSummary, error) {
	summary, ok := e.store.Summarize(sessionID, keyTakeaways)
	if !ok {
		return session.SessionSummary{}, ErrNotFound
	}
	return summary, nil
}

// redactEvidence renders a session's recent event payloads through the
// diagnostic redactor, so a panic-recovery log line never leaks raw PII.
func (e *Engine) redactEvidence(view session.SessionView) []string {
	redacted := make([]string, 0, len(view.Events))
	for _, evt := range view.Events {
		redacted = append(redacted, e.redactor.Redact(fmt.Sprintf("%s: %v", evt.Type, evt.Payload)))
	}
	return redacted
}

// redactReasons scrubs each reason string before it leaves the process via
// the audit ledger or risk bus.
func (e *Engine) redactReasons(reasons []string) []string {
	redacted := make([]string, len(reasons))
	for i, r := range reasons {
		redacted[i] = e.redactor.Redact(r)
	}
	return redacted
}
