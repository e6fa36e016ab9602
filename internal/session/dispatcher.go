package session

import (
	"errors"

	"github.com/riskguard/engine/internal/callguard"
	"github.com/riskguard/engine/internal/identitywatch"
	"github.com/riskguard/engine/internal/inboxguard"
	"github.com/riskguard/engine/internal/moneyguard"
	"github.com/riskguard/engine/internal/riskmodel"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session: not found")

// ErrNoEvidence is returned when the Dispatcher cannot find the event
// a module's evidence-selection rule requires — currently only reachable
// for inboxguard, which has no "pass {}" fallback.
var ErrNoEvidence = errors.New("session: no evidence available for dispatch")

// Dispatcher selects evidence from a session's decrypted event log and
// invokes the Scorer for the session's module, storing the result via
// UpdateLastRisk. It never caches or memoizes: every call re-derives
// evidence from the full (retention-bounded) event log.
type Dispatcher struct {
	store Store
}

// NewDispatcher builds a Dispatcher bound to a Store.
func NewDispatcher(store Store) *Dispatcher {
	return &Dispatcher{store: store}
}

// Dispatch re-scores sessionID according to its module's evidence
// selection rule and persists the result. It returns not_found if the
// session is unknown, or no_evidence for inboxguard when no "text"/"url"
// event exists.
func (d *Dispatcher) Dispatch(sessionID string) (riskmodel.RiskResponse, error) {
	view, ok := d.store.GetSession(sessionID)
	if !ok {
		return riskmodel.RiskResponse{}, ErrNotFound
	}

	var resp riskmodel.RiskResponse
	switch view.Module {
	case riskmodel.CallGuard:
		resp = callguard.Assess(collectCallGuardSignals(view.Events))
	case riskmodel.MoneyGuard:
		resp = moneyguard.Assess(mostRecentMoneyGuardPayload(view.Events))
	case riskmodel.IdentityWatch:
		resp = identitywatch.Assess(mostRecentIdentitySignals(view.Events))
	case riskmodel.InboxGuard:
		evt, ok := mostRecentInboxEvent(view.Events)
		if !ok {
			return riskmodel.RiskResponse{}, ErrNoEvidence
		}
		resp = assessInboxEvent(evt)
	default:
		return riskmodel.RiskResponse{}, ErrNotFound
	}

	d.store.UpdateLastRisk(sessionID, resp)
	return resp, nil
}

// collectCallGuardSignals gathers payload.signal_key from every "signal"
// event, in insertion order.
func collectCallGuardSignals(events []Event) []string {
	var signals []string
	for _, evt := range events {
		if evt.Type != "signal" {
			continue
		}
		if key, ok := evt.Payload["signal_key"].(string); ok && key != "" {
			signals = append(signals, key)
		}
	}
	return signals
}

// mostRecentMoneyGuardPayload finds the most recent "assess" event and
// converts its payload into a moneyguard.Payload. Absent an event, it
// returns the zero payload, matching MoneyGuard's "pass {}" contract
// for an absent assessment.
func mostRecentMoneyGuardPayload(events []Event) moneyguard.Payload {
	evt, ok := mostRecentOfType(events, "assess")
	if !ok {
		return moneyguard.Payload{}
	}
	return payloadToMoneyGuard(evt.Payload)
}

// mostRecentIdentitySignals finds the most recent "signals" event and
// returns its payload as a boolean map, coercing non-bool values to
// false. Absent an event, it returns an empty map ("pass {}").
func mostRecentIdentitySignals(events []Event) map[string]bool {
	evt, ok := mostRecentOfType(events, "signals")
	if !ok {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(evt.Payload))
	for k, v := range evt.Payload {
		if b, ok := v.(bool); ok {
			out[k] = b
		}
	}
	return out
}

// mostRecentInboxEvent finds the most recent event of type "text" or
// "url".
func mostRecentInboxEvent(events []Event) (Event, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == "text" || events[i].Type == "url" {
			return events[i], true
		}
	}
	return Event{}, false
}

func assessInboxEvent(evt Event) riskmodel.RiskResponse {
	if evt.Type == "url" {
		rawURL, _ := evt.Payload["url"].(string)
		return inboxguard.AnalyzeURL(rawURL)
	}
	text, _ := evt.Payload["text"].(string)
	channel, _ := evt.Payload["channel"].(string)
	return inboxguard.AnalyzeText(text, channel)
}

func mostRecentOfType(events []Event, eventType string) (Event, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return events[i], true
		}
	}
	return Event{}, false
}

// payloadToMoneyGuard converts a raw event payload into the typed
// MoneyGuard evidence envelope, matching the Dispatcher-boundary design
// note: the raw map never reaches the Scorer directly.
func payloadToMoneyGuard(payload map[string]any) moneyguard.Payload {
	p := moneyguard.Payload{}
	p.Amount = coerceNonNegativeFloat(payload["amount"])
	p.PaymentMethod, _ = payload["payment_method"].(string)
	p.DidTheyContactYouFirst, _ = payload["did_they_contact_you_first"].(bool)

	flagsRaw, _ := payload["flags"].(map[string]any)
	if flagsRaw == nil {
		return p
	}
	p.Flags.AskedForVerificationCode, _ = flagsRaw["asked_for_verification_code"].(bool)
	p.Flags.AskedForRemoteAccess, _ = flagsRaw["asked_for_remote_access"].(bool)
	p.Flags.AskedToKeepSecret, _ = flagsRaw["asked_to_keep_secret"].(bool)
	p.Flags.UrgencyPresent, _ = flagsRaw["urgency_present"].(bool)
	p.Flags.ImpersonationType, _ = flagsRaw["impersonation_type"].(string)
	return p
}

// coerceNonNegativeFloat treats negative or non-numeric amounts as zero.
func coerceNonNegativeFloat(v any) float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	default:
		return 0
	}
	if f < 0 {
		return 0
	}
	return f
}
