// Package callguard scores phone-scam risk from a sequence of observed
// call signals. It is a pure function: evidence in, RiskResponse out.
package callguard

import (
	"strings"

	"github.com/riskguard/engine/internal/riskmodel"
)

// signalWeights is the canonical, exhaustive weight table for the rule
// path. A signal absent from this table contributes nothing.
var signalWeights = map[string]int{
	"urgency":                   10,
	"too_good_to_be_true":       15,
	"asks_to_keep_secret":       15,
	"tech_support":              20,
	"caller_id_mismatch":        20,
	"bank_impersonation":        25,
	"government_impersonation":  25,
	"threats_or_arrest":         25,
	"remote_access_request":     30,
	"gift_cards":                30,
	"crypto_payment":            30,
	"verification_code_request": 35,
}

// safeScripts carries a designated subset of signals that have an
// advisory script attached when they are the primary matched signal.
var safeScripts = map[string]riskmodel.SafeScript{
	"bank_impersonation": {
		SayThis:        "I will call the bank back using the number on my card.",
		IfTheyPushBack: "I don't share information on inbound calls. I'll reach out directly.",
	},
	"government_impersonation": {
		SayThis:        "I don't handle legal matters over the phone. I will contact the agency directly.",
		IfTheyPushBack: "Please send official mail. I won't continue this call.",
	},
	"tech_support": {
		SayThis:        "I don't grant remote access. I'll contact support using the official site.",
		IfTheyPushBack: "No remote access. I'm ending the call now.",
	},
	"verification_code_request": {
		SayThis:        "I never share verification codes.",
		IfTheyPushBack: "Without that, I can't proceed. Goodbye.",
	},
	"gift_cards": {
		SayThis:        "I don't pay with gift cards.",
		IfTheyPushBack: "That payment method isn't acceptable. I'm ending this call.",
	},
}

// CallContext is the optional, typed call metadata the rule scorer does
// not consult. It exists only as the input an LLM-enrichment overlay
// would read; it never changes rule-scorer output.
type CallContext struct {
	CallerID   string
	Transcript string
	Duration   int
	Name       string
	Direction  string
}

// Assess scores a CallGuard session from the signals observed so far.
// Non-string-shaped, empty, or whitespace-only entries are discarded
// before matching. Duplicates sum; ties for the primary signal resolve
// to the last-seen highest-weighted entry.
func Assess(signals []string) riskmodel.RiskResponse {
	score := 0
	var reasons []string
	primarySignal := ""
	bestWeight := -1
	processed := 0

	for _, raw := range signals {
		signal := strings.TrimSpace(raw)
		if signal == "" {
			continue
		}
		processed++

		weight, known := signalWeights[signal]
		if !known || weight == 0 {
			continue
		}

		score += weight
		reasons = append(reasons, "Signal detected: "+strings.ReplaceAll(signal, "_", " "))

		if weight >= bestWeight {
			bestWeight = weight
			primarySignal = signal
		}
	}

	recommendedActions := []riskmodel.RecommendedAction{
		{
			ID:     "pause-call",
			Title:  "Pause and verify",
			Detail: "Take a breath, avoid sharing info, and verify the caller independently.",
		},
		{
			ID:     "hang-up",
			Title:  "Hang up if pressured",
			Detail: "If they demand urgency or secrecy, end the call and call back using a trusted number.",
		},
	}

	var safeScript *riskmodel.SafeScript
	if primarySignal != "" {
		if script, ok := safeScripts[primarySignal]; ok {
			s := script
			safeScript = &s
		}
	}

	primaryMeta := primarySignal
	if primaryMeta == "" {
		primaryMeta = "none"
	}

	metadata := map[string]any{
		"primary_signal":     primaryMeta,
		"assessment_method":  "rule_based",
		"signals_count":      len(reasons),
		"signals_processed":  processed,
	}

	if len(reasons) == 0 {
		reasons = []string{"No high-risk signals detected."}
	}

	return riskmodel.BuildRiskResponse(
		score,
		reasons,
		"Verify the caller using an official phone number before sharing anything.",
		recommendedActions,
		safeScript,
		metadata,
	)
}
