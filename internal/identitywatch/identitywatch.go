// Package identitywatch scores identity-misuse risk from a set of
// boolean signals. It is a pure function: evidence in, RiskResponse out.
package identitywatch

import (
	"strings"

	"github.com/riskguard/engine/internal/riskmodel"
)

// signalOrder is the canonical iteration order: reasons are emitted in
// this fixed order regardless of map iteration, so output is
// deterministic.
var signalOrder = []string{
	"password_reset_unknown",
	"account_opened",
	"suspicious_inquiry",
	"reused_passwords",
	"clicked_suspicious_link",
	"ssn_requested_unexpectedly",
}

var signalWeights = map[string]int{
	"password_reset_unknown":     25,
	"account_opened":             40,
	"suspicious_inquiry":         40,
	"reused_passwords":           15,
	"clicked_suspicious_link":    20,
	"ssn_requested_unexpectedly": 25,
}

// Assess scores an identity-misuse signal set. A key that is missing or
// false contributes nothing.
func Assess(signals map[string]bool) riskmodel.RiskResponse {
	score := 0
	var reasons []string

	for _, key := range signalOrder {
		if !signals[key] {
			continue
		}
		score += signalWeights[key]
		reasons = append(reasons, strings.ReplaceAll(key, "_", " "))
	}

	recommendedActions := []riskmodel.RecommendedAction{
		{ID: "freeze-credit", Title: "Freeze your credit", Detail: "Place a free credit freeze with the major bureaus."},
		{ID: "enable-2fa", Title: "Enable 2FA", Detail: "Turn on multi-factor authentication for key accounts."},
		{ID: "change-passwords", Title: "Change passwords", Detail: "Update passwords on critical accounts and use a manager."},
		{ID: "check-credit", Title: "Check your credit report", Detail: "Review recent inquiries and accounts you don't recognize."},
	}

	safeScript := &riskmodel.SafeScript{
		SayThis:        "I'm calling to report potential fraud and request next steps.",
		IfTheyPushBack: "Please note this as suspected identity misuse and escalate if needed.",
	}

	if len(reasons) == 0 {
		reasons = []string{"No high-risk identity signals selected."}
	}

	metadata := map[string]any{
		"suggested_freeze_steps": []string{
			"Freeze credit with Equifax, Experian, and TransUnion.",
			"Create a PIN for lifting the freeze later.",
		},
		"suggested_password_steps": []string{
			"Change passwords starting with email and banking.",
			"Enable passkeys or authenticator apps where possible.",
		},
		"monitoring_steps": []string{
			"Set alerts for new credit inquiries.",
			"Review bank statements weekly for unusual activity.",
		},
	}

	return riskmodel.BuildRiskResponse(
		score,
		reasons,
		"Start with a credit freeze and password reset if any suspicion remains.",
		recommendedActions,
		safeScript,
		metadata,
	)
}
