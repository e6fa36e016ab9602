// Package moneyguard scores payment-fraud risk from a single payment
// request description. It is a pure function: evidence in, RiskResponse
// out.
package moneyguard

import (
	"strings"

	"github.com/riskguard/engine/internal/riskmodel"
)

var paymentWeights = map[string]int{
	"gift_card": 40,
	"crypto":    35,
	"wire":      25,
}

var impersonationWeights = map[string]int{
	"bank":         15,
	"government":   15,
	"tech_support": 15,
}

// Flags is the sub-map of boolean coercion flags plus the impersonation
// tag, matching the session-event payload shape.
type Flags struct {
	AskedForVerificationCode bool
	AskedForRemoteAccess     bool
	AskedToKeepSecret        bool
	UrgencyPresent           bool
	ImpersonationType        string
}

// Payload is the MoneyGuard evidence envelope.
type Payload struct {
	Amount                 float64
	PaymentMethod          string
	DidTheyContactYouFirst bool
	Flags                  Flags
}

// Assess scores a single payment request. Missing fields default to
// zero/false/none; unknown enum values contribute nothing. Amount is
// expected to already be coerced to a non-negative number by the caller
// (the Dispatcher treats negative or non-numeric amounts as zero).
func Assess(p Payload) riskmodel.RiskResponse {
	score := 0
	var reasons []string

	amount := p.Amount
	if amount < 0 {
		amount = 0
	}

	paymentMethod := strings.ToLower(strings.TrimSpace(p.PaymentMethod))
	if weight, ok := paymentWeights[paymentMethod]; ok {
		score += weight
		reasons = append(reasons, "High-risk payment method: "+strings.ReplaceAll(paymentMethod, "_", " "))
	}

	if p.DidTheyContactYouFirst && amount > 500 {
		score += 15
		reasons = append(reasons, "They contacted you first and the amount is large.")
	}

	if p.Flags.AskedForVerificationCode {
		score += 35
		reasons = append(reasons, "They asked for a verification code.")
	}
	if p.Flags.AskedForRemoteAccess {
		score += 30
		reasons = append(reasons, "They asked for remote access.")
	}
	if p.Flags.AskedToKeepSecret {
		score += 20
		reasons = append(reasons, "They asked you to keep it secret.")
	}
	if p.Flags.UrgencyPresent {
		score += 15
		reasons = append(reasons, "They created urgency or pressure.")
	}

	impersonation := strings.ToLower(strings.TrimSpace(p.Flags.ImpersonationType))
	if impersonation == "" {
		impersonation = "none"
	}
	if weight, ok := impersonationWeights[impersonation]; ok {
		score += weight
		reasons = append(reasons, "Possible "+strings.ReplaceAll(impersonation, "_", " ")+" impersonation.")
	}

	recommendedActions := []riskmodel.RecommendedAction{
		{
			ID:     "pause-payment",
			Title:  "Pause payment",
			Detail: "Stop and verify the request using a trusted channel.",
		},
		{
			ID:     "call-bank",
			Title:  "Call your bank",
			Detail: "Use the number on your card to confirm if this request is legitimate.",
		},
		{
			ID:     "no-otp",
			Title:  "Never share verification codes",
			Detail: "Banks and legitimate services will not ask for OTP codes or remote access.",
		},
	}

	safeScript := &riskmodel.SafeScript{
		SayThis:        "I need to verify this request independently before sending any money.",
		IfTheyPushBack: "I won't proceed without verification. I'll follow up after I confirm.",
	}

	if len(reasons) == 0 {
		reasons = []string{"No high-risk indicators detected."}
	}

	metadata := map[string]any{
		"amount":             amount,
		"payment_method":     paymentMethod,
		"impersonation_type": impersonation,
	}

	return riskmodel.BuildRiskResponse(
		score,
		reasons,
		"Verify the recipient using a trusted number or in-person contact.",
		recommendedActions,
		safeScript,
		metadata,
	)
}

// SafeStepsDoc is the fixed reference document returned by SafeSteps.
type SafeStepsDoc struct {
	Checklist []riskmodel.RecommendedAction `json:"checklist"`
	Scripts   []riskmodel.RecommendedAction `json:"scripts"`
}

// SafeSteps returns a fixed, stateless reference document of payment
// safety guidance; it does not depend on any evidence.
func SafeSteps() SafeStepsDoc {
	return SafeStepsDoc{
		Checklist: []riskmodel.RecommendedAction{
			{ID: "pause", Title: "Pause the payment", Detail: "Give yourself time to verify the request."},
			{ID: "verify", Title: "Verify independently", Detail: "Use an official number or app to confirm the request."},
			{ID: "invoice", Title: "Ask for documentation", Detail: "Request a written invoice and validate the business directly."},
		},
		Scripts: []riskmodel.RecommendedAction{
			{ID: "delay", Title: "Delay script", Detail: "I need to verify this request first. I'll follow up shortly."},
			{ID: "no-otp", Title: "No OTP script", Detail: "I don't share verification codes with anyone."},
		},
	}
}
