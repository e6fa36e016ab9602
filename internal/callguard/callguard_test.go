package callguard

import (
	"testing"

	"github.com/riskguard/engine/internal/riskmodel"
)

func hasReason(reasons []string, substr string) bool {
	for _, r := range reasons {
		if r == substr {
			return true
		}
	}
	return false
}

func TestAssess_Empty_NeutralReason(t *testing.T) {
	resp := Assess(nil)
	if resp.Score != 0 {
		t.Fatalf("expected score 0, got %d", resp.Score)
	}
	if resp.Level != riskmodel.LevelLow {
		t.Fatalf("expected low level, got %s", resp.Level)
	}
	if len(resp.Reasons) != 1 || resp.Reasons[0] != "No high-risk signals detected." {
		t.Fatalf("expected single neutral reason, got %v", resp.Reasons)
	}
	if resp.SafeScript != nil {
		t.Fatal("expected no safe script for empty signals")
	}
}

func TestAssess_HighRiskCombo(t *testing.T) {
	resp := Assess([]string{"verification_code_request", "remote_access_request", "bank_impersonation"})
	if resp.Score != 90 {
		t.Fatalf("expected score 90, got %d", resp.Score)
	}
	if resp.Level != riskmodel.LevelHigh {
		t.Fatalf("expected high level, got %s", resp.Level)
	}
	if len(resp.Reasons) != 3 {
		t.Fatalf("expected 3 reasons, got %d", len(resp.Reasons))
	}
	if resp.SafeScript == nil {
		t.Fatal("expected a safe script")
	}
	if resp.Metadata["primary_signal"] != "verification_code_request" {
		t.Fatalf("expected primary_signal verification_code_request, got %v", resp.Metadata["primary_signal"])
	}
}

func TestAssess_TieBreak_LastSeenHighestWeighted(t *testing.T) {
	// bank_impersonation and government_impersonation both weigh 25;
	// the later-seen one wins the tie.
	resp := Assess([]string{"bank_impersonation", "government_impersonation"})
	if resp.Metadata["primary_signal"] != "government_impersonation" {
		t.Fatalf("expected government_impersonation to win the tie, got %v", resp.Metadata["primary_signal"])
	}
}

func TestAssess_DuplicatesSum(t *testing.T) {
	resp := Assess([]string{"urgency", "urgency"})
	if resp.Score != 20 {
		t.Fatalf("expected duplicate signals to sum to 20, got %d", resp.Score)
	}
}

func TestAssess_DiscardsBlankSignals(t *testing.T) {
	resp := Assess([]string{"", "   ", "urgency"})
	if resp.Score != 10 {
		t.Fatalf("expected blank entries discarded, score 10, got %d", resp.Score)
	}
	if resp.Metadata["signals_processed"] != 1 {
		t.Fatalf("expected 1 processed signal, got %v", resp.Metadata["signals_processed"])
	}
}

func TestAssess_UnknownSignalNeutral(t *testing.T) {
	base := Assess([]string{"urgency"})
	withUnknown := Assess([]string{"urgency", "not_a_real_signal"})
	if base.Score != withUnknown.Score {
		t.Fatalf("unknown signal should not change score: %d vs %d", base.Score, withUnknown.Score)
	}
}

func TestAssess_Monotonic(t *testing.T) {
	before := Assess([]string{"urgency"})
	after := Assess([]string{"urgency", "tech_support"})
	if after.Score < before.Score {
		t.Fatalf("adding a known signal must not decrease score: %d -> %d", before.Score, after.Score)
	}
}

func TestAssess_ScoreClampedTo100(t *testing.T) {
	resp := Assess([]string{
		"verification_code_request", "remote_access_request", "gift_cards",
		"crypto_payment", "bank_impersonation", "government_impersonation",
		"threats_or_arrest",
	})
	if resp.Score != 100 {
		t.Fatalf("expected clamp to 100, got %d", resp.Score)
	}
}

func TestAssess_BoundaryLevels(t *testing.T) {
	if got := riskmodel.ScoreToLevel(34); got != riskmodel.LevelLow {
		t.Fatalf("34 should be low, got %s", got)
	}
	if got := riskmodel.ScoreToLevel(35); got != riskmodel.LevelMedium {
		t.Fatalf("35 should be medium, got %s", got)
	}
	if got := riskmodel.ScoreToLevel(69); got != riskmodel.LevelMedium {
		t.Fatalf("69 should be medium, got %s", got)
	}
	if got := riskmodel.ScoreToLevel(70); got != riskmodel.LevelHigh {
		t.Fatalf("70 should be high, got %s", got)
	}
}

func TestAssess_ReasonTextFormat(t *testing.T) {
	resp := Assess([]string{"tech_support"})
	if !hasReason(resp.Reasons, "Signal detected: tech support") {
		t.Fatalf("expected formatted reason, got %v", resp.Reasons)
	}
}
