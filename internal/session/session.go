// Package session implements the engine's session store: session and
// event lifecycle, sensitive-field encryption at rest, evidence
// selection for the four scorers, and background retention sweeps.
package session

import (
	"time"

	"github.com/riskguard/engine/internal/riskmodel"
)

// Event is one append-only entry in a session's event log. Type tags
// the shape callers should expect in Payload: "signal", "assess",
// "text", "url", or "signals".
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventInput is the caller-supplied shape for AppendEvent. Timestamp
// defaults to now if zero.
type EventInput struct {
	Type      string
	Payload   map[string]any
	Timestamp time.Time
}

// Session is the store's internal record. Callers never see a Session
// directly — GetSession returns a decrypted SessionView copy, and the
// store-wide lock (not a per-session one) guards every field here.
type Session struct {
	ID             string
	Module         riskmodel.Module
	UserID         string // encrypted at rest
	DeviceID       string // encrypted at rest
	CreatedAt      time.Time
	LastAccessedAt time.Time
	Events         []Event
	LastRisk       *riskmodel.RiskResponse
}

// SessionView is the decrypted, caller-facing read of a Session.
type SessionView struct {
	SessionID      string
	Module         riskmodel.Module
	UserID         string
	DeviceID       string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	Events         []Event
	LastRisk       *riskmodel.RiskResponse
}

// SessionSummary is the result of Summarize: the stored session plus
// caller-supplied takeaways, grounded on original_source's
// SessionSummary model.
type SessionSummary struct {
	SessionID    string
	Module       riskmodel.Module
	CreatedAt    time.Time
	LastRisk     riskmodel.RiskResponse
	KeyTakeaways []string
}

// RetentionPolicy is an immutable snapshot returned by
// Store.RetentionPolicy(). A zero SessionTTLHours disables idle expiry.
type RetentionPolicy struct {
	SessionTTLHours    int
	MaxSessionAgeHours int
	EventRetentionDays int
	PIIRetentionDays   int
	EncryptionEnabled  bool
}
