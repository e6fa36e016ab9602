package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/riskguard/engine/internal/cipher"
	"github.com/riskguard/engine/internal/riskmodel"
)

// sensitiveKeys is the fixed set of payload/session field names
// encrypted at rest. A value is encrypted on write and decrypted on
// read; it is never encrypted twice.
var sensitiveKeys = map[string]bool{
	"email":                  true,
	"emails":                 true,
	"phone":                  true,
	"phones":                 true,
	"phone_number":           true,
	"phone_number_formatted": true,
	"caller_id":              true,
	"from":                   true,
	"to":                     true,
	"user_id":                true,
	"device_id":              true,
	"account_number":         true,
	"ssn":                    true,
}

// Store is the session store's contract. memoryStore is the only
// production implementation; the interface exists so a future
// non-memory backend could be swapped in without touching the
// Dispatcher — no such backend ships here (the engine persists
// nothing to disk or Redis).
type Store interface {
	StartSession(userID, deviceID string, module riskmodel.Module) string
	AppendEvent(sessionID string, in EventInput) (Event, bool)
	GetSession(sessionID string) (SessionView, bool)
	UpdateLastRisk(sessionID string, risk riskmodel.RiskResponse)
	Summarize(sessionID string, keyTakeaways []string) (SessionSummary, bool)
	RetentionPolicy() RetentionPolicy

	// sweep performs one retention pass; used by the RetentionSupervisor.
	sweep(now time.Time) (idleDeleted, hardCapDeleted, eventsDropped int)
}

// memoryStore is the sole Store implementation: an in-memory map
// guarded by a single RWMutex, with GetSession modelled as a writer
// because it mutates LastAccessedAt.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cipher   *cipher.PayloadCipher
	policy   RetentionPolicy
}

// NewMemoryStore builds the store. c is held by reference — never a
// package-level singleton — matching the design note that replaces the
// original's lazy global encryption handle.
func NewMemoryStore(c *cipher.PayloadCipher, policy RetentionPolicy) Store {
	return &memoryStore{
		sessions: make(map[string]*Session),
		cipher:   c,
		policy:   policy,
	}
}

func (s *memoryStore) RetentionPolicy() RetentionPolicy {
	return s.policy
}

func (s *memoryStore) StartSession(userID, deviceID string, module riskmodel.Module) string {
	id := uuid.New().String()
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &Session{
		ID:             id,
		Module:         module,
		UserID:         s.cipher.Encrypt(userID),
		DeviceID:       s.cipher.Encrypt(deviceID),
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	return id
}

func (s *memoryStore) AppendEvent(sessionID string, in EventInput) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Event{}, false
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	evt := Event{
		ID:        uuid.New().String(),
		Type:      in.Type,
		Payload:   s.encryptPayload(in.Payload),
		Timestamp: ts,
	}
	sess.Events = append(sess.Events, evt)
	return s.decryptEvent(evt), true
}

func (s *memoryStore) GetSession(sessionID string) (SessionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return SessionView{}, false
	}
	sess.LastAccessedAt = time.Now().UTC()

	events := make([]Event, len(sess.Events))
	for i, evt := range sess.Events {
		events[i] = s.decryptEvent(evt)
	}

	var lastRisk *riskmodel.RiskResponse
	if sess.LastRisk != nil {
		r := *sess.LastRisk
		lastRisk = &r
	}

	return SessionView{
		SessionID:      sess.ID,
		Module:         sess.Module,
		UserID:         s.cipher.Decrypt(sess.UserID),
		DeviceID:       s.cipher.Decrypt(sess.DeviceID),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Events:         events,
		LastRisk:       lastRisk,
	}, true
}

func (s *memoryStore) UpdateLastRisk(sessionID string, risk riskmodel.RiskResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	r := risk
	sess.LastRisk = &r
}

func (s *memoryStore) Summarize(sessionID string, keyTakeaways []string) (SessionSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.LastRisk == nil {
		return SessionSummary{}, false
	}
	return SessionSummary{
		SessionID:    sess.ID,
		Module:       sess.Module,
		CreatedAt:    sess.CreatedAt,
		LastRisk:     *sess.LastRisk,
		KeyTakeaways: keyTakeaways,
	}, true
}

// sweep runs the three-stage retention pass: idle-expiry, hard-cap,
// then per-session event-retention.
func (s *memoryStore) sweep(now time.Time) (idleDeleted, hardCapDeleted, eventsDropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy.SessionTTLHours > 0 {
		ttl := time.Duration(s.policy.SessionTTLHours) * time.Hour
		for id, sess := range s.sessions {
			if now.Sub(sess.LastAccessedAt) > ttl {
				delete(s.sessions, id)
				idleDeleted++
			}
		}
	}

	if s.policy.MaxSessionAgeHours > 0 {
		maxAge := time.Duration(s.policy.MaxSessionAgeHours) * time.Hour
		for id, sess := range s.sessions {
			if now.Sub(sess.CreatedAt) > maxAge {
				delete(s.sessions, id)
				hardCapDeleted++
			}
		}
	}

	if s.policy.EventRetentionDays > 0 {
		retain := time.Duration(s.policy.EventRetentionDays) * 24 * time.Hour
		for _, sess := range s.sessions {
			kept := sess.Events[:0:0]
			for _, evt := range sess.Events {
				if now.Sub(evt.Timestamp) <= retain {
					kept = append(kept, evt)
				} else {
					eventsDropped++
				}
			}
			sess.Events = kept
		}
	}

	logDropped("idle-expired sessions", idleDeleted)
	logDropped("hard-cap-expired sessions", hardCapDeleted)
	logDropped("retention-expired events", eventsDropped)

	return idleDeleted, hardCapDeleted, eventsDropped
}

// encryptPayload returns a copy of payload with every sensitive-keyed
// string (or string slice) value encrypted. The caller's map is never
// mutated in place.
func (s *memoryStore) encryptPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if !sensitiveKeys[k] {
			out[k] = v
			continue
		}
		out[k] = transformSensitiveValue(v, s.cipher.Encrypt)
	}
	return out
}

func (s *memoryStore) decryptEvent(evt Event) Event {
	if evt.Payload == nil {
		return evt
	}
	out := make(map[string]any, len(evt.Payload))
	for k, v := range evt.Payload {
		if !sensitiveKeys[k] {
			out[k] = v
			continue
		}
		out[k] = transformSensitiveValue(v, s.cipher.Decrypt)
	}
	evt.Payload = out
	return evt
}

// transformSensitiveValue applies fn to a string value, or to each
// string element of a []string / []any-of-strings value. Any other
// shape passes through unchanged — the store never fails a write or
// read because a sensitive key held a non-string value.
func transformSensitiveValue(v any, fn func(string) string) any {
	switch val := v.(type) {
	case string:
		return fn(val)
	case []string:
		out := make([]string, len(val))
		for i, elem := range val {
			out[i] = fn(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			if str, ok := elem.(string); ok {
				out[i] = fn(str)
			} else {
				out[i] = elem
			}
		}
		return out
	default:
		return v
	}
}

func logDropped(kind string, count int) {
	if count > 0 {
		slog.Info("retention sweep removed records", "kind", kind, "count", count)
	}
}
