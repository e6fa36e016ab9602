package session

import (
	"testing"
	"time"

	"github.com/riskguard/engine/internal/cipher"
	"github.com/riskguard/engine/internal/riskmodel"
)

func newTestStore(t *testing.T, policy RetentionPolicy) Store {
	t.Helper()
	c, err := cipher.New(cipher.KeySource{Key: "test-key"}, true)
	if err != nil {
		t.Fatalf("cipher.New: %v", err)
	}
	return NewMemoryStore(c, policy)
}

func TestStartSession_EncryptsIDs(t *testing.T) {
	store := newTestStore(t, RetentionPolicy{})
	id := store.StartSession("user-1", "device-1", riskmodel.CallGuard)
	if id == "" {
		t.Fatal("expected a non-empty session id")
	}

	view, ok := store.GetSession(id)
	if !ok {
		t.Fatal("expected session to be found")
	}
	if view.UserID != "user-1" || view.DeviceID != "device-1" {
		t.Fatalf("expected decrypted ids on read, got %q / %q", view.UserID, view.DeviceID)
	}
}

func TestAppendEvent_NotFound(t *testing.T) {
	store := newTestStore(t, RetentionPolicy{})
	_, ok := store.AppendEvent("nonexistent", EventInput{Type: "signal"})
	if ok {
		t.Fatal("expected not-found for unknown session")
	}
}

func TestAppendEvent_EncryptsSensitiveFieldsAtRest(t *testing.T) {
	store := newTestStore(t, RetentionPolicy{})
	id := store.StartSession("u", "d", riskmodel.InboxGuard)

	evt, ok := store.AppendEvent(id, EventInput{
		Type: "text",
		Payload: map[string]any{
			"text":  "hello",
			"email": "victim@example.com",
		},
	})
	if !ok {
		t.Fatal("expected append to succeed")
	}
	if evt.Payload["email"] != "victim@example.com" {
		t.Fatalf("expected decrypted view from AppendEvent's return, got %v", evt.Payload["email"])
	}

	view, ok := store.GetSession(id)
	if !ok {
		t.Fatal("expected session to be found")
	}
	if view.Events[0].Payload["email"] != "victim@example.com" {
		t.Fatalf("expected decrypted email on read, got %v", view.Events[0].Payload["email"])
	}
}

func TestGetSession_RefreshesLastAccessedAt(t *testing.T) {
	store := newTestStore(t, RetentionPolicy{})
	id := store.StartSession("u", "d", riskmodel.CallGuard)

	first, _ := store.GetSession(id)
	time.Sleep(5 * time.Millisecond)
	second, _ := store.GetSession(id)

	if !second.LastAccessedAt.After(first.LastAccessedAt) {
		t.Fatal("expected last_accessed_at to advance between reads")
	}
	if second.CreatedAt != first.CreatedAt {
		t.Fatal("expected created_at to remain stable")
	}
}

func TestGetSession_RepeatedReadsYieldIdenticalEvents(t *testing.T) {
	store := newTestStore(t, RetentionPolicy{})
	id := store.StartSession("u", "d", riskmodel.CallGuard)
	store.AppendEvent(id, EventInput{Type: "signal", Payload: map[string]any{"signal_key": "urgency"}})

	first, _ := store.GetSession(id)
	second, _ := store.GetSession(id)

	if len(first.Events) != 1 || len(second.Events) != 1 {
		t.Fatalf("expected 1 event on each read, got %d and %d", len(first.Events), len(second.Events))
	}
	if first.Events[0].ID != second.Events[0].ID {
		t.Fatal("expected identical event content across reads")
	}
}

func TestUpdateLastRisk_UnknownSessionIsNoop(t *testing.T) {
	store := newTestStore(t, RetentionPolicy{})
	store.UpdateLastRisk("nonexistent", riskmodel.RiskResponse{Score: 50})
}

func TestSummarize_RequiresLastRisk(t *testing.T) {
	store := newTestStore(t, RetentionPolicy{})
	id := store.StartSession("u", "d", riskmodel.CallGuard)

	_, ok := store.Summarize(id, []string{"took the note"})
	if ok {
		t.Fatal("expected summarize to fail without a prior risk")
	}

	store.UpdateLastRisk(id, riskmodel.RiskResponse{Score: 90, Level: riskmodel.LevelHigh})
	summary, ok := store.Summarize(id, []string{"escalated"})
	if !ok {
		t.Fatal("expected summarize to succeed once last_risk is set")
	}
	if summary.LastRisk.Score != 90 || len(summary.KeyTakeaways) != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestSweep_IdleExpiry(t *testing.T) {
	store := newTestStore(t, RetentionPolicy{SessionTTLHours: 1})
	ms := store.(*memoryStore)
	id := store.StartSession("u", "d", riskmodel.CallGuard)

	ms.mu.Lock()
	ms.sessions[id].LastAccessedAt = time.Now().Add(-61 * time.Minute)
	ms.mu.Unlock()

	idle, hardCap, _ := ms.sweep(time.Now())
	if idle != 1 || hardCap != 0 {
		t.Fatalf("expected 1 idle-expired session, got idle=%d hardCap=%d", idle, hardCap)
	}
	if _, ok := store.GetSession(id); ok {
		t.Fatal("expected session to be deleted")
	}
}

func TestSweep_RetainsRecentlyTouchedSession(t *testing.T) {
	store := newTestStore(t, RetentionPolicy{SessionTTLHours: 1})
	ms := store.(*memoryStore)
	id := store.StartSession("u", "d", riskmodel.CallGuard)

	ms.mu.Lock()
	ms.sessions[id].LastAccessedAt = time.Now().Add(-59 * time.Minute)
	ms.mu.Unlock()

	idle, _, _ := ms.sweep(time.Now())
	if idle != 0 {
		t.Fatalf("expected session touched 59 minutes ago to survive, got idle=%d", idle)
	}
	if _, ok := store.GetSession(id); !ok {
		t.Fatal("expected session to still exist")
	}
}

func TestSweep_HardCapIgnoresRecentAccess(t *testing.T) {
	store := newTestStore(t, RetentionPolicy{MaxSessionAgeHours: 48})
	ms := store.(*memoryStore)
	id := store.StartSession("u", "d", riskmodel.CallGuard)

	ms.mu.Lock()
	ms.sessions[id].CreatedAt = time.Now().Add(-49 * time.Hour)
	ms.sessions[id].LastAccessedAt = time.Now()
	ms.mu.Unlock()

	_, hardCap, _ := ms.sweep(time.Now())
	if hardCap != 1 {
		t.Fatalf("expected hard-cap sweep to remove the session regardless of recent access, got %d", hardCap)
	}
}

func TestSweep_DropsOldEventsOnly(t *testing.T) {
	store := newTestStore(t, RetentionPolicy{EventRetentionDays: 30})
	ms := store.(*memoryStore)
	id := store.StartSession("u", "d", riskmodel.CallGuard)
	store.AppendEvent(id, EventInput{Type: "signal", Payload: map[string]any{"signal_key": "urgency"}})
	store.AppendEvent(id, EventInput{Type: "signal", Payload: map[string]any{"signal_key": "crypto_payment"}})

	ms.mu.Lock()
	ms.sessions[id].Events[0].Timestamp = time.Now().Add(-31 * 24 * time.Hour)
	ms.mu.Unlock()

	_, _, dropped := ms.sweep(time.Now())
	if dropped != 1 {
		t.Fatalf("expected 1 dropped event, got %d", dropped)
	}
	view, _ := store.GetSession(id)
	if len(view.Events) != 1 {
		t.Fatalf("expected 1 surviving event, got %d", len(view.Events))
	}
}

func TestRetentionPolicy_ZeroDisablesIdleExpiry(t *testing.T) {
	store := newTestStore(t, RetentionPolicy{SessionTTLHours: 0})
	ms := store.(*memoryStore)
	id := store.StartSession("u", "d", riskmodel.CallGuard)

	ms.mu.Lock()
	ms.sessions[id].LastAccessedAt = time.Now().Add(-1000 * time.Hour)
	ms.mu.Unlock()

	idle, _, _ := ms.sweep(time.Now())
	if idle != 0 {
		t.Fatalf("expected idle expiry disabled, got %d removed", idle)
	}
}
