// Package audit provides an append-only SQLite-backed trail of emitted
// risk responses, for operators who need to reconstruct what the engine
// told a user and when without replaying the (encrypted, perishable)
// session store.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/riskguard/engine/internal/riskmodel"
)

// Entry is one immutable audit record.
type Entry struct {
	ID        int64            `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	SessionID string           `json:"session_id"`
	Module    riskmodel.Module `json:"module"`
	Score     int              `json:"score"`
	Level     riskmodel.Level  `json:"level"`
	Reasons   []string         `json:"reasons"`
}

// Ledger records and queries risk-response history.
type Ledger interface {
	Record(ctx context.Context, sessionID string, module riskmodel.Module, resp riskmodel.RiskResponse) error
	Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error)
	Prune(ctx context.Context, retentionDays int) (int64, error)
	Close() error
}

// SQLiteLedger is the default Ledger, backed by a local SQLite file.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (creating if necessary) the audit database at path.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	l := &SQLiteLedger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running audit migrations: %w", err)
	}

	slog.Info("audit ledger initialized", "path", path)
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	_, err := l.db.Exec(`
	CREATE TABLE IF NOT EXISTS risk_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		session_id TEXT NOT NULL,
		module TEXT NOT NULL,
		score INTEGER NOT NULL,
		level TEXT NOT NULL,
		reasons TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_risk_audit_session ON risk_audit(session_id);
	CREATE INDEX IF NOT EXISTS idx_risk_audit_timestamp ON risk_audit(timestamp);
	`)
	return err
}

// Record appends one risk response to the ledger.
func (l *SQLiteLedger) Record(ctx context.Context, sessionID string, module riskmodel.Module, resp riskmodel.RiskResponse) error {
	reasonsJSON, err := json.Marshal(resp.Reasons)
	if err != nil {
		return fmt.Errorf("marshaling reasons: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO risk_audit (timestamp, session_id, module, score, level, reasons)
		VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now(), sessionID, string(module), resp.Score, string(resp.Level), string(reasonsJSON),
	)
	if err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}
	return nil
}

// Recent returns the most recent entries for a session, newest first.
func (l *SQLiteLedger) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, timestamp, session_id, module, score, level, reasons
		FROM risk_audit WHERE session_id = ? ORDER BY timestamp DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var module, level, reasonsJSON string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.SessionID, &module, &e.Score, &level, &reasonsJSON); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Module = riskmodel.Module(module)
		e.Level = riskmodel.Level(level)
		_ = json.Unmarshal([]byte(reasonsJSON), &e.Reasons)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than retentionDays and returns the count removed.
func (l *SQLiteLedger) Prune(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result, err := l.db.ExecContext(ctx, "DELETE FROM risk_audit WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning audit entries: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		slog.Info("pruned audit entries", "deleted", deleted, "retention_days", retentionDays)
	}
	return deleted, nil
}

// Close closes the underlying database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
