package database

import (
	"context"
	"fmt"
	"time"
)

// AuditEntry is one recorded lifecycle event.
type AuditEntry struct {
	ID        int64
	EventType string
	SessionID string
	Detail    string
	CreatedAt time.Time
}

// AppendAudit records a lifecycle event.
func (db *DB) AppendAudit(ctx context.Context, eventType, sessionID, detail string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO audit_log (event_type, session_id, detail) VALUES (?, ?, ?)`,
		eventType, sessionID, detail)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns audit entries oldest first.
func (db *DB) ListAudit(ctx context.Context) ([]AuditEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, event_type, session_id, detail, created_at FROM audit_log ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.EventType, &e.SessionID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
