package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"mentorasi/internal/models"
)

var (
	// ErrNotFound means no row matched the lookup.
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken means the active-session uniqueness index rejected an
	// insert or update; another session already occupies the mentor-window.
	ErrSlotTaken = errors.New("slot already taken")
)

// DB wraps sql.DB for the booking service.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS mentors (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			google_refresh_token TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS availability_rules (
			id TEXT PRIMARY KEY,
			mentor_id TEXT NOT NULL,
			is_recurring BOOLEAN NOT NULL,
			day_of_week INTEGER NOT NULL DEFAULT 0,
			specific_date TEXT NOT NULL DEFAULT '',
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (mentor_id) REFERENCES mentors(id)
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			mentor_id TEXT NOT NULL,
			student_email TEXT NOT NULL,
			student_name TEXT NOT NULL DEFAULT '',
			student_linkedin TEXT NOT NULL DEFAULT '',
			student_notes TEXT NOT NULL DEFAULT '',
			session_date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			management_token TEXT NOT NULL,
			verification_token TEXT NOT NULL DEFAULT '',
			calendar_event_id TEXT NOT NULL DEFAULT '',
			meeting_link TEXT NOT NULL DEFAULT '',
			cancelled_at DATETIME,
			cancellation_reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (mentor_id) REFERENCES mentors(id)
		)`,

		// The no-double-booking boundary. A second active session for the
		// same mentor-window fails this index at insert/update time.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active_window
			ON sessions(mentor_id, session_date, start_time)
			WHERE status IN ('pending', 'confirmed')`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_rules_mentor ON availability_rules(mentor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(session_date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_verification ON sessions(verification_token)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// isUniqueViolation reports whether err is the sqlite unique-constraint
// rejection the active-window index produces under a booking race.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// CreateMentor inserts a mentor row.
func (db *DB) CreateMentor(ctx context.Context, m *models.Mentor) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO mentors (id, email, name, google_refresh_token, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Email, m.Name, m.GoogleRefreshToken, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create mentor: %w", err)
	}
	return nil
}

// GetMentor returns a mentor by id.
func (db *DB) GetMentor(ctx context.Context, id string) (*models.Mentor, error) {
	var m models.Mentor
	err := db.QueryRowContext(ctx,
		`SELECT id, email, name, google_refresh_token, created_at FROM mentors WHERE id = ?`, id).
		Scan(&m.ID, &m.Email, &m.Name, &m.GoogleRefreshToken, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mentor: %w", err)
	}
	return &m, nil
}
