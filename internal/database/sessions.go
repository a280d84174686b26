package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mentorasi/internal/models"
)

// SessionKey identifies one booked mentor-window.
type SessionKey struct {
	MentorID  string
	Date      string
	StartTime string
}

const sessionColumns = `id, mentor_id, student_email, student_name, student_linkedin,
	student_notes, session_date, start_time, end_time, status, management_token,
	verification_token, calendar_event_id, meeting_link, cancelled_at,
	cancellation_reason, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var s models.Session
	var cancelledAt sql.NullTime
	err := row.Scan(&s.ID, &s.MentorID, &s.StudentEmail, &s.StudentName,
		&s.StudentLinkedin, &s.StudentNotes, &s.Date, &s.StartTime, &s.EndTime,
		&s.Status, &s.ManagementToken, &s.VerificationToken, &s.CalendarEventID,
		&s.MeetingLink, &cancelledAt, &s.CancellationReason, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if cancelledAt.Valid {
		s.CancelledAt = &cancelledAt.Time
	}
	return &s, nil
}

// CreateSession inserts the session row. The partial unique index on active
// (mentor_id, session_date, start_time) is the atomic decision point under
// concurrent booking; a rejected insert comes back as ErrSlotTaken and means
// someone else won the race, not a transient failure.
func (db *DB) CreateSession(ctx context.Context, s *models.Session) error {
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.MentorID, s.StudentEmail, s.StudentName, s.StudentLinkedin,
		s.StudentNotes, s.Date, s.StartTime, s.EndTime, s.Status, s.ManagementToken,
		s.VerificationToken, s.CalendarEventID, s.MeetingLink, s.CancelledAt,
		s.CancellationReason, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns a session by id.
func (db *DB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// GetSessionByVerificationToken looks a session up by its verification
// token. The token is the lookup key; ids are never accepted here, which
// keeps pending sessions non-enumerable.
func (db *DB) GetSessionByVerificationToken(ctx context.Context, token string) (*models.Session, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE verification_token = ?`, token)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session by verification token: %w", err)
	}
	return s, nil
}

// ActiveSessionKeys returns (mentor, date, start) keys for pending and
// confirmed sessions with dates in [from, to]. Times come back normalized
// so set membership checks are reliable.
func (db *DB) ActiveSessionKeys(ctx context.Context, from, to string) ([]SessionKey, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT mentor_id, session_date, start_time FROM sessions
		 WHERE session_date >= ? AND session_date <= ?
		   AND status IN ('pending', 'confirmed')`, from, to)
	if err != nil {
		return nil, fmt.Errorf("active session keys: %w", err)
	}
	defer rows.Close()

	var keys []SessionKey
	for rows.Next() {
		var k SessionKey
		if err := rows.Scan(&k.MentorID, &k.Date, &k.StartTime); err != nil {
			return nil, fmt.Errorf("scan session key: %w", err)
		}
		k.StartTime = models.NormalizeClock(k.StartTime)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// HasActiveSessionExcluding reports whether a different active session
// already occupies the mentor-window. The excluded id keeps a reschedule
// from conflicting with itself.
func (db *DB) HasActiveSessionExcluding(ctx context.Context, mentorID, date, startTime, excludeID string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sessions
		 WHERE mentor_id = ? AND session_date = ? AND start_time = ?
		   AND status IN ('pending', 'confirmed') AND id != ?`,
		mentorID, date, startTime, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check active session: %w", err)
	}
	return count > 0, nil
}

// ConfirmSession moves a pending session to confirmed and records the
// calendar event created at verification time. The verification token is
// retained so a re-clicked link stays idempotent; it grants nothing once
// the status is confirmed.
func (db *DB) ConfirmSession(ctx context.Context, id, eventID, meetingLink string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, calendar_event_id = ?, meeting_link = ?, updated_at = ?
		 WHERE id = ?`,
		models.StatusConfirmed, eventID, meetingLink, time.Now(), id)
	if err != nil {
		return fmt.Errorf("confirm session: %w", err)
	}
	return requireRow(res)
}

// UpdateSessionCalendar stores calendar side-effect results after the
// session row already exists.
func (db *DB) UpdateSessionCalendar(ctx context.Context, id, eventID, meetingLink string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE sessions SET calendar_event_id = ?, meeting_link = ?, updated_at = ? WHERE id = ?`,
		eventID, meetingLink, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update session calendar: %w", err)
	}
	return requireRow(res)
}

// CancelSession marks the session cancelled with a timestamp and reason.
func (db *DB) CancelSession(ctx context.Context, id, reason string, at time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, cancelled_at = ?, cancellation_reason = ?, updated_at = ?
		 WHERE id = ?`,
		models.StatusCancelled, at, reason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}
	return requireRow(res)
}

// RescheduleSession moves the session to a new window in place. Id and
// management token are untouched so issued links keep working. The active
// uniqueness index also guards this update; a losing race surfaces as
// ErrSlotTaken.
func (db *DB) RescheduleSession(ctx context.Context, id, date, startTime, endTime, meetingLink string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE sessions SET session_date = ?, start_time = ?, end_time = ?, meeting_link = ?, updated_at = ?
		 WHERE id = ?`,
		date, startTime, endTime, meetingLink, time.Now(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("reschedule session: %w", err)
	}
	return requireRow(res)
}

// ListSessions returns all sessions ordered by date and start, newest
// horizon last. Used by the audit export.
func (db *DB) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY session_date, start_time`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
