package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorasi/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedMentor(t *testing.T, db *DB, id string) {
	t.Helper()
	err := db.CreateMentor(context.Background(), &models.Mentor{
		ID:    id,
		Email: id + "@example.com",
		Name:  "Mentor " + id,
	})
	require.NoError(t, err)
}

func testSession(mentorID string) *models.Session {
	return &models.Session{
		ID:              uuid.NewString(),
		MentorID:        mentorID,
		StudentEmail:    "student@example.com",
		StudentName:     "Student",
		Date:            "2026-09-07",
		StartTime:       "09:00:00",
		EndTime:         "10:00:00",
		Status:          models.StatusPending,
		ManagementToken: uuid.NewString(),
	}
}

func TestMentorRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedMentor(t, db, "mentor-a")

	m, err := db.GetMentor(ctx, "mentor-a")
	require.NoError(t, err)
	assert.Equal(t, "mentor-a@example.com", m.Email)

	_, err = db.GetMentor(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateSessionUniqueActiveWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedMentor(t, db, "mentor-a")
	seedMentor(t, db, "mentor-b")

	first := testSession("mentor-a")
	require.NoError(t, db.CreateSession(ctx, first))

	// Same mentor, same window: the partial unique index rejects it.
	dup := testSession("mentor-a")
	assert.ErrorIs(t, db.CreateSession(ctx, dup), ErrSlotTaken)

	// A different mentor in the same window is fine.
	other := testSession("mentor-b")
	require.NoError(t, db.CreateSession(ctx, other))

	// A cancelled session frees the window.
	require.NoError(t, db.CancelSession(ctx, first.ID, "changed plans", time.Now()))
	again := testSession("mentor-a")
	require.NoError(t, db.CreateSession(ctx, again))
}

func TestGetSessionByVerificationToken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedMentor(t, db, "mentor-a")

	s := testSession("mentor-a")
	s.VerificationToken = uuid.NewString()
	require.NoError(t, db.CreateSession(ctx, s))

	got, err := db.GetSessionByVerificationToken(ctx, s.VerificationToken)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = db.GetSessionByVerificationToken(ctx, "wrong-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveSessionKeys(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedMentor(t, db, "mentor-a")

	s := testSession("mentor-a")
	require.NoError(t, db.CreateSession(ctx, s))

	cancelled := testSession("mentor-a")
	cancelled.StartTime = "10:00:00"
	cancelled.EndTime = "11:00:00"
	require.NoError(t, db.CreateSession(ctx, cancelled))
	require.NoError(t, db.CancelSession(ctx, cancelled.ID, "", time.Now()))

	keys, err := db.ActiveSessionKeys(ctx, "2026-09-01", "2026-09-30")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, SessionKey{MentorID: "mentor-a", Date: "2026-09-07", StartTime: "09:00:00"}, keys[0])

	keys, err = db.ActiveSessionKeys(ctx, "2026-10-01", "2026-10-31")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestConfirmSessionKeepsVerificationToken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedMentor(t, db, "mentor-a")

	s := testSession("mentor-a")
	s.VerificationToken = uuid.NewString()
	require.NoError(t, db.CreateSession(ctx, s))

	require.NoError(t, db.ConfirmSession(ctx, s.ID, "event-1", "https://meet.example/abc"))

	got, err := db.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, "event-1", got.CalendarEventID)
	assert.Equal(t, "https://meet.example/abc", got.MeetingLink)
	// A re-clicked verification link must still resolve the session.
	assert.Equal(t, s.VerificationToken, got.VerificationToken)

	assert.ErrorIs(t, db.ConfirmSession(ctx, "missing", "", ""), ErrNotFound)
}

func TestRescheduleSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedMentor(t, db, "mentor-a")

	s := testSession("mentor-a")
	require.NoError(t, db.CreateSession(ctx, s))

	require.NoError(t, db.RescheduleSession(ctx, s.ID, "2026-09-08", "14:00:00", "15:00:00", "https://meet.example/abc"))

	got, err := db.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-08", got.Date)
	assert.Equal(t, "14:00:00", got.StartTime)
	assert.Equal(t, s.ManagementToken, got.ManagementToken)

	// Moving onto another active session's window trips the index.
	blocker := testSession("mentor-a")
	blocker.Date = "2026-09-09"
	require.NoError(t, db.CreateSession(ctx, blocker))
	err = db.RescheduleSession(ctx, s.ID, "2026-09-09", "09:00:00", "10:00:00", "")
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestHasActiveSessionExcluding(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedMentor(t, db, "mentor-a")

	s := testSession("mentor-a")
	require.NoError(t, db.CreateSession(ctx, s))

	// The session does not conflict with itself.
	taken, err := db.HasActiveSessionExcluding(ctx, "mentor-a", "2026-09-07", "09:00:00", s.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = db.HasActiveSessionExcluding(ctx, "mentor-a", "2026-09-07", "09:00:00", "other-session")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestAvailabilityRules(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedMentor(t, db, "mentor-a")
	seedMentor(t, db, "mentor-b")

	rule := &models.AvailabilityRule{
		ID:          uuid.NewString(),
		MentorID:    "mentor-a",
		IsRecurring: true,
		DayOfWeek:   1,
		StartTime:   "09:00:00",
		EndTime:     "11:00:00",
	}
	require.NoError(t, db.CreateAvailabilityRule(ctx, rule))

	rules, err := db.ListAvailabilityRules(ctx, "mentor-a")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, rule.ID, rules[0].ID)

	rules, err = db.ListAvailabilityRules(ctx, "mentor-b")
	require.NoError(t, err)
	assert.Empty(t, rules)

	// Ownership is part of the delete predicate.
	assert.ErrorIs(t, db.DeleteAvailabilityRule(ctx, rule.ID, "mentor-b"), ErrNotFound)
	require.NoError(t, db.DeleteAvailabilityRule(ctx, rule.ID, "mentor-a"))
	assert.ErrorIs(t, db.DeleteAvailabilityRule(ctx, rule.ID, "mentor-a"), ErrNotFound)
}

func TestAuditLog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AppendAudit(ctx, "session_booked", "session-1", "mentor-a 2026-09-07 09:00"))
	require.NoError(t, db.AppendAudit(ctx, "session_cancelled", "session-1", ""))

	entries, err := db.ListAudit(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "session_booked", entries[0].EventType)
	assert.Equal(t, "session_cancelled", entries[1].EventType)
}
