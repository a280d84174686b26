package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"mentorasi/internal/database"
	"mentorasi/internal/events"
	"mentorasi/internal/models"
)

type memStore struct {
	entries   []database.AuditEntry
	sessions  []models.Session
	appendErr error
}

func (m *memStore) AppendAudit(_ context.Context, eventType, sessionID, detail string) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, database.AuditEntry{
		ID:        int64(len(m.entries) + 1),
		EventType: eventType,
		SessionID: sessionID,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *memStore) ListAudit(context.Context) ([]database.AuditEntry, error) {
	return m.entries, nil
}

func (m *memStore) ListSessions(context.Context) ([]models.Session, error) {
	return m.sessions, nil
}

func TestRecorder(t *testing.T) {
	store := &memStore{}
	bus := events.NewBus()
	logger := zerolog.Nop()
	NewRecorder(store, bus, &logger)

	bus.Publish(events.Event{Type: events.TypeSessionBooked, SessionID: "session-1", Detail: "2026-09-07 09:00:00"})
	bus.Publish(events.Event{Type: events.TypeSessionCancelled, SessionID: "session-1"})

	require.Len(t, store.entries, 2)
	assert.Equal(t, events.TypeSessionBooked, store.entries[0].EventType)
	assert.Equal(t, events.TypeSessionCancelled, store.entries[1].EventType)
}

func TestRecorderSwallowsStoreFailure(t *testing.T) {
	store := &memStore{appendErr: errors.New("db locked")}
	bus := events.NewBus()
	logger := zerolog.Nop()
	NewRecorder(store, bus, &logger)

	assert.NotPanics(t, func() {
		bus.Publish(events.Event{Type: events.TypeSessionBooked, SessionID: "session-1"})
	})
}

func TestExporterWriteXLSX(t *testing.T) {
	cancelled := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	store := &memStore{
		sessions: []models.Session{
			{
				ID: "session-1", MentorID: "mentor-a",
				StudentName: "Student", StudentEmail: "student@example.com",
				Date: "2026-09-07", StartTime: "09:00:00", EndTime: "10:00:00",
				Status: models.StatusCancelled, CancelledAt: &cancelled, CancellationReason: "changed plans",
			},
		},
		entries: []database.AuditEntry{
			{ID: 1, EventType: events.TypeSessionBooked, SessionID: "session-1", CreatedAt: cancelled},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewExporter(store).WriteXLSX(context.Background(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sessions")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "session-1", rows[1][0])
	assert.Equal(t, "changed plans", rows[1][9])

	rows, err = f.GetRows("Audit")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, events.TypeSessionBooked, rows[1][1])
}
