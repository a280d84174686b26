// Package audit keeps a trail of booking lifecycle events and exports
// the session ledger as a spreadsheet for admins.
package audit

import (
	"context"

	"github.com/rs/zerolog"

	"mentorasi/internal/database"
	"mentorasi/internal/events"
	"mentorasi/internal/models"
)

// Store is the persistence the recorder and exporter use.
type Store interface {
	AppendAudit(ctx context.Context, eventType, sessionID, detail string) error
	ListAudit(ctx context.Context) ([]database.AuditEntry, error)
	ListSessions(ctx context.Context) ([]models.Session, error)
}

// Recorder subscribes to lifecycle events and appends them to the audit
// trail. Recording failures are logged, never propagated: auditing must
// not interfere with bookings.
type Recorder struct {
	store  Store
	logger *zerolog.Logger
}

// NewRecorder wires a recorder onto the bus.
func NewRecorder(store Store, bus *events.Bus, logger *zerolog.Logger) *Recorder {
	r := &Recorder{store: store, logger: logger}
	for _, t := range []string{
		events.TypeSessionBooked,
		events.TypeSessionVerified,
		events.TypeSessionCancelled,
		events.TypeSessionRescheduled,
	} {
		bus.Subscribe(t, r.record)
	}
	return r
}

func (r *Recorder) record(e events.Event) {
	if err := r.store.AppendAudit(context.Background(), e.Type, e.SessionID, e.Detail); err != nil {
		r.logger.Error().Err(err).Str("event", e.Type).Msg("failed to record audit entry")
	}
}
