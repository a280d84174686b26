// Package booking allocates a mentor to a requested window and creates
// the session record under concurrent demand.
package booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mentorasi/internal/calendar"
	"mentorasi/internal/database"
	"mentorasi/internal/events"
	"mentorasi/internal/metrics"
	"mentorasi/internal/models"
	"mentorasi/internal/slots"
)

var (
	// ErrInvalidBookingKey covers malformed keys and keys that disagree
	// with the request's explicit window fields.
	ErrInvalidBookingKey = errors.New("invalid booking key")
	// ErrSlotUnavailable means no mentor covers the window anymore.
	ErrSlotUnavailable = errors.New("slot no longer available")
	// ErrSlotTaken means every eligible mentor was claimed by concurrent
	// bookings while this one was in flight.
	ErrSlotTaken = errors.New("slot already booked")
)

// MentorSource re-derives which mentors still cover a window.
type MentorSource interface {
	EligibleMentors(ctx context.Context, date, startTime, endTime string) ([]slots.Candidate, error)
}

// Store is the persistence surface the allocator writes.
type Store interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetMentor(ctx context.Context, id string) (*models.Mentor, error)
	UpdateSessionCalendar(ctx context.Context, id, eventID, meetingLink string) error
}

// Notifier sends the post-booking emails.
type Notifier interface {
	SendVerification(ctx context.Context, s *models.Session) error
	SendStudentConfirmation(ctx context.Context, s *models.Session, meetingLink string) error
	SendMentorNotification(ctx context.Context, mentorEmail string, s *models.Session, meetingLink string) error
}

// Request is a student's booking submission.
type Request struct {
	BookingKey      string
	Date            string
	StartTime       string
	EndTime         string
	StudentEmail    string
	StudentName     string
	StudentLinkedin string
	StudentNotes    string
}

// Result is a successful allocation.
type Result struct {
	Session             *models.Session
	PendingVerification bool
	MeetingLink         string
}

// Allocator assigns one free mentor to a booking request. It holds no
// availability state; eligibility is re-derived from the store on every
// call and the session insert is the atomic decision point.
type Allocator struct {
	source   MentorSource
	store    Store
	calendar calendar.Gateway
	notifier Notifier
	bus      *events.Bus
	logger   *zerolog.Logger

	// rng is injected so fairness of mentor selection is testable with a
	// seeded source.
	rng *rand.Rand
	mu  sync.Mutex

	requireVerification bool
}

// NewAllocator wires an allocator. calendar may be nil when no calendar
// integration is configured.
func NewAllocator(source MentorSource, store Store, cal calendar.Gateway, notifier Notifier,
	bus *events.Bus, rng *rand.Rand, requireVerification bool, logger *zerolog.Logger) *Allocator {
	return &Allocator{
		source:              source,
		store:               store,
		calendar:            cal,
		notifier:            notifier,
		bus:                 bus,
		rng:                 rng,
		requireVerification: requireVerification,
		logger:              logger,
	}
}

// Book validates the request, picks one eligible mentor uniformly at
// random, and creates the session. Losing an insert race against another
// request shrinks the candidate pool and retries; an empty pool surfaces
// as a conflict the client resolves by re-fetching windows.
func (a *Allocator) Book(ctx context.Context, req Request) (*Result, error) {
	key, err := slots.DecodeBookingKey(req.BookingKey)
	if err != nil {
		return nil, ErrInvalidBookingKey
	}
	if !key.Matches(req.Date, req.StartTime, req.EndTime) {
		return nil, ErrInvalidBookingKey
	}

	startTime := models.NormalizeClock(req.StartTime)
	endTime := models.NormalizeClock(req.EndTime)

	candidates, err := a.source.EligibleMentors(ctx, req.Date, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("resolve eligible mentors: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrSlotUnavailable
	}

	session := &models.Session{
		ID:              uuid.NewString(),
		StudentEmail:    req.StudentEmail,
		StudentName:     req.StudentName,
		StudentLinkedin: req.StudentLinkedin,
		StudentNotes:    req.StudentNotes,
		Date:            req.Date,
		StartTime:       startTime,
		EndTime:         endTime,
		Status:          models.StatusConfirmed,
		ManagementToken: uuid.NewString(),
	}
	if a.requireVerification {
		session.Status = models.StatusPending
		session.VerificationToken = uuid.NewString()
	}

	created := false
	for len(candidates) > 0 {
		idx := a.pick(len(candidates))
		session.MentorID = candidates[idx].MentorID

		err = a.store.CreateSession(ctx, session)
		if err == nil {
			created = true
			break
		}
		if errors.Is(err, database.ErrSlotTaken) {
			// Someone else won this mentor-window; drop the loser and
			// retry with the shrunken pool.
			metrics.IncBookingConflict()
			candidates = append(candidates[:idx], candidates[idx+1:]...)
			continue
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	if !created {
		return nil, ErrSlotTaken
	}

	metrics.IncBookingCreated(session.Status)
	a.bus.Publish(events.Event{
		Type:      events.TypeSessionBooked,
		SessionID: session.ID,
		Detail:    fmt.Sprintf("%s %s status=%s", session.Date, session.StartTime, session.Status),
	})

	result := &Result{Session: session, PendingVerification: a.requireVerification}
	a.sideEffects(ctx, session, result)
	return result, nil
}

// sideEffects runs calendar and email work after the session is durable.
// Every failure is logged and swallowed; the booking record is the source
// of truth and external effects are advisory.
func (a *Allocator) sideEffects(ctx context.Context, session *models.Session, result *Result) {
	if a.requireVerification {
		if err := a.notifier.SendVerification(ctx, session); err != nil {
			a.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to send verification email")
		}
		return
	}

	mentor, err := a.store.GetMentor(ctx, session.MentorID)
	if err != nil {
		a.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to load mentor for side effects")
		return
	}

	if a.calendar != nil && mentor.GoogleRefreshToken != "" {
		res, err := a.calendar.CreateEvent(ctx, mentor.GoogleRefreshToken, EventDetails(session))
		if err != nil {
			a.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to create calendar event")
		} else {
			session.CalendarEventID = res.EventID
			session.MeetingLink = res.MeetingLink
			result.MeetingLink = res.MeetingLink
			if err := a.store.UpdateSessionCalendar(ctx, session.ID, res.EventID, res.MeetingLink); err != nil {
				a.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to store calendar event")
			}
		}
	}

	if err := a.notifier.SendStudentConfirmation(ctx, session, session.MeetingLink); err != nil {
		a.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to send student confirmation")
	}
	if err := a.notifier.SendMentorNotification(ctx, mentor.Email, session, session.MeetingLink); err != nil {
		a.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to send mentor notification")
	}
}

func (a *Allocator) pick(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Intn(n)
}

// EventDetails renders the calendar payload for a session.
func EventDetails(s *models.Session) calendar.EventDetails {
	return calendar.EventDetails{
		Summary: "MentoraSI - Mentoring session with " + s.StudentName,
		Description: fmt.Sprintf("Mentoring session with %s\n\nEmail: %s",
			s.StudentName, s.StudentEmail),
		StartDateTime: s.Date + "T" + s.StartTime,
		EndDateTime:   s.Date + "T" + s.EndTime,
		AttendeeEmail: s.StudentEmail,
	}
}
