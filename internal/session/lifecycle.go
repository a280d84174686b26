// Package session drives the booking lifecycle: verification,
// cancellation, and rescheduling, authorized by capability tokens rather
// than accounts.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mentorasi/internal/calendar"
	"mentorasi/internal/database"
	"mentorasi/internal/events"
	"mentorasi/internal/metrics"
	"mentorasi/internal/models"
)

var (
	// ErrNotFound means no session exists with the given id.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidToken means the management token did not match. The API
	// surfaces it without distinguishing wrong-token from other causes.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenNotFound means no pending session matches a verification
	// token; the link is invalid or already consumed long ago.
	ErrTokenNotFound = errors.New("invalid or expired verification token")
	// ErrCancelled blocks verify/reschedule on a cancelled session.
	ErrCancelled = errors.New("session is cancelled")
	// ErrAlreadyCancelled blocks a second cancellation.
	ErrAlreadyCancelled = errors.New("session is already cancelled")
	// ErrSlotTaken means the reschedule target window is occupied.
	ErrSlotTaken = errors.New("new time slot already booked")
	// ErrInvalidWindow rejects malformed reschedule times.
	ErrInvalidWindow = errors.New("invalid session window")
)

// transitions is the allowed status graph. cancelled is terminal;
// completed is reserved and never set by this service.
var transitions = map[string][]string{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusCancelled, models.StatusCompleted},
}

func canTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Store is the persistence surface the lifecycle mutates.
type Store interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	GetSessionByVerificationToken(ctx context.Context, token string) (*models.Session, error)
	GetMentor(ctx context.Context, id string) (*models.Mentor, error)
	ConfirmSession(ctx context.Context, id, eventID, meetingLink string) error
	CancelSession(ctx context.Context, id, reason string, at time.Time) error
	RescheduleSession(ctx context.Context, id, date, startTime, endTime, meetingLink string) error
	HasActiveSessionExcluding(ctx context.Context, mentorID, date, startTime, excludeID string) (bool, error)
}

// Notifier sends lifecycle emails.
type Notifier interface {
	SendMentorNotification(ctx context.Context, mentorEmail string, s *models.Session, meetingLink string) error
	SendCancellation(ctx context.Context, recipient string, s *models.Session, reason string) error
	SendReschedule(ctx context.Context, recipient string, s *models.Session, oldDate, oldStart, oldEnd string) error
}

// Lifecycle is the session state machine. Calendar and email effects run
// after the state transition is durable; their failures are logged and
// never reverse the transition.
type Lifecycle struct {
	store    Store
	calendar calendar.Gateway
	notifier Notifier
	bus      *events.Bus
	logger   *zerolog.Logger
}

// NewLifecycle wires the state machine. calendar may be nil.
func NewLifecycle(store Store, cal calendar.Gateway, notifier Notifier, bus *events.Bus, logger *zerolog.Logger) *Lifecycle {
	return &Lifecycle{store: store, calendar: cal, notifier: notifier, bus: bus, logger: logger}
}

// VerifyResult reports a verification outcome.
type VerifyResult struct {
	Session         *models.Session
	AlreadyVerified bool
}

// Verify confirms a pending session via its verification token. The token
// is the lookup key, so session ids stay non-enumerable. A re-clicked
// link on an already confirmed session succeeds idempotently and does not
// create a second calendar event.
func (l *Lifecycle) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}
	s, err := l.store.GetSessionByVerificationToken(ctx, token)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	switch s.Status {
	case models.StatusConfirmed:
		return &VerifyResult{Session: s, AlreadyVerified: true}, nil
	case models.StatusCancelled:
		return nil, ErrCancelled
	}
	if !canTransition(s.Status, models.StatusConfirmed) {
		return nil, fmt.Errorf("cannot confirm session in status %q", s.Status)
	}

	// First point where calendar side effects happen: the student's email
	// is now known to be real.
	var eventID, meetingLink string
	mentor, err := l.store.GetMentor(ctx, s.MentorID)
	if err != nil {
		l.logger.Error().Err(err).Str("session_id", s.ID).Msg("failed to load mentor during verification")
	} else if l.calendar != nil && mentor.GoogleRefreshToken != "" {
		res, calErr := l.calendar.CreateEvent(ctx, mentor.GoogleRefreshToken, eventDetails(s, s.Date, s.StartTime, s.EndTime))
		if calErr != nil {
			l.logger.Error().Err(calErr).Str("session_id", s.ID).Msg("failed to create calendar event")
		} else {
			eventID = res.EventID
			meetingLink = res.MeetingLink
		}
	}

	if err := l.store.ConfirmSession(ctx, s.ID, eventID, meetingLink); err != nil {
		return nil, fmt.Errorf("confirm session: %w", err)
	}
	s.Status = models.StatusConfirmed
	s.CalendarEventID = eventID
	s.MeetingLink = meetingLink

	if mentor != nil {
		if err := l.notifier.SendMentorNotification(ctx, mentor.Email, s, meetingLink); err != nil {
			l.logger.Error().Err(err).Str("session_id", s.ID).Msg("failed to notify mentor")
		}
	}

	metrics.IncSessionTransition("verified")
	l.bus.Publish(events.Event{Type: events.TypeSessionVerified, SessionID: s.ID})
	return &VerifyResult{Session: s}, nil
}

// Get returns the session for self-service display. The management token
// authorizes access; the stored token never leaves the server.
func (l *Lifecycle) Get(ctx context.Context, id, token string) (*models.Session, error) {
	s, err := l.authorize(ctx, id, token)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Cancel transitions an active session to cancelled, removes the external
// calendar event best-effort, and notifies both parties.
func (l *Lifecycle) Cancel(ctx context.Context, id, token, reason string) error {
	s, err := l.authorize(ctx, id, token)
	if err != nil {
		return err
	}
	if s.Status == models.StatusCancelled {
		return ErrAlreadyCancelled
	}
	if !canTransition(s.Status, models.StatusCancelled) {
		return fmt.Errorf("cannot cancel session in status %q", s.Status)
	}

	mentor := l.mentorOf(ctx, s)
	if s.CalendarEventID != "" && l.calendar != nil && mentor != nil && mentor.GoogleRefreshToken != "" {
		if err := l.calendar.DeleteEvent(ctx, mentor.GoogleRefreshToken, s.CalendarEventID); err != nil {
			l.logger.Error().Err(err).Str("session_id", s.ID).Msg("failed to delete calendar event")
		}
	}

	if err := l.store.CancelSession(ctx, s.ID, reason, time.Now()); err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}
	s.Status = models.StatusCancelled

	if err := l.notifier.SendCancellation(ctx, s.StudentEmail, s, reason); err != nil {
		l.logger.Error().Err(err).Str("session_id", s.ID).Msg("failed to send student cancellation email")
	}
	if mentor != nil {
		if err := l.notifier.SendCancellation(ctx, mentor.Email, s, reason); err != nil {
			l.logger.Error().Err(err).Str("session_id", s.ID).Msg("failed to send mentor cancellation email")
		}
	}

	metrics.IncSessionTransition("cancelled")
	l.bus.Publish(events.Event{Type: events.TypeSessionCancelled, SessionID: s.ID, Detail: reason})
	return nil
}

// Reschedule moves an active session to a new window with the same
// mentor. Session id and management token are preserved so issued links
// keep working; the calendar event is updated in place to keep the
// meeting link.
func (l *Lifecycle) Reschedule(ctx context.Context, id, token, newDate, newStart, newEnd string) (*models.Session, error) {
	s, err := l.authorize(ctx, id, token)
	if err != nil {
		return nil, err
	}
	if s.Status == models.StatusCancelled {
		return nil, ErrCancelled
	}

	newStart = models.NormalizeClock(newStart)
	newEnd = models.NormalizeClock(newEnd)
	if err := validateWindow(newDate, newStart, newEnd); err != nil {
		return nil, err
	}

	// Exclude the session itself so moving within its own window works.
	occupied, err := l.store.HasActiveSessionExcluding(ctx, s.MentorID, newDate, newStart, s.ID)
	if err != nil {
		return nil, fmt.Errorf("check reschedule conflict: %w", err)
	}
	if occupied {
		return nil, ErrSlotTaken
	}

	oldDate, oldStart, oldEnd := s.Date, s.StartTime, s.EndTime
	meetingLink := s.MeetingLink

	mentor := l.mentorOf(ctx, s)
	if s.CalendarEventID != "" && l.calendar != nil && mentor != nil && mentor.GoogleRefreshToken != "" {
		res, calErr := l.calendar.UpdateEvent(ctx, mentor.GoogleRefreshToken, s.CalendarEventID,
			eventDetails(s, newDate, newStart, newEnd))
		if calErr != nil {
			l.logger.Error().Err(calErr).Str("session_id", s.ID).Msg("failed to update calendar event")
		} else if res.MeetingLink != "" {
			meetingLink = res.MeetingLink
		}
	}

	if err := l.store.RescheduleSession(ctx, s.ID, newDate, newStart, newEnd, meetingLink); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("reschedule session: %w", err)
	}
	s.Date, s.StartTime, s.EndTime, s.MeetingLink = newDate, newStart, newEnd, meetingLink

	if err := l.notifier.SendReschedule(ctx, s.StudentEmail, s, oldDate, oldStart, oldEnd); err != nil {
		l.logger.Error().Err(err).Str("session_id", s.ID).Msg("failed to send student reschedule email")
	}
	if mentor != nil {
		if err := l.notifier.SendReschedule(ctx, mentor.Email, s, oldDate, oldStart, oldEnd); err != nil {
			l.logger.Error().Err(err).Str("session_id", s.ID).Msg("failed to send mentor reschedule email")
		}
	}

	metrics.IncSessionTransition("rescheduled")
	l.bus.Publish(events.Event{
		Type:      events.TypeSessionRescheduled,
		SessionID: s.ID,
		Detail:    fmt.Sprintf("%s %s -> %s %s", oldDate, oldStart, newDate, newStart),
	})
	return s, nil
}

// authorize loads the session and checks the management token in constant
// time. Token errors never reveal more than "the link does not work".
func (l *Lifecycle) authorize(ctx context.Context, id, token string) (*models.Session, error) {
	s, err := l.store.GetSession(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(s.ManagementToken), []byte(token)) != 1 {
		return nil, ErrInvalidToken
	}
	return s, nil
}

func (l *Lifecycle) mentorOf(ctx context.Context, s *models.Session) *models.Mentor {
	mentor, err := l.store.GetMentor(ctx, s.MentorID)
	if err != nil {
		l.logger.Error().Err(err).Str("session_id", s.ID).Msg("failed to load mentor")
		return nil
	}
	return mentor
}

func validateWindow(date, start, end string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return ErrInvalidWindow
	}
	s, err := models.ClockMinutes(start)
	if err != nil {
		return ErrInvalidWindow
	}
	e, err := models.ClockMinutes(end)
	if err != nil {
		return ErrInvalidWindow
	}
	if s >= e {
		return ErrInvalidWindow
	}
	return nil
}

func eventDetails(s *models.Session, date, start, end string) calendar.EventDetails {
	return calendar.EventDetails{
		Summary: "MentoraSI - Mentoring session with " + s.StudentName,
		Description: fmt.Sprintf("Mentoring session with %s\n\nEmail: %s",
			s.StudentName, s.StudentEmail),
		StartDateTime: date + "T" + start,
		EndDateTime:   date + "T" + end,
		AttendeeEmail: s.StudentEmail,
	}
}
