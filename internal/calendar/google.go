// Package calendar wraps the Google Calendar API as the external event
// gateway. One calendar event exists per confirmed session; reschedules
// patch it in place so the Meet link survives.
package calendar

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// EventDetails describes the event to create or patch. DateTimes are
// RFC3339-naive local strings ("2006-01-02T15:04:05") interpreted in the
// gateway's fixed timezone.
type EventDetails struct {
	Summary       string
	Description   string
	StartDateTime string
	EndDateTime   string
	AttendeeEmail string
}

// EventResult carries the identifiers the session record keeps.
type EventResult struct {
	EventID     string
	MeetingLink string
}

// Gateway is the calendar surface consumed by booking and lifecycle.
// Failures here are advisory; callers log and continue.
type Gateway interface {
	CreateEvent(ctx context.Context, refreshToken string, d EventDetails) (*EventResult, error)
	UpdateEvent(ctx context.Context, refreshToken, eventID string, d EventDetails) (*EventResult, error)
	DeleteEvent(ctx context.Context, refreshToken, eventID string) error
}

// GoogleGateway implements Gateway against calendar/v3 using per-mentor
// OAuth refresh tokens.
type GoogleGateway struct {
	conf     *oauth2.Config
	timeZone string
}

// NewGoogle builds a gateway from the OAuth client credentials mentors
// authorized against.
func NewGoogle(clientID, clientSecret, redirectURL, timeZone string) *GoogleGateway {
	if timeZone == "" {
		timeZone = "America/Sao_Paulo"
	}
	return &GoogleGateway{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     googleoauth.Endpoint,
			Scopes: []string{
				gcal.CalendarScope,
				gcal.CalendarEventsScope,
			},
		},
		timeZone: timeZone,
	}
}

func (g *GoogleGateway) service(ctx context.Context, refreshToken string) (*gcal.Service, error) {
	ts := g.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return svc, nil
}

// CreateEvent inserts the event on the mentor's primary calendar with a
// Google Meet conference attached and invites the student.
func (g *GoogleGateway) CreateEvent(ctx context.Context, refreshToken string, d EventDetails) (*EventResult, error) {
	svc, err := g.service(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	event := &gcal.Event{
		Summary:     d.Summary,
		Description: d.Description,
		Start:       &gcal.EventDateTime{DateTime: d.StartDateTime, TimeZone: g.timeZone},
		End:         &gcal.EventDateTime{DateTime: d.EndDateTime, TimeZone: g.timeZone},
		Attendees:   []*gcal.EventAttendee{{Email: d.AttendeeEmail}},
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := svc.Events.Insert("primary", event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &EventResult{EventID: created.Id, MeetingLink: created.HangoutLink}, nil
}

// UpdateEvent patches time and text on an existing event. The conference
// is untouched, so the existing Meet link stays valid.
func (g *GoogleGateway) UpdateEvent(ctx context.Context, refreshToken, eventID string, d EventDetails) (*EventResult, error) {
	svc, err := g.service(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	patch := &gcal.Event{
		Summary:     d.Summary,
		Description: d.Description,
		Start:       &gcal.EventDateTime{DateTime: d.StartDateTime, TimeZone: g.timeZone},
		End:         &gcal.EventDateTime{DateTime: d.EndDateTime, TimeZone: g.timeZone},
	}

	updated, err := svc.Events.Patch("primary", eventID, patch).
		SendUpdates("all").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("patch event: %w", err)
	}
	return &EventResult{EventID: updated.Id, MeetingLink: updated.HangoutLink}, nil
}

// DeleteEvent removes the event after a cancellation.
func (g *GoogleGateway) DeleteEvent(ctx context.Context, refreshToken, eventID string) error {
	svc, err := g.service(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete("primary", eventID).SendUpdates("all").Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
