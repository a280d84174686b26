package models

import (
	"fmt"
	"time"
)

// Session statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed" // reserved, nothing sets it yet
)

// Mentor is an alumni offering mentoring sessions.
type Mentor struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	GoogleRefreshToken string    `json:"-"` // empty when calendar is not connected
	CreatedAt          time.Time `json:"created_at"`
}

// AvailabilityRule is a mentor-defined time range, either recurring weekly
// or bound to one specific date. Rules are never updated in place; mentors
// delete and recreate them.
type AvailabilityRule struct {
	ID           string    `json:"id"`
	MentorID     string    `json:"mentor_id"`
	IsRecurring  bool      `json:"is_recurring"`
	DayOfWeek    int       `json:"day_of_week"`             // 0=Sunday..6=Saturday, meaningful when recurring
	SpecificDate string    `json:"specific_date,omitempty"` // YYYY-MM-DD, meaningful when not recurring
	StartTime    string    `json:"start_time"`              // HH:MM:SS wall clock
	EndTime      string    `json:"end_time"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks rule invariants: start before end, and exactly one of
// the recurring weekday or the specific date forms.
func (r *AvailabilityRule) Validate() error {
	start, err := ClockMinutes(r.StartTime)
	if err != nil {
		return fmt.Errorf("start_time: %w", err)
	}
	end, err := ClockMinutes(r.EndTime)
	if err != nil {
		return fmt.Errorf("end_time: %w", err)
	}
	if start >= end {
		return fmt.Errorf("start_time %s must be before end_time %s", r.StartTime, r.EndTime)
	}
	if r.IsRecurring {
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			return fmt.Errorf("day_of_week must be 0-6, got %d", r.DayOfWeek)
		}
		if r.SpecificDate != "" {
			return fmt.Errorf("recurring rule must not carry specific_date")
		}
		return nil
	}
	if _, err := time.Parse("2006-01-02", r.SpecificDate); err != nil {
		return fmt.Errorf("specific_date: expected YYYY-MM-DD, got %q", r.SpecificDate)
	}
	return nil
}

// AppliesTo reports whether the rule covers the given calendar day.
func (r *AvailabilityRule) AppliesTo(date string, weekday int) bool {
	if r.IsRecurring {
		return r.DayOfWeek == weekday
	}
	return r.SpecificDate == date
}

// Session is the booking record binding one student to one mentor for one
// time window. Sessions are never physically deleted; the status column is
// the lifecycle.
type Session struct {
	ID                 string     `json:"id"`
	MentorID           string     `json:"mentor_id"`
	StudentEmail       string     `json:"student_email"`
	StudentName        string     `json:"student_name"`
	StudentLinkedin    string     `json:"student_linkedin,omitempty"`
	StudentNotes       string     `json:"student_notes,omitempty"`
	Date               string     `json:"date"`       // YYYY-MM-DD
	StartTime          string     `json:"start_time"` // HH:MM:SS
	EndTime            string     `json:"end_time"`
	Status             string     `json:"status"`
	ManagementToken    string     `json:"-"` // capability token, generated once, immutable
	VerificationToken  string     `json:"-"` // set while email verification is outstanding
	CalendarEventID    string     `json:"-"`
	MeetingLink        string     `json:"meeting_link,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsActive reports whether the session still occupies its mentor-window.
func (s *Session) IsActive() bool {
	return s.Status == StatusPending || s.Status == StatusConfirmed
}
