package notify

import (
	"context"
	"fmt"

	"mentorasi/internal/models"
)

// Notifier renders and sends the templated emails the booking lifecycle
// produces. Mentor identity is never put in front of students; students
// meet their mentor in the session itself.
type Notifier struct {
	mailer  Mailer
	baseURL string
}

// NewNotifier wires a notifier over any Mailer.
func NewNotifier(mailer Mailer, baseURL string) *Notifier {
	return &Notifier{mailer: mailer, baseURL: baseURL}
}

func (n *Notifier) manageLinks(s *models.Session) (reschedule, cancel string) {
	reschedule = fmt.Sprintf("%s/session/%s/reschedule?token=%s", n.baseURL, s.ID, s.ManagementToken)
	cancel = fmt.Sprintf("%s/session/%s/cancel?token=%s", n.baseURL, s.ID, s.ManagementToken)
	return
}

func window(s *models.Session) string {
	return fmt.Sprintf("%s, %s – %s", s.Date, models.ShortClock(s.StartTime), models.ShortClock(s.EndTime))
}

// SendVerification asks the student to confirm their email before the
// session is finalized.
func (n *Notifier) SendVerification(ctx context.Context, s *models.Session) error {
	verifyLink := fmt.Sprintf("%s/book/verify?token=%s", n.baseURL, s.VerificationToken)
	html := fmt.Sprintf(`<p>Hi %s,</p>
<p>Confirm your email to finalize your mentoring session on <strong>%s</strong>.</p>
<p><a href="%s">Verify and confirm my session</a></p>
<p>If you did not request this session, ignore this message.</p>`,
		s.StudentName, window(s), verifyLink)
	return n.mailer.Send(ctx, s.StudentEmail, "Confirm your mentoring session", html)
}

// SendStudentConfirmation tells the student the session is booked.
func (n *Notifier) SendStudentConfirmation(ctx context.Context, s *models.Session, meetingLink string) error {
	rescheduleLink, cancelLink := n.manageLinks(s)
	link := ""
	if meetingLink != "" {
		link = fmt.Sprintf(`<p><strong>Meeting link:</strong> <a href="%s">%s</a></p>`, meetingLink, meetingLink)
	}
	html := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your mentoring session is confirmed for <strong>%s</strong>.</p>
%s<p>You will meet an alumni mentor; their identity is revealed during the session.</p>
<p><a href="%s">Reschedule</a> · <a href="%s">Cancel</a></p>`,
		s.StudentName, window(s), link, rescheduleLink, cancelLink)
	return n.mailer.Send(ctx, s.StudentEmail, "Your mentoring session is confirmed", html)
}

// SendMentorNotification tells the mentor about their new session.
func (n *Notifier) SendMentorNotification(ctx context.Context, mentorEmail string, s *models.Session, meetingLink string) error {
	link := ""
	if meetingLink != "" {
		link = fmt.Sprintf(`<p><strong>Meeting link:</strong> <a href="%s">%s</a></p>`, meetingLink, meetingLink)
	}
	extra := ""
	if s.StudentLinkedin != "" {
		extra += fmt.Sprintf("<p>LinkedIn: %s</p>", s.StudentLinkedin)
	}
	if s.StudentNotes != "" {
		extra += fmt.Sprintf("<p>Student notes: %s</p>", s.StudentNotes)
	}
	html := fmt.Sprintf(`<p>A student booked a mentoring session with you for <strong>%s</strong>.</p>
<p>Student: %s (%s)</p>%s%s`,
		window(s), s.StudentName, s.StudentEmail, extra, link)
	return n.mailer.Send(ctx, mentorEmail, "New mentoring session booked", html)
}

// SendCancellation notifies one party that the session was cancelled.
func (n *Notifier) SendCancellation(ctx context.Context, recipient string, s *models.Session, reason string) error {
	why := ""
	if reason != "" {
		why = fmt.Sprintf("<p>Reason: %s</p>", reason)
	}
	html := fmt.Sprintf(`<p>The mentoring session on <strong>%s</strong> was cancelled by the student.</p>%s`,
		window(s), why)
	return n.mailer.Send(ctx, recipient, "Mentoring session cancelled", html)
}

// SendReschedule notifies one party of the moved session with before and
// after times.
func (n *Notifier) SendReschedule(ctx context.Context, recipient string, s *models.Session, oldDate, oldStart, oldEnd string) error {
	link := ""
	if s.MeetingLink != "" {
		link = fmt.Sprintf(`<p><strong>Meeting link:</strong> <a href="%s">%s</a></p>`, s.MeetingLink, s.MeetingLink)
	}
	html := fmt.Sprintf(`<p>The mentoring session was rescheduled.</p>
<p><strong>Previously:</strong> %s, %s – %s</p>
<p><strong>Now:</strong> %s</p>%s`,
		oldDate, models.ShortClock(oldStart), models.ShortClock(oldEnd), window(s), link)
	return n.mailer.Send(ctx, recipient, "Mentoring session rescheduled", html)
}
