package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorasi/internal/models"
)

func testSession() *models.Session {
	return &models.Session{
		ID:                "session-1",
		MentorID:          "mentor-a",
		StudentEmail:      "student@example.com",
		StudentName:       "Student",
		Date:              "2026-09-07",
		StartTime:         "09:00:00",
		EndTime:           "10:00:00",
		Status:            models.StatusPending,
		ManagementToken:   "manage-token",
		VerificationToken: "verify-token",
	}
}

func TestResendMailerSend(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	m := NewResendMailer("test-key", "MentoraSI <noreply@example.com>", 10, &logger).WithEndpoint(srv.URL)

	err := m.Send(context.Background(), "student@example.com", "Hello", "<p>Hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "MentoraSI <noreply@example.com>", got.From)
	assert.Equal(t, []string{"student@example.com"}, got.To)
	assert.Equal(t, "Hello", got.Subject)
}

func TestResendMailerAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid from"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	m := NewResendMailer("test-key", "noreply@example.com", 10, &logger).WithEndpoint(srv.URL)

	err := m.Send(context.Background(), "student@example.com", "Hello", "<p>Hi</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestResendMailerMissingKeySkips(t *testing.T) {
	logger := zerolog.Nop()
	m := NewResendMailer("", "noreply@example.com", 10, &logger)
	assert.NoError(t, m.Send(context.Background(), "student@example.com", "Hello", "<p>Hi</p>"))
}

type captureMailer struct {
	to      []string
	subject []string
	html    []string
}

func (c *captureMailer) Send(_ context.Context, to, subject, html string) error {
	c.to = append(c.to, to)
	c.subject = append(c.subject, subject)
	c.html = append(c.html, html)
	return nil
}

func TestSendVerification(t *testing.T) {
	mailer := &captureMailer{}
	n := NewNotifier(mailer, "https://mentorasi.example")

	require.NoError(t, n.SendVerification(context.Background(), testSession()))
	require.Len(t, mailer.html, 1)
	assert.Equal(t, "student@example.com", mailer.to[0])
	assert.Contains(t, mailer.html[0], "https://mentorasi.example/book/verify?token=verify-token")
	assert.Contains(t, mailer.html[0], "2026-09-07, 09:00 – 10:00")
}

func TestSendStudentConfirmation(t *testing.T) {
	mailer := &captureMailer{}
	n := NewNotifier(mailer, "https://mentorasi.example")

	s := testSession()
	require.NoError(t, n.SendStudentConfirmation(context.Background(), s, "https://meet.example/abc"))
	require.Len(t, mailer.html, 1)
	html := mailer.html[0]
	assert.Contains(t, html, "https://meet.example/abc")
	assert.Contains(t, html, "/session/session-1/reschedule?token=manage-token")
	assert.Contains(t, html, "/session/session-1/cancel?token=manage-token")
	// The mentor stays anonymous until the session happens.
	assert.NotContains(t, html, "mentor-a")
}

func TestSendMentorNotification(t *testing.T) {
	mailer := &captureMailer{}
	n := NewNotifier(mailer, "https://mentorasi.example")

	s := testSession()
	s.StudentLinkedin = "https://linkedin.com/in/student"
	s.StudentNotes = "Wants to talk about career switching"
	require.NoError(t, n.SendMentorNotification(context.Background(), "mentor-a@example.com", s, ""))
	require.Len(t, mailer.html, 1)
	assert.Equal(t, "mentor-a@example.com", mailer.to[0])
	assert.Contains(t, mailer.html[0], "career switching")
	assert.Contains(t, mailer.html[0], "linkedin.com/in/student")
}

func TestSendReschedule(t *testing.T) {
	mailer := &captureMailer{}
	n := NewNotifier(mailer, "https://mentorasi.example")

	s := testSession()
	s.Date, s.StartTime, s.EndTime = "2026-09-08", "14:00:00", "15:00:00"
	require.NoError(t, n.SendReschedule(context.Background(), "student@example.com", s, "2026-09-07", "09:00:00", "10:00:00"))
	require.Len(t, mailer.html, 1)
	assert.Contains(t, mailer.html[0], "2026-09-07, 09:00 – 10:00")
	assert.Contains(t, mailer.html[0], "2026-09-08, 14:00 – 15:00")
}
