package api

import (
	"errors"
	"net/http"
	"strings"

	"mentorasi/internal/booking"
	"mentorasi/internal/metrics"
	"mentorasi/internal/session"
)

// BookRequest is the body for POST /api/book.
type BookRequest struct {
	BookingKey      string `json:"booking_key"`
	Date            string `json:"date"`       // YYYY-MM-DD
	StartTime       string `json:"start_time"` // HH:MM or HH:MM:SS
	EndTime         string `json:"end_time"`
	StudentEmail    string `json:"student_email"`
	StudentName     string `json:"student_name"`
	StudentLinkedin string `json:"student_linkedin,omitempty"`
	StudentNotes    string `json:"student_notes,omitempty"`
}

// BookResponse is the success body for POST /api/book.
type BookResponse struct {
	Success             bool   `json:"success"`
	SessionID           string `json:"session_id"`
	PendingVerification bool   `json:"pending_verification,omitempty"`
	MeetingLink         string `json:"meeting_link,omitempty"`
}

// handleBook allocates a mentor for the requested window and creates the
// session. POST /api/book
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book")

	var req BookRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BookingKey == "" || req.Date == "" || req.StartTime == "" ||
		req.EndTime == "" || req.StudentEmail == "" || req.StudentName == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if !strings.Contains(req.StudentEmail, "@") {
		writeError(w, http.StatusBadRequest, "invalid student_email")
		return
	}

	result, err := s.allocator.Book(r.Context(), booking.Request{
		BookingKey:      req.BookingKey,
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		StudentEmail:    req.StudentEmail,
		StudentName:     req.StudentName,
		StudentLinkedin: req.StudentLinkedin,
		StudentNotes:    req.StudentNotes,
	})
	switch {
	case errors.Is(err, booking.ErrInvalidBookingKey):
		writeError(w, http.StatusBadRequest, "invalid booking key")
		return
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusNotFound, "slot no longer available")
		return
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "this time slot has already been booked")
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("booking failed")
		writeError(w, http.StatusInternalServerError, "failed to create booking")
		return
	}

	writeJSON(w, http.StatusOK, BookResponse{
		Success:             true,
		SessionID:           result.Session.ID,
		PendingVerification: result.PendingVerification,
		MeetingLink:         result.MeetingLink,
	})
}

// VerifyRequest is the body for POST /api/book/verify.
type VerifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse is the success body for POST /api/book/verify.
type VerifyResponse struct {
	Success         bool          `json:"success"`
	AlreadyVerified bool          `json:"already_verified,omitempty"`
	Session         VerifySession `json:"session"`
}

// VerifySession is the session subset a verification response exposes.
type VerifySession struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	MeetingLink string `json:"meeting_link,omitempty"`
}

// handleVerify confirms a pending session from its emailed token.
// POST /api/book/verify
func (s *HTTPServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("verify")

	var req VerifyRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "verification token is required")
		return
	}

	result, err := s.lifecycle.Verify(r.Context(), req.Token)
	switch {
	case errors.Is(err, session.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "invalid or expired verification token")
		return
	case errors.Is(err, session.ErrCancelled):
		writeError(w, http.StatusBadRequest, "this session has been cancelled")
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("verification failed")
		writeError(w, http.StatusInternalServerError, "failed to verify session")
		return
	}

	writeJSON(w, http.StatusOK, VerifyResponse{
		Success:         true,
		AlreadyVerified: result.AlreadyVerified,
		Session: VerifySession{
			ID:          result.Session.ID,
			Date:        result.Session.Date,
			StartTime:   result.Session.StartTime,
			EndTime:     result.Session.EndTime,
			MeetingLink: result.Session.MeetingLink,
		},
	})
}
