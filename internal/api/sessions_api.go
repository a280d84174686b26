package api

import (
	"errors"
	"net/http"

	"mentorasi/internal/metrics"
	"mentorasi/internal/models"
	"mentorasi/internal/session"
)

// SessionView is the session subset exposed to the student. Tokens and
// mentor identity stay server-side.
type SessionView struct {
	ID           string `json:"id"`
	StudentEmail string `json:"student_email"`
	StudentName  string `json:"student_name"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
	MeetingLink  string `json:"meeting_link,omitempty"`
}

func sessionView(s *models.Session) SessionView {
	return SessionView{
		ID:           s.ID,
		StudentEmail: s.StudentEmail,
		StudentName:  s.StudentName,
		Date:         s.Date,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		Status:       s.Status,
		MeetingLink:  s.MeetingLink,
	}
}

// writeLifecycleError maps lifecycle sentinels to status codes. Token
// problems stay generic: the response never distinguishes a wrong token
// from a missing session beyond the status code.
func (s *HTTPServer) writeLifecycleError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrInvalidToken):
		writeError(w, http.StatusForbidden, "invalid token")
	case errors.Is(err, session.ErrAlreadyCancelled):
		writeError(w, http.StatusBadRequest, "session is already cancelled")
	case errors.Is(err, session.ErrCancelled):
		writeError(w, http.StatusBadRequest, "session is cancelled")
	case errors.Is(err, session.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid session window")
	case errors.Is(err, session.ErrSlotTaken):
		writeError(w, http.StatusConflict, "this time slot has already been booked")
	default:
		s.logger.Error().Err(err).Str("action", action).Msg("session operation failed")
		writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
	}
}

// handleGetSession returns a session for self-service display.
// GET /api/sessions/{id}?token=<management token>
func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_session")

	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "token is required")
		return
	}

	sess, err := s.lifecycle.Get(r.Context(), r.PathValue("id"), token)
	if err != nil {
		s.writeLifecycleError(w, err, "get")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sessionView(sess)})
}

// CancelRequest is the body for POST /api/sessions/{id}/cancel.
type CancelRequest struct {
	Token  string `json:"token"`
	Reason string `json:"reason,omitempty"`
}

// handleCancel cancels an active session.
// POST /api/sessions/{id}/cancel
func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel")

	var req CancelRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusUnauthorized, "token is required")
		return
	}

	if err := s.lifecycle.Cancel(r.Context(), r.PathValue("id"), req.Token, req.Reason); err != nil {
		s.writeLifecycleError(w, err, "cancel")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// RescheduleRequest is the body for POST /api/sessions/{id}/reschedule.
// new_slot_id is accepted for client compatibility; the server trusts
// only its own conflict check.
type RescheduleRequest struct {
	Token        string `json:"token"`
	NewDate      string `json:"new_date"`
	NewStartTime string `json:"new_start_time"`
	NewEndTime   string `json:"new_end_time"`
	NewSlotID    string `json:"new_slot_id,omitempty"`
}

// handleReschedule moves an active session to a new window with the same
// mentor. POST /api/sessions/{id}/reschedule
func (s *HTTPServer) handleReschedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reschedule")

	var req RescheduleRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusUnauthorized, "token is required")
		return
	}
	if req.NewDate == "" || req.NewStartTime == "" || req.NewEndTime == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	sess, err := s.lifecycle.Reschedule(r.Context(), r.PathValue("id"),
		req.Token, req.NewDate, req.NewStartTime, req.NewEndTime)
	if err != nil {
		s.writeLifecycleError(w, err, "reschedule")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"session_id":   sess.ID,
		"meeting_link": sess.MeetingLink,
	})
}
