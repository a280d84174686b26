package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"mentorasi/internal/database"
	"mentorasi/internal/metrics"
	"mentorasi/internal/models"
)

// AvailabilityRequest is the body for POST /api/availability. Rules are
// immutable; the only update path is delete and recreate.
type AvailabilityRequest struct {
	MentorID     string `json:"mentor_id"`
	IsRecurring  bool   `json:"is_recurring"`
	DayOfWeek    *int   `json:"day_of_week,omitempty"`   // 0=Sunday..6, required when recurring
	SpecificDate string `json:"specific_date,omitempty"` // YYYY-MM-DD, required when one-off
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
}

// handleCreateAvailability creates an availability rule.
// POST /api/availability
func (s *HTTPServer) handleCreateAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_create")

	var req AvailabilityRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MentorID == "" || req.StartTime == "" || req.EndTime == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if req.IsRecurring && req.DayOfWeek == nil {
		writeError(w, http.StatusBadRequest, "day_of_week is required for recurring rules")
		return
	}

	rule := &models.AvailabilityRule{
		ID:           uuid.NewString(),
		MentorID:     req.MentorID,
		IsRecurring:  req.IsRecurring,
		SpecificDate: req.SpecificDate,
		StartTime:    models.NormalizeClock(req.StartTime),
		EndTime:      models.NormalizeClock(req.EndTime),
	}
	if req.DayOfWeek != nil {
		rule.DayOfWeek = *req.DayOfWeek
	}
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.store.GetMentor(r.Context(), rule.MentorID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "mentor not found")
			return
		}
		s.logger.Error().Err(err).Msg("failed to load mentor")
		writeError(w, http.StatusInternalServerError, "failed to create availability")
		return
	}

	if err := s.store.CreateAvailabilityRule(r.Context(), rule); err != nil {
		s.logger.Error().Err(err).Msg("failed to create availability rule")
		writeError(w, http.StatusInternalServerError, "failed to create availability")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "rule": rule})
}

// handleListAvailability lists a mentor's rules.
// GET /api/availability?mentor_id=<id>
func (s *HTTPServer) handleListAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_list")

	mentorID := r.URL.Query().Get("mentor_id")
	if mentorID == "" {
		writeError(w, http.StatusBadRequest, "mentor_id is required")
		return
	}

	rules, err := s.store.ListAvailabilityRules(r.Context(), mentorID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list availability rules")
		writeError(w, http.StatusInternalServerError, "failed to list availability")
		return
	}
	if rules == nil {
		rules = []models.AvailabilityRule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

// handleDeleteAvailability removes a rule the mentor owns. Deleting
// someone else's rule reports not found.
// DELETE /api/availability/{id}?mentor_id=<id>
func (s *HTTPServer) handleDeleteAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_delete")

	mentorID := r.URL.Query().Get("mentor_id")
	if mentorID == "" {
		writeError(w, http.StatusBadRequest, "mentor_id is required")
		return
	}

	err := s.store.DeleteAvailabilityRule(r.Context(), r.PathValue("id"), mentorID)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "availability rule not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to delete availability rule")
		writeError(w, http.StatusInternalServerError, "failed to delete availability")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleAdminExport streams the session ledger as a spreadsheet.
// GET /api/admin/export
func (s *HTTPServer) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_export")

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="sessions.xlsx"`)
	if err := s.exporter.WriteXLSX(r.Context(), w); err != nil {
		s.logger.Error().Err(err).Msg("failed to export sessions")
	}
}
