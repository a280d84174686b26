package api

import (
	"context"
	"encoding/json"
	"net/http"

	"mentorasi/internal/metrics"
	"mentorasi/internal/slots"
)

// SlotsResponse lists anonymized bookable windows. Mentor identity and
// candidate counts never appear here.
type SlotsResponse struct {
	Slots []slots.AnonymizedWindow `json:"slots"`
}

// handleListSlots returns bookable windows over the configured horizon.
// GET /api/slots?alumni_id=<mentor> narrows to one mentor for reschedule
// flows.
func (s *HTTPServer) handleListSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")

	mentorFilter := r.URL.Query().Get("alumni_id")

	if cached, ok := s.cachedSlots(r.Context(), mentorFilter); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	windows, err := s.expander.Windows(r.Context(), s.horizonDays, mentorFilter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to expand slots")
		writeError(w, http.StatusInternalServerError, "failed to fetch slots")
		return
	}
	if windows == nil {
		windows = []slots.AnonymizedWindow{}
	}

	resp := SlotsResponse{Slots: windows}
	s.storeSlots(r.Context(), mentorFilter, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Slot listings tolerate slight staleness: a booking attempt against a
// stale window simply fails at the allocator's re-derivation. That makes
// them safe to cache for a few seconds.
func (s *HTTPServer) cachedSlots(ctx context.Context, mentorFilter string) (SlotsResponse, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return SlotsResponse{}, false
	}
	val, err := s.cache.Get(ctx, slotsCacheKey(mentorFilter)).Result()
	if err != nil {
		return SlotsResponse{}, false
	}
	var resp SlotsResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return SlotsResponse{}, false
	}
	return resp, true
}

func (s *HTTPServer) storeSlots(ctx context.Context, mentorFilter string, resp SlotsResponse) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, slotsCacheKey(mentorFilter), data, s.cacheTTL).Err()
}

func slotsCacheKey(mentorFilter string) string {
	if mentorFilter == "" {
		return "slots:all"
	}
	return "slots:mentor:" + mentorFilter
}
