// Package api exposes the booking engine as a JSON HTTP surface.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mentorasi/internal/audit"
	"mentorasi/internal/booking"
	"mentorasi/internal/database"
	"mentorasi/internal/session"
	"mentorasi/internal/slots"
)

// HTTPServer serves the booking API.
type HTTPServer struct {
	store     *database.DB
	expander  *slots.Expander
	allocator *booking.Allocator
	lifecycle *session.Lifecycle
	exporter  *audit.Exporter
	logger    *zerolog.Logger

	horizonDays int

	// cache is optional; a nil client disables slot-listing caching.
	cache    *redis.Client
	cacheTTL time.Duration
}

// New builds the server. cache may be nil.
func New(store *database.DB, expander *slots.Expander, allocator *booking.Allocator,
	lifecycle *session.Lifecycle, exporter *audit.Exporter, horizonDays int,
	cache *redis.Client, cacheTTL time.Duration, logger *zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		store:       store,
		expander:    expander,
		allocator:   allocator,
		lifecycle:   lifecycle,
		exporter:    exporter,
		horizonDays: horizonDays,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Handler returns the routed API handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/slots", s.handleListSlots)
	mux.HandleFunc("POST /api/book", s.handleBook)
	mux.HandleFunc("POST /api/book/verify", s.handleVerify)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/sessions/{id}/reschedule", s.handleReschedule)

	mux.HandleFunc("POST /api/availability", s.handleCreateAvailability)
	mux.HandleFunc("GET /api/availability", s.handleListAvailability)
	mux.HandleFunc("DELETE /api/availability/{id}", s.handleDeleteAvailability)

	mux.HandleFunc("GET /api/admin/export", s.handleAdminExport)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeStrict parses a JSON body rejecting unknown fields.
func decodeStrict(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
