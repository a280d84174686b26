package slots

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"mentorasi/internal/models"
)

// ErrInvalidBookingKey means the client-held key failed to decode.
var ErrInvalidBookingKey = errors.New("invalid booking key")

// BookingKey is the opaque window encoding handed to clients. It carries
// no mentor identity and no authority: the server re-derives eligibility
// from live availability on every booking attempt, so the key is a
// convenience echo used to catch stale client state, not a trust boundary.
type BookingKey struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// EncodeBookingKey renders the window as base64 JSON.
func EncodeBookingKey(date, startTime, endTime string) string {
	raw, _ := json.Marshal(BookingKey{Date: date, StartTime: startTime, EndTime: endTime})
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeBookingKey parses a client-supplied key.
func DecodeBookingKey(key string) (BookingKey, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return BookingKey{}, ErrInvalidBookingKey
	}
	var k BookingKey
	if err := json.Unmarshal(raw, &k); err != nil {
		return BookingKey{}, ErrInvalidBookingKey
	}
	if k.Date == "" || k.StartTime == "" || k.EndTime == "" {
		return BookingKey{}, ErrInvalidBookingKey
	}
	k.StartTime = models.NormalizeClock(k.StartTime)
	k.EndTime = models.NormalizeClock(k.EndTime)
	return k, nil
}

// Matches reports whether the key agrees with explicitly supplied request
// fields, after clock normalization.
func (k BookingKey) Matches(date, startTime, endTime string) bool {
	return k.Date == date &&
		k.StartTime == models.NormalizeClock(startTime) &&
		k.EndTime == models.NormalizeClock(endTime)
}
