package slots

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorasi/internal/database"
	"mentorasi/internal/models"
)

type fakeStore struct {
	rules  []models.AvailabilityRule
	booked []database.SessionKey
}

func (f *fakeStore) ListAvailabilityRules(_ context.Context, mentorID string) ([]models.AvailabilityRule, error) {
	if mentorID == "" {
		return f.rules, nil
	}
	var out []models.AvailabilityRule
	for _, r := range f.rules {
		if r.MentorID == mentorID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ActiveSessionKeys(_ context.Context, _, _ string) ([]database.SessionKey, error) {
	return f.booked, nil
}

// pinned pins "today" to Monday 2026-09-07 so horizon math is stable.
func pinned() time.Time {
	return time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)
}

func newTestExpander(store *fakeStore) *Expander {
	return NewExpander(store, time.UTC, 60).WithNow(pinned)
}

func TestWindowsRecurringRule(t *testing.T) {
	store := &fakeStore{rules: []models.AvailabilityRule{
		{ID: "rule-1", MentorID: "mentor-a", IsRecurring: true, DayOfWeek: 1, StartTime: "09:00:00", EndTime: "11:00:00"},
	}}
	e := newTestExpander(store)

	windows, err := e.Windows(context.Background(), 14, "")
	require.NoError(t, err)

	// Two Mondays inside 14 days, two hourly windows each.
	require.Len(t, windows, 4)
	assert.Equal(t, "2026-09-07", windows[0].Date)
	assert.Equal(t, "09:00:00", windows[0].StartTime)
	assert.Equal(t, "10:00:00", windows[0].EndTime)
	assert.Equal(t, "2026-09-07", windows[1].Date)
	assert.Equal(t, "10:00:00", windows[1].StartTime)
	assert.Equal(t, "2026-09-14", windows[2].Date)
	assert.Equal(t, "2026-09-14", windows[3].Date)

	for _, w := range windows {
		assert.NotEmpty(t, w.BookingKey)
		assert.Equal(t, "rule-1", w.SlotID)
	}
}

func TestWindowsOneOffRule(t *testing.T) {
	store := &fakeStore{rules: []models.AvailabilityRule{
		{ID: "rule-1", MentorID: "mentor-a", SpecificDate: "2026-09-10", StartTime: "14:00:00", EndTime: "15:00:00"},
	}}
	e := newTestExpander(store)

	windows, err := e.Windows(context.Background(), 14, "")
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "2026-09-10", windows[0].Date)
	assert.Equal(t, "14:00:00", windows[0].StartTime)

	// Outside the horizon the rule yields nothing.
	windows, err = e.Windows(context.Background(), 3, "")
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestWindowsBookedExclusion(t *testing.T) {
	store := &fakeStore{
		rules: []models.AvailabilityRule{
			{ID: "rule-1", MentorID: "mentor-a", IsRecurring: true, DayOfWeek: 1, StartTime: "09:00:00", EndTime: "11:00:00"},
		},
		booked: []database.SessionKey{
			{MentorID: "mentor-a", Date: "2026-09-07", StartTime: "09:00:00"},
		},
	}
	e := newTestExpander(store)

	windows, err := e.Windows(context.Background(), 7, "")
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "10:00:00", windows[0].StartTime)
}

func TestWindowsAnonymizedAcrossMentors(t *testing.T) {
	store := &fakeStore{rules: []models.AvailabilityRule{
		{ID: "rule-1", MentorID: "mentor-a", IsRecurring: true, DayOfWeek: 1, StartTime: "09:00:00", EndTime: "10:00:00"},
		{ID: "rule-2", MentorID: "mentor-b", IsRecurring: true, DayOfWeek: 1, StartTime: "09:00:00", EndTime: "10:00:00"},
	}}
	e := newTestExpander(store)

	// Both mentors cover the same hour; the listing shows it once.
	windows, err := e.Windows(context.Background(), 7, "")
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Len(t, windows[0].candidates, 2)

	// When one mentor's hour is booked, the window survives on the other.
	store.booked = []database.SessionKey{
		{MentorID: "mentor-a", Date: "2026-09-07", StartTime: "09:00:00"},
	}
	windows, err = e.Windows(context.Background(), 7, "")
	require.NoError(t, err)
	require.Len(t, windows, 1)
	require.Len(t, windows[0].candidates, 1)
	assert.Equal(t, "mentor-b", windows[0].candidates[0].MentorID)
}

func TestWindowsSameMentorOverlapCountedOnce(t *testing.T) {
	store := &fakeStore{rules: []models.AvailabilityRule{
		{ID: "rule-1", MentorID: "mentor-a", IsRecurring: true, DayOfWeek: 1, StartTime: "09:00:00", EndTime: "11:00:00"},
		{ID: "rule-2", MentorID: "mentor-a", SpecificDate: "2026-09-07", StartTime: "09:00:00", EndTime: "10:00:00"},
	}}
	e := newTestExpander(store)

	windows, err := e.Windows(context.Background(), 7, "")
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Len(t, windows[0].candidates, 1)
}

func TestWindowsMentorFilter(t *testing.T) {
	store := &fakeStore{rules: []models.AvailabilityRule{
		{ID: "rule-1", MentorID: "mentor-a", IsRecurring: true, DayOfWeek: 1, StartTime: "09:00:00", EndTime: "10:00:00"},
		{ID: "rule-2", MentorID: "mentor-b", IsRecurring: true, DayOfWeek: 2, StartTime: "09:00:00", EndTime: "10:00:00"},
	}}
	e := newTestExpander(store)

	windows, err := e.Windows(context.Background(), 7, "mentor-b")
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "2026-09-08", windows[0].Date)
}

func TestEligibleMentors(t *testing.T) {
	store := &fakeStore{rules: []models.AvailabilityRule{
		{ID: "rule-1", MentorID: "mentor-a", IsRecurring: true, DayOfWeek: 1, StartTime: "09:00:00", EndTime: "11:00:00"},
		{ID: "rule-2", MentorID: "mentor-b", IsRecurring: true, DayOfWeek: 1, StartTime: "09:00:00", EndTime: "10:00:00"},
	}}
	e := newTestExpander(store)

	candidates, err := e.EligibleMentors(context.Background(), "2026-09-07", "09:00", "10:00")
	require.NoError(t, err)
	assert.Len(t, candidates, 2)

	// Only mentor-a's range reaches the second hour.
	candidates, err = e.EligibleMentors(context.Background(), "2026-09-07", "10:00:00", "11:00:00")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "mentor-a", candidates[0].MentorID)

	// A half-hour request matches no hour-aligned window.
	candidates, err = e.EligibleMentors(context.Background(), "2026-09-07", "09:30:00", "10:30:00")
	require.NoError(t, err)
	assert.Empty(t, candidates)

	// Booked mentors drop out.
	store.booked = []database.SessionKey{
		{MentorID: "mentor-a", Date: "2026-09-07", StartTime: "09:00:00"},
		{MentorID: "mentor-b", Date: "2026-09-07", StartTime: "09:00:00"},
	}
	candidates, err = e.EligibleMentors(context.Background(), "2026-09-07", "09:00:00", "10:00:00")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestBookingKeyRoundTrip(t *testing.T) {
	key := EncodeBookingKey("2026-09-07", "09:00:00", "10:00:00")
	decoded, err := DecodeBookingKey(key)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-07", decoded.Date)
	assert.Equal(t, "09:00:00", decoded.StartTime)
	assert.Equal(t, "10:00:00", decoded.EndTime)

	assert.True(t, decoded.Matches("2026-09-07", "09:00", "10:00"))
	assert.False(t, decoded.Matches("2026-09-08", "09:00:00", "10:00:00"))
	assert.False(t, decoded.Matches("2026-09-07", "10:00:00", "11:00:00"))
}

func TestDecodeBookingKeyRejectsGarbage(t *testing.T) {
	_, err := DecodeBookingKey("not base64!!")
	assert.ErrorIs(t, err, ErrInvalidBookingKey)

	_, err = DecodeBookingKey("aGVsbG8=") // "hello", not JSON
	assert.ErrorIs(t, err, ErrInvalidBookingKey)

	_, err = DecodeBookingKey(EncodeBookingKey("", "09:00:00", "10:00:00"))
	assert.ErrorIs(t, err, ErrInvalidBookingKey)
}
