// Package slots expands mentor availability rules into concrete bookable
// windows and deduplicates them into the anonymous listing students see.
package slots

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mentorasi/internal/database"
	"mentorasi/internal/models"
)

// DefaultHorizonDays is how far ahead windows are offered.
const DefaultHorizonDays = 90

// DefaultSlotMinutes is the fixed session width. Rule ranges decompose
// into consecutive windows of this width; trailing partial slices are
// dropped.
const DefaultSlotMinutes = 60

// Store is the persistence surface the expander reads.
type Store interface {
	ListAvailabilityRules(ctx context.Context, mentorID string) ([]models.AvailabilityRule, error)
	ActiveSessionKeys(ctx context.Context, from, to string) ([]database.SessionKey, error)
}

// Candidate is one mentor-rule pair still free for a window.
type Candidate struct {
	RuleID   string
	MentorID string
}

// AnonymizedWindow is a bookable window with mentor identity stripped.
// Two mentors covering the same hour collapse into one window; neither
// identity nor candidate count leaks to the client.
type AnonymizedWindow struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	SlotID     string `json:"slot_id,omitempty"` // first covering rule, for reschedule flows
	BookingKey string `json:"booking_key"`

	candidates []Candidate
}

// Expander derives bookable windows from availability rules and booked
// sessions. It holds no state between queries; every listing is a fresh
// recomputation.
type Expander struct {
	store       Store
	loc         *time.Location
	slotMinutes int
	now         func() time.Time
}

// NewExpander creates an expander. loc fixes which wall-clock "today"
// starts the horizon; slotMinutes <= 0 falls back to the default width.
func NewExpander(store Store, loc *time.Location, slotMinutes int) *Expander {
	if loc == nil {
		loc = time.Local
	}
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	return &Expander{store: store, loc: loc, slotMinutes: slotMinutes, now: time.Now}
}

// WithNow overrides the clock. Tests use it to pin the horizon.
func (e *Expander) WithNow(now func() time.Time) *Expander {
	e.now = now
	return e
}

type bookedKey struct {
	mentorID  string
	date      string
	startTime string
}

// Windows expands all rules over horizonDays calendar days into
// deduplicated anonymous windows, ascending by (date, start). mentorID
// narrows the rule set for reschedule flows that must stay with the same
// mentor; an empty filter means all mentors.
func (e *Expander) Windows(ctx context.Context, horizonDays int, mentorID string) ([]AnonymizedWindow, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	rules, err := e.store.ListAvailabilityRules(ctx, mentorID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	today := e.today()
	from := today.Format("2006-01-02")
	to := today.AddDate(0, 0, horizonDays).Format("2006-01-02")
	booked, err := e.bookedSet(ctx, from, to)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]*AnonymizedWindow)
	for i := 0; i < horizonDays; i++ {
		day := today.AddDate(0, 0, i)
		date := day.Format("2006-01-02")
		weekday := int(day.Weekday())

		for _, rule := range rules {
			if !rule.AppliesTo(date, weekday) {
				continue
			}
			for _, hw := range models.HourWindows(rule.StartTime, rule.EndTime, e.slotMinutes) {
				if booked[bookedKey{rule.MentorID, date, hw.Start}] {
					continue
				}
				addCandidate(grouped, date, hw, Candidate{RuleID: rule.ID, MentorID: rule.MentorID})
			}
		}
	}

	windows := make([]AnonymizedWindow, 0, len(grouped))
	for _, w := range grouped {
		windows = append(windows, *w)
	}
	sort.Slice(windows, func(i, j int) bool {
		if windows[i].Date != windows[j].Date {
			return windows[i].Date < windows[j].Date
		}
		return windows[i].StartTime < windows[j].StartTime
	})
	return windows, nil
}

// EligibleMentors re-derives, from live rules and booked sessions, which
// mentors still cover exactly the given window. This is the allocator's
// validation path; client-held state is never trusted.
func (e *Expander) EligibleMentors(ctx context.Context, date, startTime, endTime string) ([]Candidate, error) {
	startTime = models.NormalizeClock(startTime)
	endTime = models.NormalizeClock(endTime)

	day, err := time.ParseInLocation("2006-01-02", date, e.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	weekday := int(day.Weekday())

	rules, err := e.store.ListAvailabilityRules(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	booked, err := e.bookedSet(ctx, date, date)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	seen := make(map[string]bool)
	for _, rule := range rules {
		if !rule.AppliesTo(date, weekday) {
			continue
		}
		for _, hw := range models.HourWindows(rule.StartTime, rule.EndTime, e.slotMinutes) {
			if hw.Start != startTime || hw.End != endTime {
				continue
			}
			if booked[bookedKey{rule.MentorID, date, hw.Start}] {
				continue
			}
			if seen[rule.MentorID] {
				continue
			}
			seen[rule.MentorID] = true
			candidates = append(candidates, Candidate{RuleID: rule.ID, MentorID: rule.MentorID})
		}
	}
	return candidates, nil
}

func (e *Expander) bookedSet(ctx context.Context, from, to string) (map[bookedKey]bool, error) {
	keys, err := e.store.ActiveSessionKeys(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load booked sessions: %w", err)
	}
	booked := make(map[bookedKey]bool, len(keys))
	for _, k := range keys {
		booked[bookedKey{k.MentorID, k.Date, k.StartTime}] = true
	}
	return booked, nil
}

func (e *Expander) today() time.Time {
	now := e.now().In(e.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
}

func addCandidate(grouped map[string]*AnonymizedWindow, date string, hw models.ClockWindow, c Candidate) {
	key := date + "|" + hw.Start + "|" + hw.End
	w, ok := grouped[key]
	if !ok {
		w = &AnonymizedWindow{
			ID:         date + "|" + hw.Start,
			Date:       date,
			StartTime:  hw.Start,
			EndTime:    hw.End,
			SlotID:     c.RuleID,
			BookingKey: EncodeBookingKey(date, hw.Start, hw.End),
		}
		grouped[key] = w
	}
	// Overlapping rules from the same mentor must not count twice.
	for _, existing := range w.candidates {
		if existing.MentorID == c.MentorID {
			return
		}
	}
	w.candidates = append(w.candidates, c)
}
