package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Wall-clock times travel as strings in the mentor's fixed timezone.
// Comparisons happen on normalized HH:MM:SS strings or minute-of-day
// integers; real timezone math is reserved for display and calendar
// payloads.

// NormalizeClock widens HH:MM to HH:MM:SS and zero-pads components so
// that string equality is reliable. Invalid input is returned unchanged;
// callers that care run ClockMinutes first.
func NormalizeClock(t string) string {
	h, m, ok := splitClock(t)
	if !ok {
		return t
	}
	return fmt.Sprintf("%02d:%02d:00", h, m)
}

// ClockMinutes converts HH:MM or HH:MM:SS to minutes since midnight.
func ClockMinutes(t string) (int, error) {
	h, m, ok := splitClock(t)
	if !ok {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM or HH:MM:SS", t)
	}
	return h*60 + m, nil
}

// MinutesClock renders minutes since midnight as HH:MM:SS.
func MinutesClock(mins int) string {
	return fmt.Sprintf("%02d:%02d:00", mins/60, mins%60)
}

// ShortClock trims HH:MM:SS to HH:MM for human-facing text.
func ShortClock(t string) string {
	if len(t) >= 5 {
		return t[:5]
	}
	return t
}

func splitClock(t string) (hour, minute int, ok bool) {
	parts := strings.Split(t, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, 0, false
		}
	}
	return hour, minute, true
}

// ClockWindow is a [Start, End) pair of HH:MM:SS strings.
type ClockWindow struct {
	Start string
	End   string
}

// HourWindows decomposes [start, end) into consecutive fixed-width
// sub-windows, discarding any trailing partial slice. Inverted or empty
// ranges yield nil.
func HourWindows(start, end string, widthMinutes int) []ClockWindow {
	if widthMinutes <= 0 {
		return nil
	}
	s, err := ClockMinutes(start)
	if err != nil {
		return nil
	}
	e, err := ClockMinutes(end)
	if err != nil {
		return nil
	}

	var windows []ClockWindow
	for cur := s; cur+widthMinutes <= e; cur += widthMinutes {
		windows = append(windows, ClockWindow{
			Start: MinutesClock(cur),
			End:   MinutesClock(cur + widthMinutes),
		})
	}
	return windows
}
