// Package matcher filters remote availability against the declared weekly schedule.
//
// Both filters are pure: they never modify their inputs and their output order
// follows the order of the remote listing.
package matcher

import (
	"time"

	"novasport-checker/internal/novasport"
	"novasport-checker/internal/schedule"
)

const dateLayout = "2006-01-02"

// DateMatch pairs a remote date with the schedule entry that selected it.
type DateMatch struct {
	Date  string
	Entry schedule.Entry
}

// SessionMatch is a session retained for booking.
type SessionMatch struct {
	StartTime string
	ClassID   string
}

// ByWeekday keeps the dates whose weekday appears in the schedule. When several
// entries share a weekday the last one wins. Dates that are not yyyy-mm-dd are dropped.
func ByWeekday(dates []string, entries []schedule.Entry) []DateMatch {
	var matches []DateMatch
	for _, d := range dates {
		parsed, err := time.Parse(dateLayout, d)
		if err != nil {
			continue
		}
		var (
			selected schedule.Entry
			found    bool
		)
		for _, e := range entries {
			if e.Weekday == parsed.Weekday() {
				selected = e
				found = true
			}
		}
		if found {
			matches = append(matches, DateMatch{Date: d, Entry: selected})
		}
	}
	return matches
}

// ByHourAndAvailability keeps the sessions that are still bookable and start at a
// wanted hour. A session is skipped when it is already booked, not active, full,
// or when an earlier session with the same start time was already retained.
func ByHourAndAvailability(sessions []novasport.Session, entry schedule.Entry) []SessionMatch {
	var matches []SessionMatch
	retained := make(map[string]bool)
	for _, s := range sessions {
		key := slotKey(s.StartTime)
		if s.IsBooked || !s.IsActive() || s.IsFull() || retained[key] {
			continue
		}
		if entry.Hours.Contains(s.StartTime) {
			retained[key] = true
			matches = append(matches, SessionMatch{StartTime: s.StartTime, ClassID: s.ClassID})
		}
	}
	return matches
}

// slotKey is the normalized start time, or the raw one when it does not parse.
func slotKey(startTime string) string {
	if hour, err := schedule.NormalizeHour(startTime); err == nil {
		return hour
	}
	return startTime
}
