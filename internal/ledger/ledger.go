// Package ledger keeps the bookings confirmed during the current run.
package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Record is one confirmed booking.
type Record struct {
	Sport     string
	ClassID   string
	Date      string
	StartTime string
	BookedAt  time.Time
}

// Ledger is an append-only, in-memory list of records. It is owned by the
// checker loop and is not safe for concurrent mutation.
type Ledger struct {
	records []Record
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append records a confirmed booking.
func (l *Ledger) Append(r Record) {
	l.records = append(l.records, r)
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Records returns a copy of all records in booking order.
func (l *Ledger) Records() []Record {
	return append([]Record(nil), l.records...)
}

// BySport groups class ids by sport. Sports are listed in the order of their first booking.
func (l *Ledger) BySport() ([]string, map[string][]string) {
	var sports []string
	ids := make(map[string][]string)
	for _, r := range l.records {
		if _, ok := ids[r.Sport]; !ok {
			sports = append(sports, r.Sport)
		}
		ids[r.Sport] = append(ids[r.Sport], r.ClassID)
	}
	return sports, ids
}

// Report renders the end-of-run summary.
func (l *Ledger) Report() string {
	if len(l.records) == 0 {
		return "Checker stopped. No class was booked during this run."
	}
	var b strings.Builder
	b.WriteString("Checker stopped. Managed to book following classes:")
	sports, ids := l.BySport()
	for _, sport := range sports {
		fmt.Fprintf(&b, "\n  %s: %s", sport, strings.Join(ids[sport], ", "))
	}
	return b.String()
}
