package schedule

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Wildcard is the hour token that matches any start time.
const Wildcard = "*"

var hourRe = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)(?::([0-5]\d))?$`)

// HourSet is either the wildcard or a non-empty, ordered list of HH:MM start times.
type HourSet struct {
	wildcard bool
	hours    []string
}

// AnyHour returns the wildcard hour set.
func AnyHour() HourSet {
	return HourSet{wildcard: true}
}

// NewHourSet builds an hour set from raw values. A "*" anywhere in the list makes
// the whole set a wildcard. Duplicates are dropped, first occurrence kept.
func NewHourSet(raw []string) (HourSet, error) {
	var hours []string
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if r == Wildcard {
			return AnyHour(), nil
		}
		h, err := NormalizeHour(r)
		if err != nil {
			return HourSet{}, err
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		hours = append(hours, h)
	}
	if len(hours) == 0 {
		return HourSet{}, fmt.Errorf("hour set is empty")
	}
	return HourSet{hours: hours}, nil
}

// IsWildcard reports whether the set matches any hour.
func (h HourSet) IsWildcard() bool { return h.wildcard }

// Hours returns a copy of the declared hours, nil for the wildcard.
func (h HourSet) Hours() []string {
	if h.wildcard {
		return nil
	}
	return append([]string(nil), h.hours...)
}

// Contains reports whether a remote start time is wanted. Start times carrying
// seconds ("18:00:00") are compared on their HH:MM part.
func (h HourSet) Contains(startTime string) bool {
	if h.wildcard {
		return true
	}
	t, err := NormalizeHour(startTime)
	if err != nil {
		t = strings.TrimSpace(startTime)
	}
	for _, hour := range h.hours {
		if hour == t {
			return true
		}
	}
	return false
}

func (h HourSet) String() string {
	if h.wildcard {
		return Wildcard
	}
	return strings.Join(h.hours, "|")
}

// Entry declares which start times are wanted on one weekday.
type Entry struct {
	Weekday time.Weekday
	Hours   HourSet
}

func (e Entry) String() string {
	return e.Weekday.String() + "/" + e.Hours.String()
}

// NewEntry validates a weekday name and its hours.
func NewEntry(weekday string, hours []string) (Entry, error) {
	wd, err := ParseWeekday(weekday)
	if err != nil {
		return Entry{}, err
	}
	hs, err := NewHourSet(hours)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", wd, err)
	}
	return Entry{Weekday: wd, Hours: hs}, nil
}

// ParseEntry parses the compact "Weekday/hour|hour" form, e.g. "Monday/18:00|19:30"
// or "Sunday/*".
func ParseEntry(raw string) (Entry, error) {
	day, hours, ok := strings.Cut(strings.TrimSpace(raw), "/")
	if !ok {
		return Entry{}, fmt.Errorf("invalid schedule entry %q: want Weekday/hours", raw)
	}
	e, err := NewEntry(day, strings.Split(hours, "|"))
	if err != nil {
		return Entry{}, fmt.Errorf("invalid schedule entry %q: %w", raw, err)
	}
	return e, nil
}

// ParseWeekday accepts full English weekday names, case-insensitively.
func ParseWeekday(raw string) (time.Weekday, error) {
	name := strings.TrimSpace(raw)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", raw)
}

// NormalizeHour turns "8:00", "08:00" and "08:00:00" into "08:00".
func NormalizeHour(raw string) (string, error) {
	m := hourRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", fmt.Errorf("invalid hour %q: want HH:MM", raw)
	}
	h, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%02d:%s", h, m[2]), nil
}

type entryFields struct {
	Weekday string   `json:"weekday" yaml:"weekday"`
	Hours   []string `json:"hours" yaml:"hours"`
}

// UnmarshalJSON accepts either "Monday/18:00" or {"weekday": "Monday", "hours": ["18:00"]}.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var compact string
	if err := json.Unmarshal(data, &compact); err == nil {
		parsed, err := ParseEntry(compact)
		if err != nil {
			return err
		}
		*e = parsed
		return nil
	}

	var f entryFields
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid schedule entry: %w", err)
	}
	parsed, err := NewEntry(f.Weekday, f.Hours)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// MarshalJSON writes the compact form.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// UnmarshalYAML accepts the same two shapes as UnmarshalJSON.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	var (
		parsed Entry
		err    error
	)
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err = ParseEntry(node.Value)
	case yaml.MappingNode:
		var f entryFields
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("invalid schedule entry: %w", err)
		}
		parsed, err = NewEntry(f.Weekday, f.Hours)
	default:
		return fmt.Errorf("invalid schedule entry at line %d", node.Line)
	}
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
