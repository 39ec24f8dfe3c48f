package novasport

import "encoding/json"

// StatusActive is the only session status that can be booked.
const StatusActive = "active"

// Session is one bookable class as returned by the remote API.
type Session struct {
	ClassID           string `json:"classId"`
	Date              string `json:"date"`
	StartTime         string `json:"startTime"`
	EndTime           string `json:"endTime"`
	Name              string `json:"name"`
	MaxParticipants   int    `json:"maxParticipants"`
	ParticipantsCount int    `json:"participantsCount"`
	IsBooked          bool   `json:"isBooked"`
	Status            string `json:"status"`
}

// IsActive reports whether the session status allows booking.
func (s Session) IsActive() bool { return s.Status == StatusActive }

// IsFull reports whether every place is taken.
func (s Session) IsFull() bool { return s.ParticipantsCount == s.MaxParticipants }

// Params holds GraphQL variables such as university, campus, category, sport or date.
type Params map[string]string

// Merge returns a new Params where p wins and defaults only fill absent keys.
// Neither map is modified.
func (p Params) Merge(defaults map[string]string) Params {
	out := make(Params, len(p)+len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range p {
		out[k] = v
	}
	return out
}

// With returns a copy of p with key set to value.
func (p Params) With(key, value string) Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[key] = value
	return out
}

// UnbookResult is the outcome of UnBookCampusSportClass.
type UnbookResult struct {
	Unbooked bool
	Raw      json.RawMessage
}

type graphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
	Type    string `json:"errorType,omitempty"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type nextClassDatesData struct {
	GetNextClassDates []string `json:"getNextClassDates"`
}

type campusSportClassesData struct {
	GetCampusSportClasses []Session `json:"getCampusSportClasses"`
}

type bookData struct {
	BookCampusSportClass *Session `json:"bookCampusSportClass"`
}

type unbookData struct {
	UnbookCampusSportClass bool `json:"unbookCampusSportClass"`
}
