package novasport

import (
	"errors"
	"fmt"
	"strings"
)

// Operation names as known by the remote schema.
const (
	OpGetNextClassDates      = "GetNextClassDates"
	OpGetCampusSportClasses  = "GetCampusSportClasses"
	OpBookCampusSportClass   = "BookCampusSportClass"
	OpUnBookCampusSportClass = "UnBookCampusSportClass"
)

// Variable names.
const (
	VarUniversity = "university"
	VarCampus     = "campus"
	VarCategory   = "category"
	VarSport      = "sport"
	VarDate       = "date"
	VarClassID    = "classId"
)

// ErrMissingVariable is returned when a required GraphQL variable is empty.
var ErrMissingVariable = errors.New("missing GraphQL variable")

const sessionFields = `    classId
    date
    startTime
    endTime
    name
    maxParticipants
    participantsCount
    isBooked
    status
    __typename`

const (
	queryNextClassDates = `query GetNextClassDates($university: String!, $campus: String!, $category: String!, $sport: String!) {
  getNextClassDates(university: $university, campus: $campus, category: $category, sport: $sport)
}
`
	queryCampusSportClasses = `query GetCampusSportClasses($university: String!, $campus: String!, $category: String!, $sport: String!, $date: AWSDate!) {
  getCampusSportClasses(university: $university, campus: $campus, category: $category, sport: $sport, date: $date) {
` + sessionFields + `
  }
}
`
	mutationBook = `mutation BookCampusSportClass($classId: ID!) {
  bookCampusSportClass(classId: $classId) {
    classId
    date
    startTime
    endTime
    name
    maxParticipants
    participantsCount
    isBooked
    __typename
  }
}
`
	mutationUnbook = `mutation UnBookCampusSportClass($classId: ID!) {
  unbookCampusSportClass(classId: $classId)
}
`
)

// graphQLRequest is the JSON body POSTed to the endpoint.
type graphQLRequest struct {
	OperationName string `json:"operationName"`
	Query         string `json:"query"`
	Variables     any    `json:"variables"`
}

type nextClassDatesVars struct {
	Campus     string `json:"campus"`
	Category   string `json:"category"`
	Sport      string `json:"sport"`
	University string `json:"university"`
}

type campusSportClassesVars struct {
	Campus     string `json:"campus"`
	Category   string `json:"category"`
	Date       string `json:"date"`
	Sport      string `json:"sport"`
	University string `json:"university"`
}

type classIDVars struct {
	ClassID string `json:"classId"`
}

// requireVars reads the named variables from p and reports every empty one.
func requireVars(op string, p Params, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	var missing []string
	for _, name := range names {
		v := strings.TrimSpace(p[name])
		if v == "" {
			missing = append(missing, name)
			continue
		}
		out[name] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrMissingVariable, strings.Join(missing, ", "))
	}
	return out, nil
}

func nextClassDatesRequest(p Params) (graphQLRequest, error) {
	v, err := requireVars(OpGetNextClassDates, p, VarUniversity, VarCampus, VarCategory, VarSport)
	if err != nil {
		return graphQLRequest{}, err
	}
	return graphQLRequest{
		OperationName: OpGetNextClassDates,
		Query:         queryNextClassDates,
		Variables: nextClassDatesVars{
			Campus:     v[VarCampus],
			Category:   v[VarCategory],
			Sport:      v[VarSport],
			University: v[VarUniversity],
		},
	}, nil
}

func campusSportClassesRequest(p Params) (graphQLRequest, error) {
	v, err := requireVars(OpGetCampusSportClasses, p, VarUniversity, VarCampus, VarCategory, VarSport, VarDate)
	if err != nil {
		return graphQLRequest{}, err
	}
	return graphQLRequest{
		OperationName: OpGetCampusSportClasses,
		Query:         queryCampusSportClasses,
		Variables: campusSportClassesVars{
			Campus:     v[VarCampus],
			Category:   v[VarCategory],
			Date:       v[VarDate],
			Sport:      v[VarSport],
			University: v[VarUniversity],
		},
	}, nil
}

func bookRequest(classID string) (graphQLRequest, error) {
	v, err := requireVars(OpBookCampusSportClass, Params{VarClassID: classID}, VarClassID)
	if err != nil {
		return graphQLRequest{}, err
	}
	return graphQLRequest{
		OperationName: OpBookCampusSportClass,
		Query:         mutationBook,
		Variables:     classIDVars{ClassID: v[VarClassID]},
	}, nil
}

func unbookRequest(classID string) (graphQLRequest, error) {
	v, err := requireVars(OpUnBookCampusSportClass, Params{VarClassID: classID}, VarClassID)
	if err != nil {
		return graphQLRequest{}, err
	}
	return graphQLRequest{
		OperationName: OpUnBookCampusSportClass,
		Query:         mutationUnbook,
		Variables:     classIDVars{ClassID: v[VarClassID]},
	}, nil
}
