package novasport

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novasport-checker/config"
	"novasport-checker/internal/tokensource"
)

type stubTokens struct {
	token       string
	err         error
	invalidated atomic.Int32
}

func (s *stubTokens) Token(context.Context) (string, error) {
	return s.token, s.err
}

func (s *stubTokens) Invalidate() {
	s.invalidated.Add(1)
}

type capturedRequest struct {
	Header http.Header
	Host   string
	Body   struct {
		OperationName string            `json:"operationName"`
		Query         string            `json:"query"`
		Variables     map[string]string `json:"variables"`
	}
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, req capturedRequest)) (*Client, *stubTokens, *[]capturedRequest, *config.Config) {
	t.Helper()
	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c capturedRequest
		c.Header = r.Header.Clone()
		c.Host = r.Host
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &c.Body))
		captured = append(captured, c)
		handler(w, c)
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{
		NSAPI:      "api.novasport.test",
		APIURL:     server.URL + "/graphql",
		UserAgents: []string{"ua-one", "ua-two"},
		ParamQueriesDefault: map[string]string{
			VarUniversity: "uni",
			VarCampus:     "main",
			VarCategory:   "sport",
		},
		Client: config.ClientConfig{RequestsPerSecond: 1000, Burst: 10},
	}
	cfg.ApplyDefaults()

	tokens := &stubTokens{token: "tok-123"}
	return NewClient(cfg, tokens, hclog.NewNullLogger()), tokens, &captured, cfg
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestClient_ListDates(t *testing.T) {
	client, _, captured, _ := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		writeJSON(w, http.StatusOK, `{"data":{"getNextClassDates":["2024-05-06","2024-05-07"]}}`)
	})

	dates, err := client.ListDates(context.Background(), "Tennis", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-06", "2024-05-07"}, dates)

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, OpGetNextClassDates, req.Body.OperationName)
	assert.Contains(t, req.Body.Query, "getNextClassDates")
	assert.Equal(t, map[string]string{
		VarUniversity: "uni",
		VarCampus:     "main",
		VarCategory:   "sport",
		VarSport:      "Tennis",
	}, req.Body.Variables)

	assert.Equal(t, "tok-123", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "fr,fr-FR;q=0.8", req.Header.Get("Accept-Language"))
	assert.Equal(t, "gzip, deflate", req.Header.Get("Accept-Encoding"))
	assert.Equal(t, "ua-one", req.Header.Get("User-Agent"))
	assert.Equal(t, "api.novasport.test", req.Host)
}

func TestClient_ParamsPrecedence(t *testing.T) {
	client, _, captured, _ := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		writeJSON(w, http.StatusOK, `{"data":{"getCampusSportClasses":[]}}`)
	})

	params := Params{VarCampus: "north", VarSport: "ignored", VarDate: "ignored"}
	_, err := client.ListSessions(context.Background(), "Badminton", "2024-05-06", params)
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	vars := (*captured)[0].Body.Variables
	assert.Equal(t, "north", vars[VarCampus], "per-sport params override defaults")
	assert.Equal(t, "uni", vars[VarUniversity])
	assert.Equal(t, "Badminton", vars[VarSport], "the call's sport always wins")
	assert.Equal(t, "2024-05-06", vars[VarDate])
	assert.Equal(t, "ignored", params[VarSport], "caller params are not modified")
}

func TestClient_ListSessions(t *testing.T) {
	client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		writeJSON(w, http.StatusOK, `{"data":{"getCampusSportClasses":[
			{"classId":"c1","date":"2024-05-06","startTime":"18:00:00","endTime":"19:00:00","name":"Tennis",
			 "maxParticipants":12,"participantsCount":3,"isBooked":false,"status":"active","__typename":"CampusSportClass"},
			{"classId":"c2","date":"2024-05-06","startTime":"19:00:00","endTime":"20:00:00","name":"Tennis",
			 "maxParticipants":12,"participantsCount":12,"isBooked":false,"status":"active","__typename":"CampusSportClass"}
		]}}`)
	})

	sessions, err := client.ListSessions(context.Background(), "Tennis", "2024-05-06", nil)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "c1", sessions[0].ClassID)
	assert.Equal(t, "18:00:00", sessions[0].StartTime)
	assert.True(t, sessions[0].IsActive())
	assert.False(t, sessions[0].IsFull())
	assert.True(t, sessions[1].IsFull())
}

func TestClient_BookAndUnbook(t *testing.T) {
	client, _, captured, _ := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		switch req.Body.OperationName {
		case OpBookCampusSportClass:
			writeJSON(w, http.StatusOK, `{"data":{"bookCampusSportClass":{"classId":"c1","isBooked":true}}}`)
		case OpUnBookCampusSportClass:
			writeJSON(w, http.StatusOK, `{"data":{"unbookCampusSportClass":true}}`)
		}
	})

	session, err := client.Book(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.True(t, session.IsBooked)

	res, err := client.Unbook(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, res.Unbooked)
	assert.JSONEq(t, `{"data":{"unbookCampusSportClass":true}}`, string(res.Raw))

	require.Len(t, *captured, 2)
	assert.Equal(t, "c1", (*captured)[0].Body.Variables[VarClassID])
	assert.Equal(t, "ua-two", (*captured)[1].Header.Get("User-Agent"), "user agents rotate")
}

func TestClient_BookNullResult(t *testing.T) {
	client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		writeJSON(w, http.StatusOK, `{"data":{"bookCampusSportClass":null}}`)
	})

	session, err := client.Book(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestClient_MissingVariable(t *testing.T) {
	client, _, captured, cfg := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		t.Error("no request expected")
	})
	delete(cfg.ParamQueriesDefault, VarCampus)

	_, err := client.ListDates(context.Background(), "Tennis", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingVariable)
	assert.Contains(t, err.Error(), VarCampus)
	assert.Empty(t, *captured)

	_, err = client.Book(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingVariable)
}

func TestClient_Unauthorized(t *testing.T) {
	client, tokens, _, _ := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"expired"}`)
	})

	_, err := client.ListDates(context.Background(), "Tennis", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), tokens.invalidated.Load())
}

func TestClient_TokenUnavailable(t *testing.T) {
	client, tokens, captured, _ := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		t.Error("no request expected")
	})
	tokens.err = tokensource.ErrNoToken

	dates, err := client.ListDates(context.Background(), "Tennis", nil)
	assert.Nil(t, dates)
	assert.ErrorIs(t, err, tokensource.ErrNoToken)
	assert.Empty(t, *captured)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "graphql errors",
			status: http.StatusOK,
			body:   `{"data":null,"errors":[{"message":"class is full"},{"message":"try later"}]}`,
			check: func(t *testing.T, err error) {
				var ge *GraphQLError
				require.True(t, errors.As(err, &ge))
				assert.Equal(t, []string{"class is full", "try later"}, ge.Messages)
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   "upstream down",
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusBadGateway, se.StatusCode)
				assert.Equal(t, "upstream down", se.Body)
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `not json`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "failed to decode response")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
				writeJSON(w, tc.status, tc.body)
			})
			_, err := client.ListDates(context.Background(), "Tennis", nil)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestClient_GzipResponse(t *testing.T) {
	client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		gz.Write([]byte(`{"data":{"getNextClassDates":["2024-05-06"]}}`))
		gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	})

	dates, err := client.ListDates(context.Background(), "Tennis", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-06"}, dates)
}

func TestClient_CircuitBreaker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := &config.Config{
		NSAPI:               "api.novasport.test",
		APIURL:              server.URL,
		ParamQueriesDefault: map[string]string{VarUniversity: "u", VarCampus: "c", VarCategory: "k"},
		Client: config.ClientConfig{
			RequestsPerSecond: 1000,
			Burst:             10,
			Breaker:           config.BreakerConfig{Enabled: true, FailureThreshold: 2},
		},
	}
	cfg.ApplyDefaults()
	client := NewClient(cfg, &stubTokens{token: "t"}, hclog.NewNullLogger())

	for i := 0; i < 2; i++ {
		_, err := client.ListDates(context.Background(), "Tennis", nil)
		var se *StatusError
		require.True(t, errors.As(err, &se))
	}

	_, err := client.ListDates(context.Background(), "Tennis", nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load())
}

func TestIsServerFailure(t *testing.T) {
	assert.False(t, isServerFailure(nil))
	assert.False(t, isServerFailure(&StatusError{StatusCode: 404}))
	assert.True(t, isServerFailure(&StatusError{StatusCode: 503}))
	assert.False(t, isServerFailure(&GraphQLError{Messages: []string{"x"}}))
	assert.False(t, isServerFailure(ErrUnauthorized))
	assert.False(t, isServerFailure(context.Canceled))
	assert.True(t, isServerFailure(errors.New("connection reset")))
}

func TestParams(t *testing.T) {
	defaults := map[string]string{"a": "1", "b": "2"}
	p := Params{"b": "3"}

	merged := p.Merge(defaults)
	assert.Equal(t, Params{"a": "1", "b": "3"}, merged)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, defaults)

	with := p.With("c", "4")
	assert.Equal(t, Params{"b": "3", "c": "4"}, with)
	assert.Equal(t, Params{"b": "3"}, p)
}
