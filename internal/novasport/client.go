// Package novasport is a client for the NovaSport GraphQL API.
package novasport

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"novasport-checker/config"
	"novasport-checker/internal/tokensource"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// maxErrorBody bounds how much of an error response ends up in logs.
const maxErrorBody = 512

// Client issues the four GraphQL operations used by the checker. Every call
// fetches a token from the token source first.
type Client struct {
	endpoint       string
	host           string
	defaults       map[string]string
	userAgents     []string
	acceptLanguage string
	acceptEncoding string

	tokens  tokensource.Source
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  hclog.Logger

	uaNext atomic.Uint64
}

// NewClient creates a client from the configuration.
func NewClient(cfg *config.Config, tokens tokensource.Source, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var transport http.RoundTripper = &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.Client.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.Client.HTTPProxy)
		if err != nil {
			logger.Warn("invalid proxy URL, the client will not use a proxy", "proxy", cfg.Client.HTTPProxy, "error", err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	c := &Client{
		endpoint:       cfg.Endpoint(),
		host:           cfg.NSAPI,
		defaults:       cfg.ParamQueriesDefault,
		userAgents:     cfg.UserAgents,
		acceptLanguage: cfg.AcceptLanguage,
		acceptEncoding: cfg.AcceptEncoding,
		tokens:         tokens,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Client.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.Client.RequestsPerSecond), cfg.Client.Burst),
		logger:  logger,
	}

	if cfg.Client.Breaker.Enabled {
		threshold := cfg.Client.Breaker.FailureThreshold
		c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "novasport",
			MaxRequests: 1,
			Timeout:     cfg.Client.Breaker.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				return !isServerFailure(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return c
}

// ListDates returns the upcoming dates (yyyy-mm-dd) having classes for sport.
// params override the configured defaults; sport always wins.
func (c *Client) ListDates(ctx context.Context, sport string, params Params) ([]string, error) {
	req, err := nextClassDatesRequest(params.With(VarSport, sport).Merge(c.defaults))
	if err != nil {
		return nil, err
	}
	var data nextClassDatesData
	if _, err := c.do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.GetNextClassDates, nil
}

// ListSessions returns every class of sport on date.
func (c *Client) ListSessions(ctx context.Context, sport, date string, params Params) ([]Session, error) {
	p := params.With(VarSport, sport).With(VarDate, date).Merge(c.defaults)
	req, err := campusSportClassesRequest(p)
	if err != nil {
		return nil, err
	}
	var data campusSportClassesData
	if _, err := c.do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.GetCampusSportClasses, nil
}

// Book books a class and returns its state after the mutation. A nil session
// with a nil error means the remote answered without a class.
func (c *Client) Book(ctx context.Context, classID string) (*Session, error) {
	req, err := bookRequest(classID)
	if err != nil {
		return nil, err
	}
	var data bookData
	if _, err := c.do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.BookCampusSportClass, nil
}

// Unbook cancels a booking. The raw response body is returned alongside the flag.
func (c *Client) Unbook(ctx context.Context, classID string) (*UnbookResult, error) {
	req, err := unbookRequest(classID)
	if err != nil {
		return nil, err
	}
	var data unbookData
	raw, err := c.do(ctx, req, &data)
	if err != nil {
		return nil, err
	}
	return &UnbookResult{Unbooked: data.UnbookCampusSportClass, Raw: raw}, nil
}

func (c *Client) do(ctx context.Context, gql graphQLRequest, out any) (json.RawMessage, error) {
	op := gql.OperationName

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch token: %w", op, err)
	}

	payload, err := json.Marshal(gql)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.logger.Debug("sending request", "operation", op, "variables", gql.Variables)
	send := func() ([]byte, error) { return c.post(ctx, op, token, payload) }
	var body []byte
	if c.breaker != nil {
		body, err = c.breaker.Execute(send)
	} else {
		body, err = send()
	}
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	if len(env.Errors) > 0 {
		ge := &GraphQLError{Operation: op}
		for _, e := range env.Errors {
			ge.Messages = append(ge.Messages, e.Message)
		}
		return nil, ge
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("%s: failed to decode data: %w", op, err)
		}
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, op, token string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if c.host != "" {
		req.Host = c.host
	}
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept-Language", c.acceptLanguage)
	req.Header.Set("Accept-Encoding", c.acceptEncoding)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Authorization", token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response body: %w", op, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.tokens.Invalidate()
		return nil, fmt.Errorf("%s: %w (status %d)", op, ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{Operation: op, StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}
	return body, nil
}

func (c *Client) userAgent() string {
	if len(c.userAgents) == 0 {
		return defaultUserAgent
	}
	n := c.uaNext.Add(1) - 1
	return c.userAgents[n%uint64(len(c.userAgents))]
}

// readBody undoes the content encodings announced in Accept-Encoding. Setting
// that header by hand disables net/http's transparent gzip handling.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}
	return io.ReadAll(r)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
