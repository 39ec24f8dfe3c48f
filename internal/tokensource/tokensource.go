// Package tokensource fetches the current bearer token from the local token relay.
package tokensource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// ErrNoToken is returned when the relay has no token to give.
var ErrNoToken = errors.New("no token available")

const cacheKey = "token"

// Source provides credentials for authenticated calls.
type Source interface {
	Token(ctx context.Context) (string, error)
	// Invalidate drops any cached token so the next call goes back to the relay.
	Invalidate()
}

// HTTPSource reads GET <base>/token. With a zero TTL every call hits the relay.
type HTTPSource struct {
	url    string
	client *http.Client
	cache  *cache.Cache
	ttl    time.Duration
}

// New creates an HTTPSource for the relay at baseURL.
func New(baseURL string, timeout, ttl time.Duration) *HTTPSource {
	s := &HTTPSource{
		url:    strings.TrimRight(baseURL, "/") + "/token",
		client: &http.Client{Timeout: timeout},
		ttl:    ttl,
	}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Token returns the latest token known by the relay.
func (s *HTTPSource) Token(ctx context.Context) (string, error) {
	if s.cache != nil {
		if v, found := s.cache.Get(cacheKey); found {
			return v.(string), nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token relay unreachable, check it is running: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return "", fmt.Errorf("%w: %s", ErrNoToken, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("token relay returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.Token == "" {
		return "", ErrNoToken
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, tr.Token, s.ttl)
	}
	return tr.Token, nil
}

// Invalidate drops the cached token.
func (s *HTTPSource) Invalidate() {
	if s.cache != nil {
		s.cache.Delete(cacheKey)
	}
}
