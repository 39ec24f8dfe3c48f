package novasport

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized is returned on 401/403, usually because the token expired.
var ErrUnauthorized = errors.New("remote API rejected the token")

// StatusError is a non-2xx answer from the remote API.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: remote API returned status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: remote API returned status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Operation string
	Messages  []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, strings.Join(e.Messages, "; "))
}

// isServerFailure tells the circuit breaker which errors count against the remote.
func isServerFailure(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	var ge *GraphQLError
	if errors.As(err, &ge) || errors.Is(err, ErrUnauthorized) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
