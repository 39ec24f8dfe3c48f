package store

import "errors"

var (
	// ErrNoToken is returned by LatestToken before the first token was saved.
	ErrNoToken = errors.New("no token stored")
	// ErrNotFound is returned when a subscription does not exist.
	ErrNotFound = errors.New("not found")
)
