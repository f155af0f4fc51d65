package redisq

import (
	"errors"
	"fmt"
)

// Sentinel kinds for upstream fetch failures.
var (
	ErrRateLimited      = errors.New("upstream rate limited")
	ErrUnexpectedStatus = errors.New("unexpected upstream status")
	ErrDecode           = errors.New("decode upstream body")
	ErrInvalidURL       = errors.New("source url must be an absolute http(s) URL")
)

// StatusError carries the HTTP status of a rejected response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnexpectedStatus, e.Status)
}

// Unwrap lets errors.Is(err, ErrUnexpectedStatus) match.
func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }
