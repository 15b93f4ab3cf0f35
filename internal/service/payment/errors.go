package payment

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingParams = errors.New("missing transaction ID or temporary ID")
	ErrInvalidIntent = errors.New("invalid booking intent")
	ErrRateLimited   = errors.New("too many checkout attempts")
)

// RateLimitError reports when the caller may try again.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
