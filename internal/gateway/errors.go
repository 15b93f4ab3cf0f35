package gateway

import (
	"errors"
)

var (
	// ErrTransient marks failures worth retrying within the polling budget:
	// network errors, timeouts, 5xx and 429 responses.
	ErrTransient  = errors.New("transient gateway error")
	ErrGateway    = errors.New("gateway rejected request")
	ErrChecksum   = errors.New("checksum mismatch")
	ErrNoRedirect = errors.New("gateway returned no redirect url")
	// ErrMalformed marks a notification body that cannot be decoded.
	ErrMalformed = errors.New("malformed gateway notification")
)
