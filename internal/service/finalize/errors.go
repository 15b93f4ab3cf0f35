package finalize

import (
	"errors"
	"fmt"
)

var (
	ErrNotPaid    = errors.New("payment is not successful")
	ErrInProgress = errors.New("booking is being finalized by another request")
	ErrNoIntent   = errors.New("no staged booking intent for transaction")
	// ErrAmountMismatch means the gateway settled a different amount than
	// the staged intent asked for.
	ErrAmountMismatch = errors.New("paid amount does not match booking total")
)

// UnrecoverableError means the payment went through but the transaction id
// cannot be tied back to a booking. Support has to resolve it by hand.
type UnrecoverableError struct {
	TransactionID string
	Err           error
}

func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("booking for transaction %s cannot be recovered, contact support: %v", e.TransactionID, e.Err)
}

func (e *UnrecoverableError) Unwrap() error { return e.Err }

// BookingWriteError means the payment succeeded but the booking could not
// be written. It is never retried automatically and never marks the payment
// failed.
type BookingWriteError struct {
	TransactionID string
	Err           error
}

func (e *BookingWriteError) Error() string {
	return fmt.Sprintf("payment %s succeeded but booking was not saved: %v", e.TransactionID, e.Err)
}

func (e *BookingWriteError) Unwrap() error { return e.Err }
