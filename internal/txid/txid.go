// Package txid builds and parses payment transaction identifiers.
//
// Two formats are accepted:
//
//	NIBOG_<bookingID>_<nonce>   legacy, produced by older checkouts
//	v1:<bookingID>:<nonce>      structured
//
// Both embed the booking id reserved before redirecting to the gateway so
// that a paid transaction can always be tied back to its booking.
package txid

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	legacyPrefix = "NIBOG"
	version1     = "v1"
)

var (
	ErrEmpty       = errors.New("empty transaction id")
	ErrMalformed   = errors.New("malformed transaction id")
	ErrNoBookingID = errors.New("transaction id carries no booking id")
)

type Format int

const (
	FormatLegacy Format = iota + 1
	FormatV1
)

// ID is a parsed transaction identifier.
type ID struct {
	Raw       string
	Format    Format
	BookingID int64
	Nonce     string
}

func (id ID) String() string { return id.Raw }

// New returns a legacy-format id for bookingID. The legacy format is still
// what the gateway dashboard shows operators, so new checkouts keep it.
func New(bookingID int64) ID {
	nonce := randomNonce()
	raw := fmt.Sprintf("%s_%d_%s", legacyPrefix, bookingID, nonce)
	return ID{Raw: raw, Format: FormatLegacy, BookingID: bookingID, Nonce: nonce}
}

// NewV1 returns a structured id for bookingID.
func NewV1(bookingID int64) ID {
	nonce := randomNonce()
	raw := fmt.Sprintf("%s:%d:%s", version1, bookingID, nonce)
	return ID{Raw: raw, Format: FormatV1, BookingID: bookingID, Nonce: nonce}
}

// Parse recovers the booking id embedded in raw.
func Parse(raw string) (ID, error) {
	const op = "txid.Parse"

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ID{}, fmt.Errorf("%s: %w", op, ErrEmpty)
	}

	if strings.HasPrefix(raw, version1+":") {
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) != 3 || parts[2] == "" {
			return ID{}, fmt.Errorf("%s: %w: %q", op, ErrMalformed, raw)
		}
		bid, err := parseBookingID(parts[1])
		if err != nil {
			return ID{}, fmt.Errorf("%s: %w: %q", op, err, raw)
		}
		return ID{Raw: raw, Format: FormatV1, BookingID: bid, Nonce: parts[2]}, nil
	}

	// PREFIX_<digits>_... ; anything after the second separator is the nonce
	// and may itself contain underscores.
	parts := strings.SplitN(raw, "_", 3)
	if len(parts) < 2 || parts[0] == "" {
		return ID{}, fmt.Errorf("%s: %w: %q", op, ErrNoBookingID, raw)
	}
	bid, err := parseBookingID(parts[1])
	if err != nil {
		return ID{}, fmt.Errorf("%s: %w: %q", op, err, raw)
	}

	id := ID{Raw: raw, Format: FormatLegacy, BookingID: bid}
	if len(parts) == 3 {
		id.Nonce = parts[2]
	}
	return id, nil
}

func parseBookingID(s string) (int64, error) {
	if s == "" {
		return 0, ErrNoBookingID
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrNoBookingID
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrNoBookingID
	}
	return v, nil
}

func randomNonce() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
