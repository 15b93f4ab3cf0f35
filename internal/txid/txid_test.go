package txid

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		bookingID int64
		format    Format
		nonce     string
		wantErr   error
	}{
		{name: "legacy", raw: "NIBOG_482_xyz", bookingID: 482, format: FormatLegacy, nonce: "xyz"},
		{name: "legacy nonce with separators", raw: "NIBOG_7_a_b_c", bookingID: 7, format: FormatLegacy, nonce: "a_b_c"},
		{name: "legacy without nonce", raw: "NIBOG_15", bookingID: 15, format: FormatLegacy},
		{name: "other prefix", raw: "TXN_99_1700000000", bookingID: 99, format: FormatLegacy, nonce: "1700000000"},
		{name: "v1", raw: "v1:1234:abcd", bookingID: 1234, format: FormatV1, nonce: "abcd"},
		{name: "empty", raw: "   ", wantErr: ErrEmpty},
		{name: "no separator", raw: "NIBOG482", wantErr: ErrNoBookingID},
		{name: "non numeric", raw: "NIBOG_abc_xyz", wantErr: ErrNoBookingID},
		{name: "zero id", raw: "NIBOG_0_xyz", wantErr: ErrNoBookingID},
		{name: "v1 missing nonce", raw: "v1:12:", wantErr: ErrMalformed},
		{name: "v1 bad id", raw: "v1:x1:abc", wantErr: ErrNoBookingID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, err := Parse(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.raw, err)
			}
			if id.BookingID != tt.bookingID {
				t.Errorf("expected booking id %d, got %d", tt.bookingID, id.BookingID)
			}
			if id.Format != tt.format {
				t.Errorf("expected format %d, got %d", tt.format, id.Format)
			}
			if id.Nonce != tt.nonce {
				t.Errorf("expected nonce %q, got %q", tt.nonce, id.Nonce)
			}
		})
	}
}

func TestNewRoundTrip(t *testing.T) {
	t.Parallel()

	for _, id := range []ID{New(482), NewV1(482)} {
		parsed, err := Parse(id.String())
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", id, err)
		}
		if parsed != id {
			t.Errorf("expected %+v, got %+v", id, parsed)
		}
	}

	if !strings.HasPrefix(New(1).String(), "NIBOG_1_") {
		t.Errorf("unexpected legacy id %q", New(1))
	}
	if New(1).String() == New(1).String() {
		t.Error("expected distinct nonces")
	}
}
