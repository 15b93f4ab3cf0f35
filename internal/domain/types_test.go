package domain

import "testing"

func TestPaymentStatus(t *testing.T) {
	tests := []struct {
		status   PaymentStatus
		terminal bool
		valid    bool
	}{
		{PaymentPending, false, true},
		{PaymentSuccess, true, true},
		{PaymentFailed, true, true},
		{PaymentCancelled, true, true},
		{PaymentStatus("PROCESSING"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.status.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestBookingRef(t *testing.T) {
	if got := BookingRef(482); got != "B0000482" {
		t.Errorf("BookingRef(482) = %q", got)
	}

	code := SecurityCode("B0000482")
	if len(code) != 8 {
		t.Fatalf("expected 8 chars, got %q", code)
	}
	if code != SecurityCode("B0000482") {
		t.Error("security code is not stable")
	}
	if code == SecurityCode("B0000483") {
		t.Error("different refs share a security code")
	}
}
