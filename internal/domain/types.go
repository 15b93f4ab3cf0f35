package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// PaymentStatus is the normalized gateway outcome. Raw provider codes are
// mapped onto it inside the gateway adapter and never travel further.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSuccess   PaymentStatus = "SUCCESS"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentSuccess || s == PaymentFailed || s == PaymentCancelled
}

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s.Terminal()
}

type PaymentOutcome struct {
	TransactionID string        `json:"transaction_id"`
	Status        PaymentStatus `json:"status"`
	ProviderRef   string        `json:"provider_ref,omitempty"`
	AmountPaise   int64         `json:"amount_paise,omitempty"`
	Method        string        `json:"method,omitempty"`
}

type BookingStatus string

const (
	BookingPendingPayment   BookingStatus = "pending_payment"
	BookingConfirmed        BookingStatus = "confirmed"
	BookingCancelledByUser  BookingStatus = "cancelled_by_user"
	BookingCancelledByAdmin BookingStatus = "cancelled_by_admin"
	BookingAttended         BookingStatus = "attended"
	BookingNoShow           BookingStatus = "no_show"
)

type BookingPaymentStatus string

const (
	BookingPaymentPending BookingPaymentStatus = "pending"
	BookingPaymentPaid    BookingPaymentStatus = "paid"
	BookingPaymentFailed  BookingPaymentStatus = "failed"
)

type Parent struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=10,max=15"`
}

type Child struct {
	Name   string `json:"name" validate:"required"`
	DOB    string `json:"dob" validate:"required,datetime=2006-01-02"`
	School string `json:"school"`
	Gender string `json:"gender" validate:"omitempty,oneof=male female other"`
}

type GameSelection struct {
	GameID     int64 `json:"game_id" validate:"required,gt=0"`
	PricePaise int64 `json:"price_paise" validate:"gte=0"`
}

type AddOnSelection struct {
	AddOnID  int64 `json:"addon_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

// TransactionIntent is the booking-intent staged before redirecting to the
// gateway. It lives until the payment resolves or it expires.
type TransactionIntent struct {
	TransactionID string           `json:"transaction_id"`
	UserID        string           `json:"user_id" validate:"required"`
	Parent        Parent           `json:"parent" validate:"required"`
	Child         Child            `json:"child" validate:"required"`
	EventID       int64            `json:"event_id" validate:"required,gt=0"`
	Games         []GameSelection  `json:"games" validate:"required,min=1,dive"`
	AddOns        []AddOnSelection `json:"addons" validate:"dive"`
	TotalPaise    int64            `json:"total_paise" validate:"required,gt=0"`
	CreatedAt     time.Time        `json:"created_at"`
}

type Booking struct {
	ID            int64                `json:"booking_id"`
	Ref           string               `json:"booking_ref"`
	TransactionID string               `json:"transaction_id"`
	UserID        string               `json:"user_id"`
	EventID       int64                `json:"event_id"`
	Status        BookingStatus        `json:"status"`
	TotalPaise    int64                `json:"total_paise"`
	PaymentStatus BookingPaymentStatus `json:"payment_status"`
	PaymentMethod string               `json:"payment_method"`
	ProviderRef   string               `json:"provider_ref,omitempty"`
	Parent        Parent               `json:"parent"`
	Child         Child                `json:"child"`
	Games         []GameSelection      `json:"games"`
	AddOns        []AddOnSelection     `json:"addons"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	CancelledAt   *time.Time           `json:"cancelled_at,omitempty"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
}

// EventInfo is the event row a ticket is printed for.
type EventInfo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	VenueName string    `json:"venue_name"`
	CityName  string    `json:"city_name"`
	Date      time.Time `json:"date"`
}

// GameSlot is one booked game joined with its slot configuration. The
// pointer fields are optional overrides; render applies the fallbacks.
type GameSlot struct {
	GameID      int64  `json:"game_id"`
	CustomTitle string `json:"custom_title,omitempty"`
	SlotTitle   string `json:"slot_title,omitempty"`
	GameName    string `json:"game_name,omitempty"`
	CustomPrice *int64 `json:"custom_price,omitempty"`
	SlotPrice   *int64 `json:"slot_price,omitempty"`
	GamePrice   *int64 `json:"game_price,omitempty"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
}

// TicketSource is everything the renderer needs for one booking.
type TicketSource struct {
	Booking Booking    `json:"booking"`
	Event   EventInfo  `json:"event"`
	Games   []GameSlot `json:"games"`
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

type CertificateData struct {
	ParticipantName   string           `json:"participant_name" yaml:"participant_name"`
	EventName         string           `json:"event_name" yaml:"event_name"`
	VenueName         string           `json:"venue_name" yaml:"venue_name"`
	CityName          string           `json:"city_name" yaml:"city_name"`
	GameName          string           `json:"game_name,omitempty" yaml:"game_name"`
	CertificateNumber string           `json:"certificate_number" yaml:"-"`
	Attendance        AttendanceStatus `json:"attendance_status,omitempty" yaml:"attendance_status"`
	EventDate         string           `json:"event_date,omitempty" yaml:"event_date"`
}

type Participant struct {
	UserID  string          `json:"user_id" yaml:"user_id" validate:"required"`
	ChildID int64           `json:"child_id" yaml:"child_id" validate:"required,gt=0"`
	Name    string          `json:"name" yaml:"name" validate:"required"`
	Email   string          `json:"email,omitempty" yaml:"email"`
	Data    CertificateData `json:"certificate_data" yaml:"certificate_data"`
}

type CertificateTemplate struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	HTML string `json:"html"`
}

type GeneratedCertificate struct {
	ID                int64           `json:"id"`
	TemplateID        int64           `json:"template_id"`
	EventID           int64           `json:"event_id"`
	GameID            *int64          `json:"game_id,omitempty"`
	UserID            string          `json:"user_id"`
	ChildID           int64           `json:"child_id"`
	CertificateNumber string          `json:"certificate_number"`
	Data              CertificateData `json:"certificate_data"`
	HTML              string          `json:"html,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

type CertificateResult struct {
	Participant Participant           `json:"participant"`
	Success     bool                  `json:"success"`
	Certificate *GeneratedCertificate `json:"certificate,omitempty"`
	Error       string                `json:"error,omitempty"`
}

type BulkGenerationProgress struct {
	Total     int                 `json:"total"`
	Completed int                 `json:"completed"`
	Failed    int                 `json:"failed"`
	Results   []CertificateResult `json:"results"`
}

// BookingRef is the human-facing booking reference printed on tickets and
// encoded in the ticket QR code.
func BookingRef(bookingID int64) string {
	return fmt.Sprintf("B%07d", bookingID)
}

// SecurityCode is the short verification code shown next to the QR code.
func SecurityCode(bookingRef string) string {
	sum := sha256.Sum256([]byte(bookingRef))
	return strings.ToUpper(hex.EncodeToString(sum[:4]))
}
