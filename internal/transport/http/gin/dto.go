package httpgin

import (
	"github.com/u3m2a1/nibog-sub001/internal/domain"
)

type InitiatePaymentRequest struct {
	Parent     domain.Parent           `json:"parent" binding:"required"`
	Child      domain.Child            `json:"child" binding:"required"`
	EventID    int64                   `json:"event_id" binding:"required,gt=0"`
	Games      []domain.GameSelection  `json:"games" binding:"required,min=1,dive"`
	AddOns     []domain.AddOnSelection `json:"addons" binding:"dive"`
	TotalPaise int64                   `json:"total_paise" binding:"required,gt=0"`
}

type InitiatePaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	BookingID     int64  `json:"booking_id"`
	RedirectURL   string `json:"redirect_url"`
}

// PaymentResponse is returned by every endpoint that resolves a payment.
type PaymentResponse struct {
	TransactionID string               `json:"transaction_id"`
	Status        domain.PaymentStatus `json:"status"`
	Message       string               `json:"message"`
	BookingID     int64                `json:"booking_id,omitempty"`
	BookingRef    string               `json:"booking_ref,omitempty"`
	Attempts      int                  `json:"attempts,omitempty"`
	RecheckURL    string               `json:"recheck_url,omitempty"`
	RetryURL      string               `json:"retry_url,omitempty"`
}

type BulkCertificatesRequest struct {
	TemplateID   int64                `json:"template_id" binding:"required,gt=0"`
	EventID      int64                `json:"event_id" binding:"required,gt=0"`
	GameID       *int64               `json:"game_id"`
	Participants []domain.Participant `json:"participants" binding:"required,min=1"`
}

type RetryCertificatesRequest struct {
	BulkCertificatesRequest
	Previous domain.BulkGenerationProgress `json:"previous" binding:"required"`
}

// PartialProgressResponse carries the certificates generated before a run
// stopped.
type PartialProgressResponse struct {
	Error    string                        `json:"error"`
	Progress domain.BulkGenerationProgress `json:"progress"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// BookingIssueResponse is sent when the payment went through but the
// booking could not be written. The parent needs the transaction id to
// reach support.
type BookingIssueResponse struct {
	Error         string `json:"error"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}
