package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/u3m2a1/nibog-sub001/internal/render"
)

type EmailConfig struct {
	Endpoint string
	FromName string
	FromAddr string
	Timeout  time.Duration
}

type EmailSettings struct {
	FromName string `json:"fromName"`
	FromAddr string `json:"fromEmail"`
}

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	// Content is base64.
	Content string `json:"content"`
}

type EmailRequest struct {
	To            string             `json:"to"`
	Subject       string             `json:"subject"`
	HTML          string             `json:"html"`
	Settings      EmailSettings      `json:"settings"`
	QRCodeBuffer  string             `json:"qrCodeBuffer,omitempty"`
	BookingRef    string             `json:"bookingRef,omitempty"`
	TicketDetails *render.TicketData `json:"ticketDetails,omitempty"`
	Attachments   []Attachment       `json:"attachments,omitempty"`
}

type EmailResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EmailClient posts messages to the external email-sending endpoint.
type EmailClient struct {
	cfg  EmailConfig
	http *http.Client
}

func NewEmailClient(cfg EmailConfig, httpClient *http.Client) *EmailClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &EmailClient{cfg: cfg, http: httpClient}
}

func (c *EmailClient) Settings() EmailSettings {
	return EmailSettings{FromName: c.cfg.FromName, FromAddr: c.cfg.FromAddr}
}

func (c *EmailClient) Send(ctx context.Context, msg EmailRequest) (EmailResponse, error) {
	const op = "notify.EmailClient.Send"

	if msg.To == "" {
		return EmailResponse{}, fmt.Errorf("%s: %w", op, ErrNoRecipient)
	}
	if msg.Settings == (EmailSettings{}) {
		msg.Settings = c.Settings()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return EmailResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return EmailResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return EmailResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return EmailResponse{}, fmt.Errorf("%s: read body: %w", op, err)
	}

	var out EmailResponse
	if err := json.Unmarshal(raw, &out); err != nil && res.StatusCode < 300 {
		return EmailResponse{}, fmt.Errorf("%s: decode body: %w", op, err)
	}

	if res.StatusCode >= 300 || !out.Success {
		reason := out.Error
		if reason == "" {
			reason = http.StatusText(res.StatusCode)
		}
		return out, fmt.Errorf("%s: %w: status %d: %s", op, ErrEmailRejected, res.StatusCode, reason)
	}

	return out, nil
}
