// Package notify sends ticket and confirmation emails, generates
// certificates and assembles the side effects that follow a confirmed
// booking. Failures here never touch the booking itself.
package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/u3m2a1/nibog-sub001/internal/render"
)

type Mailer interface {
	Send(ctx context.Context, msg EmailRequest) (EmailResponse, error)
}

type SendResult struct {
	Success     bool   `json:"success"`
	MessageID   string `json:"message_id,omitempty"`
	Attachments int    `json:"attachments"`
	Err         error  `json:"-"`
}

type TicketEmailData struct {
	To     string
	Ticket render.TicketData
}

type BookingConfirmation struct {
	To         string
	ParentName string
	BookingRef string
	EventTitle string
	EventDate  string
	VenueName  string
	Total      string
}

type Dispatcher struct {
	mailer    Mailer
	settings  EmailSettings
	logger    *slog.Logger
	ticketPDF func(render.TicketData, []byte) ([]byte, error)
}

func NewDispatcher(mailer Mailer, settings EmailSettings, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		mailer:    mailer,
		settings:  settings,
		logger:    logger,
		ticketPDF: render.TicketPDF,
	}
}

var ticketEmail = template.Must(template.New("ticket").Parse(`<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#212121">
<h2 style="color:#ff6f00">Your NIBOG ticket</h2>
<p>Hi {{.ParentName}}, your booking <strong>{{.BookingRef}}</strong> is confirmed.</p>
<table cellpadding="4">
<tr><td><b>Event</b></td><td>{{.EventTitle}}</td></tr>
<tr><td><b>Participant</b></td><td>{{.ParticipantName}}</td></tr>
<tr><td><b>Date</b></td><td>{{.EventDate}}</td></tr>
<tr><td><b>Time</b></td><td>{{.TimeWindow}}</td></tr>
<tr><td><b>Venue</b></td><td>{{.VenueName}}</td></tr>
</table>
<table cellpadding="4" style="margin-top:12px;border-top:1px solid #ddd">
{{range .Games}}<tr><td>{{.Title}}</td><td>{{.Time}}</td><td align="right">{{.Price}}</td></tr>
{{end}}<tr><td colspan="2"><b>Total</b></td><td align="right"><b>{{.Total}}</b></td></tr>
</table>
<p><img src="{{.QR}}" alt="Ticket QR code" width="200" height="200"></p>
{{if .SecurityCode}}<p>Security code: <code>{{.SecurityCode}}</code></p>{{end}}
<p>Show this QR code at the venue entrance.</p>
</body></html>`))

var confirmationEmail = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#212121">
<h2 style="color:#ff6f00">Booking confirmed</h2>
<p>Hi {{.ParentName}}, thank you for booking with NIBOG.</p>
<p>Booking reference: <strong>{{.BookingRef}}</strong></p>
<p>{{.EventTitle}}, {{.EventDate}} at {{.VenueName}}</p>
<p>Amount paid: <strong>{{.Total}}</strong></p>
</body></html>`))

type ticketView struct {
	render.TicketData
	QR template.URL
}

// SendTicketEmail sends the ticket with its QR code inline and the PDF
// ticket attached. A PDF failure is logged and the email goes out without
// the attachment.
func (d *Dispatcher) SendTicketEmail(ctx context.Context, data TicketEmailData) SendResult {
	const op = "notify.Dispatcher.SendTicketEmail"

	t := data.Ticket

	qr, err := render.QRCode(t.QRPayload, render.QRSize)
	if err != nil {
		return SendResult{Err: fmt.Errorf("%s: %w", op, err)}
	}
	qr64 := base64.StdEncoding.EncodeToString(qr)

	var html bytes.Buffer
	view := ticketView{TicketData: t, QR: template.URL("data:image/png;base64," + qr64)}
	if err := ticketEmail.Execute(&html, view); err != nil {
		return SendResult{Err: fmt.Errorf("%s: %w", op, err)}
	}

	attachments := []Attachment{{
		Filename:    "ticket-qr.png",
		ContentType: "image/png",
		Content:     qr64,
	}}

	pdf, err := d.ticketPDF(t, qr)
	if err != nil {
		d.logger.Warn("ticket pdf failed, sending email without it",
			"booking_ref", t.BookingRef, "err", err)
	} else {
		attachments = append(attachments, Attachment{
			Filename:    fmt.Sprintf("NIBOG-Ticket-%s.pdf", t.BookingRef),
			ContentType: "application/pdf",
			Content:     base64.StdEncoding.EncodeToString(pdf),
		})
	}

	ticket := t
	resp, err := d.mailer.Send(ctx, EmailRequest{
		To:            data.To,
		Subject:       fmt.Sprintf("Your NIBOG ticket %s", t.BookingRef),
		HTML:          html.String(),
		Settings:      d.settings,
		QRCodeBuffer:  qr64,
		BookingRef:    t.BookingRef,
		TicketDetails: &ticket,
		Attachments:   attachments,
	})
	if err != nil {
		return SendResult{Err: fmt.Errorf("%s: %w", op, err)}
	}

	d.logger.Info("ticket email sent",
		"booking_ref", t.BookingRef,
		"message_id", resp.MessageID,
		"attachments", len(attachments),
	)

	return SendResult{Success: true, MessageID: resp.MessageID, Attachments: len(attachments)}
}

func (d *Dispatcher) SendBookingConfirmation(ctx context.Context, data BookingConfirmation) SendResult {
	const op = "notify.Dispatcher.SendBookingConfirmation"

	var html bytes.Buffer
	if err := confirmationEmail.Execute(&html, data); err != nil {
		return SendResult{Err: fmt.Errorf("%s: %w", op, err)}
	}

	resp, err := d.mailer.Send(ctx, EmailRequest{
		To:         data.To,
		Subject:    fmt.Sprintf("Booking confirmed: %s", data.BookingRef),
		HTML:       html.String(),
		Settings:   d.settings,
		BookingRef: data.BookingRef,
	})
	if err != nil {
		return SendResult{Err: fmt.Errorf("%s: %w", op, err)}
	}

	return SendResult{Success: true, MessageID: resp.MessageID}
}
