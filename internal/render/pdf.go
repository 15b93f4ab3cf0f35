package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// pdfEpoch pins the document creation date so identical input yields
// identical bytes.
var pdfEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// A5 ticket geometry in mm.
const (
	ticketFooterY = 196.0
	ticketRowH    = 7.0
	ticketTotalH  = 8.0
	// rows stop here so the total row still fits above the footer
	ticketTableLimit = ticketFooterY - ticketTotalH - 4
)

// TicketPDF draws the ticket at fixed coordinates on an A5 page. qrPNG may
// be nil, in which case the QR box carries the booking reference as text.
func TicketPDF(d TicketData, qrPNG []byte) ([]byte, error) {
	const op = "render.TicketPDF"

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetModificationDate(pdfEpoch)
	pdf.SetCatalogSort(true)
	pdf.SetTitle("NIBOG ticket "+d.BookingRef, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(pdfSafe(s)) }

	// header band
	pdf.SetFillColor(255, 111, 0)
	pdf.Rect(0, 0, 148, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetXY(10, 8)
	pdf.CellFormat(128, 10, "NIBOG", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(10, 17)
	pdf.CellFormat(128, 6, text("Ticket "+d.BookingRef), "", 0, "L", false, 0, "")

	pdf.SetTextColor(33, 33, 33)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(10, 34)
	pdf.MultiCell(80, 7, text(d.EventTitle), "", "L", false)

	rows := [][2]string{
		{"Participant", d.ParticipantName},
		{"Date", d.EventDate},
		{"Time", d.TimeWindow},
		{"Venue", d.VenueName},
	}
	y := 54.0
	for _, r := range rows {
		pdf.SetXY(10, y)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(24, 6, r[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(58, 6, text(r[1]), "", "L", false)
		y = pdf.GetY() + 1
	}

	// QR box
	pdf.SetDrawColor(200, 200, 200)
	pdf.Rect(96, 34, 42, 42, "D")
	if len(qrPNG) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
		pdf.ImageOptions("qr", 97, 35, 40, 40, false, opts, 0, "")
	} else {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetXY(96, 52)
		pdf.CellFormat(42, 6, text(d.BookingRef), "", 0, "C", false, 0, "")
	}
	if d.SecurityCode != "" {
		pdf.SetFont("Courier", "B", 9)
		pdf.SetXY(96, 78)
		pdf.CellFormat(42, 5, "CODE "+d.SecurityCode, "", 0, "C", false, 0, "")
	}

	footer := func() {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.SetXY(10, ticketFooterY)
		pdf.CellFormat(128, 5, "Show this ticket and QR code at the venue entrance.", "", 0, "C", false, 0, "")
		pdf.SetTextColor(33, 33, 33)
	}
	tableHeader := func(y float64) {
		pdf.SetFillColor(245, 245, 245)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetXY(10, y)
		pdf.CellFormat(70, ticketRowH, "Game", "B", 0, "L", true, 0, "")
		pdf.CellFormat(32, ticketRowH, "Time", "B", 0, "L", true, 0, "")
		pdf.CellFormat(26, ticketRowH, "Price", "B", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
	}

	// games table, continued on further pages when it reaches the footer
	tableHeader(max(y, 88) + 4)
	for _, g := range d.Games {
		if pdf.GetY()+ticketRowH > ticketTableLimit {
			footer()
			pdf.AddPage()
			tableHeader(12)
		}
		pdf.SetX(10)
		pdf.CellFormat(70, ticketRowH, text(g.Title), "", 0, "L", false, 0, "")
		pdf.CellFormat(32, ticketRowH, text(g.Time), "", 0, "L", false, 0, "")
		pdf.CellFormat(26, ticketRowH, text(g.Price), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetX(10)
	pdf.CellFormat(102, ticketTotalH, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(26, ticketTotalH, text(d.Total), "T", 1, "R", false, 0, "")

	footer()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return buf.Bytes(), nil
}

// CertificatePDF is the fixed-layout certificate CertificateDocument falls
// back to when the certificate HTML cannot be rasterized.
func CertificatePDF(d CertificateView) ([]byte, error) {
	const op = "render.CertificatePDF"

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetModificationDate(pdfEpoch)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetDrawColor(255, 111, 0)
	pdf.SetLineWidth(2)
	pdf.Rect(10, 10, 277, 190, "D")

	center := func(y float64, style string, size float64, s string) {
		pdf.SetFont("Times", style, size)
		pdf.SetXY(10, y)
		pdf.CellFormat(277, size*0.6, tr(pdfSafe(s)), "", 0, "C", false, 0, "")
	}

	center(35, "B", 32, d.Heading)
	center(62, "", 14, "This is to certify that")
	center(80, "B", 28, d.ParticipantName)
	center(104, "", 14, d.Body)
	center(120, "B", 16, d.EventName)
	if d.GameName != "" {
		center(134, "I", 13, d.GameName)
	}
	center(148, "", 12, joinNonEmpty(", ", d.VenueName, d.CityName, d.EventDate))

	pdf.SetFont("Courier", "", 9)
	pdf.SetXY(20, 185)
	pdf.CellFormat(120, 5, tr(d.CertificateNumber), "", 0, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return buf.Bytes(), nil
}

// pdfSafe swaps characters the core PDF fonts cannot draw.
func pdfSafe(s string) string {
	return strings.ReplaceAll(s, "₹", "Rs. ")
}
