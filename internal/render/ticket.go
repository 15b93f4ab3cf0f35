// Package render turns booking and certificate data into display text,
// QR codes, HTML and PDF artifacts. Nothing here does I/O.
package render

import (
	"fmt"
	"strings"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
)

const (
	DefaultVenue       = "Event Venue"
	DefaultParticipant = "Participant"
	DefaultPrice       = "₹0.00"
	DefaultEvent       = "Event"
	DefaultGame        = "Game"
	DefaultTime        = "Time TBA"
	DefaultDate        = "Date TBA"
)

type TicketGame struct {
	Title string `json:"title"`
	Price string `json:"price"`
	Time  string `json:"time"`
}

// TicketData is the fully defaulted ticket, ready to print.
type TicketData struct {
	BookingRef      string       `json:"booking_ref"`
	SecurityCode    string       `json:"security_code"`
	EventTitle      string       `json:"event_title"`
	EventDate       string       `json:"event_date"`
	VenueName       string       `json:"venue_name"`
	ParticipantName string       `json:"participant_name"`
	ParentName      string       `json:"parent_name"`
	TimeWindow      string       `json:"time_window"`
	Games           []TicketGame `json:"games"`
	Total           string       `json:"total"`
	QRPayload       string       `json:"qr_payload"`
}

type TicketValidation struct {
	Data            TicketData `json:"data"`
	HasCompleteData bool       `json:"has_complete_data"`
	MissingFields   []string   `json:"missing_fields,omitempty"`
}

// ValidateTicket applies the fallback chains to src and fills every gap
// with a printable default. It never fails; MissingFields lists what was
// defaulted.
func ValidateTicket(src domain.TicketSource) TicketValidation {
	var missing []string
	miss := func(field string) { missing = append(missing, field) }

	b := src.Booking
	d := TicketData{}

	d.BookingRef = b.Ref
	if d.BookingRef == "" && b.ID > 0 {
		d.BookingRef = domain.BookingRef(b.ID)
	}
	if d.BookingRef == "" {
		miss("booking_ref")
		d.QRPayload = "NIBOG"
	} else {
		d.QRPayload = d.BookingRef
		d.SecurityCode = domain.SecurityCode(d.BookingRef)
	}

	d.EventTitle = firstNonEmpty(src.Event.Title)
	if d.EventTitle == "" {
		miss("event.title")
		d.EventTitle = DefaultEvent
	}

	if src.Event.Date.IsZero() {
		miss("event.date")
		d.EventDate = DefaultDate
	} else {
		d.EventDate = src.Event.Date.Format("02 Jan 2006")
	}

	d.VenueName = joinNonEmpty(", ", src.Event.VenueName, src.Event.CityName)
	if strings.TrimSpace(src.Event.VenueName) == "" {
		miss("event.venue")
		d.VenueName = DefaultVenue
	}

	d.ParticipantName = firstNonEmpty(b.Child.Name)
	if d.ParticipantName == "" {
		miss("child.name")
		d.ParticipantName = DefaultParticipant
	}
	d.ParentName = strings.TrimSpace(b.Parent.Name)

	paid := make(map[int64]int64, len(b.Games))
	for _, g := range b.Games {
		paid[g.GameID] = g.PricePaise
	}

	if len(src.Games) == 0 {
		miss("games")
	}
	for i, g := range src.Games {
		line := TicketGame{
			Title: firstNonEmpty(g.CustomTitle, g.SlotTitle, g.GameName),
			Time:  timeWindow(g.StartTime, g.EndTime),
		}
		if line.Title == "" {
			miss(fmt.Sprintf("games[%d].title", i))
			line.Title = DefaultGame
		}
		if line.Time == "" {
			miss(fmt.Sprintf("games[%d].time", i))
			line.Time = DefaultTime
		}
		if price, ok := firstPrice(g.CustomPrice, g.SlotPrice, g.GamePrice); ok {
			line.Price = FormatINR(price)
		} else if price, ok := paid[g.GameID]; ok {
			line.Price = FormatINR(price)
		} else {
			miss(fmt.Sprintf("games[%d].price", i))
			line.Price = DefaultPrice
		}
		d.Games = append(d.Games, line)
	}

	d.TimeWindow = DefaultTime
	for _, g := range d.Games {
		if g.Time != DefaultTime {
			d.TimeWindow = g.Time
			break
		}
	}

	if b.TotalPaise > 0 {
		d.Total = FormatINR(b.TotalPaise)
	} else {
		miss("total")
		d.Total = DefaultPrice
	}

	return TicketValidation{
		Data:            d,
		HasCompleteData: len(missing) == 0,
		MissingFields:   missing,
	}
}

// FormatINR renders an amount in paise as rupees, e.g. 180000 -> ₹1800.00.
func FormatINR(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, paise/100, paise%100)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstPrice(vals ...*int64) (int64, bool) {
	for _, v := range vals {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

func joinNonEmpty(sep string, vals ...string) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func timeWindow(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start != "" && end != "":
		return start + " - " + end
	default:
		return start + end
	}
}
