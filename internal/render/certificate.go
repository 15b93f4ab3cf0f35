package render

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"html/template"
	"math/big"
	"strings"
	"time"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
)

const certAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCertificateNumber returns CERT-<unix millis>-<6 random alphanumerics>.
func NewCertificateNumber(now time.Time) string {
	suffix := make([]byte, 6)
	limit := big.NewInt(int64(len(certAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(err)
		}
		suffix[i] = certAlphabet[n.Int64()]
	}
	return fmt.Sprintf("CERT-%d-%s", now.UnixMilli(), suffix)
}

// CertificateView is what certificate templates are executed against.
type CertificateView struct {
	Heading           string
	Body              string
	ParticipantName   string
	EventName         string
	VenueName         string
	CityName          string
	GameName          string
	EventDate         string
	CertificateNumber string
	Attendance        string
	// VerifyQR encodes the certificate number; set by CertificateHTML only.
	VerifyQR template.URL
}

// NewCertificateView defaults the certificate data for printing. Absent
// participants get a certificate of participation, everyone else one of
// achievement.
func NewCertificateView(d domain.CertificateData) CertificateView {
	v := CertificateView{
		Heading:           "Certificate of Participation",
		Body:              "has participated in",
		ParticipantName:   firstNonEmpty(d.ParticipantName, DefaultParticipant),
		EventName:         firstNonEmpty(d.EventName, DefaultEvent),
		VenueName:         firstNonEmpty(d.VenueName, DefaultVenue),
		CityName:          strings.TrimSpace(d.CityName),
		GameName:          strings.TrimSpace(d.GameName),
		EventDate:         strings.TrimSpace(d.EventDate),
		CertificateNumber: d.CertificateNumber,
		Attendance:        string(d.Attendance),
	}
	if d.Attendance == domain.AttendancePresent && v.GameName != "" {
		v.Heading = "Certificate of Achievement"
		v.Body = "has successfully completed"
	}
	return v
}

// CertificateHTML executes the stored template HTML against data. Template
// fields are those of CertificateView, e.g. {{.ParticipantName}}.
func CertificateHTML(tpl string, d domain.CertificateData) (string, error) {
	const op = "render.CertificateHTML"

	t, err := template.New("certificate").Option("missingkey=zero").Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("%s: parse: %w", op, err)
	}

	view := NewCertificateView(d)
	if d.CertificateNumber != "" {
		uri, err := QRDataURI(d.CertificateNumber)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		view.VerifyQR = template.URL(uri)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("%s: execute: %w", op, err)
	}

	return buf.String(), nil
}
