package render

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
)

func TestNewCertificateNumber(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	re := regexp.MustCompile(`^CERT-1700000000123-[A-Z0-9]{6}$`)

	seen := map[string]bool{}
	for range 50 {
		n := NewCertificateNumber(now)
		if !re.MatchString(n) {
			t.Fatalf("unexpected certificate number %q", n)
		}
		seen[n] = true
	}
	if len(seen) < 45 {
		t.Errorf("suffixes barely vary: %d distinct of 50", len(seen))
	}
}

func TestCertificateHTML(t *testing.T) {
	t.Run("Given template When rendered Then fields are substituted and escaped", func(t *testing.T) {
		out, err := CertificateHTML(
			`<h1>{{.Heading}}</h1><p>{{.ParticipantName}}</p><p>{{.EventName}} {{.GameName}}</p><small>{{.CertificateNumber}}</small>`,
			domain.CertificateData{
				ParticipantName:   "Kiran <b>",
				EventName:         "NIBOG 2025",
				GameName:          "Baby Crawl",
				Attendance:        domain.AttendancePresent,
				CertificateNumber: "CERT-1-ABCDEF",
			},
		)
		if err != nil {
			t.Fatalf("CertificateHTML failed: %v", err)
		}
		if !strings.Contains(out, "Certificate of Achievement") || !strings.Contains(out, "CERT-1-ABCDEF") {
			t.Errorf("unexpected html %q", out)
		}
		if strings.Contains(out, "<b>") || !strings.Contains(out, "Kiran &lt;b&gt;") {
			t.Errorf("participant name not escaped: %q", out)
		}
	})

	t.Run("Given empty data When rendered Then defaults are printed", func(t *testing.T) {
		out, err := CertificateHTML(`{{.ParticipantName}}|{{.EventName}}|{{.Heading}}`, domain.CertificateData{})
		if err != nil {
			t.Fatalf("CertificateHTML failed: %v", err)
		}
		if out != "Participant|Event|Certificate of Participation" {
			t.Errorf("unexpected html %q", out)
		}
	})

	t.Run("Given certificate number When rendered Then verification QR is inlined", func(t *testing.T) {
		out, err := CertificateHTML(`<img src="{{.VerifyQR}}">`, domain.CertificateData{CertificateNumber: "CERT-1-ABCDEF"})
		if err != nil {
			t.Fatalf("CertificateHTML failed: %v", err)
		}
		if !strings.HasPrefix(out, `<img src="data:image/png;base64,`) {
			t.Errorf("qr not inlined: %.60q", out)
		}
	})

	t.Run("Given broken template When rendered Then error", func(t *testing.T) {
		if _, err := CertificateHTML(`{{.ParticipantName`, domain.CertificateData{}); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestCertificatePDF(t *testing.T) {
	b, err := CertificatePDF(NewCertificateView(domain.CertificateData{ParticipantName: "Kiran", CertificateNumber: "CERT-1-ABCDEF"}))
	if err != nil {
		t.Fatalf("CertificatePDF failed: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
}
