package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
	"github.com/u3m2a1/nibog-sub001/internal/service/notify"
)

func TestLoadBulkRequest(t *testing.T) {
	const file = `
template_id: 1
event_id: 2
participants:
  - user_id: u1
    child_id: 10
    name: Kiran
    certificate_data:
      event_name: NIBOG Hyderabad
      attendance_status: present
  - user_id: u2
    child_id: 11
    name: Meera
`

	t.Run("Given valid file When loading Then flags override ids", func(t *testing.T) {
		req, err := loadBulkRequest(strings.NewReader(file), 5, 0)
		if err != nil {
			t.Fatalf("loadBulkRequest failed: %v", err)
		}
		if req.TemplateID != 5 || req.EventID != 2 || len(req.Participants) != 2 {
			t.Fatalf("unexpected request %+v", req)
		}
		if req.Participants[0].Data.EventName != "NIBOG Hyderabad" {
			t.Errorf("certificate data not decoded: %+v", req.Participants[0].Data)
		}
	})

	t.Run("Given participant without child When loading Then validation fails", func(t *testing.T) {
		bad := "template_id: 1\nevent_id: 2\nparticipants:\n  - user_id: u1\n    name: Kiran\n"
		if _, err := loadBulkRequest(strings.NewReader(bad), 0, 0); err == nil {
			t.Fatal("expected validation error")
		}
	})
}

func TestWriteCertificatePDFs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	progress := domain.BulkGenerationProgress{
		Total:     2,
		Completed: 1,
		Failed:    1,
		Results: []domain.CertificateResult{
			{
				Success: true,
				Certificate: &domain.GeneratedCertificate{
					CertificateNumber: "CERT-1-ABCDEF",
					Data:              domain.CertificateData{ParticipantName: "Kiran", CertificateNumber: "CERT-1-ABCDEF"},
				},
			},
			{Success: false, Error: "insert failed"},
		},
	}

	n, err := writeCertificatePDFs(context.Background(), notify.NewCertificateGenerator(nil, 0, nil), dir, progress)
	if err != nil {
		t.Fatalf("writeCertificatePDFs failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 PDF, got %d", n)
	}

	b, err := os.ReadFile(filepath.Join(dir, "CERT-1-ABCDEF.pdf"))
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Errorf("not a pdf: %q", b[:8])
	}
}
