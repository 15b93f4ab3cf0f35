package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/u3m2a1/nibog-sub001/internal/domain"
	"github.com/u3m2a1/nibog-sub001/internal/service/notify"
	"gopkg.in/yaml.v3"
)

// participantsFile is the YAML layout accepted by --file.
type participantsFile struct {
	TemplateID   int64                `yaml:"template_id"`
	EventID      int64                `yaml:"event_id"`
	GameID       *int64               `yaml:"game_id"`
	Participants []domain.Participant `yaml:"participants"`
}

func loadBulkRequest(r io.Reader, templateID, eventID int64) (notify.BulkRequest, error) {
	var f participantsFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return notify.BulkRequest{}, fmt.Errorf("decode participants: %w", err)
	}

	req := notify.BulkRequest{
		TemplateID:   f.TemplateID,
		EventID:      f.EventID,
		GameID:       f.GameID,
		Participants: f.Participants,
	}
	if templateID > 0 {
		req.TemplateID = templateID
	}
	if eventID > 0 {
		req.EventID = eventID
	}

	if err := validator.New().Struct(req); err != nil {
		return notify.BulkRequest{}, fmt.Errorf("invalid participants file: %w", err)
	}

	return req, nil
}

type certificatePrinter interface {
	RenderPDF(ctx context.Context, cert *domain.GeneratedCertificate) ([]byte, error)
}

// writeCertificatePDFs stores a printable PDF for every generated
// certificate as <dir>/<certificate number>.pdf.
func writeCertificatePDFs(ctx context.Context, p certificatePrinter, dir string, progress domain.BulkGenerationProgress) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	written := 0
	for _, r := range progress.Results {
		if !r.Success || r.Certificate == nil {
			continue
		}

		pdf, err := p.RenderPDF(ctx, r.Certificate)
		if err != nil {
			return written, fmt.Errorf("certificate %s: %w", r.Certificate.CertificateNumber, err)
		}

		path := filepath.Join(dir, r.Certificate.CertificateNumber+".pdf")
		if err := os.WriteFile(path, pdf, 0o644); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}

func newCertificatesCmd(connect connectFunc) *cobra.Command {
	var (
		file       string
		templateID int64
		eventID    int64
		reportPath string
		pdfDir     string
	)

	cmd := &cobra.Command{
		Use:   "certificates",
		Short: "Generate certificates for every participant in a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := os.Open(file)
			if err != nil {
				return err
			}
			defer in.Close()

			req, err := loadBulkRequest(in, templateID, eventID)
			if err != nil {
				return err
			}

			deps, err := connect(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			progress, runErr := deps.Services.Certificates.GenerateBulk(cmd.Context(), req, func(p domain.BulkGenerationProgress) {
				last := p.Results[len(p.Results)-1]
				mark := "ok"
				if !last.Success {
					mark = "FAILED: " + last.Error
				}
				printf(cmd, "[%d/%d] %s %s\n", p.Completed+p.Failed, p.Total, last.Participant.Name, mark)
			})
			if runErr != nil && len(progress.Results) == 0 {
				return runErr
			}

			printf(cmd, "total=%d completed=%d failed=%d\n", progress.Total, progress.Completed, progress.Failed)

			if reportPath != "" {
				b, err := json.MarshalIndent(progress, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(reportPath, b, 0o644); err != nil {
					return err
				}
			}
			if pdfDir != "" {
				n, err := writeCertificatePDFs(cmd.Context(), deps.Services.Certificates, pdfDir, progress)
				if err != nil {
					return err
				}
				printf(cmd, "%d PDFs written to %s\n", n, pdfDir)
			}
			if runErr != nil {
				return fmt.Errorf("run stopped after %d of %d: %w", len(progress.Results), progress.Total, runErr)
			}
			if progress.Failed > 0 {
				return fmt.Errorf("%d certificates failed", progress.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "participants YAML file")
	cmd.Flags().Int64Var(&templateID, "template", 0, "certificate template id (overrides the file)")
	cmd.Flags().Int64Var(&eventID, "event", 0, "event id (overrides the file)")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the JSON progress report here")
	cmd.Flags().StringVar(&pdfDir, "pdf-dir", "", "also write one PDF per certificate into this directory")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
