package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
	"github.com/u3m2a1/nibog-sub001/internal/render"
	"github.com/u3m2a1/nibog-sub001/internal/repository"
)

// numberAttempts bounds retries on certificate number collisions.
const numberAttempts = 3

type CertificateStore interface {
	Template(ctx context.Context, id int64) (*domain.CertificateTemplate, error)
	Create(ctx context.Context, c *domain.GeneratedCertificate) (*domain.GeneratedCertificate, error)
	Get(ctx context.Context, id int64) (*domain.GeneratedCertificate, error)
}

type BulkRequest struct {
	TemplateID   int64                `json:"template_id" yaml:"template_id" validate:"required,gt=0"`
	EventID      int64                `json:"event_id" yaml:"event_id" validate:"required,gt=0"`
	GameID       *int64               `json:"game_id,omitempty" yaml:"game_id"`
	Participants []domain.Participant `json:"participants" yaml:"participants" validate:"required,min=1,dive"`
}

type ProgressFunc func(p domain.BulkGenerationProgress)

type CertificateGenerator struct {
	store  CertificateStore
	raster render.Rasterizer
	pacing time.Duration
	logger *slog.Logger
	now    func() time.Time
	wait   func(ctx context.Context, d time.Duration) error
}

type GeneratorOption func(*CertificateGenerator)

// WithRasterizer prints certificates from their own HTML. Without it every
// PDF uses the fixed layout.
func WithRasterizer(r render.Rasterizer) GeneratorOption {
	return func(g *CertificateGenerator) { g.raster = r }
}

func NewCertificateGenerator(store CertificateStore, pacing time.Duration, logger *slog.Logger, opts ...GeneratorOption) *CertificateGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &CertificateGenerator{
		store:  store,
		pacing: pacing,
		logger: logger,
		now:    time.Now,
		wait:   sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GenerateOne renders and stores a single certificate. A number collision
// draws a fresh number, up to numberAttempts times.
func (g *CertificateGenerator) GenerateOne(
	ctx context.Context,
	tpl *domain.CertificateTemplate,
	eventID int64,
	gameID *int64,
	p domain.Participant,
) (*domain.GeneratedCertificate, error) {
	const op = "notify.CertificateGenerator.GenerateOne"

	data := p.Data
	if strings.TrimSpace(data.ParticipantName) == "" {
		data.ParticipantName = p.Name
	}

	var lastErr error
	for range numberAttempts {
		data.CertificateNumber = render.NewCertificateNumber(g.now())

		html, err := render.CertificateHTML(tpl.HTML, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		cert, err := g.store.Create(ctx, &domain.GeneratedCertificate{
			TemplateID:        tpl.ID,
			EventID:           eventID,
			GameID:            gameID,
			UserID:            p.UserID,
			ChildID:           p.ChildID,
			CertificateNumber: data.CertificateNumber,
			Data:              data,
			HTML:              html,
		})
		if err == nil {
			return cert, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%s: certificate number collided %d times: %w", op, numberAttempts, lastErr)
}

// GenerateBulk generates one certificate per participant, one at a time
// with pacing between items. A failed item is recorded and the run moves
// on. onProgress is called after every item. Only a missing template or a
// cancelled ctx end the run early; the progress so far is returned with
// the error.
func (g *CertificateGenerator) GenerateBulk(ctx context.Context, req BulkRequest, onProgress ProgressFunc) (domain.BulkGenerationProgress, error) {
	const op = "notify.CertificateGenerator.GenerateBulk"

	progress := domain.BulkGenerationProgress{Total: len(req.Participants)}
	if len(req.Participants) == 0 {
		return progress, fmt.Errorf("%s: %w", op, ErrNoParticipants)
	}

	tpl, err := g.store.Template(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return progress, fmt.Errorf("%s: %w", op, ErrTemplateMissing)
		}
		return progress, fmt.Errorf("%s: %w", op, err)
	}

	for i, p := range req.Participants {
		if i > 0 {
			if err := g.wait(ctx, g.pacing); err != nil {
				return progress, err
			}
		}

		res := domain.CertificateResult{Participant: p}

		cert, err := g.GenerateOne(ctx, tpl, req.EventID, req.GameID, p)
		if err != nil {
			progress.Failed++
			res.Error = err.Error()
			g.logger.Warn("certificate generation failed",
				"event_id", req.EventID, "user_id", p.UserID, "child_id", p.ChildID, "err", err)
		} else {
			progress.Completed++
			res.Success = true
			res.Certificate = cert
		}
		progress.Results = append(progress.Results, res)

		if onProgress != nil {
			onProgress(progress)
		}
	}

	g.logger.Info("bulk certificates generated",
		"event_id", req.EventID,
		"total", progress.Total,
		"completed", progress.Completed,
		"failed", progress.Failed,
	)

	return progress, nil
}

type participantKey struct {
	userID  string
	childID int64
}

func keyOf(p domain.Participant) participantKey {
	return participantKey{userID: p.UserID, childID: p.ChildID}
}

// RetryFailed re-runs the failed items of prev together with the
// participants of req that prev never reached. Successful results are
// carried over unchanged.
func (g *CertificateGenerator) RetryFailed(
	ctx context.Context,
	prev domain.BulkGenerationProgress,
	req BulkRequest,
	onProgress ProgressFunc,
) (domain.BulkGenerationProgress, error) {
	var (
		kept       []domain.CertificateResult
		prevFailed []domain.CertificateResult
		pending    []domain.Participant
	)
	seen := make(map[participantKey]bool, len(prev.Results))
	for _, r := range prev.Results {
		seen[keyOf(r.Participant)] = true
		if r.Success {
			kept = append(kept, r)
		} else {
			prevFailed = append(prevFailed, r)
			pending = append(pending, r.Participant)
		}
	}

	unreached := 0
	for _, p := range req.Participants {
		if seen[keyOf(p)] {
			continue
		}
		seen[keyOf(p)] = true
		pending = append(pending, p)
		unreached++
	}

	out := domain.BulkGenerationProgress{
		Total:     len(prev.Results) + unreached,
		Completed: len(kept),
		Results:   kept,
	}
	if len(pending) == 0 {
		return out, nil
	}

	req.Participants = pending
	retry, err := g.GenerateBulk(ctx, req, func(p domain.BulkGenerationProgress) {
		if onProgress == nil {
			return
		}
		onProgress(domain.BulkGenerationProgress{
			Total:     out.Total,
			Completed: out.Completed + p.Completed,
			Failed:    p.Failed,
			Results:   append(append([]domain.CertificateResult(nil), kept...), p.Results...),
		})
	})

	out.Completed += retry.Completed
	out.Failed = retry.Failed
	out.Results = append(out.Results, retry.Results...)

	// earlier failures the retry never reached keep their result; never
	// reached participants stay out of Results, as in GenerateBulk
	for i := len(retry.Results); i < len(prevFailed); i++ {
		out.Failed++
		out.Results = append(out.Results, prevFailed[i])
	}

	return out, err
}

// RenderPDF prints a generated certificate, from its HTML when a
// rasterizer is configured.
func (g *CertificateGenerator) RenderPDF(ctx context.Context, cert *domain.GeneratedCertificate) ([]byte, error) {
	const op = "notify.CertificateGenerator.RenderPDF"

	doc, err := render.CertificateDocument(ctx, g.raster, cert)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if doc.Fallback != nil && g.raster != nil {
		g.logger.Warn("certificate printed with fixed layout",
			"certificate_number", cert.CertificateNumber, "err", doc.Fallback)
	}

	return doc.PDF, nil
}

// Download loads a stored certificate and prints it.
//
// Returns:
//   - error: repository.ErrNotFound if the certificate does not exist.
func (g *CertificateGenerator) Download(ctx context.Context, id int64) (*domain.GeneratedCertificate, []byte, error) {
	const op = "notify.CertificateGenerator.Download"

	cert, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	pdf, err := g.RenderPDF(ctx, cert)
	if err != nil {
		return nil, nil, err
	}

	return cert, pdf, nil
}
