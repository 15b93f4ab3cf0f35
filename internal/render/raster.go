package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/u3m2a1/nibog-sub001/internal/domain"
)

var ErrNoRasterizer = errors.New("no certificate rasterizer configured")

// Rasterizer prints rendered certificate HTML to PDF.
type Rasterizer interface {
	Rasterize(ctx context.Context, html string) ([]byte, error)
}

type RasterConfig struct {
	// ExecPath is the Chrome or Chromium binary. Empty searches the usual
	// install locations.
	ExecPath string
	Timeout  time.Duration
}

// ChromeRasterizer prints through one headless browser, started on first
// use and shared by every call. Each call gets its own tab.
type ChromeRasterizer struct {
	cfg RasterConfig

	once     sync.Once
	startErr error
	browser  context.Context
	cancel   context.CancelFunc
}

func NewChromeRasterizer(cfg RasterConfig) *ChromeRasterizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &ChromeRasterizer{cfg: cfg}
}

func (r *ChromeRasterizer) start() error {
	r.once.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.DisableGPU,
			chromedp.NoSandbox,
		)
		if r.cfg.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(r.cfg.ExecPath))
		}

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
		browser, cancelBrowser := chromedp.NewContext(allocCtx)
		r.browser = browser
		r.cancel = func() {
			cancelBrowser()
			cancelAlloc()
		}

		// the first Run launches the browser
		if err := chromedp.Run(browser); err != nil {
			r.startErr = fmt.Errorf("start browser: %w", err)
		}
	})

	return r.startErr
}

// Rasterize loads html into a blank A4 landscape page and prints it with
// backgrounds.
func (r *ChromeRasterizer) Rasterize(ctx context.Context, html string) ([]byte, error) {
	const op = "render.ChromeRasterizer.Rasterize"

	if err := r.start(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tab, cancelTab := chromedp.NewContext(r.browser)
	defer cancelTab()
	tab, cancelTimeout := context.WithTimeout(tab, r.cfg.Timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var pdf []byte
	err := chromedp.Run(tab,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithLandscape(true).
				WithPrintBackground(true).
				WithPaperWidth(11.69).
				WithPaperHeight(8.27).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				Do(ctx)
			pdf = buf
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pdf, nil
}

// Close stops the browser if it was started.
func (r *ChromeRasterizer) Close() {
	if r.cancel != nil {
		r.cancel()
	}
}

type CertificateFile struct {
	PDF []byte
	// Fallback is why the fixed layout was printed instead of the
	// certificate's own HTML. Nil when the HTML was rasterized.
	Fallback error
}

// CertificateDocument prints a stored certificate. The certificate HTML is
// rasterized when r is set; the fixed CertificatePDF layout is used when r
// is nil, the HTML is empty or rasterizing fails.
func CertificateDocument(ctx context.Context, r Rasterizer, cert *domain.GeneratedCertificate) (CertificateFile, error) {
	const op = "render.CertificateDocument"

	var fallback error
	switch {
	case r == nil:
		fallback = ErrNoRasterizer
	case cert.HTML == "":
		fallback = errors.New("certificate has no html")
	default:
		pdf, err := r.Rasterize(ctx, cert.HTML)
		if err == nil && len(pdf) > 0 {
			return CertificateFile{PDF: pdf}, nil
		}
		if err == nil {
			err = errors.New("empty document")
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return CertificateFile{}, fmt.Errorf("%s: %w", op, ctxErr)
		}
		fallback = err
	}

	pdf, err := CertificatePDF(NewCertificateView(cert.Data))
	if err != nil {
		return CertificateFile{}, fmt.Errorf("%s: %w", op, err)
	}

	return CertificateFile{PDF: pdf, Fallback: fallback}, nil
}
