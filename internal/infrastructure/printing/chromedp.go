package printing

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultChromeTimeout = 30 * time.Second

	// thermal rolls have no page height, a tall page keeps a receipt on one sheet
	receiptRollLengthMM = 3000
	footerMinMarginMM   = 10
	mmPerInch           = 25.4
)

// ChromedpConfig configures the headless Chrome renderer
type ChromedpConfig struct {
	// Timeout bounds a render when the request sets none
	Timeout time.Duration
	// ExecPath is the Chrome binary; empty lets chromedp look it up
	ExecPath string
	// RemoteURL attaches to a running browser (e.g. a chromedp/headless-shell
	// sidecar) instead of launching one
	RemoteURL string
	// NoSandbox is required when Chrome runs as root in a container
	NoSandbox bool
	Logger    *zap.Logger
}

// ChromedpRenderer prints HTML to PDF through the DevTools protocol. Every
// render opens a fresh tab on one shared browser allocator.
type ChromedpRenderer struct {
	timeout     time.Duration
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpRenderer prepares the browser allocator. Chrome itself starts
// lazily on the first render.
func NewChromedpRenderer(cfg *ChromedpConfig) (*ChromedpRenderer, error) {
	if cfg == nil {
		cfg = &ChromedpConfig{}
	}

	r := &ChromedpRenderer{timeout: cfg.Timeout, logger: cfg.Logger}
	if r.timeout <= 0 {
		r.timeout = defaultChromeTimeout
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	if cfg.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	}
	return r, nil
}

func allocatorOptions(cfg *ChromedpConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, flag := range []string{
		"disable-gpu",
		"disable-dev-shm-usage",
		"disable-extensions",
		"disable-background-networking",
		"disable-sync",
	} {
		opts = append(opts, chromedp.Flag(flag, true))
	}
	opts = append(opts, chromedp.Flag("font-render-hinting", "none"))

	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Render prints req.HTML. Validation problems, timeouts and browser
// failures all come back as *RenderError.
func (r *ChromedpRenderer) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}

	tabCtx, closeTab := chromedp.NewContext(r.allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		r.logger.Debug("chrome", zap.String("message", fmt.Sprintf(format, args...)))
	}))
	defer closeTab()

	// tabCtx descends from the allocator, not from ctx
	runCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()
	defer context.AfterFunc(ctx, cancel)()

	started := time.Now()
	var pdf []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, wrapDocument(req)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := printParams(req).Do(ctx)
			pdf = data
			return err
		}),
	)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, renderError(ErrRenderTimeout, "PDF rendering was cancelled", err)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return nil, renderError(ErrRenderTimeout, fmt.Sprintf("PDF rendering timed out after %v", timeout), err)
	default:
		r.logger.Error("Chrome failed to print", zap.String("title", req.Title), zap.Error(err))
		return nil, renderError(ErrRenderFailed, "chrome print failed", err)
	}

	if len(pdf) == 0 {
		return nil, renderError(ErrRenderFailed, "chrome returned an empty PDF", nil)
	}

	result := &RenderResult{
		PDFData:        pdf,
		PageCount:      estimatePageCount(pdf),
		RenderDuration: time.Since(started),
	}
	r.logger.Debug("PDF printed",
		zap.String("title", req.Title),
		zap.Int("bytes", len(pdf)),
		zap.Int("pages", result.PageCount),
		zap.Duration("duration", result.RenderDuration),
	)
	return result, nil
}

func validateRequest(req *RenderRequest) error {
	switch {
	case req == nil:
		return renderError(ErrInvalidDocument, "render request is nil", nil)
	case strings.TrimSpace(req.HTML) == "":
		return renderError(ErrInvalidDocument, "HTML content is empty", nil)
	case !req.PaperSize.IsValid():
		return renderError(ErrInvalidPaperSize, fmt.Sprintf("invalid paper size %q", req.PaperSize), nil)
	}
	return nil
}

// printParams maps the request onto Page.printToPDF, which measures in inches
func printParams(req *RenderRequest) *page.PrintToPDFParams {
	width, height := req.PaperSize.Dimensions()
	if req.PaperSize.IsReceipt() {
		height = receiptRollLengthMM
	}

	params := page.PrintToPDF().
		WithPrintBackground(true).
		WithScale(1).
		WithLandscape(req.Orientation == OrientationLandscape).
		WithPaperWidth(inches(width)).
		WithPaperHeight(inches(height)).
		WithMarginTop(inches(req.Margins.Top)).
		WithMarginRight(inches(req.Margins.Right)).
		WithMarginBottom(inches(req.Margins.Bottom)).
		WithMarginLeft(inches(req.Margins.Left))

	if req.FooterHTML != "" {
		params = params.
			WithDisplayHeaderFooter(true).
			WithHeaderTemplate("<span></span>").
			WithFooterTemplate(req.FooterHTML).
			WithMarginBottom(inches(max(req.Margins.Bottom, footerMinMarginMM)))
	}
	return params
}

// wrapDocument completes an HTML fragment into a UTF-8 document
func wrapDocument(req *RenderRequest) string {
	head := strings.ToLower(req.HTML[:min(len(req.HTML), 512)])
	if strings.Contains(head, "<!doctype") || strings.Contains(head, "<html") {
		return req.HTML
	}

	var title string
	if req.Title != "" {
		title = "<title>" + html.EscapeString(req.Title) + "</title>"
	}
	return `<!DOCTYPE html><html><head><meta charset="UTF-8">` + title + "</head><body>" + req.HTML + "</body></html>"
}

// Close shuts the browser down
func (r *ChromedpRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

func inches(mm int) float64 {
	return float64(mm) / mmPerInch
}

var _ PDFRenderer = (*ChromedpRenderer)(nil)
