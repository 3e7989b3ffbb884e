package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/hirestack/docflow/config"
	"github.com/hirestack/docflow/model"
	"github.com/hirestack/docflow/pkg/logger"
)

// ObjectUploader is the slice of the object store the PDF renderer needs.
type ObjectUploader interface {
	Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

// A4 page geometry in inches.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
	pageMarginIn  = 0.5

	// networkQuiet is how long the page must go without in-flight requests
	// before capture. Templates embed a remote logo; capturing at DOM-ready
	// would print it as a broken image.
	networkQuiet = 500 * time.Millisecond
)

// PDFService renders document markup to PDF bytes in a headless browser
// session and persists the result to the object store.
type PDFService struct {
	uploader   ObjectUploader
	store      *DocumentStore
	templates  *TemplateStore
	chromePath string
	timeout    time.Duration
}

func NewPDFService(uploader ObjectUploader, store *DocumentStore, templates *TemplateStore, cfg *config.PDFConfig) *PDFService {
	return &PDFService{
		uploader:   uploader,
		store:      store,
		templates:  templates,
		chromePath: cfg.ChromePath,
		timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Generate renders the document's template, rasterizes it, uploads the PDF
// and persists the resulting pdf_url. Returns the URL.
func (s *PDFService) Generate(ctx context.Context, kind model.Kind, id string) (string, error) {
	doc, err := s.store.Get(kind, id)
	if err != nil {
		return "", err
	}

	tpl, err := s.templates.ResolveActive(kind)
	if err != nil {
		return "", err
	}

	markup := RenderTemplate(doc, tpl)

	pdf, err := s.Rasterize(ctx, markup)
	if err != nil {
		return "", err
	}

	// Object names carry kind, id and a timestamp so re-generations never
	// collide.
	objectName := ObjectName(kind, id, time.Now())
	url, err := s.uploader.Upload(ctx, objectName, pdf, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("failed to persist pdf: %w", err)
	}

	// The object name is kept alongside the URL so downloads can be served
	// through presigned GETs later.
	if _, err := s.store.Update(kind, id, UpdateFields{PDFURL: &url, PDFObject: &objectName}); err != nil {
		return "", err
	}

	logger.Info(ctx, "pdf generated",
		"kind", kind,
		"document_id", id,
		"object_name", objectName,
		"size_bytes", len(pdf),
	)
	return url, nil
}

// ObjectName builds the storage key for a rendered PDF.
func ObjectName(kind model.Kind, id string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%d.pdf", kind, id, now.Unix())
}

// Rasterize loads markup into a headless browser page sized to A4 and prints
// it to PDF. The session waits for network idle, not just DOM-ready, so
// remote assets finish loading; the wait is bounded by the configured
// timeout. The browser session is torn down on every exit path.
func (s *PDFService) Rasterize(ctx context.Context, markup string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)
	if s.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(s.chromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, s.timeout)
	defer cancelRun()

	idle := newNetworkIdleWaiter(networkQuiet)
	chromedp.ListenTarget(runCtx, idle.handle)

	var pdf []byte
	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, markup).Do(ctx)
		}),
		idle.wait(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				WithMarginTop(pageMarginIn).
				WithMarginBottom(pageMarginIn).
				WithMarginLeft(pageMarginIn).
				WithMarginRight(pageMarginIn).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize pdf: %w", err)
	}

	return pdf, nil
}

// networkIdleWaiter tracks in-flight network requests and fires once the
// page has been quiet for the configured duration.
type networkIdleWaiter struct {
	mu       sync.Mutex
	inflight int
	quiet    time.Duration
	timer    *time.Timer
	done     chan struct{}
	once     sync.Once
}

func newNetworkIdleWaiter(quiet time.Duration) *networkIdleWaiter {
	w := &networkIdleWaiter{
		quiet: quiet,
		done:  make(chan struct{}),
	}
	// Fires immediately after the quiet period when the page never issues a
	// request at all.
	w.timer = time.AfterFunc(quiet, w.fire)
	return w
}

func (w *networkIdleWaiter) fire() {
	w.once.Do(func() { close(w.done) })
}

func (w *networkIdleWaiter) handle(ev interface{}) {
	switch ev.(type) {
	case *network.EventRequestWillBeSent:
		w.mu.Lock()
		w.inflight++
		w.timer.Stop()
		w.mu.Unlock()
	case *network.EventLoadingFinished, *network.EventLoadingFailed:
		w.mu.Lock()
		if w.inflight > 0 {
			w.inflight--
		}
		if w.inflight == 0 {
			w.timer.Reset(w.quiet)
		}
		w.mu.Unlock()
	}
}

func (w *networkIdleWaiter) wait() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		select {
		case <-w.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
