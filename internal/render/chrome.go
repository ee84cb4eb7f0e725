package render

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Chrome renders HTML to PDF through one shared browser process. Every
// conversion gets its own tab. It is safe for concurrent use.
type Chrome struct {
	cfg           chromeConfig
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewChrome starts (or connects to) the browser eagerly so a missing or
// broken renderer is reported before the server accepts requests.
func NewChrome(opts ...Option) (*Chrome, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.remoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.remoteURL)
	} else {
		execPath, err := resolveBrowser(cfg)
		if err != nil {
			return nil, err
		}
		allocOpts := append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.ExecPath(execPath),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-background-networking", true),
			chromedp.Flag("disable-sync", true),
			chromedp.Flag("disable-translate", true),
			chromedp.Flag("no-first-run", true),
		)
		if cfg.noSandbox {
			allocOpts = append(allocOpts, chromedp.NoSandbox)
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()

	select {
	case err := <-started:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("render: starting browser: %w", err)
		}
	case <-time.After(cfg.startTimeout):
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("render: starting browser: timed out after %s", cfg.startTimeout)
	}

	return &Chrome{
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close shuts the browser down. Close is idempotent.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.browserCancel()
	c.allocCancel()
	return nil
}

// RenderFile loads the HTML document at htmlPath into a fresh tab and
// prints it to an A4 PDF. The document is injected as content rather than
// navigated to, so the same call works against a remote browser that
// cannot see the local filesystem.
func (c *Chrome) RenderFile(ctx context.Context, htmlPath string) ([]byte, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	markup, err := os.ReadFile(htmlPath)
	if err != nil {
		return nil, fmt.Errorf("render: reading %s: %w", htmlPath, err)
	}

	tabCtx, tabCancel := chromedp.NewContext(c.browserCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var buf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(markup)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPaperWidth(c.cfg.paperWidth).
				WithPaperHeight(c.cfg.paperHeight).
				WithMarginTop(c.cfg.margin).
				WithMarginRight(c.cfg.margin).
				WithMarginBottom(c.cfg.margin).
				WithMarginLeft(c.cfg.margin).
				WithPrintBackground(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("render: %w", ctx.Err())
		}
		return nil, fmt.Errorf("render: printing %s: %w", htmlPath, err)
	}
	return buf, nil
}

func (c *Chrome) checkClosed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}
