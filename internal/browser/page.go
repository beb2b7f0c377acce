package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/arca/internal/interfaces"
)

// BrowserPage implements interfaces.Page on a chromedp tab. Navigation
// and interaction go through the browser; after each of them the page
// captures a DOM snapshot (rendered outer HTML parsed with goquery)
// that serves all subsequent queries. Queries therefore see the page
// exactly as it stood at the last interaction.
type BrowserPage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	release func()
	logger  arbor.ILogger

	navTimeout time.Duration
	url        string
	doc        *goquery.Document
}

// NewBrowserPage opens a new tab on a pooled browser instance.
func NewBrowserPage(pool *Pool, navTimeout time.Duration, logger arbor.ILogger) (*BrowserPage, error) {
	browserCtx, release, err := pool.GetBrowser()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire browser from pool: %w", err)
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)

	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}

	return &BrowserPage{
		ctx:        tabCtx,
		cancel:     cancel,
		release:    release,
		logger:     logger,
		navTimeout: navTimeout,
	}, nil
}

func (p *BrowserPage) URL() string {
	return p.url
}

func (p *BrowserPage) Navigate(ctx context.Context, pageURL string) error {
	runCtx, cancel := p.runContext(ctx)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", pageURL, err)
	}

	return p.refresh(runCtx)
}

// refresh captures the rendered DOM into the query snapshot.
func (p *BrowserPage) refresh(ctx context.Context) error {
	var html, location string
	err := chromedp.Run(ctx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to capture page snapshot: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse page snapshot: %w", err)
	}

	p.url = location
	p.doc = doc
	return nil
}

func (p *BrowserPage) Content(ctx context.Context) (string, error) {
	if p.doc == nil {
		return "", fmt.Errorf("no document loaded")
	}
	return p.doc.Html()
}

func (p *BrowserPage) Title(ctx context.Context) (string, error) {
	runCtx, cancel := p.runContext(ctx)
	defer cancel()

	var title string
	if err := chromedp.Run(runCtx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	return title, nil
}

func (p *BrowserPage) Query(ctx context.Context, selector string) (interfaces.Element, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	return wrapSelection(p.doc.Find(selector)), nil
}

func (p *BrowserPage) QueryAll(ctx context.Context, selector string) ([]interfaces.Element, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	var elements []interfaces.Element
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &domElement{sel: s})
	})
	return elements, nil
}

// Click clicks the first live element matching the selector and
// re-captures the snapshot once the page settles.
func (p *BrowserPage) Click(ctx context.Context, selector string) error {
	runCtx, cancel := p.runContext(ctx)
	defer cancel()

	// Confirm the element exists in the live DOM before clicking;
	// chromedp.Click blocks until a node appears otherwise.
	var nodes []*cdp.Node
	if err := chromedp.Run(runCtx, chromedp.Nodes(selector, &nodes, chromedp.AtLeast(0), chromedp.ByQueryAll)); err != nil {
		return fmt.Errorf("failed to resolve %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return fmt.Errorf("no element matches %q", selector)
	}

	if err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click on %q failed: %w", selector, err)
	}

	return p.refresh(runCtx)
}

func (p *BrowserPage) SelectOption(ctx context.Context, selector, value string) error {
	runCtx, cancel := p.runContext(ctx)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.SetValue(selector, value, chromedp.ByQuery),
		// Many archive filter forms only react to a change event.
		chromedp.Evaluate(fmt.Sprintf(
			`document.querySelector(%q) && document.querySelector(%q).dispatchEvent(new Event('change', {bubbles: true}))`,
			selector, selector), nil),
	)
	if err != nil {
		return fmt.Errorf("select %q = %q failed: %w", selector, value, err)
	}

	return p.refresh(runCtx)
}

func (p *BrowserPage) Evaluate(ctx context.Context, expression string, out any) error {
	runCtx, cancel := p.runContext(ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}
	return nil
}

// RefreshSnapshot re-captures the DOM without interacting. Used after
// scripted scrolls that append content asynchronously.
func (p *BrowserPage) RefreshSnapshot(ctx context.Context) error {
	runCtx, cancel := p.runContext(ctx)
	defer cancel()
	return p.refresh(runCtx)
}

func (p *BrowserPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	waitCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		p.logger.Debug().Str("selector", selector).Err(err).Msg("Wait for selector timed out")
		return false
	}

	if err := p.refresh(waitCtx); err != nil {
		p.logger.Warn().Err(err).Msg("Snapshot refresh after wait failed")
	}
	return true
}

func (p *BrowserPage) Screenshot(ctx context.Context, path string) error {
	runCtx, cancel := p.runContext(ctx)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}
	return nil
}

func (p *BrowserPage) Close() error {
	if p.release != nil {
		p.release()
	}
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

// runContext derives a chromedp-run context bounded by both the
// caller's context and the navigation timeout.
func (p *BrowserPage) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel1 := context.WithTimeout(p.ctx, p.navTimeout)
	if ctx == nil {
		return runCtx, cancel1
	}

	// Propagate caller cancellation into the tab context.
	runCtx2, cancel2 := context.WithCancel(runCtx)
	stop := context.AfterFunc(ctx, cancel2)
	return runCtx2, func() {
		stop()
		cancel2()
		cancel1()
	}
}

var _ interfaces.Page = (*BrowserPage)(nil)
