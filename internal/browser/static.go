package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/arca/internal/interfaces"
)

// StaticPage implements interfaces.Page over plain HTTP + goquery for
// archives that render server-side. Clicks are emulated by following
// anchor hrefs; JavaScript evaluation is not available.
type StaticPage struct {
	client    *http.Client
	userAgent string
	url       string
	doc       *goquery.Document
}

// NewStaticPage creates a page backed by HTTP GET requests.
func NewStaticPage(client *http.Client, userAgent string) *StaticPage {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &StaticPage{
		client:    client,
		userAgent: userAgent,
	}
}

// NewStaticPageFromHTML creates a page pre-loaded with the given HTML.
// Used in tests and for snapshot re-analysis; Navigate still works and
// replaces the document.
func NewStaticPageFromHTML(pageURL, html string) (*StaticPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return &StaticPage{
		client: &http.Client{Timeout: 30 * time.Second},
		url:    pageURL,
		doc:    doc,
	}, nil
}

func (p *StaticPage) URL() string {
	return p.url
}

func (p *StaticPage) Navigate(ctx context.Context, pageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch %s returned status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", pageURL, err)
	}

	p.url = resp.Request.URL.String()
	p.doc = doc
	return nil
}

func (p *StaticPage) Content(ctx context.Context) (string, error) {
	if p.doc == nil {
		return "", fmt.Errorf("no document loaded")
	}
	return p.doc.Html()
}

func (p *StaticPage) Title(ctx context.Context) (string, error) {
	if p.doc == nil {
		return "", fmt.Errorf("no document loaded")
	}
	return strings.TrimSpace(p.doc.Find("title").First().Text()), nil
}

func (p *StaticPage) Query(ctx context.Context, selector string) (interfaces.Element, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	return wrapSelection(p.doc.Find(selector)), nil
}

func (p *StaticPage) QueryAll(ctx context.Context, selector string) ([]interfaces.Element, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	var elements []interfaces.Element
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &domElement{sel: s})
	})
	return elements, nil
}

// Click follows the href of the first matching anchor. Non-anchor
// targets cannot be interacted with on a static page.
func (p *StaticPage) Click(ctx context.Context, selector string) error {
	if p.doc == nil {
		return fmt.Errorf("no document loaded")
	}
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return fmt.Errorf("no element matches %q", selector)
	}

	href, ok := sel.Attr("href")
	if !ok || href == "" {
		if a := sel.Find("a[href]").First(); a.Length() > 0 {
			href, _ = a.Attr("href")
		}
	}
	if href == "" {
		return fmt.Errorf("element %q is not a link, cannot click on a static page", selector)
	}

	target, err := p.resolve(href)
	if err != nil {
		return err
	}
	return p.Navigate(ctx, target)
}

func (p *StaticPage) SelectOption(ctx context.Context, selector, value string) error {
	return fmt.Errorf("select is not supported on a static page")
}

func (p *StaticPage) Evaluate(ctx context.Context, expression string, out any) error {
	return fmt.Errorf("javascript evaluation is not supported on a static page")
}

// WaitVisible checks for the selector in the already-loaded document;
// static pages never change without navigation, so there is nothing to
// wait for.
func (p *StaticPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	if p.doc == nil {
		return false
	}
	return p.doc.Find(selector).Length() > 0
}

func (p *StaticPage) Screenshot(ctx context.Context, path string) error {
	return fmt.Errorf("screenshots are not supported on a static page")
}

func (p *StaticPage) Close() error {
	if p.client != nil {
		p.client.CloseIdleConnections()
	}
	return nil
}

// resolve turns a possibly relative href into an absolute URL against
// the current page.
func (p *StaticPage) resolve(href string) (string, error) {
	base, err := url.Parse(p.url)
	if err != nil {
		return "", fmt.Errorf("invalid page url %q: %w", p.url, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

var _ interfaces.Page = (*StaticPage)(nil)
var _ io.Closer = (*StaticPage)(nil)
