package interfaces

import (
	"context"
	"time"
)

// Element is a read-only view of a DOM node taken from a page
// snapshot. Element queries never touch the browser; they operate on
// the snapshot the page captured at its last navigation or click.
type Element interface {
	// Text returns the trimmed text content of the node.
	Text() string

	// Attr returns an attribute value and whether it was present.
	Attr(name string) (string, bool)

	// TagName returns the lowercase tag name ("a", "img", "dt", ...).
	TagName() string

	// Query returns the first descendant matching the selector, or nil.
	Query(selector string) Element

	// QueryAll returns all descendants matching the selector.
	QueryAll(selector string) []Element

	// Next returns the next sibling element, or nil.
	Next() Element
}

// Page abstracts the rendered page the engine works against. Two
// implementations exist: a chromedp-backed page for JavaScript-heavy
// archives and a plain HTTP+goquery page for static ones. Absence of
// an element is never an error; Query returns (nil, nil).
type Page interface {
	// URL returns the page's current URL.
	URL() string

	// Navigate loads a URL and refreshes the DOM snapshot.
	Navigate(ctx context.Context, url string) error

	// Content returns the current page HTML.
	Content(ctx context.Context) (string, error)

	// Title returns the document title.
	Title(ctx context.Context) (string, error)

	// Query returns the first element matching the selector, or
	// (nil, nil) when nothing matches.
	Query(ctx context.Context, selector string) (Element, error)

	// QueryAll returns all elements matching the selector.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// Click clicks the first element matching the selector and
	// refreshes the snapshot afterwards.
	Click(ctx context.Context, selector string) error

	// SelectOption sets the value of a <select> element and refreshes
	// the snapshot.
	SelectOption(ctx context.Context, selector, value string) error

	// Evaluate runs a JavaScript expression and unmarshals the result
	// into out. Static pages return an error.
	Evaluate(ctx context.Context, expression string, out any) error

	// WaitVisible waits for the selector to appear, returning false on
	// timeout.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool

	// Screenshot captures the viewport to a PNG file. Static pages
	// return an error.
	Screenshot(ctx context.Context, path string) error

	// Close releases browser resources held by the page.
	Close() error
}
