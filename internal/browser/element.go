package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/arca/internal/interfaces"
)

// domElement wraps a goquery selection taken from a page snapshot.
// All queries run against the snapshot, never the live browser.
type domElement struct {
	sel *goquery.Selection
}

// wrapSelection converts a goquery selection into an Element, returning
// a nil interface (not a typed nil) for empty selections.
func wrapSelection(sel *goquery.Selection) interfaces.Element {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	return &domElement{sel: sel.First()}
}

func (e *domElement) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

func (e *domElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *domElement) TagName() string {
	return goquery.NodeName(e.sel)
}

func (e *domElement) Query(selector string) interfaces.Element {
	return wrapSelection(e.sel.Find(selector))
}

func (e *domElement) QueryAll(selector string) []interfaces.Element {
	var elements []interfaces.Element
	e.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &domElement{sel: s})
	})
	return elements
}

func (e *domElement) Next() interfaces.Element {
	return wrapSelection(e.sel.Next())
}
