package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `<html><head><title>Archive Search</title></head><body>
	<div class="results">
		<div class="item"><h3>First</h3><a href="/item/1">detail</a></div>
		<div class="item"><h3>Second</h3></div>
	</div>
	<a class="next" href="/search?page=2">Next</a>
</body></html>`

func TestStaticPageFromHTML(t *testing.T) {
	page, err := NewStaticPageFromHTML("https://archive.example/search", sampleHTML)
	require.NoError(t, err)

	assert.Equal(t, "https://archive.example/search", page.URL())

	title, err := page.Title(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Archive Search", title)

	el, err := page.Query(context.Background(), ".item h3")
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, "First", el.Text())
	assert.Equal(t, "h3", el.TagName())

	items, err := page.QueryAll(context.Background(), ".item")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestStaticPageQueryMissingIsNilNotError(t *testing.T) {
	page, err := NewStaticPageFromHTML("https://archive.example/", sampleHTML)
	require.NoError(t, err)

	el, err := page.Query(context.Background(), ".does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, el)

	items, err := page.QueryAll(context.Background(), ".does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStaticPageNavigateAndClick(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			fmt.Fprint(w, sampleHTML)
		case "/item/1":
			fmt.Fprint(w, `<html><body><h1>Item One</h1></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	page := NewStaticPage(server.Client(), "test-agent")
	ctx := context.Background()

	require.NoError(t, page.Navigate(ctx, server.URL+"/search"))
	assert.Equal(t, server.URL+"/search", page.URL())

	// Click follows the anchor's href, relative URLs resolved against
	// the current page.
	require.NoError(t, page.Click(ctx, ".item a"))
	assert.Equal(t, server.URL+"/item/1", page.URL())

	h1, err := page.Query(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, h1)
	assert.Equal(t, "Item One", h1.Text())
}

func TestStaticPageNavigateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer server.Close()

	page := NewStaticPage(server.Client(), "")
	err := page.Navigate(context.Background(), server.URL+"/missing")
	assert.Error(t, err)
}

func TestStaticPageClickNonLink(t *testing.T) {
	page, err := NewStaticPageFromHTML("https://archive.example/", `<html><body><button id="b">Go</button></body></html>`)
	require.NoError(t, err)

	assert.Error(t, page.Click(context.Background(), "#b"))
}

func TestStaticPageWaitVisible(t *testing.T) {
	page, err := NewStaticPageFromHTML("https://archive.example/", sampleHTML)
	require.NoError(t, err)

	assert.True(t, page.WaitVisible(context.Background(), ".results", time.Second))
	assert.False(t, page.WaitVisible(context.Background(), ".spinner", time.Second))
}

func TestStaticPageUnsupportedOperations(t *testing.T) {
	page, err := NewStaticPageFromHTML("https://archive.example/", sampleHTML)
	require.NoError(t, err)

	assert.Error(t, page.SelectOption(context.Background(), "select", "x"))
	assert.Error(t, page.Evaluate(context.Background(), "1+1", nil))
	assert.Error(t, page.Screenshot(context.Background(), "/tmp/x.png"))
}

func TestElementTraversal(t *testing.T) {
	html := `<html><body><dl>
		<dt>Title:</dt><dd>Great Mosque</dd>
		<dt>Date:</dt><dd>1923</dd>
	</dl></body></html>`
	page, err := NewStaticPageFromHTML("https://archive.example/", html)
	require.NoError(t, err)

	dt, err := page.Query(context.Background(), "dt")
	require.NoError(t, err)
	require.NotNil(t, dt)
	assert.Equal(t, "Title:", dt.Text())

	dd := dt.Next()
	require.NotNil(t, dd)
	assert.Equal(t, "dd", dd.TagName())
	assert.Equal(t, "Great Mosque", dd.Text())

	// Next on the last sibling is nil, not a typed-nil interface.
	body, err := page.Query(context.Background(), "dl")
	require.NoError(t, err)
	assert.Nil(t, body.Next())
}

func TestElementAttr(t *testing.T) {
	page, err := NewStaticPageFromHTML("https://archive.example/", sampleHTML)
	require.NoError(t, err)

	a, err := page.Query(context.Background(), "a.next")
	require.NoError(t, err)
	require.NotNil(t, a)

	href, ok := a.Attr("href")
	assert.True(t, ok)
	assert.Equal(t, "/search?page=2", href)

	_, ok = a.Attr("data-missing")
	assert.False(t, ok)
}
