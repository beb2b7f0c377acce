package detector

// Candidate selectors probed during analysis. Archives rarely share
// markup, but the same handful of structural idioms covers most of
// them; per-domain hints from the pattern registry are prepended to
// these lists when available.

var itemCandidates = []string{
	"article",
	".item",
	".record",
	".result",
	".entry",
	".card",
	".tile",
	".object",
	".artifact",
	".photo-item",
	".collection-item",
	".search-result",
	"li.item",
	"tr.data-row",
	".grid-item",
	".thumbnail",
	"[class*='item']",
	"[class*='record']",
	"[class*='result']",
	"[class*='card']",
}

var containerCandidates = []string{
	".results",
	".items",
	".list",
	".grid",
	".search-results",
	".collection-grid",
	".thumbnails",
	"#results",
	"#content",
	"table tbody",
	"ul.results",
	"main",
	"[role='main']",
	"[class*='results']",
	"[class*='grid']",
}

// fieldCandidates are generic per-field probes tried inside a sampled
// item; the first selector that matches wins the field. Per-domain
// field hints from the pattern registry are tried before these.
var fieldCandidates = []struct {
	Name      string
	Selectors []string
}{
	{"title", []string{"h1", "h2", "h3", "h4", ".title", "[class*='title']", ".caption", ".name"}},
	{"creator", []string{".artist", ".creator", ".author", ".photographer", "[class*='artist']", "[class*='creator']"}},
	{"date", []string{".date", "time", ".year", "[class*='date']"}},
	{"description", []string{".description", ".summary", ".notes", "p"}},
	{"link", []string{"a[href]"}},
}

// detailLinkCandidates mark anchors that lead from a listing to a
// record detail page.
var detailLinkCandidates = []string{
	"a[href*='/item/']",
	"a[href*='/object/']",
	"a[href*='/record/']",
	"a[href*='/detail']",
}

// metadataCandidates mark explicit label markup.
var metadataCandidates = []string{
	"dt",
	".field-label",
	"[class*='label']",
}

// labelValuePairs are (label, value) selector pairs tried inside each
// sampled item. The dt/dd pair is handled separately via sibling
// traversal.
var labelValuePairs = [][2]string{
	{".field-label", ".field-value"},
	{".label", ".value"},
	{".metadata-label", ".metadata-value"},
	{".property-name", ".property-value"},
	{"[class*='label']", "[class*='value']"},
}

var paginationCandidates = []string{
	".pagination",
	".pager",
	"nav.pagination",
	"ul.page-numbers",
	"[class*='pagination']",
	"[class*='pager']",
}

var nextCandidates = []string{
	"a[rel='next']",
	"a.next",
	".next a",
	"button.next",
	"[aria-label='Next']",
	"[class*='next']",
}

// nextLinkTexts are matched against anchor text when no structural
// next control exists.
var nextLinkTexts = []string{
	"next",
	"next page",
	"more",
	"load more",
	"older",
	">",
	"»",
	"→",
}

var loadMoreCandidates = []string{
	".load-more",
	"[class*='load-more']",
	"button[class*='more']",
	"[data-infinite-scroll]",
}

var listingURLHints = []string{
	"search", "browse", "collection", "results", "list", "gallery", "category", "sites",
}

var detailURLHints = []string{
	"/item/", "/object/", "/detail", "/record/", "/id/",
}
