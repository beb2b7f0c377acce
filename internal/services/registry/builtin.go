package registry

import "time"

// builtinPatterns are the archives this project was developed against.
// Kept in code rather than shipped YAML so a bare binary still knows
// them; user YAML files for the same domain take precedence.
var builtinPatterns = []*ArchivePattern{
	{
		Name:               "ArchNet",
		Domain:             "archnet.org",
		JavaScriptRequired: true,
		WaitSelectors:      []string{".site-grid", ".collection-grid", "[class*='grid']"},
		ContainerHints: []string{
			".site-grid", ".collection-grid", ".search-results",
			"[class*='grid']", "[class*='results']", ".sites-list",
		},
		ItemHints: []string{
			".site-item", ".collection-item", ".search-result",
			"[class*='card']", ".grid-item", "[class*='site-card']",
		},
		NavigationHints: []string{".pagination", ".pager", "[class*='pagination']"},
		MetadataMappings: map[string][]string{
			"title":    {"h2", "h3", ".title", ".name", "[class*='title']"},
			"location": {".location", "[class*='location']"},
			"date":     {".date"},
		},
		PreNavigation: []PreNavigationStep{
			// The landing page is a splash; records live under /sites.
			{Action: "navigate", Target: "/sites", WaitAfter: 5 * time.Second},
		},
	},
	{
		Name:           "Manar al-Athar",
		Domain:         "manar-al-athar.ox.ac.uk",
		WaitSelectors:  []string{".thumbnails", "#results", ".search-results"},
		ContainerHints: []string{".thumbnails", "#results", ".search-results", "[class*='thumbnail']"},
		ItemHints:      []string{".thumbnail", ".result-item", "li.item", "[class*='photo']"},
		NavigationHints: []string{
			".pagination",
		},
		MetadataMappings: map[string][]string{
			"title":    {".caption", ".title", "img[alt]"},
			"location": {".location", ".site-name"},
			"date":     {".date", ".year"},
		},
	},
	{
		Name:               "SALT Research",
		Domain:             "saltresearch.org",
		JavaScriptRequired: true,
		WaitSelectors:      []string{"prm-search-result", "[class*='result']", "#searchResults"},
		ContainerHints: []string{
			"prm-search-results-list", "#searchResults", ".results-container",
			"prm-brief-result-container",
		},
		ItemHints:       []string{"prm-brief-result", ".result-item", "[class*='brief-result']"},
		NavigationHints: []string{"prm-paginator", ".pagination"},
		MetadataMappings: map[string][]string{
			"title":   {"h3", ".item-title"},
			"date":    {".creation-date", ".date"},
			"creator": {".creator", ".author"},
		},
	},
	{
		Name:           "Machiel Kiel Archive",
		Domain:         "nit-istanbul.org",
		ContainerHints: []string{".gallery", "#gallery", "[class*='photo']", "table"},
		ItemHints:      []string{"div.picture", ".picture", "a[href*='.jpg']", "a[href*='.JPG']"},
		MetadataMappings: map[string][]string{
			"title":    {"img[alt]", ".caption", "td"},
			"location": {".location", "td"},
		},
		PreNavigation: []PreNavigationStep{
			// The gallery is empty until a country and city are picked.
			{Action: "select", Selector: "select:first-of-type", Value: "Turkey", WaitAfter: time.Second},
			{Action: "select", Selector: "select:nth-of-type(2)", Value: "Edirne", WaitAfter: 2 * time.Second},
		},
	},
	{
		Name:               "Akkasah Center",
		Domain:             "akkasah.org",
		JavaScriptRequired: true,
		ContainerHints:     []string{".collection-grid", ".photo-grid", "[class*='collection']", "#photos"},
		ItemHints:          []string{".photo-item", ".collection-item", "[class*='photo']", "article"},
		NavigationHints:    []string{".pagination"},
		MetadataMappings: map[string][]string{
			"title":        {".title", "h3", ".photo-title"},
			"photographer": {".photographer", ".creator"},
			"date":         {".date", ".year"},
			"collection":   {".collection-name"},
		},
	},
}
