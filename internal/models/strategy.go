package models

import "time"

// PageType classifies what kind of archive page the analyzer is
// looking at.
type PageType string

const (
	PageTypeListing PageType = "listing"
	PageTypeDetail  PageType = "detail"
	PageTypeUnknown PageType = "unknown"
)

// ElementType classifies the role a repeated pattern plays on the
// page.
type ElementType string

const (
	ElementContainer  ElementType = "container"
	ElementNavigation ElementType = "navigation"
	ElementPagination ElementType = "pagination"
	ElementDetailLink ElementType = "detail_link"
	ElementMetadata   ElementType = "metadata"
)

// ElementPattern is a repeated selector discovered on a page.
type ElementPattern struct {
	Selector   string      `json:"selector"`
	Type       ElementType `json:"type,omitempty"`
	Count      int         `json:"count"`
	Confidence float64     `json:"confidence"`
	SampleText string      `json:"sample_text,omitempty"`
}

// DataContainer is a region of the page that holds repeated record
// items. LabelValue marks containers whose items expose explicit
// label/value markup rather than positional fields; FieldSelectors are
// the generic per-field selectors detected inside a sampled item, and
// SampleRecords holds up to three example records extracted with them.
type DataContainer struct {
	Selector       string              `json:"selector"`
	ItemSelector   string              `json:"item_selector"`
	ItemCount      int                 `json:"item_count"`
	FieldCount     int                 `json:"field_count"`
	LabelValue     bool                `json:"label_value"`
	SampleLabels   []string            `json:"sample_labels,omitempty"`
	FieldSelectors map[string]string   `json:"field_selectors,omitempty"`
	SampleRecords  []map[string]string `json:"sample_records,omitempty"`
	Confidence     float64             `json:"confidence"`
}

// NavigationType identifies the kind of multi-page affordance found
// during analysis.
type NavigationType string

const (
	NavigationPagination     NavigationType = "pagination"
	NavigationNextLink       NavigationType = "next_link"
	NavigationInfiniteScroll NavigationType = "infinite_scroll"
)

// NavigationPattern describes a detected navigation affordance.
// NextSelector may be empty for next links that were matched by their
// text only; the executor re-resolves those per page. TotalPages and
// CurrentPage are taken from numbered pagination links when present
// (zero means unknown).
type NavigationPattern struct {
	Type         NavigationType `json:"type"`
	Selector     string         `json:"selector,omitempty"`
	NextSelector string         `json:"next_selector,omitempty"`
	URLParameter string         `json:"url_parameter,omitempty"`
	TotalPages   int            `json:"total_pages,omitempty"`
	CurrentPage  int            `json:"current_page,omitempty"`
}

// AnalysisResult is the full outcome of one page analysis.
type AnalysisResult struct {
	URL               string             `json:"url"`
	PageType          PageType           `json:"page_type"`
	Patterns          []ElementPattern   `json:"patterns"`
	Containers        []DataContainer    `json:"containers"`
	Navigation        *NavigationPattern `json:"navigation,omitempty"`
	OverallConfidence float64            `json:"overall_confidence"`
	AnalyzedAt        time.Time          `json:"analyzed_at"`
}

// BestContainer returns the highest-confidence container, richer
// containers winning confidence ties; nil when none were found.
func (a *AnalysisResult) BestContainer() *DataContainer {
	var best *DataContainer
	for i := range a.Containers {
		c := &a.Containers[i]
		if best == nil || c.Confidence > best.Confidence ||
			(c.Confidence == best.Confidence && c.FieldCount > best.FieldCount) {
			best = c
		}
	}
	return best
}

// MappingKind discriminates the two field mapping variants.
type MappingKind string

const (
	// MappingFixed extracts a field from a fixed CSS selector inside
	// each item.
	MappingFixed MappingKind = "fixed"
	// MappingLabelValue extracts a field by matching a normalized
	// source label inside each item.
	MappingLabelValue MappingKind = "label_value"
)

// FieldMapping binds one schema field to its source on the page. Kind
// selects which of the variant members apply: Selector for fixed
// mappings, Label for label/value mappings.
type FieldMapping struct {
	Kind       MappingKind `json:"kind"`
	Field      string      `json:"field"`
	Selector   string      `json:"selector,omitempty"`
	Label      string      `json:"label,omitempty"`
	Attribute  string      `json:"attribute,omitempty"`
	Confidence float64     `json:"confidence"`
}

// NavigationMethod is the executor-facing navigation plan.
type NavigationMethod string

const (
	NavMethodNone       NavigationMethod = "none"
	NavMethodClickNext  NavigationMethod = "click_next"
	NavMethodScroll     NavigationMethod = "scroll"
	NavMethodPagination NavigationMethod = "pagination"
)

// NavigationStrategy tells the executor how to move between result
// pages and where to stop.
type NavigationStrategy struct {
	Method         NavigationMethod `json:"method"`
	Selector       string           `json:"selector,omitempty"`
	URLParameter   string           `json:"url_parameter,omitempty"`
	MaxPages       int              `json:"max_pages"`
	WaitAfterClick time.Duration    `json:"wait_after_click"`
	ScrollPause    time.Duration    `json:"scroll_pause"`
	MaxScrolls     int              `json:"max_scrolls"`
}

// ScrapingStrategy is the executable plan the planner derives from an
// analysis result. UnmappedFields lists the schema fields no source
// could be found for; planning never fails over them.
type ScrapingStrategy struct {
	URL               string             `json:"url"`
	ContainerSelector string             `json:"container_selector"`
	ItemSelector      string             `json:"item_selector"`
	LabelValue        bool               `json:"label_value"`
	FieldMappings     []FieldMapping     `json:"field_mappings"`
	UnmappedFields    []string           `json:"unmapped_fields,omitempty"`
	Navigation        NavigationStrategy `json:"navigation"`
	WaitSelector      string             `json:"wait_selector,omitempty"`
	FallbackSelectors []string           `json:"fallback_selectors,omitempty"`
	Confidence        float64            `json:"confidence"`
	CreatedAt         time.Time          `json:"created_at"`
}

// MappingFor returns the mapping for a schema field, or nil when the
// planner left the field unmapped.
func (s *ScrapingStrategy) MappingFor(field string) *FieldMapping {
	for i := range s.FieldMappings {
		if s.FieldMappings[i].Field == field {
			return &s.FieldMappings[i]
		}
	}
	return nil
}

// VerificationResult summarizes how well a batch of records satisfies
// the target schema.
type VerificationResult struct {
	Valid           bool                `json:"valid"`
	TotalRecords    int                 `json:"total_records"`
	ValidRecords    int                 `json:"valid_records"`
	Completeness    float64             `json:"completeness"`
	Quality         float64             `json:"quality"`
	MissingCritical []string            `json:"missing_critical,omitempty"`
	InvalidIndices  []int               `json:"invalid_indices,omitempty"`
	FieldIssues     map[string][]string `json:"field_issues,omitempty"`
	Recommendations []string            `json:"recommendations,omitempty"`
}
