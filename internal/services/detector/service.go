package detector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/arca/internal/common"
	"github.com/ternarybob/arca/internal/interfaces"
	"github.com/ternarybob/arca/internal/models"
)

// sampleSize is how many items are inspected when probing a container
// for label/value structure.
const sampleSize = 5

// virtualContainerMinCount is the repetition threshold above which a
// strong pattern without an enclosing container is promoted to a
// synthetic body-level container.
const virtualContainerMinCount = 10

// Hints bias analysis toward selectors known to work for a domain.
// They are tried first but never trusted blindly; a hint that matches
// nothing contributes nothing. FieldHints name per-field selectors
// (field name to candidate selectors) tried before the generic field
// probes.
type Hints struct {
	WaitSelectors   []string
	ContainerHints  []string
	ItemHints       []string
	NavigationHints []string
	FieldHints      map[string][]string
}

// Service analyzes rendered pages for repeated structure, data
// containers and navigation affordances. It never fails on absence:
// a page with no detectable structure yields an analysis with zero
// confidence, not an error.
type Service struct {
	logger arbor.ILogger
}

// New creates a detector service.
func New() *Service {
	return &Service{logger: common.GetLogger()}
}

// Analyze inspects the page without domain hints.
func (s *Service) Analyze(ctx context.Context, page interfaces.Page) (*models.AnalysisResult, error) {
	return s.AnalyzeWithHints(ctx, page, nil)
}

// AnalyzeWithHints inspects the page, trying hint selectors before the
// built-in candidates.
func (s *Service) AnalyzeWithHints(ctx context.Context, page interfaces.Page, hints *Hints) (*models.AnalysisResult, error) {
	start := time.Now()

	patterns, err := s.detectPatterns(ctx, page, hints)
	if err != nil {
		return nil, fmt.Errorf("pattern detection failed: %w", err)
	}

	containers, err := s.detectContainers(ctx, page, hints)
	if err != nil {
		return nil, fmt.Errorf("container detection failed: %w", err)
	}

	// A strongly repeated pattern with no enclosing container still
	// indicates extractable data; synthesize a body-level container so
	// planning has something to work with.
	if len(containers) == 0 && len(patterns) > 0 {
		if best := bestPattern(patterns); best != nil && best.Count >= virtualContainerMinCount {
			var fieldSelectors map[string]string
			var samples []map[string]string
			if items, err := page.QueryAll(ctx, best.Selector); err == nil && len(items) > 0 {
				fieldSelectors = detectFieldSelectors(items[0], hints)
				samples = sampleRecords(items, false, fieldSelectors)
			}
			containers = append(containers, models.DataContainer{
				Selector:       "body",
				ItemSelector:   best.Selector,
				ItemCount:      best.Count,
				FieldCount:     len(fieldSelectors),
				FieldSelectors: fieldSelectors,
				SampleRecords:  samples,
				Confidence:     0.8,
			})
			s.logger.Debug().
				Str("item_selector", best.Selector).
				Int("count", best.Count).
				Msg("Synthesized virtual container from repeated pattern")
		}
	}

	navigation := s.detectNavigation(ctx, page, hints)

	result := &models.AnalysisResult{
		URL:        page.URL(),
		Patterns:   patterns,
		Containers: containers,
		Navigation: navigation,
		AnalyzedAt: time.Now(),
	}
	result.PageType = s.classifyPage(page.URL(), result)
	result.OverallConfidence = overallConfidence(result)

	s.logger.Info().
		Str("url", page.URL()).
		Str("page_type", string(result.PageType)).
		Int("patterns", len(patterns)).
		Int("containers", len(containers)).
		Float64("confidence", result.OverallConfidence).
		Dur("elapsed", time.Since(start)).
		Msg("Page analysis complete")

	return result, nil
}

// detectPatterns probes the item candidate selectors and records every
// one that repeats at least twice, then runs a secondary census over
// the navigation, pagination, detail-link and metadata candidates so
// the analysis captures what role each repeated element plays.
func (s *Service) detectPatterns(ctx context.Context, page interfaces.Page, hints *Hints) ([]models.ElementPattern, error) {
	selectors := itemCandidates
	if hints != nil && len(hints.ItemHints) > 0 {
		selectors = append(append([]string{}, hints.ItemHints...), itemCandidates...)
	}

	var patterns []models.ElementPattern
	seen := make(map[string]bool)
	for _, selector := range selectors {
		if seen[selector] {
			continue
		}
		seen[selector] = true

		elements, err := page.QueryAll(ctx, selector)
		if err != nil {
			return nil, err
		}
		if len(elements) < 2 {
			continue
		}

		sample := elements[0].Text()
		if len(sample) > 100 {
			sample = sample[:100]
		}

		patterns = append(patterns, models.ElementPattern{
			Selector:   selector,
			Type:       models.ElementContainer,
			Count:      len(elements),
			Confidence: countConfidence(len(elements)),
			SampleText: sample,
		})
	}

	censuses := []struct {
		typ       models.ElementType
		selectors []string
	}{
		{models.ElementPagination, paginationCandidates},
		{models.ElementNavigation, nextCandidates},
		{models.ElementDetailLink, detailLinkCandidates},
		{models.ElementMetadata, metadataCandidates},
	}
	for _, census := range censuses {
		for _, selector := range census.selectors {
			if seen[selector] {
				continue
			}
			seen[selector] = true

			elements, err := page.QueryAll(ctx, selector)
			if err != nil {
				return nil, err
			}
			if len(elements) < 2 {
				continue
			}

			patterns = append(patterns, models.ElementPattern{
				Selector:   selector,
				Type:       census.typ,
				Count:      len(elements),
				Confidence: countConfidence(len(elements)),
			})
		}
	}
	return patterns, nil
}

// detectContainers probes container candidates and, inside each, looks
// for the item selector that repeats the most.
func (s *Service) detectContainers(ctx context.Context, page interfaces.Page, hints *Hints) ([]models.DataContainer, error) {
	contSelectors := containerCandidates
	itemSelectors := itemCandidates
	if hints != nil {
		if len(hints.ContainerHints) > 0 {
			contSelectors = append(append([]string{}, hints.ContainerHints...), containerCandidates...)
		}
		if len(hints.ItemHints) > 0 {
			itemSelectors = append(append([]string{}, hints.ItemHints...), itemCandidates...)
		}
	}

	var containers []models.DataContainer
	seen := make(map[string]bool)
	for _, contSel := range contSelectors {
		if seen[contSel] {
			continue
		}
		seen[contSel] = true

		cont, err := page.Query(ctx, contSel)
		if err != nil {
			return nil, err
		}
		if cont == nil {
			continue
		}

		itemSel, items := bestItemSelector(cont, itemSelectors)
		if itemSel == "" {
			continue
		}

		labelValue, labels := probeLabelValue(items)
		fieldSelectors := detectFieldSelectors(items[0], hints)
		fieldCount := len(labels)
		if !labelValue {
			fieldCount = len(fieldSelectors)
		}

		containers = append(containers, models.DataContainer{
			Selector:       contSel,
			ItemSelector:   itemSel,
			ItemCount:      len(items),
			FieldCount:     fieldCount,
			LabelValue:     labelValue,
			SampleLabels:   labels,
			FieldSelectors: fieldSelectors,
			SampleRecords:  sampleRecords(items, labelValue, fieldSelectors),
			Confidence:     containerConfidence(len(items), fieldCount),
		})
	}
	return containers, nil
}

// bestItemSelector returns the candidate that repeats the most inside
// the container, requiring at least two occurrences.
func bestItemSelector(cont interfaces.Element, candidates []string) (string, []interfaces.Element) {
	var bestSel string
	var bestItems []interfaces.Element
	for _, sel := range candidates {
		items := cont.QueryAll(sel)
		if len(items) >= 2 && len(items) > len(bestItems) {
			bestSel = sel
			bestItems = items
		}
	}
	return bestSel, bestItems
}

// probeLabelValue samples items for explicit label/value markup. The
// container is tagged label/value when at least three of the five
// sampled items (or all of them, for very small containers) expose a
// pair. Returns the normalized labels found in the first item.
func probeLabelValue(items []interfaces.Element) (bool, []string) {
	sampled := len(items)
	if sampled > sampleSize {
		sampled = sampleSize
	}

	matched := 0
	var labels []string
	for i := 0; i < sampled; i++ {
		itemLabels := extractLabels(items[i])
		if len(itemLabels) > 0 {
			matched++
			if labels == nil {
				labels = itemLabels
			}
		}
	}

	isLabelValue := matched >= 3 || (sampled < 3 && matched == sampled && matched > 0)
	if !isLabelValue {
		return false, nil
	}
	return true, labels
}

// LabelValuePair is one (label, value) extracted from an item's
// explicit metadata markup. Labels are normalized; values are raw.
type LabelValuePair struct {
	Label string
	Value string
}

// ExtractPairs pulls label/value pairs from one item via the known
// idioms, including dt/dd definition lists. The executor uses the same
// walk at extraction time that analysis used at detection time.
func ExtractPairs(item interfaces.Element) []LabelValuePair {
	var pairs []LabelValuePair
	seen := make(map[string]bool)

	add := func(rawLabel, value string) {
		label := models.NormalizeLabel(rawLabel)
		if label == "" || seen[label] {
			return
		}
		seen[label] = true
		pairs = append(pairs, LabelValuePair{Label: label, Value: strings.TrimSpace(value)})
	}

	for _, dt := range item.QueryAll("dt") {
		if dd := dt.Next(); dd != nil && dd.TagName() == "dd" {
			add(dt.Text(), dd.Text())
		}
	}

	for _, pair := range labelValuePairs {
		for _, le := range item.QueryAll(pair[0]) {
			// Prefer the sibling right after the label; fall back to
			// the first value element in the item.
			value := ""
			if sib := le.Next(); sib != nil && sib.Text() != "" {
				value = sib.Text()
			} else if ve := item.Query(pair[1]); ve != nil {
				value = ve.Text()
			}
			if value != "" {
				add(le.Text(), value)
			}
		}
	}

	return pairs
}

// extractLabels returns just the normalized labels of an item's pairs.
func extractLabels(item interfaces.Element) []string {
	pairs := ExtractPairs(item)
	labels := make([]string, 0, len(pairs))
	for _, p := range pairs {
		labels = append(labels, p.Label)
	}
	return labels
}

// detectFieldSelectors probes a sampled item for generic field
// selectors, first selector to match wins the field. Registry field
// hints take precedence over the built-in candidates.
func detectFieldSelectors(item interfaces.Element, hints *Hints) map[string]string {
	selectors := make(map[string]string)

	if hints != nil {
		for name, candidates := range hints.FieldHints {
			name = models.NormalizeLabel(name)
			if name == "" {
				continue
			}
			for _, sel := range candidates {
				if item.Query(sel) != nil {
					selectors[name] = sel
					break
				}
			}
		}
	}

	for _, fc := range fieldCandidates {
		if _, ok := selectors[fc.Name]; ok {
			continue
		}
		for _, sel := range fc.Selectors {
			if item.Query(sel) != nil {
				selectors[fc.Name] = sel
				break
			}
		}
	}
	return selectors
}

// sampleRecords extracts up to three example records from the
// container's items, via label/value pairs or the detected field
// selectors.
func sampleRecords(items []interfaces.Element, labelValue bool, fieldSelectors map[string]string) []map[string]string {
	n := len(items)
	if n > 3 {
		n = 3
	}

	var samples []map[string]string
	for i := 0; i < n; i++ {
		sample := make(map[string]string)
		if labelValue {
			for _, pair := range ExtractPairs(items[i]) {
				sample[pair.Label] = pair.Value
			}
		} else {
			for name, sel := range fieldSelectors {
				if el := items[i].Query(sel); el != nil && el.Text() != "" {
					sample[name] = el.Text()
				}
			}
		}
		if len(sample) > 0 {
			samples = append(samples, sample)
		}
	}
	return samples
}

// detectNavigation looks for pagination containers, next links and
// infinite-scroll markers, in that priority order.
func (s *Service) detectNavigation(ctx context.Context, page interfaces.Page, hints *Hints) *models.NavigationPattern {
	pagSelectors := paginationCandidates
	if hints != nil && len(hints.NavigationHints) > 0 {
		pagSelectors = append(append([]string{}, hints.NavigationHints...), paginationCandidates...)
	}

	for _, sel := range pagSelectors {
		cont, err := page.Query(ctx, sel)
		if err != nil || cont == nil {
			continue
		}

		nav := &models.NavigationPattern{
			Type:     models.NavigationPagination,
			Selector: sel,
		}
		for _, nextSel := range nextCandidates {
			if cont.Query(nextSel) != nil {
				nav.NextSelector = sel + " " + nextSel
				break
			}
		}
		// Page-number links expose the URL parameter directly; the
		// executor can then paginate by URL instead of clicking.
		if link := cont.Query("a[href*='page=']"); link != nil {
			nav.URLParameter = "page"
		}
		// Numbered links also reveal how many pages exist, which caps
		// the navigation budget during planning.
		for _, a := range cont.QueryAll("a") {
			if n, err := strconv.Atoi(strings.TrimSpace(a.Text())); err == nil && n > nav.TotalPages {
				nav.TotalPages = n
			}
		}
		if cur := cont.Query(".active, .current, [aria-current='page']"); cur != nil {
			if n, err := strconv.Atoi(strings.TrimSpace(cur.Text())); err == nil {
				nav.CurrentPage = n
				if n > nav.TotalPages {
					nav.TotalPages = n
				}
			}
		}
		return nav
	}

	for _, nextSel := range nextCandidates {
		el, err := page.Query(ctx, nextSel)
		if err == nil && el != nil {
			return &models.NavigationPattern{
				Type:         models.NavigationNextLink,
				NextSelector: nextSel,
			}
		}
	}

	if anchor := findNextByText(ctx, page); anchor != nil {
		// Text-matched links carry no stable selector; the executor
		// re-resolves the link by text on every page.
		return &models.NavigationPattern{Type: models.NavigationNextLink}
	}

	for _, sel := range loadMoreCandidates {
		el, err := page.Query(ctx, sel)
		if err == nil && el != nil {
			return &models.NavigationPattern{
				Type:     models.NavigationInfiniteScroll,
				Selector: sel,
			}
		}
	}

	// Tall pages without any explicit control suggest scroll loading.
	var ratio float64
	if err := page.Evaluate(ctx, "document.body.scrollHeight / Math.max(window.innerHeight, 1)", &ratio); err == nil && ratio > 3 {
		return &models.NavigationPattern{Type: models.NavigationInfiniteScroll}
	}

	return nil
}

// findNextByText returns the first anchor whose text matches a known
// next-page phrase.
func findNextByText(ctx context.Context, page interfaces.Page) interfaces.Element {
	anchors, err := page.QueryAll(ctx, "a")
	if err != nil {
		return nil
	}
	for _, a := range anchors {
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		for _, want := range nextLinkTexts {
			if text == want {
				return a
			}
		}
	}
	return nil
}

// classifyPage determines the page type from URL keywords first, then
// from the detected structure.
func (s *Service) classifyPage(pageURL string, result *models.AnalysisResult) models.PageType {
	lower := strings.ToLower(pageURL)
	for _, hint := range listingURLHints {
		if strings.Contains(lower, hint) {
			return models.PageTypeListing
		}
	}
	for _, hint := range detailURLHints {
		if strings.Contains(lower, hint) {
			return models.PageTypeDetail
		}
	}

	if len(result.Containers) > 0 || len(result.Patterns) > 0 {
		return models.PageTypeListing
	}
	return models.PageTypeUnknown
}

// countConfidence maps a repetition count onto detection confidence.
// Two repeats barely suggest a pattern; fifty are near-certain.
func countConfidence(count int) float64 {
	switch {
	case count < 2:
		return 0.0
	case count < 5:
		return 0.5
	case count < 10:
		return 0.7
	case count < 50:
		return 0.8
	default:
		return 0.9
	}
}

// containerConfidence blends repetition with field richness. Five or
// more fields per item saturate the richness term.
func containerConfidence(itemCount, fieldCount int) float64 {
	fieldScore := float64(fieldCount) / 5.0
	if fieldScore > 1 {
		fieldScore = 1
	}
	return (countConfidence(itemCount) + fieldScore) / 2
}

// overallConfidence averages the strongest signal of each kind that
// was found; navigation contributes a fixed 0.8 when present.
func overallConfidence(result *models.AnalysisResult) float64 {
	var parts []float64

	if best := bestPattern(result.Patterns); best != nil {
		parts = append(parts, best.Confidence)
	}
	if best := result.BestContainer(); best != nil {
		parts = append(parts, best.Confidence)
	}
	if result.Navigation != nil {
		parts = append(parts, 0.8)
	}

	if len(parts) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range parts {
		sum += p
	}
	return sum / float64(len(parts))
}

// bestPattern picks the strongest container-type pattern; navigation
// and metadata patterns never seed a virtual container.
func bestPattern(patterns []models.ElementPattern) *models.ElementPattern {
	var best *models.ElementPattern
	for i := range patterns {
		p := &patterns[i]
		if p.Type != "" && p.Type != models.ElementContainer {
			continue
		}
		if best == nil || p.Confidence > best.Confidence ||
			(p.Confidence == best.Confidence && p.Count > best.Count) {
			best = p
		}
	}
	return best
}

