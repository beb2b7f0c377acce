package planner

import (
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/arca/internal/common"
	"github.com/ternarybob/arca/internal/models"
)

// Navigation pacing defaults. Archives are slow; rushing them loses
// records silently.
const (
	defaultMaxPages       = 100
	defaultWaitAfterClick = 2 * time.Second
	defaultScrollPause    = 2 * time.Second
	defaultMaxScrolls     = 50
)

// Service turns an analysis result into an executable scraping
// strategy. Planning is total over fields: a field with no acceptable
// source is left unmapped, never guessed into the wrong place.
type Service struct {
	logger   arbor.ILogger
	maxPages int
}

// New creates a planner. maxPages bounds navigation; zero applies the
// default.
func New(maxPages int) *Service {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &Service{
		logger:   common.GetLogger(),
		maxPages: maxPages,
	}
}

// Plan derives a strategy for the best container in the analysis.
// Planning never fails: an analysis with no containers yields an empty
// strategy with every schema field listed as unmapped.
func (s *Service) Plan(analysis *models.AnalysisResult, schema models.TargetSchema) (*models.ScrapingStrategy, error) {
	container := analysis.BestContainer()
	if container == nil {
		s.logger.Warn().
			Str("url", analysis.URL).
			Msg("No data container found, planning empty strategy")
		return &models.ScrapingStrategy{
			URL:            analysis.URL,
			UnmappedFields: append([]string(nil), schema.Fields...),
			Navigation:     s.planNavigation(nil),
			CreatedAt:      time.Now(),
		}, nil
	}

	var mappings []models.FieldMapping
	if container.LabelValue && len(container.SampleLabels) > 0 {
		mappings = s.mapLabels(container.SampleLabels, schema)
	} else {
		mappings = s.mapDetected(container.FieldSelectors, schema)
	}

	strategy := &models.ScrapingStrategy{
		URL:               analysis.URL,
		ContainerSelector: container.Selector,
		ItemSelector:      container.ItemSelector,
		LabelValue:        container.LabelValue,
		FieldMappings:     mappings,
		UnmappedFields:    unmappedFields(schema, mappings),
		Navigation:        s.planNavigation(analysis.Navigation),
		Confidence:        strategyConfidence(analysis.OverallConfidence, mappings),
		CreatedAt:         time.Now(),
	}

	s.logger.Info().
		Str("container", strategy.ContainerSelector).
		Str("items", strategy.ItemSelector).
		Bool("label_value", strategy.LabelValue).
		Int("mapped_fields", len(mappings)).
		Str("navigation", string(strategy.Navigation.Method)).
		Float64("confidence", strategy.Confidence).
		Msg("Strategy planned")

	return strategy, nil
}

// mapLabels matches every schema field against the observed labels,
// keeping only matches above the accept threshold.
func (s *Service) mapLabels(labels []string, schema models.TargetSchema) []models.FieldMapping {
	var mappings []models.FieldMapping
	for _, field := range schema.Fields {
		label, score := BestLabelMatch(field, labels)
		if label == "" {
			continue
		}
		mappings = append(mappings, models.FieldMapping{
			Kind:       models.MappingLabelValue,
			Field:      field,
			Label:      label,
			Confidence: score,
		})
		s.logger.Debug().
			Str("field", field).
			Str("label", label).
			Float64("score", score).
			Msg("Field mapped")
	}
	return mappings
}

// mapDetected matches schema fields against the generic field names
// analysis found selectors for inside the container's items. Only
// selectors actually present in the container ever end up in a
// mapping.
func (s *Service) mapDetected(fieldSelectors map[string]string, schema models.TargetSchema) []models.FieldMapping {
	if len(fieldSelectors) == 0 {
		return nil
	}

	names := make([]string, 0, len(fieldSelectors))
	for name := range fieldSelectors {
		names = append(names, name)
	}
	sort.Strings(names)

	var mappings []models.FieldMapping
	for _, field := range schema.Fields {
		bestName := ""
		bestScore := 0.0
		for _, name := range names {
			if score := MatchField(field, name); score > bestScore {
				bestName, bestScore = name, score
			}
		}
		if bestScore <= acceptThreshold {
			continue
		}
		mappings = append(mappings, models.FieldMapping{
			Kind:       models.MappingFixed,
			Field:      field,
			Selector:   fieldSelectors[bestName],
			Confidence: bestScore,
		})
		s.logger.Debug().
			Str("field", field).
			Str("detected", bestName).
			Str("selector", fieldSelectors[bestName]).
			Float64("score", bestScore).
			Msg("Field mapped")
	}
	return mappings
}

// unmappedFields lists schema fields no mapping was found for, in
// schema order.
func unmappedFields(schema models.TargetSchema, mappings []models.FieldMapping) []string {
	mapped := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		mapped[m.Field] = true
	}
	var unmapped []string
	for _, field := range schema.Fields {
		if !mapped[field] {
			unmapped = append(unmapped, field)
		}
	}
	return unmapped
}

// planNavigation maps the detected navigation pattern onto an
// executor method with pacing defaults.
func (s *Service) planNavigation(nav *models.NavigationPattern) models.NavigationStrategy {
	strategy := models.NavigationStrategy{
		Method:         models.NavMethodNone,
		MaxPages:       s.maxPages,
		WaitAfterClick: defaultWaitAfterClick,
		ScrollPause:    defaultScrollPause,
		MaxScrolls:     defaultMaxScrolls,
	}
	if nav == nil {
		return strategy
	}

	switch nav.Type {
	case models.NavigationPagination:
		if nav.URLParameter != "" {
			strategy.Method = models.NavMethodPagination
			strategy.URLParameter = nav.URLParameter
		} else {
			strategy.Method = models.NavMethodClickNext
			strategy.Selector = nav.NextSelector
		}
	case models.NavigationNextLink:
		strategy.Method = models.NavMethodClickNext
		strategy.Selector = nav.NextSelector
	case models.NavigationInfiniteScroll:
		strategy.Method = models.NavMethodScroll
	}

	// A detected page total caps navigation below the configured
	// budget; walking past the last page only collects empties.
	if nav.TotalPages > 0 && nav.TotalPages < strategy.MaxPages {
		strategy.MaxPages = nav.TotalPages
	}
	return strategy
}

// strategyConfidence blends analysis confidence with the mean mapping
// confidence.
func strategyConfidence(analysisConfidence float64, mappings []models.FieldMapping) float64 {
	if len(mappings) == 0 {
		return analysisConfidence
	}
	sum := 0.0
	for _, m := range mappings {
		sum += m.Confidence
	}
	return (analysisConfidence + sum/float64(len(mappings))) / 2
}
