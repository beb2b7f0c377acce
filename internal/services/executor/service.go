package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/arca/internal/common"
	"github.com/ternarybob/arca/internal/interfaces"
	"github.com/ternarybob/arca/internal/models"
	"github.com/ternarybob/arca/internal/services/detector"
)

// maxEmptyPages is how many consecutive pages may yield no new records
// before the loop gives up on the site producing more.
const maxEmptyPages = 3

// Service executes a scraping strategy against a page: extract the
// current page, navigate, repeat. Navigation failures end the loop
// with partial results rather than failing the run; records already
// extracted are never thrown away.
type Service struct {
	logger            arbor.ILogger
	maxResults        int
	screenshotOnError bool
	screenshotDir     string
}

// Option configures the executor.
type Option func(*Service)

// WithMaxResults stops extraction once n records are held (0 means
// unlimited).
func WithMaxResults(n int) Option {
	return func(s *Service) { s.maxResults = n }
}

// WithScreenshots captures a screenshot into dir when navigation
// fails.
func WithScreenshots(dir string) Option {
	return func(s *Service) {
		s.screenshotOnError = true
		s.screenshotDir = dir
	}
}

// New creates an executor service.
func New(opts ...Option) *Service {
	s := &Service{logger: common.GetLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs the strategy, returning every record extracted across
// all traversed pages. The only hard failure is context cancellation;
// everything else degrades to partial results.
func (s *Service) Execute(ctx context.Context, page interfaces.Page, strategy *models.ScrapingStrategy, schema models.TargetSchema) ([]models.Record, error) {
	var records []models.Record
	seen := make(map[string]bool)
	emptyStreak := 0
	scrolls := 0

	for pageNum := 1; pageNum <= strategy.Navigation.MaxPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		if strategy.WaitSelector != "" {
			page.WaitVisible(ctx, strategy.WaitSelector, 10*time.Second)
		}

		pageRecords, err := s.extractPage(ctx, page, strategy, schema, pageNum)
		if err != nil {
			return records, err
		}
		if pageNum == 1 && len(pageRecords) == 0 {
			pageRecords = s.extractFallback(ctx, page, strategy, schema, pageNum)
		}

		added := 0
		for _, rec := range pageRecords {
			key := rec.Fingerprint()
			if seen[key] {
				continue
			}
			seen[key] = true
			records = append(records, rec)
			added++
		}

		s.logger.Info().
			Int("page", pageNum).
			Int("extracted", len(pageRecords)).
			Int("new", added).
			Int("total", len(records)).
			Msg("Page extracted")

		if s.maxResults > 0 && len(records) >= s.maxResults {
			records = records[:s.maxResults]
			s.logger.Info().Int("max_results", s.maxResults).Msg("Result limit reached")
			break
		}

		if added == 0 {
			emptyStreak++
			if emptyStreak >= maxEmptyPages {
				s.logger.Warn().
					Int("empty_pages", emptyStreak).
					Msg("No new records on consecutive pages, stopping")
				break
			}
		} else {
			emptyStreak = 0
		}

		if strategy.Navigation.Method == models.NavMethodNone {
			break
		}
		if pageNum == strategy.Navigation.MaxPages {
			break
		}

		moved, err := s.navigate(ctx, page, strategy, pageNum, &scrolls)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			s.logger.Warn().
				Err(err).
				Int("page", pageNum).
				Str("method", string(strategy.Navigation.Method)).
				Msg("Navigation failed, keeping partial results")
			s.captureFailure(ctx, page, pageNum)
			break
		}
		if !moved {
			s.logger.Debug().Int("page", pageNum).Msg("No further page")
			break
		}
	}

	return records, nil
}

// extractPage pulls records from the current page using the planned
// container and mappings. An empty plan extracts nothing here and
// falls through to the fallback chain.
func (s *Service) extractPage(ctx context.Context, page interfaces.Page, strategy *models.ScrapingStrategy, schema models.TargetSchema, pageNum int) ([]models.Record, error) {
	if strategy.ContainerSelector == "" || strategy.ItemSelector == "" {
		return nil, nil
	}
	container, err := page.Query(ctx, strategy.ContainerSelector)
	if err != nil {
		return nil, fmt.Errorf("container query failed: %w", err)
	}
	if container == nil {
		return nil, nil
	}

	var records []models.Record
	for _, item := range container.QueryAll(strategy.ItemSelector) {
		rec := models.NewRecord(page.URL(), pageNum)
		if strategy.LabelValue {
			s.extractLabelValue(item, strategy, rec)
		} else {
			s.extractFixed(item, strategy, rec)
		}
		if !rec.IsEmpty() {
			records = append(records, rec)
		}
	}
	return records, nil
}

// extractLabelValue extracts via the item's label/value markup, routed
// through the strategy's label mappings.
func (s *Service) extractLabelValue(item interfaces.Element, strategy *models.ScrapingStrategy, rec models.Record) {
	fieldByLabel := make(map[string]string, len(strategy.FieldMappings))
	for _, m := range strategy.FieldMappings {
		if m.Kind == models.MappingLabelValue {
			fieldByLabel[m.Label] = m.Field
		}
	}

	for _, pair := range detector.ExtractPairs(item) {
		if field, ok := fieldByLabel[pair.Label]; ok {
			rec.Set(field, pair.Value)
		}
	}
}

// extractFixed extracts via fixed per-field selectors.
func (s *Service) extractFixed(item interfaces.Element, strategy *models.ScrapingStrategy, rec models.Record) {
	for _, m := range strategy.FieldMappings {
		if m.Kind != models.MappingFixed {
			continue
		}
		el := item.Query(m.Selector)
		if el == nil {
			continue
		}
		rec.Set(m.Field, extractValue(el, m))
	}
}

// extractValue pulls the value out of an element: href for anchors,
// src for images, text otherwise. Inline "Label: value" prefixes that
// repeat the field name are stripped.
func extractValue(el interfaces.Element, m models.FieldMapping) string {
	if m.Attribute != "" {
		if v, ok := el.Attr(m.Attribute); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}

	switch el.TagName() {
	case "a":
		if href, ok := el.Attr("href"); ok && href != "" {
			return strings.TrimSpace(href)
		}
	case "img":
		if src, ok := el.Attr("src"); ok && src != "" {
			return strings.TrimSpace(src)
		}
		if src, ok := el.Attr("data-src"); ok && src != "" {
			return strings.TrimSpace(src)
		}
		if alt, ok := el.Attr("alt"); ok {
			return strings.TrimSpace(alt)
		}
	}

	text := el.Text()
	if prefix, rest, found := strings.Cut(text, ":"); found {
		normalized := models.NormalizeLabel(prefix)
		if normalized != "" &&
			(normalized == models.NormalizeLabel(m.Field) || normalized == m.Label) {
			return strings.TrimSpace(rest)
		}
	}
	return text
}

// captureFailure stores a screenshot of the failed page when enabled.
func (s *Service) captureFailure(ctx context.Context, page interfaces.Page, pageNum int) {
	if !s.screenshotOnError {
		return
	}
	path := filepath.Join(s.screenshotDir, fmt.Sprintf("nav-failure-page%d-%d.png", pageNum, time.Now().Unix()))
	if err := page.Screenshot(ctx, path); err != nil {
		s.logger.Debug().Err(err).Msg("Failure screenshot not captured")
		return
	}
	s.logger.Info().Str("path", path).Msg("Failure screenshot captured")
}
