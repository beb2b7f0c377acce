package executor

import (
	"context"
	"regexp"
	"strings"

	"github.com/ternarybob/arca/internal/interfaces"
	"github.com/ternarybob/arca/internal/models"
)

// genericItemSelectors are tried when the planned extraction finds
// nothing on the first page: the strategy may have been planned
// against a transient page state.
var genericItemSelectors = []string{
	"article",
	".item",
	"[class*='item']",
	"[class*='result']",
	"li",
	"tr",
}

// datePattern picks bare years and short numeric dates out of free
// text, the last resort when no structure survives at all.
var datePattern = regexp.MustCompile(`\b\d{4}\b|\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)

const maxFallbackRecords = 50

// extractFallback runs the degradation chain: registry item hints,
// then generic repeating structures, then a regex sweep for dates in
// the body text. Whatever level first yields records wins.
func (s *Service) extractFallback(ctx context.Context, page interfaces.Page, strategy *models.ScrapingStrategy, schema models.TargetSchema, pageNum int) []models.Record {
	for _, selector := range strategy.FallbackSelectors {
		if records := s.extractGeneric(ctx, page, selector, pageNum); len(records) > 0 {
			s.logger.Info().
				Str("selector", selector).
				Int("records", len(records)).
				Msg("Fallback extraction via registry hint")
			return records
		}
	}

	for _, selector := range genericItemSelectors {
		records := s.extractGeneric(ctx, page, selector, pageNum)
		if len(records) >= 3 {
			s.logger.Info().
				Str("selector", selector).
				Int("records", len(records)).
				Msg("Fallback extraction via generic structure")
			return records
		}
	}

	return s.extractDates(ctx, page, schema, pageNum)
}

// extractGeneric builds minimal records from a repeating selector:
// heading or link text as title, trimmed body text as notes.
func (s *Service) extractGeneric(ctx context.Context, page interfaces.Page, selector string, pageNum int) []models.Record {
	items, err := page.QueryAll(ctx, selector)
	if err != nil || len(items) < 2 {
		return nil
	}

	var records []models.Record
	for _, item := range items {
		if len(records) >= maxFallbackRecords {
			break
		}
		rec := models.NewRecord(page.URL(), pageNum)

		if h := item.Query("h1, h2, h3, h4, a"); h != nil {
			rec.Set(models.FieldTitle, truncate(h.Text(), 150))
		}
		if text := truncate(item.Text(), 300); text != "" && text != rec.Get(models.FieldTitle) {
			rec.Set(models.FieldNotes, text)
		}

		if !rec.IsEmpty() {
			records = append(records, rec)
		}
	}
	return records
}

// extractDates sweeps the body text for date-shaped strings and emits
// one record per hit, provided the schema has a date field to hold
// them.
func (s *Service) extractDates(ctx context.Context, page interfaces.Page, schema models.TargetSchema, pageNum int) []models.Record {
	dateField := ""
	for _, field := range schema.Fields {
		if strings.Contains(strings.ToLower(field), "date") {
			dateField = field
			break
		}
	}
	if dateField == "" {
		return nil
	}

	body, err := page.Query(ctx, "body")
	if err != nil || body == nil {
		return nil
	}

	matches := datePattern.FindAllString(body.Text(), maxFallbackRecords)
	if len(matches) == 0 {
		return nil
	}

	s.logger.Warn().
		Int("matches", len(matches)).
		Msg("Falling back to regex date extraction")

	var records []models.Record
	seen := make(map[string]bool)
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		rec := models.NewRecord(page.URL(), pageNum)
		rec.Set(dateField, m)
		records = append(records, rec)
	}
	return records
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
