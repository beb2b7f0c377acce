package verifier

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/arca/internal/common"
	"github.com/ternarybob/arca/internal/models"
)

// Batch acceptance thresholds. A batch is only declared valid when all
// three hold; each one alone is easy to satisfy with garbage.
const (
	minValidRatio   = 0.8
	minCompleteness = 0.6
	minQuality      = 0.5
)

// Per-value quality scores.
const (
	qualityPlaceholder = 0.2
	qualityTruncated   = 0.5
	qualityTooShort    = 0.4
	qualityGoodDate    = 0.9
	qualityBadDate     = 0.3
	qualityDefault     = 0.9
)

var (
	placeholderPattern = regexp.MustCompile(`^(\.\.\.|N/A|n/a|Unknown|unknown|TBD|tbd|-+)$`)
	truncatedPattern   = regexp.MustCompile(`\.\.\.$`)
	numericDatePattern = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)
)

// dateLayouts are the formats archives actually emit.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"2006",
	"January 2 2006",
	"January 2, 2006",
	"2 January 2006",
}

// Service checks extracted record batches against the target schema:
// are the critical fields there, are values real rather than
// placeholders, do dates parse.
type Service struct {
	logger arbor.ILogger
}

// New creates a verifier service.
func New() *Service {
	return &Service{logger: common.GetLogger()}
}

// Verify scores a batch of records. It never returns an error; an
// unusable batch is a result, not a failure.
func (s *Service) Verify(records []models.Record, schema models.TargetSchema) *models.VerificationResult {
	result := &models.VerificationResult{
		TotalRecords: len(records),
		FieldIssues:  make(map[string][]string),
	}

	if len(records) == 0 {
		result.Recommendations = append(result.Recommendations,
			"no records extracted; re-analyze the page or try an alternate entry point")
		return result
	}

	var completenessSum float64
	var qualitySum float64
	qualityCount := 0
	placeholderCounts := make(map[string]int)
	missingCritical := make(map[string]bool)

	for i, rec := range records {
		filled := 0
		valid := true
		recQualitySum := 0.0
		recQualityCount := 0

		for _, field := range schema.Fields {
			value := rec.Get(field)
			if value == "" {
				if schema.IsCritical(field) {
					valid = false
					missingCritical[field] = true
				}
				continue
			}

			recQualitySum += fieldQuality(field, value)
			recQualityCount++

			// A placeholder fills nothing: it counts as absent toward
			// completeness and invalidates a critical field.
			if placeholderPattern.MatchString(value) {
				placeholderCounts[field]++
				if schema.IsCritical(field) {
					valid = false
					missingCritical[field] = true
				}
				continue
			}
			filled++
		}

		if len(schema.Fields) > 0 {
			completenessSum += float64(filled) / float64(len(schema.Fields))
		}
		if valid {
			result.ValidRecords++
			// Quality is judged on records worth keeping; invalid ones
			// are already counted against the valid ratio.
			qualitySum += recQualitySum
			qualityCount += recQualityCount
		} else {
			result.InvalidIndices = append(result.InvalidIndices, i)
		}
	}

	result.Completeness = completenessSum / float64(len(records))
	if qualityCount > 0 {
		result.Quality = qualitySum / float64(qualityCount)
	}

	for _, field := range schema.Critical {
		if missingCritical[field] {
			result.MissingCritical = append(result.MissingCritical, field)
		}
	}
	for field, count := range placeholderCounts {
		result.FieldIssues[field] = append(result.FieldIssues[field],
			fmt.Sprintf("placeholder value in %d records", count))
	}

	validRatio := float64(result.ValidRecords) / float64(result.TotalRecords)
	result.Valid = validRatio > minValidRatio &&
		result.Completeness > minCompleteness &&
		result.Quality > minQuality

	s.recommend(result, validRatio)

	s.logger.Info().
		Int("records", result.TotalRecords).
		Int("valid", result.ValidRecords).
		Float64("completeness", result.Completeness).
		Float64("quality", result.Quality).
		Bool("accepted", result.Valid).
		Msg("Verification complete")

	return result
}

// recommend explains what to fix when the batch fails.
func (s *Service) recommend(result *models.VerificationResult, validRatio float64) {
	if result.Valid {
		return
	}
	if len(result.MissingCritical) > 0 {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("critical fields missing from part of the batch: %s; field mappings likely miss the source labels",
				strings.Join(result.MissingCritical, ", ")))
	}
	if validRatio <= minValidRatio {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("only %d of %d records carry all critical fields", result.ValidRecords, result.TotalRecords))
	}
	if result.Completeness <= minCompleteness {
		result.Recommendations = append(result.Recommendations,
			"records are sparse; consider a container with richer items or label/value extraction")
	}
	if result.Quality <= minQuality {
		result.Recommendations = append(result.Recommendations,
			"extracted values look like placeholders or truncated text; selectors may hit the wrong elements")
	}
}

// fieldQuality scores one non-empty value.
func fieldQuality(field, value string) float64 {
	if placeholderPattern.MatchString(value) {
		return qualityPlaceholder
	}
	if truncatedPattern.MatchString(value) {
		return qualityTruncated
	}
	if len(value) < 3 {
		return qualityTooShort
	}
	if strings.Contains(strings.ToLower(field), "date") {
		if parseableDate(value) {
			return qualityGoodDate
		}
		return qualityBadDate
	}
	return qualityDefault
}

// parseableDate accepts the known archive date layouts plus bare
// ISO-style numeric dates.
func parseableDate(value string) bool {
	value = strings.TrimSpace(value)
	if numericDatePattern.MatchString(value) {
		return true
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}
