package planner

import (
	"strings"

	"github.com/ternarybob/arca/internal/models"
)

// acceptThreshold is the minimum match score for a label mapping to be
// included in a strategy.
const acceptThreshold = 0.5

// fieldAliases maps normalized source labels seen in real archives to
// the schema field they actually mean. These override the generic
// matching layers below.
var fieldAliases = map[string]struct {
	field string
	score float64
}{
	"location":         {"orig. location", 0.9},
	"archive id":       {"inventory #", 0.9},
	"date taken":       {"date photograph taken", 0.9},
	"artist/architect": {"artist", 0.8},
}

// fieldSynonyms lists source vocabulary commonly used for each schema
// field across archive sites.
var fieldSynonyms = map[string][]string{
	"title":                 {"title", "name", "object title", "caption", "heading"},
	"artist":                {"artist", "creator", "author", "maker", "photographer", "by"},
	"photographer":          {"photographer", "photo by", "photograph by", "credit", "taken by"},
	"date photograph taken": {"date", "date taken", "photo date", "date of photograph", "year"},
	"collection":            {"collection", "archive", "repository", "fonds", "holding institution"},
	"inventory #":           {"inventory", "inventory number", "inventory no", "accession", "accession number", "identifier", "catalogue number", "call number"},
	"medium":                {"medium", "material", "materials", "support"},
	"technique":             {"technique", "method", "process"},
	"measurements":          {"measurements", "dimensions", "size", "extent"},
	"orig. location":        {"location", "place", "origin", "provenance", "site", "findspot"},
	"notes":                 {"notes", "description", "comments", "remarks", "summary"},
	"typ":                   {"type", "object type", "category", "format", "resource type"},
	"copyright for photo":   {"copyright", "rights", "license"},
	"published in":          {"published in", "publication", "bibliography", "references"},
}

// keyTerms boost the fuzzy-similarity layer when both names share one;
// these words are essentially never used for anything but their field.
var keyTerms = []string{"artist", "collection", "inventory", "technique", "measurements"}

// MatchField scores how well an observed source label matches a schema
// field name. Scores above acceptThreshold are considered a match.
//
// Layers, strongest first: exact normalized equality, the curated
// alias table, a veto for date labels against non-date fields,
// substring containment, the per-field synonym vocabulary, and a fuzzy
// similarity fallback.
func MatchField(schemaField, sourceLabel string) float64 {
	field := models.NormalizeLabel(schemaField)
	label := models.NormalizeLabel(sourceLabel)
	if field == "" || label == "" {
		return 0
	}

	if field == label {
		return 1.0
	}

	if alias, ok := fieldAliases[label]; ok && alias.field == field {
		return alias.score
	}

	// A dated source label must never land in a non-date field; "Date:"
	// mapped into Title poisons every record.
	if strings.Contains(label, "date") && !strings.Contains(field, "date") {
		return 0
	}

	if len(field) > 3 && len(label) > 3 &&
		(strings.Contains(field, label) || strings.Contains(label, field)) {
		return 0.6
	}

	for _, syn := range fieldSynonyms[field] {
		if label == syn {
			return 0.7
		}
	}

	score := similarity(field, label)
	if sharesKeyTerm(field, label) {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}
	return score
}

// BestLabelMatch returns the observed label that best matches the
// schema field, with its score. Returns ("", 0) when no label clears
// the accept threshold.
func BestLabelMatch(schemaField string, labels []string) (string, float64) {
	bestLabel := ""
	bestScore := 0.0
	for _, label := range labels {
		if score := MatchField(schemaField, label); score > bestScore {
			bestLabel = label
			bestScore = score
		}
	}
	if bestScore <= acceptThreshold {
		return "", 0
	}
	return bestLabel, bestScore
}

func sharesKeyTerm(a, b string) bool {
	for _, term := range keyTerms {
		if strings.Contains(a, term) && strings.Contains(b, term) {
			return true
		}
	}
	return false
}

// similarity is a longest-common-subsequence ratio in [0,1]:
// 2*lcs/(len(a)+len(b)).
func similarity(a, b string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	lcs := lcsLength(a, b)
	return 2.0 * float64(lcs) / float64(len(a)+len(b))
}

func lcsLength(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
