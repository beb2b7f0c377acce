package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/arca/internal/common"
	"github.com/ternarybob/arca/internal/models"
)

// typeInitials map the record type to its unique-ID prefix. Both the
// long form and the abbreviation are accepted.
var typeInitials = map[string]string{
	"Modern Photo":     "MP",
	"MP":               "MP",
	"Historical Image": "HI",
	"HI":               "HI",
	"Postcard":         "PC",
	"PC":               "PC",
	"Screenshot":       "SS",
	"SS":               "SS",
	"Scan":             "SC",
	"SC":               "SC",
	"Painting":         "PT",
	"PT":               "PT",
	"Illustration":     "IT",
	"IT":               "IT",
}

// collectionInitials are institutions whose customary abbreviation is
// not derivable from their name.
var collectionInitials = map[string]string{
	"Library of Congress":        "LOC",
	"MIT Libraries":              "MIT",
	"Harvard Art Museums":        "HAM",
	"Metropolitan Museum of Art": "MET",
	"Victoria and Albert Museum": "VAM",
	"ARCHNET":                    "ARCHNET",
	"ArchNet":                    "ARCHNET",
	"Archnet":                    "ARCHNET",
}

// Service writes extracted records to CSV or JSON, generating the
// Unique ID column on the way out.
type Service struct {
	logger arbor.ILogger
}

// New creates an exporter service.
func New() *Service {
	return &Service{logger: common.GetLogger()}
}

// Save writes records in the given format ("csv" or "json").
func (s *Service) Save(records []models.Record, schema models.TargetSchema, path, format string) error {
	switch strings.ToLower(format) {
	case "", "csv":
		return s.SaveCSV(records, schema, path)
	case "json":
		return s.SaveJSON(records, schema, path)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// SaveCSV writes records in the schema's column order.
func (s *Service) SaveCSV(records []models.Record, schema models.TargetSchema, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(schema.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range records {
		row := make([]string, len(schema.Columns))
		for i, col := range schema.Columns {
			if col == models.ColumnUniqueID {
				row[i] = UniqueID(rec)
			} else {
				row[i] = rec.Get(col)
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	s.logger.Info().
		Int("records", len(records)).
		Str("path", path).
		Msg("Records saved to CSV")
	return nil
}

// SaveJSON writes records as a JSON array of column-keyed objects,
// the fallback format when CSV post-processing is not wanted.
func (s *Service) SaveJSON(records []models.Record, schema models.TargetSchema, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	out := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		obj := make(map[string]string, len(schema.Columns))
		for _, col := range schema.Columns {
			if col == models.ColumnUniqueID {
				obj[col] = UniqueID(rec)
			} else {
				obj[col] = rec.Get(col)
			}
		}
		out = append(out, obj)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	s.logger.Info().
		Int("records", len(records)).
		Str("path", path).
		Msg("Records saved to JSON")
	return nil
}

// UniqueID builds the record identifier
// <type-initial>_<collection-initial>_<inventory-number>. Scraped
// images are treated as photographer-unknown, so the photographer
// never enters the ID.
func UniqueID(rec models.Record) string {
	return fmt.Sprintf("%s_%s_%s",
		typeInitial(rec.Get(models.FieldTyp)),
		collectionInitial(rec.Get(models.FieldCollection)),
		inventoryNumber(rec.Get(models.FieldInventoryNum)))
}

func typeInitial(typ string) string {
	if initial, ok := typeInitials[typ]; ok {
		return initial
	}
	return "XX"
}

// collectionInitial abbreviates a collection name: known institutions
// use their customary abbreviation, all-caps names pass through, and
// everything else becomes the initials of its significant words.
func collectionInitial(collection string) string {
	if collection == "" {
		return "UNKNOWN"
	}
	if initial, ok := collectionInitials[collection]; ok {
		return initial
	}
	if collection == strings.ToUpper(collection) && strings.ContainsAny(collection, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return collection
	}

	var b strings.Builder
	for _, word := range strings.Fields(collection) {
		if len(word) > 2 {
			b.WriteString(strings.ToUpper(word[:1]))
		}
	}
	if b.Len() == 0 {
		upper := strings.ToUpper(collection)
		if len(upper) > 10 {
			upper = upper[:10]
		}
		return upper
	}
	return b.String()
}

func inventoryNumber(inv string) string {
	if inv == "" {
		return "UNKNOWN"
	}
	return inv
}
