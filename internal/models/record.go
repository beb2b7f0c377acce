package models

import (
	"sort"
	"strings"
)

// Record is a single extracted archive record. Keys are schema field
// names; values are the raw extracted strings (empty string means the
// field was not found on the page).
type Record struct {
	Fields    map[string]string `json:"fields"`
	SourceURL string            `json:"source_url,omitempty"`
	Page      int               `json:"page,omitempty"`
}

// NewRecord creates an empty record for the given source URL and page.
func NewRecord(sourceURL string, page int) Record {
	return Record{
		Fields:    make(map[string]string),
		SourceURL: sourceURL,
		Page:      page,
	}
}

// Get returns the value for a field, or "" when absent.
func (r Record) Get(field string) string {
	return r.Fields[field]
}

// Set stores a field value, dropping empty values.
func (r Record) Set(field, value string) {
	if value == "" {
		return
	}
	r.Fields[field] = value
}

// IsEmpty reports whether the record carries no field values at all.
func (r Record) IsEmpty() bool {
	for _, v := range r.Fields {
		if v != "" {
			return false
		}
	}
	return true
}

// Fingerprint builds a stable dedup key from a record's field values.
// Page and URL are excluded so the same record reached twice (scroll
// re-extraction, overlapping pages) collapses to one.
func (r Record) Fingerprint() string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.Fields[k])
		b.WriteByte('\x1f')
	}
	return b.String()
}

// TargetSchema describes the output schema records are mapped onto.
// Columns is the full CSV column order (including generated columns),
// Fields is the subset the planner maps source labels onto, and
// Critical lists the fields verification treats as required.
type TargetSchema struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	Fields   []string `json:"fields"`
	Critical []string `json:"critical"`
}

// IsCritical reports whether the named field is required for a record
// to count as valid.
func (s TargetSchema) IsCritical(field string) bool {
	for _, c := range s.Critical {
		if c == field {
			return true
		}
	}
	return false
}

// Schema field and column names for the historical-archive dataset.
const (
	ColumnUniqueID = "Unique ID"

	FieldTyp           = "Typ"
	FieldTitle         = "Title"
	FieldCEStartDate   = "CE Start Date"
	FieldCEEndDate     = "CE End Date"
	FieldAHStartDate   = "AH Start Date"
	FieldAHEndDate     = "AH End Date"
	FieldDatePhoto     = "Date photograph taken"
	FieldDateQualif    = "Date Qualif."
	FieldMedium        = "Medium"
	FieldTechnique     = "Technique"
	FieldMeasurements  = "Measurements"
	FieldArtist        = "Artist"
	FieldOrigLocation  = "Orig. Location"
	FieldCollection    = "Collection"
	FieldInventoryNum  = "Inventory #"
	FieldFolder        = "Folder"
	FieldPhotographer  = "Photographer"
	FieldCopyright     = "Copyright for Photo"
	FieldImageQuality  = "Image Quality"
	FieldImageRights   = "Image Rights"
	FieldPublishedIn   = "Published in"
	FieldNotes         = "Notes"
)

// DefaultArchiveSchema returns the historical-archive record schema.
// "Unique ID" is generated at export time and is never mapped from
// source markup.
func DefaultArchiveSchema() TargetSchema {
	fields := []string{
		FieldTyp, FieldTitle,
		FieldCEStartDate, FieldCEEndDate, FieldAHStartDate, FieldAHEndDate,
		FieldDatePhoto, FieldDateQualif,
		FieldMedium, FieldTechnique, FieldMeasurements,
		FieldArtist, FieldOrigLocation, FieldCollection, FieldInventoryNum,
		FieldFolder, FieldPhotographer, FieldCopyright,
		FieldImageQuality, FieldImageRights, FieldPublishedIn, FieldNotes,
	}
	columns := append([]string{ColumnUniqueID}, fields...)
	return TargetSchema{
		Name:     "historical-archive",
		Columns:  columns,
		Fields:   fields,
		Critical: []string{FieldTitle, FieldCollection, FieldInventoryNum},
	}
}
