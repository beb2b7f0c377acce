package verifier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/arca/internal/models"
)

func testSchema() models.TargetSchema {
	return models.TargetSchema{
		Name:     "test",
		Fields:   []string{models.FieldTitle, models.FieldCollection, models.FieldInventoryNum, models.FieldNotes, models.FieldMedium},
		Critical: []string{models.FieldTitle, models.FieldCollection, models.FieldInventoryNum},
	}
}

func fullRecord(i int) models.Record {
	rec := models.NewRecord("https://archive.example/search", 1)
	rec.Set(models.FieldTitle, fmt.Sprintf("Great Mosque %d", i))
	rec.Set(models.FieldCollection, "SALT Research")
	rec.Set(models.FieldInventoryNum, fmt.Sprintf("INV-%04d", i))
	rec.Set(models.FieldNotes, "View from the courtyard")
	rec.Set(models.FieldMedium, "Gelatin silver print")
	return rec
}

func TestVerifyAcceptsCleanBatch(t *testing.T) {
	var records []models.Record
	for i := 0; i < 10; i++ {
		records = append(records, fullRecord(i))
	}

	result := New().Verify(records, testSchema())

	assert.True(t, result.Valid)
	assert.Equal(t, 10, result.TotalRecords)
	assert.Equal(t, 10, result.ValidRecords)
	assert.InDelta(t, 1.0, result.Completeness, 1e-9)
	assert.Greater(t, result.Quality, 0.8)
	assert.Empty(t, result.InvalidIndices)
	assert.Empty(t, result.MissingCritical)
	assert.Empty(t, result.Recommendations)
}

func TestVerifyEmptyBatch(t *testing.T) {
	result := New().Verify(nil, testSchema())

	assert.False(t, result.Valid)
	assert.Equal(t, 0, result.TotalRecords)
	require.Len(t, result.Recommendations, 1)
	assert.Contains(t, result.Recommendations[0], "no records extracted")
}

func TestVerifyMissingCriticalField(t *testing.T) {
	var records []models.Record
	for i := 0; i < 5; i++ {
		rec := fullRecord(i)
		delete(rec.Fields, models.FieldInventoryNum)
		records = append(records, rec)
	}

	result := New().Verify(records, testSchema())

	assert.False(t, result.Valid)
	assert.Equal(t, 0, result.ValidRecords)
	assert.Equal(t, []string{models.FieldInventoryNum}, result.MissingCritical)
	assert.Len(t, result.InvalidIndices, 5)
	assert.NotEmpty(t, result.Recommendations)
}

func TestVerifyInvalidIndices(t *testing.T) {
	records := []models.Record{fullRecord(0), fullRecord(1), fullRecord(2)}
	delete(records[1].Fields, models.FieldTitle)

	result := New().Verify(records, testSchema())

	assert.Equal(t, 2, result.ValidRecords)
	assert.Equal(t, []int{1}, result.InvalidIndices)
	// A critical field missing from even one record must be reported;
	// its presence elsewhere in the batch does not excuse the gap.
	assert.Equal(t, []string{models.FieldTitle}, result.MissingCritical)
}

func TestVerifyPlaceholderCritical(t *testing.T) {
	// Placeholders in a critical field invalidate the record and are
	// reported per field.
	var records []models.Record
	for i := 0; i < 4; i++ {
		rec := fullRecord(i)
		rec.Set(models.FieldTitle, "N/A")
		records = append(records, rec)
	}

	result := New().Verify(records, testSchema())

	assert.False(t, result.Valid)
	assert.Equal(t, 0, result.ValidRecords)
	assert.Contains(t, result.MissingCritical, models.FieldTitle)
	require.Contains(t, result.FieldIssues, models.FieldTitle)
	assert.Contains(t, result.FieldIssues[models.FieldTitle][0], "placeholder value in 4 records")
}

func TestVerifyCompletenessTreatsPlaceholdersAsAbsent(t *testing.T) {
	// Two of five fields hold placeholder text: completeness is 3/5,
	// not 1.0, and the strict > 0.6 threshold fails.
	var records []models.Record
	for i := 0; i < 5; i++ {
		rec := fullRecord(i)
		rec.Set(models.FieldNotes, "N/A")
		rec.Set(models.FieldMedium, "Unknown")
		records = append(records, rec)
	}

	result := New().Verify(records, testSchema())

	assert.Equal(t, 5, result.ValidRecords)
	assert.InDelta(t, 0.6, result.Completeness, 1e-9)
	assert.False(t, result.Valid)
}

func TestVerifyQualityScoresValidRecordsOnly(t *testing.T) {
	records := []models.Record{fullRecord(0), fullRecord(1), fullRecord(2), fullRecord(3)}

	broken := fullRecord(4)
	delete(broken.Fields, models.FieldTitle)
	broken.Set(models.FieldNotes, "ab")
	records = append(records, broken)

	result := New().Verify(records, testSchema())

	assert.Equal(t, 4, result.ValidRecords)
	// The invalid record's junk values do not drag quality down; it is
	// already counted against the valid ratio.
	assert.InDelta(t, qualityDefault, result.Quality, 1e-9)
}

func TestVerifyValidRatioBoundary(t *testing.T) {
	// Exactly 80% valid does not clear the strict > threshold.
	var records []models.Record
	for i := 0; i < 10; i++ {
		rec := fullRecord(i)
		if i >= 8 {
			delete(rec.Fields, models.FieldCollection)
		}
		records = append(records, rec)
	}

	result := New().Verify(records, testSchema())

	assert.Equal(t, 8, result.ValidRecords)
	assert.False(t, result.Valid)
}

func TestVerifySparseRecords(t *testing.T) {
	// Critical fields present but everything else empty: completeness
	// 3/5 fails the conjunction even though every record is valid.
	var records []models.Record
	for i := 0; i < 5; i++ {
		rec := models.NewRecord("https://archive.example/search", 1)
		rec.Set(models.FieldTitle, fmt.Sprintf("Record %d", i))
		rec.Set(models.FieldCollection, "SALT Research")
		rec.Set(models.FieldInventoryNum, fmt.Sprintf("INV-%d", i))
		records = append(records, rec)
	}

	result := New().Verify(records, testSchema())

	assert.Equal(t, 5, result.ValidRecords)
	assert.InDelta(t, 0.6, result.Completeness, 1e-9)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Recommendations)
}

func TestFieldQuality(t *testing.T) {
	tests := []struct {
		field string
		value string
		want  float64
	}{
		{models.FieldTitle, "N/A", qualityPlaceholder},
		{models.FieldTitle, "---", qualityPlaceholder},
		{models.FieldNotes, "A long description that was cut off mid...", qualityTruncated},
		{models.FieldTitle, "ab", qualityTooShort},
		{models.FieldDatePhoto, "1923", qualityGoodDate},
		{models.FieldDatePhoto, "January 2, 1923", qualityGoodDate},
		{models.FieldDatePhoto, "sometime long ago", qualityBadDate},
		{models.FieldTitle, "Great Mosque of Damascus", qualityDefault},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, fieldQuality(tt.field, tt.value), "%s=%q", tt.field, tt.value)
	}
}

func TestParseableDate(t *testing.T) {
	valid := []string{"1923", "1923-05", "1923-05-14", "1923/05/14", "14/05/1923", "January 2, 1923", "2 January 1923"}
	for _, v := range valid {
		assert.True(t, parseableDate(v), v)
	}

	invalid := []string{"circa old", "May sometime", ""}
	for _, v := range invalid {
		assert.False(t, parseableDate(v), v)
	}
}
