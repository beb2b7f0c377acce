package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordSetDropsEmpty(t *testing.T) {
	rec := NewRecord("https://archive.example/", 1)
	rec.Set(FieldTitle, "")
	assert.True(t, rec.IsEmpty())

	rec.Set(FieldTitle, "Great Mosque")
	assert.False(t, rec.IsEmpty())
	assert.Equal(t, "Great Mosque", rec.Get(FieldTitle))
	assert.Empty(t, rec.Get(FieldCollection))
}

func TestFingerprintIgnoresProvenance(t *testing.T) {
	a := NewRecord("https://archive.example/search?page=1", 1)
	a.Set(FieldTitle, "Great Mosque")
	a.Set(FieldInventoryNum, "INV-1")

	b := NewRecord("https://archive.example/search?page=2", 2)
	b.Set(FieldInventoryNum, "INV-1")
	b.Set(FieldTitle, "Great Mosque")

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Set(FieldInventoryNum, "INV-2")
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintDistinguishesFieldBoundaries(t *testing.T) {
	a := NewRecord("", 1)
	a.Set(FieldTitle, "ab")
	a.Set(FieldNotes, "c")

	b := NewRecord("", 1)
	b.Set(FieldTitle, "a")
	b.Set(FieldNotes, "bc")

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestDefaultArchiveSchema(t *testing.T) {
	schema := DefaultArchiveSchema()

	assert.Equal(t, ColumnUniqueID, schema.Columns[0])
	assert.Len(t, schema.Columns, len(schema.Fields)+1)
	assert.NotContains(t, schema.Fields, ColumnUniqueID)

	assert.True(t, schema.IsCritical(FieldTitle))
	assert.True(t, schema.IsCritical(FieldCollection))
	assert.True(t, schema.IsCritical(FieldInventoryNum))
	assert.False(t, schema.IsCritical(FieldNotes))
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Title:", "title"},
		{"  Inventory #  ", "inventory #"},
		{"Orig. Location", "orig. location"},
		{"Date_Photograph-Taken", "date photograph taken"},
		{"Collection   Name", "collection name"},
		{"Größe (cm)", "gre cm"},
		{"", ""},
		{":", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeLabel(tt.in), "%q", tt.in)
	}
}
