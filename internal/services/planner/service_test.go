package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/arca/internal/models"
)

func analysisWith(container models.DataContainer, nav *models.NavigationPattern) *models.AnalysisResult {
	return &models.AnalysisResult{
		URL:               "https://archive.example/search",
		PageType:          models.PageTypeListing,
		Containers:        []models.DataContainer{container},
		Navigation:        nav,
		OverallConfidence: 0.8,
	}
}

func TestPlanNoContainer(t *testing.T) {
	analysis := &models.AnalysisResult{URL: "https://archive.example/"}
	schema := models.DefaultArchiveSchema()

	// Planning is total: no container yields an empty strategy with
	// every field unmapped, never an error.
	strategy, err := New(0).Plan(analysis, schema)
	require.NoError(t, err)
	require.NotNil(t, strategy)

	assert.Empty(t, strategy.ContainerSelector)
	assert.Empty(t, strategy.ItemSelector)
	assert.Empty(t, strategy.FieldMappings)
	assert.Equal(t, schema.Fields, strategy.UnmappedFields)
	assert.Equal(t, models.NavMethodNone, strategy.Navigation.Method)
	assert.Zero(t, strategy.Confidence)
}

func TestPlanLabelValueMappings(t *testing.T) {
	container := models.DataContainer{
		Selector:     ".results",
		ItemSelector: ".item",
		ItemCount:    10,
		LabelValue:   true,
		SampleLabels: []string{"title", "photographer", "inventory number", "share"},
		Confidence:   0.8,
	}
	schema := models.TargetSchema{
		Name:   "test",
		Fields: []string{models.FieldTitle, models.FieldArtist, models.FieldInventoryNum, models.FieldTechnique},
	}

	strategy, err := New(0).Plan(analysisWith(container, nil), schema)
	require.NoError(t, err)

	assert.Equal(t, ".results", strategy.ContainerSelector)
	assert.Equal(t, ".item", strategy.ItemSelector)
	assert.True(t, strategy.LabelValue)

	// Technique has no acceptable source label and must stay unmapped
	// rather than being guessed into the wrong place.
	require.Len(t, strategy.FieldMappings, 3)
	byField := make(map[string]models.FieldMapping)
	for _, m := range strategy.FieldMappings {
		assert.Equal(t, models.MappingLabelValue, m.Kind)
		byField[m.Field] = m
	}
	assert.Equal(t, "title", byField[models.FieldTitle].Label)
	assert.Equal(t, "photographer", byField[models.FieldArtist].Label)
	assert.Equal(t, "inventory number", byField[models.FieldInventoryNum].Label)
	assert.NotContains(t, byField, models.FieldTechnique)
	assert.Equal(t, []string{models.FieldTechnique}, strategy.UnmappedFields)
}

func TestPlanFixedMappings(t *testing.T) {
	container := models.DataContainer{
		Selector:     ".grid",
		ItemSelector: ".card",
		ItemCount:    20,
		FieldCount:   2,
		FieldSelectors: map[string]string{
			"title": "h3.obj-title",
			"date":  ".obj-date",
		},
		Confidence: 0.8,
	}
	schema := models.TargetSchema{
		Name:   "test",
		Fields: []string{models.FieldTitle, models.FieldDatePhoto, "No Guess For This"},
	}

	strategy, err := New(0).Plan(analysisWith(container, nil), schema)
	require.NoError(t, err)

	assert.False(t, strategy.LabelValue)
	require.Len(t, strategy.FieldMappings, 2)
	byField := make(map[string]models.FieldMapping)
	for _, m := range strategy.FieldMappings {
		assert.Equal(t, models.MappingFixed, m.Kind)
		byField[m.Field] = m
	}

	// Mappings only ever reference selectors detected in the container.
	assert.Equal(t, "h3.obj-title", byField[models.FieldTitle].Selector)
	assert.Equal(t, ".obj-date", byField[models.FieldDatePhoto].Selector)
	assert.Equal(t, []string{"No Guess For This"}, strategy.UnmappedFields)
}

func TestPlanFixedMappingsWithoutDetectedFields(t *testing.T) {
	container := models.DataContainer{
		Selector:     ".grid",
		ItemSelector: ".card",
		ItemCount:    20,
		Confidence:   0.8,
	}
	schema := models.TargetSchema{
		Name:   "test",
		Fields: []string{models.FieldTitle, models.FieldDatePhoto},
	}

	strategy, err := New(0).Plan(analysisWith(container, nil), schema)
	require.NoError(t, err)

	assert.Empty(t, strategy.FieldMappings)
	assert.Equal(t, schema.Fields, strategy.UnmappedFields)
	assert.Equal(t, ".grid", strategy.ContainerSelector)
}

func TestPlanNavigation(t *testing.T) {
	container := models.DataContainer{Selector: ".results", ItemSelector: ".item", ItemCount: 5, Confidence: 0.7}

	tests := []struct {
		name       string
		nav        *models.NavigationPattern
		wantMethod models.NavigationMethod
		wantParam  string
		wantSel    string
	}{
		{
			name:       "none",
			nav:        nil,
			wantMethod: models.NavMethodNone,
		},
		{
			name:       "pagination with url parameter",
			nav:        &models.NavigationPattern{Type: models.NavigationPagination, URLParameter: "page", NextSelector: ".pagination a.next"},
			wantMethod: models.NavMethodPagination,
			wantParam:  "page",
		},
		{
			name:       "pagination without parameter degrades to clicking",
			nav:        &models.NavigationPattern{Type: models.NavigationPagination, NextSelector: ".pagination a.next"},
			wantMethod: models.NavMethodClickNext,
			wantSel:    ".pagination a.next",
		},
		{
			name:       "next link",
			nav:        &models.NavigationPattern{Type: models.NavigationNextLink, NextSelector: "a.next"},
			wantMethod: models.NavMethodClickNext,
			wantSel:    "a.next",
		},
		{
			name:       "infinite scroll",
			nav:        &models.NavigationPattern{Type: models.NavigationInfiniteScroll},
			wantMethod: models.NavMethodScroll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy, err := New(25).Plan(analysisWith(container, tt.nav), models.DefaultArchiveSchema())
			require.NoError(t, err)

			assert.Equal(t, tt.wantMethod, strategy.Navigation.Method)
			assert.Equal(t, tt.wantParam, strategy.Navigation.URLParameter)
			assert.Equal(t, tt.wantSel, strategy.Navigation.Selector)
			assert.Equal(t, 25, strategy.Navigation.MaxPages)
			assert.Positive(t, strategy.Navigation.WaitAfterClick)
			assert.Positive(t, strategy.Navigation.ScrollPause)
		})
	}
}

func TestPlanNavigationClampsToDetectedTotal(t *testing.T) {
	container := models.DataContainer{Selector: ".results", ItemSelector: ".item", ItemCount: 5, Confidence: 0.7}

	nav := &models.NavigationPattern{Type: models.NavigationPagination, URLParameter: "page", TotalPages: 3}
	strategy, err := New(25).Plan(analysisWith(container, nav), models.DefaultArchiveSchema())
	require.NoError(t, err)
	assert.Equal(t, 3, strategy.Navigation.MaxPages)

	// A detected total beyond the budget never raises it.
	nav.TotalPages = 400
	strategy, err = New(25).Plan(analysisWith(container, nav), models.DefaultArchiveSchema())
	require.NoError(t, err)
	assert.Equal(t, 25, strategy.Navigation.MaxPages)
}

func TestPlanDefaultMaxPages(t *testing.T) {
	container := models.DataContainer{Selector: ".results", ItemSelector: ".item", ItemCount: 5, Confidence: 0.7}
	strategy, err := New(0).Plan(analysisWith(container, nil), models.DefaultArchiveSchema())
	require.NoError(t, err)
	assert.Equal(t, defaultMaxPages, strategy.Navigation.MaxPages)
}

func TestStrategyConfidence(t *testing.T) {
	mappings := []models.FieldMapping{
		{Confidence: 1.0},
		{Confidence: 0.6},
	}
	assert.InDelta(t, (0.8+0.8)/2, strategyConfidence(0.8, mappings), 1e-9)
	// No mappings: analysis confidence passes through.
	assert.Equal(t, 0.5, strategyConfidence(0.5, nil))
}
