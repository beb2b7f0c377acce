package interfaces

import (
	"context"

	"github.com/ternarybob/arca/internal/models"
)

// StrategyProvider supplies a scraping strategy for an analyzed page.
// The orchestrator uses the built-in planner by default; callers can
// inject a provider to override planning for specific archives (for
// example a hand-tuned strategy or an external reasoning service).
type StrategyProvider interface {
	Provide(ctx context.Context, analysis *models.AnalysisResult, schema models.TargetSchema) (*models.ScrapingStrategy, error)
}

// StrategyProviderFunc adapts a function to the StrategyProvider
// interface.
type StrategyProviderFunc func(ctx context.Context, analysis *models.AnalysisResult, schema models.TargetSchema) (*models.ScrapingStrategy, error)

func (f StrategyProviderFunc) Provide(ctx context.Context, analysis *models.AnalysisResult, schema models.TargetSchema) (*models.ScrapingStrategy, error) {
	return f(ctx, analysis, schema)
}
