package orchestrator

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/arca/internal/browser"
	"github.com/ternarybob/arca/internal/common"
	"github.com/ternarybob/arca/internal/interfaces"
	"github.com/ternarybob/arca/internal/models"
	"github.com/ternarybob/arca/internal/services/detector"
	"github.com/ternarybob/arca/internal/services/executor"
	"github.com/ternarybob/arca/internal/services/exporter"
	"github.com/ternarybob/arca/internal/services/planner"
	"github.com/ternarybob/arca/internal/services/registry"
	"github.com/ternarybob/arca/internal/services/snapshot"
	"github.com/ternarybob/arca/internal/services/verifier"
)

// collectionLinkTexts are link labels that usually lead from a landing
// page into the browsable archive. Tried when analysis confidence on
// the entry page is too low to plan against.
var collectionLinkTexts = []string{
	"Collections", "Browse", "Search", "Archive", "Gallery",
	"Photographs", "Images", "Media", "Database", "Catalog",
}

// Config controls the extraction loop.
type Config struct {
	MaxPages              int           // Result pages per execution pass
	MaxResults            int           // Record cap (0 = unlimited)
	MaxCorrectionAttempts int           // Re-analysis passes after a failed verification
	MinConfidence         float64       // Below this, try an alternate entry link
	CorrectionPause       time.Duration // Pause between attempts
	SaveIntermediate      bool          // Persist accumulated records each iteration
	IntermediateFile      string        // CSV path for intermediate saves
}

// Result is what a run produces, valid or not. Partial results always
// come back; hours of extraction are never discarded over a failed
// verification.
type Result struct {
	RunID        string
	Records      []models.Record
	Verification *models.VerificationResult
	Strategy     *models.ScrapingStrategy
	Attempts     int
	FinalURL     string
}

// Service drives the cognitive loop: analyze the page, plan a
// strategy, execute it, verify the take, and retry with accumulated
// context while the attempt budget lasts.
type Service struct {
	cfg      Config
	detector *detector.Service
	planner  *planner.Service
	executor *executor.Service
	verifier *verifier.Service
	exporter *exporter.Service

	registry  *registry.Registry
	snapshots *snapshot.Store
	provider  interfaces.StrategyProvider
	limiter   *browser.DomainLimiter

	logger arbor.ILogger
}

// Option wires optional collaborators into the orchestrator.
type Option func(*Service)

// WithRegistry enables per-domain archive patterns.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithSnapshots persists per-iteration diagnostics.
func WithSnapshots(store *snapshot.Store) Option {
	return func(s *Service) { s.snapshots = store }
}

// WithProvider overrides the built-in planner.
func WithProvider(p interfaces.StrategyProvider) Option {
	return func(s *Service) { s.provider = p }
}

// WithLimiter applies per-domain request pacing.
func WithLimiter(l *browser.DomainLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// New creates an orchestrator around a detector/executor pair.
func New(cfg Config, det *detector.Service, exec *executor.Service, opts ...Option) *Service {
	if cfg.MaxCorrectionAttempts < 0 {
		cfg.MaxCorrectionAttempts = 0
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.3
	}
	if cfg.CorrectionPause <= 0 {
		cfg.CorrectionPause = 2 * time.Second
	}

	s := &Service{
		cfg:      cfg,
		detector: det,
		planner:  planner.New(cfg.MaxPages),
		executor: exec,
		verifier: verifier.New(),
		exporter: exporter.New(),
		logger:   common.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run extracts records from targetURL into the schema. The returned
// error covers hard failures only (unreachable target, cancellation);
// a batch that fails verification is reported through the result.
func (s *Service) Run(ctx context.Context, page interfaces.Page, targetURL string, schema models.TargetSchema) (*Result, error) {
	runID := common.NewRunID()
	result := &Result{RunID: runID}

	s.logger.Info().
		Str("run_id", runID).
		Str("url", targetURL).
		Msg("Extraction run starting")

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, targetURL); err != nil {
			return result, err
		}
	}
	if err := page.Navigate(ctx, targetURL); err != nil {
		return result, err
	}

	var pattern *registry.ArchivePattern
	if s.registry != nil {
		pattern = s.registry.Lookup(targetURL)
	}
	if pattern != nil {
		s.logger.Info().Str("archive", pattern.Name).Msg("Known archive, applying registered pattern")
		if err := s.preNavigate(ctx, page, pattern); err != nil {
			return result, err
		}
	}

	hints := hintsFrom(pattern)
	seen := make(map[string]bool)
	triedAlternate := false
	maxAttempts := s.cfg.MaxCorrectionAttempts + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		analysis, err := s.detector.AnalyzeWithHints(ctx, page, hints)
		if err != nil {
			return result, err
		}

		if analysis.OverallConfidence < s.cfg.MinConfidence && !triedAlternate {
			triedAlternate = true
			if s.tryCollectionLink(ctx, page) {
				analysis, err = s.detector.AnalyzeWithHints(ctx, page, hints)
				if err != nil {
					return result, err
				}
			}
		}

		strategy, err := s.plan(ctx, analysis, schema)
		if err != nil {
			return result, err
		}
		s.applyPattern(strategy, pattern)
		result.Strategy = strategy

		// An empty plan with no fallbacks has nothing to execute
		// against; pause and re-analyze instead of walking pages.
		if strategy.ContainerSelector == "" && len(strategy.FallbackSelectors) == 0 {
			s.logger.Warn().
				Int("attempt", attempt).
				Int("unmapped_fields", len(strategy.UnmappedFields)).
				Msg("Nothing to extract on this page")
			if err := s.pause(ctx, attempt, maxAttempts); err != nil {
				return result, err
			}
			continue
		}

		records, err := s.executor.Execute(ctx, page, strategy, schema)
		if err != nil {
			return result, err
		}
		for _, rec := range records {
			key := rec.Fingerprint()
			if !seen[key] {
				seen[key] = true
				result.Records = append(result.Records, rec)
			}
		}

		result.Verification = s.verifier.Verify(result.Records, schema)
		result.FinalURL = page.URL()
		s.saveIntermediate(ctx, page, result, attempt, analysis.OverallConfidence, schema)

		if result.Verification.Valid {
			s.logger.Info().
				Str("run_id", runID).
				Int("records", len(result.Records)).
				Int("attempts", attempt).
				Msg("Extraction verified")
			return result, nil
		}

		s.logger.Warn().
			Int("attempt", attempt).
			Int("records", len(result.Records)).
			Float64("completeness", result.Verification.Completeness).
			Float64("quality", result.Verification.Quality).
			Msg("Verification failed")
		for _, rec := range result.Verification.Recommendations {
			s.logger.Info().Str("recommendation", rec).Msg("Verifier guidance")
		}

		if err := s.pause(ctx, attempt, maxAttempts); err != nil {
			return result, err
		}
	}

	s.logger.Warn().
		Str("run_id", runID).
		Int("records", len(result.Records)).
		Msg("Attempt budget exhausted, returning best effort")
	return result, nil
}

// plan produces the strategy, preferring an injected provider.
func (s *Service) plan(ctx context.Context, analysis *models.AnalysisResult, schema models.TargetSchema) (*models.ScrapingStrategy, error) {
	if s.provider != nil {
		strategy, err := s.provider.Provide(ctx, analysis, schema)
		if err == nil && strategy != nil {
			return strategy, nil
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("Strategy provider failed, falling back to planner")
		}
	}
	return s.planner.Plan(analysis, schema)
}

// applyPattern folds registry knowledge into a planned strategy.
func (s *Service) applyPattern(strategy *models.ScrapingStrategy, pattern *registry.ArchivePattern) {
	if pattern == nil {
		return
	}
	if strategy.WaitSelector == "" && len(pattern.WaitSelectors) > 0 {
		strategy.WaitSelector = pattern.WaitSelectors[0]
	}
	strategy.FallbackSelectors = append(strategy.FallbackSelectors, pattern.ItemHints...)
}

// preNavigate performs the registered steps required before data
// appears (country/city dropdowns, jumping to the real listing page).
func (s *Service) preNavigate(ctx context.Context, page interfaces.Page, pattern *registry.ArchivePattern) error {
	for _, step := range pattern.PreNavigation {
		var err error
		switch step.Action {
		case "select":
			err = page.SelectOption(ctx, step.Selector, step.Value)
		case "click":
			err = page.Click(ctx, step.Selector)
		case "wait":
			page.WaitVisible(ctx, step.Selector, 10*time.Second)
		case "navigate":
			target := step.Target
			if strings.HasPrefix(target, "/") {
				if resolved, rerr := resolveURL(page.URL(), target); rerr == nil {
					target = resolved
				}
			}
			err = page.Navigate(ctx, target)
		default:
			s.logger.Warn().Str("action", step.Action).Msg("Unknown pre-navigation action skipped")
			continue
		}
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("action", step.Action).
				Str("selector", step.Selector).
				Msg("Pre-navigation step failed, continuing")
			continue
		}
		if step.WaitAfter > 0 {
			timer := time.NewTimer(step.WaitAfter)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil
}

// tryCollectionLink follows the first link whose text looks like an
// entry into the browsable archive. One shot per run.
func (s *Service) tryCollectionLink(ctx context.Context, page interfaces.Page) bool {
	anchors, err := page.QueryAll(ctx, "a")
	if err != nil {
		return false
	}

	for _, want := range collectionLinkTexts {
		for _, a := range anchors {
			if !strings.EqualFold(strings.TrimSpace(a.Text()), want) {
				continue
			}
			href, ok := a.Attr("href")
			if !ok || href == "" || strings.HasPrefix(href, "#") {
				continue
			}
			target, err := resolveURL(page.URL(), href)
			if err != nil {
				continue
			}
			s.logger.Info().
				Str("link", want).
				Str("url", target).
				Msg("Low analysis confidence, following collection link")
			if err := page.Navigate(ctx, target); err != nil {
				s.logger.Warn().Err(err).Msg("Collection link navigation failed")
				return false
			}
			return true
		}
	}
	return false
}

// saveIntermediate persists the current take so a later failure loses
// nothing.
func (s *Service) saveIntermediate(ctx context.Context, page interfaces.Page, result *Result, attempt int, confidence float64, schema models.TargetSchema) {
	if !s.cfg.SaveIntermediate {
		return
	}

	if s.snapshots != nil {
		html, err := page.Content(ctx)
		if err != nil {
			html = ""
		}
		if err := s.snapshots.SaveIteration(result.RunID, attempt, page.URL(), html, result.Verification, confidence); err != nil {
			s.logger.Warn().Err(err).Msg("Snapshot save failed")
		}
	}

	if s.cfg.IntermediateFile != "" && len(result.Records) > 0 {
		if err := s.exporter.SaveCSV(result.Records, schema, s.cfg.IntermediateFile); err != nil {
			s.logger.Warn().Err(err).Msg("Intermediate CSV save failed")
		}
	}
}

// pause is the minimal self-correction step between attempts: log,
// breathe, re-analyze. Deeper diagnosis (DOM diffing, selector
// mutation) belongs to a strategy provider.
func (s *Service) pause(ctx context.Context, attempt, maxAttempts int) error {
	if attempt >= maxAttempts {
		return nil
	}
	timer := time.NewTimer(s.cfg.CorrectionPause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func hintsFrom(pattern *registry.ArchivePattern) *detector.Hints {
	if pattern == nil {
		return nil
	}
	return &detector.Hints{
		WaitSelectors:   pattern.WaitSelectors,
		ContainerHints:  pattern.ContainerHints,
		ItemHints:       pattern.ItemHints,
		NavigationHints: pattern.NavigationHints,
		FieldHints:      pattern.MetadataMappings,
	}
}

func resolveURL(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
