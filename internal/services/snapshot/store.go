package snapshot

import (
	"fmt"
	"os"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/arca/internal/common"
	"github.com/ternarybob/arca/internal/models"
)

// RunSnapshot is one iteration of an extraction run persisted for
// diagnostics: where the agent was, how many records it held, and the
// page content it saw, stored as markdown so a failed run can be read
// without replaying the browser.
type RunSnapshot struct {
	ID           string    `badgerhold:"key"`
	RunID        string    `badgerholdIndex:"RunID"`
	URL          string    `json:"url"`
	Iteration    int       `json:"iteration"`
	RecordCount  int       `json:"record_count"`
	Confidence   float64   `json:"confidence"`
	Accepted     bool      `json:"accepted"`
	PageMarkdown string    `json:"page_markdown"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists run snapshots in an embedded BadgerDB.
type Store struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Open opens (or creates) the snapshot database at path. When reset is
// set the existing database is wiped first; snapshots are diagnostics,
// not archival data.
func Open(path string, reset bool) (*Store, error) {
	if reset {
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to reset database directory: %w", err)
		}
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger to use arbor
	options.Options = badger.DefaultOptions(path).WithLogger(nil)

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger := common.GetLogger()
	logger.Debug().Str("path", path).Msg("Snapshot store opened")

	return &Store{store: store, logger: logger}, nil
}

// SaveIteration records one orchestrator iteration. The page HTML is
// converted to markdown before storage; raw HTML of rendered archive
// pages is too noisy to be useful later.
func (s *Store) SaveIteration(runID string, iteration int, pageURL, pageHTML string, verification *models.VerificationResult, confidence float64) error {
	markdown := ""
	if pageHTML != "" {
		converter := md.NewConverter(pageURL, true, nil)
		converted, err := converter.ConvertString(pageHTML)
		if err != nil {
			s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, storing snapshot without content")
		} else {
			markdown = converted
		}
	}

	snap := RunSnapshot{
		ID:           common.NewSnapshotID(),
		RunID:        runID,
		URL:          pageURL,
		Iteration:    iteration,
		Confidence:   confidence,
		PageMarkdown: markdown,
		CreatedAt:    time.Now(),
	}
	if verification != nil {
		snap.RecordCount = verification.TotalRecords
		snap.Accepted = verification.Valid
	}

	if err := s.store.Insert(snap.ID, snap); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	s.logger.Debug().
		Str("run_id", runID).
		Int("iteration", iteration).
		Int("records", snap.RecordCount).
		Msg("Iteration snapshot saved")
	return nil
}

// History returns a run's snapshots in iteration order.
func (s *Store) History(runID string) ([]RunSnapshot, error) {
	var snaps []RunSnapshot
	err := s.store.Find(&snaps, badgerhold.Where("RunID").Eq(runID).Index("RunID").SortBy("Iteration"))
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots for %s: %w", runID, err)
	}
	return snaps, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.store.Close()
}
