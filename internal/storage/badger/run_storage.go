package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RunStorage implements interfaces.RunStorage for Badger
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

// SaveRun inserts or replaces a run by id
func (s *RunStorage) SaveRun(ctx context.Context, run *models.TestRun) error {
	if run == nil || strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id is required")
	}
	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	s.logger.Debug().Str("run_id", run.ID).Str("status", string(run.Status)).Msg("Run saved to ledger")
	return nil
}

// GetRun retrieves a run by id
func (s *RunStorage) GetRun(ctx context.Context, id string) (*models.TestRun, error) {
	var run models.TestRun
	err := s.db.Store().Get(id, &run)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns runs newest first, filtered by name and status when set
func (s *RunStorage) ListRuns(ctx context.Context, opts interfaces.RunListOptions) ([]*models.TestRun, error) {
	query := &badgerhold.Query{}
	switch {
	case opts.Name != "" && opts.Status != "":
		query = badgerhold.Where("Name").Eq(opts.Name).And("Status").Eq(opts.Status)
	case opts.Name != "":
		query = badgerhold.Where("Name").Eq(opts.Name)
	case opts.Status != "":
		query = badgerhold.Where("Status").Eq(opts.Status)
	}
	query = query.SortBy("StartedAt").Reverse()
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var runs []models.TestRun
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	result := make([]*models.TestRun, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

// DeleteRun removes a run by id
func (s *RunStorage) DeleteRun(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.TestRun{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return interfaces.ErrRunNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return nil
}
