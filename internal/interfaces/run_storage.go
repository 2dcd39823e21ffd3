package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/gridcheck/internal/models"
)

// ErrRunNotFound is returned when a test run id is unknown
var ErrRunNotFound = errors.New("test run not found")

// RunListOptions filters ListRuns
type RunListOptions struct {
	Name   string
	Status models.TestRunStatus
	Limit  int
}

// RunStorage persists the outcome of harness sessions
type RunStorage interface {
	SaveRun(ctx context.Context, run *models.TestRun) error
	GetRun(ctx context.Context, id string) (*models.TestRun, error)
	ListRuns(ctx context.Context, opts RunListOptions) ([]*models.TestRun, error)
	DeleteRun(ctx context.Context, id string) error
}
