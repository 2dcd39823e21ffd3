package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
)

func newTestStorage(t *testing.T) interfaces.RunStorage {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := NewInMemoryBadgerDB(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRunStorage(db, logger)
}

func run(id, name string, status models.TestRunStatus, startedAt time.Time) *models.TestRun {
	return &models.TestRun{ID: id, Name: name, Status: status, StartedAt: startedAt}
}

func TestRunStorageSaveAndGet(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	saved := run("run_1", "education/add", models.TestRunPassed, time.Now())
	saved.Logs = []string{"opened profile", "record added"}
	require.NoError(t, storage.SaveRun(ctx, saved))

	got, err := storage.GetRun(ctx, "run_1")
	require.NoError(t, err)
	assert.Equal(t, "education/add", got.Name)
	assert.Equal(t, models.TestRunPassed, got.Status)
	assert.Equal(t, saved.Logs, got.Logs)
}

func TestRunStorageSaveReplaces(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	r := run("run_1", "education/drain", models.TestRunRunning, time.Now())
	require.NoError(t, storage.SaveRun(ctx, r))
	r.Status = models.TestRunFailed
	r.Failure = "drain stalled"
	require.NoError(t, storage.SaveRun(ctx, r))

	got, err := storage.GetRun(ctx, "run_1")
	require.NoError(t, err)
	assert.Equal(t, models.TestRunFailed, got.Status)
	assert.Equal(t, "drain stalled", got.Failure)
}

func TestRunStorageRequiresID(t *testing.T) {
	storage := newTestStorage(t)
	require.Error(t, storage.SaveRun(context.Background(), &models.TestRun{Name: "x"}))
	require.Error(t, storage.SaveRun(context.Background(), nil))
}

func TestRunStorageNotFound(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	_, err := storage.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrRunNotFound)
	assert.ErrorIs(t, storage.DeleteRun(ctx, "missing"), interfaces.ErrRunNotFound)
}

func TestRunStorageListFiltersAndOrders(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, storage.SaveRun(ctx, run("a", "education/add", models.TestRunPassed, base)))
	require.NoError(t, storage.SaveRun(ctx, run("b", "education/add", models.TestRunFailed, base.Add(time.Minute))))
	require.NoError(t, storage.SaveRun(ctx, run("c", "certification/add", models.TestRunPassed, base.Add(2*time.Minute))))

	all, err := storage.ListRuns(ctx, interfaces.RunListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID, "newest first")
	assert.Equal(t, "a", all[2].ID)

	byName, err := storage.ListRuns(ctx, interfaces.RunListOptions{Name: "education/add"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	failed, err := storage.ListRuns(ctx, interfaces.RunListOptions{Name: "education/add", Status: models.TestRunFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].ID)

	limited, err := storage.ListRuns(ctx, interfaces.RunListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].ID)
}

func TestRunStorageDelete(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveRun(ctx, run("a", "x", models.TestRunPassed, time.Now())))
	require.NoError(t, storage.DeleteRun(ctx, "a"))

	_, err := storage.GetRun(ctx, "a")
	assert.ErrorIs(t, err, interfaces.ErrRunNotFound)
}

func TestNewBadgerDBOnDisk(t *testing.T) {
	logger := arbor.NewLogger()
	config := &common.BadgerConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "runs")}

	db, err := NewBadgerDB(logger, config)
	require.NoError(t, err)
	storage := NewRunStorage(db, logger)
	require.NoError(t, storage.SaveRun(context.Background(), run("a", "x", models.TestRunPassed, time.Now())))
	require.NoError(t, db.Close())

	// Reopen without reset keeps the run
	db, err = NewBadgerDB(logger, config)
	require.NoError(t, err)
	_, err = NewRunStorage(db, logger).GetRun(context.Background(), "a")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reset on startup wipes it
	config.ResetOnStartup = true
	db, err = NewBadgerDB(logger, config)
	require.NoError(t, err)
	defer db.Close()
	_, err = NewRunStorage(db, logger).GetRun(context.Background(), "a")
	assert.ErrorIs(t, err, interfaces.ErrRunNotFound)
}
