package grid

import (
	"context"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/gridcheck/internal/browser/memory"
)

func seedThree(app *profileApp) {
	app.seed(eduPane,
		[]string{"India", "IIT", "M.Sc", "Physics", "2018"},
		[]string{"Australia", "Harvard", "B.Sc", "Computer Science", "2019"},
		[]string{"New Zealand", "Otago", "PhD", "Medicine", "2020"},
	)
}

func assertNonIncreasing(t *testing.T, counts []int) {
	t.Helper()
	for i := 1; i < len(counts); i++ {
		assert.LessOrEqual(t, counts[i], counts[i-1], "counts %v", counts)
	}
}

func TestDrainEmptiesGrid(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	seedThree(f.app)
	require.NoError(t, f.education.OpenTab(ctx))

	report, err := f.education.DrainAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Removed)
	assert.Equal(t, 4, report.Iterations)
	assert.Equal(t, []int{3, 2, 1, 0}, report.Counts)
	assertNonIncreasing(t, report.Counts)

	count, err := f.education.RowCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDrainIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.education.OpenTab(ctx))

	report, err := f.education.DrainAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Iterations)
	assert.Zero(t, report.Removed)
	assert.Empty(t, f.app.page.Clicks()[1:])

	report, err = f.education.DrainAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, report.Counts)
}

func TestDrainSkipsRowThatVanishesBeforeClick(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	seedThree(f.app)
	require.NoError(t, f.education.OpenTab(ctx))

	raced := false
	f.app.page.BeforeClick(func(e *memory.Event) {
		if raced || !e.Target.Is("i.remove.icon") {
			return
		}
		raced = true
		// an auto-refresh removes the row between snapshot and click
		e.Target.Closest("tr").Remove()
	})

	report, err := f.education.DrainAll(ctx)
	require.NoError(t, err)
	assert.True(t, raced)
	assert.Equal(t, 1, report.Skips)
	assert.Equal(t, 2, report.Removed)
	assertNonIncreasing(t, report.Counts)

	count, err := f.education.RowCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDrainClosesInterceptingToasts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	seedThree(f.app)
	require.NoError(t, f.education.OpenTab(ctx))
	f.app.interceptWithToasts()

	report, err := f.education.DrainAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Removed)
	// every deletion after the first lands on the previous deletion's toast
	assert.Equal(t, 2, report.Skips)
	assertNonIncreasing(t, report.Counts)
}

func TestDrainFailsLoudWhenRowsNeverGoAway(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.app.page.Mutate(func(doc *goquery.Document) {
		// a row without a delete control can never be drained
		doc.Find(eduPane + " table tbody").AppendHtml("<tr><td>India</td><td>IIT</td></tr>")
	})
	require.NoError(t, f.education.OpenTab(ctx))

	report, err := f.education.DrainAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDrainStalled)
	assert.Equal(t, testOptions.MaxSkips+1, report.Skips)
	assert.Contains(t, err.Error(), "deleting")
}

func TestDrainZeroMaxSkipsToleratesNone(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	opts := testOptions
	opts.MaxSkips = 0
	g := New(EducationSchema(), f.app.page, f.education.waiter, f.education.dispatcher, f.toasts, opts, f.education.logger)
	f.app.page.Mutate(func(doc *goquery.Document) {
		doc.Find(eduPane + " table tbody").AppendHtml("<tr><td>India</td><td>IIT</td></tr>")
	})
	require.NoError(t, g.OpenTab(ctx))

	report, err := g.DrainAll(ctx)
	assert.ErrorIs(t, err, ErrDrainStalled)
	assert.Equal(t, 1, report.Skips)
}

func TestNegativeMaxSkipsTakesDefault(t *testing.T) {
	f := newFixture()
	opts := testOptions
	opts.MaxSkips = -1
	g := New(EducationSchema(), f.app.page, f.education.waiter, f.education.dispatcher, f.toasts, opts, f.education.logger)
	assert.Equal(t, DefaultOptions().MaxSkips, g.opts.MaxSkips)
}

func TestDrainFailsWhenDeleteDoesNotShrink(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.app.seed(eduPane, []string{"India", "IIT", "M.Sc", "Physics", "2018"})
	require.NoError(t, f.education.OpenTab(ctx))
	// the server rejects the delete and keeps the row
	f.app.page.BeforeClick(func(e *memory.Event) {
		if e.Target.Is("i.remove.icon") {
			e.Target.RemoveClass("remove").AddClass("trash")
		}
	})

	_, err := f.education.DrainAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row count below 1")
}

func TestDrainDetectsGrowth(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.app.page.Mutate(func(doc *goquery.Document) {
		doc.Find(eduPane + " table tbody").AppendHtml("<tr><td>India</td><td>IIT</td></tr>")
	})
	require.NoError(t, f.education.OpenTab(ctx))

	// a row is added while the drain waits out a skipped iteration
	go func() {
		time.Sleep(50 * time.Millisecond)
		f.app.seed(eduPane, []string{"A", "B", "C", "D", "1"})
	}()

	report, err := f.education.DrainAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDrainDiverged)
	assert.Equal(t, []int{1, 2}, report.Counts)
}
