package grid

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/gridcheck/internal/models"
)

// AssertionError reports an expected-vs-actual disagreement with enough
// context to diagnose it without re-running: the expected fields and a
// normalized dump of every row.
type AssertionError struct {
	Grid     models.GridKind
	Expected string
	Want     string
	Got      int
	Dump     []string
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s grid: expected record %s %s, found %d matching row(s)", e.Grid, e.Expected, e.Want, e.Got)
	fmt.Fprintf(&b, "\ngrid has %d row(s)", len(e.Dump))
	for i, row := range e.Dump {
		fmt.Fprintf(&b, "\n  [%d] %s", i, row)
	}
	return b.String()
}

// AssertPresence fails when expected is missing and shouldExist is true, or
// present and shouldExist is false
func (g *Grid[R]) AssertPresence(ctx context.Context, expected R, shouldExist bool) error {
	records, err := g.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read %s grid for assertion: %w", g.schema.Kind, err)
	}
	got := CountMatches(expected, records)
	if shouldExist && got > 0 || !shouldExist && got == 0 {
		return nil
	}
	want := "to be present"
	if !shouldExist {
		want = "to be absent"
	}
	return g.assertionError(expected, want, got, records)
}

// AssertExactCount fails unless exactly n rows match expected
func (g *Grid[R]) AssertExactCount(ctx context.Context, expected R, n int) error {
	records, err := g.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read %s grid for assertion: %w", g.schema.Kind, err)
	}
	got := CountMatches(expected, records)
	if got == n {
		return nil
	}
	return g.assertionError(expected, fmt.Sprintf("to match exactly %d row(s)", n), got, records)
}

func (g *Grid[R]) assertionError(expected R, want string, got int, records []R) error {
	err := &AssertionError{
		Grid:     g.schema.Kind,
		Expected: models.Describe(expected),
		Want:     want,
		Got:      got,
		Dump:     dump(records),
	}
	g.logger.Warn().Str("grid", string(err.Grid)).Str("expected", err.Expected).Int("matches", got).Strs("rows", err.Dump).Msg("Grid assertion failed")
	return err
}
