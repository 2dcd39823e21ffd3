package grid

import (
	"context"

	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/textnorm"
)

// Matches reports whether actual satisfies expected. Every non-blank field
// of expected must equal the same field of actual after normalization;
// blank fields match anything.
func Matches(expected, actual models.Record) bool {
	if expected.Kind() != actual.Kind() {
		return false
	}
	for _, f := range expected.Fields() {
		want := expected.Value(f)
		if textnorm.Blank(want) {
			continue
		}
		if !textnorm.Equal(want, actual.Value(f)) {
			return false
		}
	}
	return true
}

// CountMatches counts the records that satisfy expected
func CountMatches[R models.Record](expected R, records []R) int {
	n := 0
	for _, r := range records {
		if Matches(expected, r) {
			n++
		}
	}
	return n
}

// CountMatches snapshots the grid and counts rows matching expected
func (g *Grid[R]) CountMatches(ctx context.Context, expected R) (int, error) {
	records, err := g.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return CountMatches(expected, records), nil
}
