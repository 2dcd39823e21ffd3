package grid

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/textnorm"
	"github.com/ternarybob/gridcheck/internal/services/waiter"
)

// ReadRows queries every row and its cells once. A re-render during the
// read surfaces as a transient error; Snapshot retries those.
func (g *Grid[R]) ReadRows(ctx context.Context) ([]models.GridRow, error) {
	elements, err := g.page.FindAll(ctx, g.schema.Rows)
	if err != nil {
		return nil, err
	}
	rows := make([]models.GridRow, 0, len(elements))
	for i, el := range elements {
		row, err := g.readCells(ctx, i, el)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadRecords maps each row to a record in column order. Cells missing
// from a short row leave their fields empty.
func (g *Grid[R]) ReadRecords(ctx context.Context) ([]R, error) {
	rows, err := g.ReadRows(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]R, 0, len(rows))
	for _, row := range rows {
		records = append(records, g.toRecord(row))
	}
	return records, nil
}

// Snapshot reads the records, retrying transient read races within the
// settle budget
func (g *Grid[R]) Snapshot(ctx context.Context) ([]R, error) {
	return waiter.Until(ctx, g.waiter, waiter.Condition[[]R]{
		Description: fmt.Sprintf("stable %s snapshot", g.schema.Kind),
		Timeout:     g.opts.SettleTimeout,
		Poll: func(ctx context.Context) waiter.Outcome[[]R] {
			records, err := g.ReadRecords(ctx)
			return waiter.From(records, err == nil, err)
		},
	})
}

// RowCount re-queries the number of rows
func (g *Grid[R]) RowCount(ctx context.Context) (int, error) {
	elements, err := g.page.FindAll(ctx, g.schema.Rows)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s rows: %w", g.schema.Kind, err)
	}
	return len(elements), nil
}

// RowTexts returns the full text of every non-empty row
func (g *Grid[R]) RowTexts(ctx context.Context) ([]string, error) {
	return waiter.Until(ctx, g.waiter, waiter.Condition[[]string]{
		Description: fmt.Sprintf("%s row texts", g.schema.Kind),
		Timeout:     g.opts.SettleTimeout,
		Poll: func(ctx context.Context) waiter.Outcome[[]string] {
			elements, err := g.page.FindAll(ctx, g.schema.Rows)
			if err != nil {
				return waiter.Fatal[[]string](err)
			}
			texts := make([]string, 0, len(elements))
			for _, el := range elements {
				text, err := el.Text(ctx)
				if err != nil {
					return waiter.Fatal[[]string](err)
				}
				if text = textnorm.Normalize(text); text != "" {
					texts = append(texts, text)
				}
			}
			return waiter.Ready(texts)
		},
	})
}

// Details renders the grid as "a/b/c, d/e/f" for diagnostics
func (g *Grid[R]) Details(ctx context.Context) (string, error) {
	records, err := g.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return strings.Join(dump(records), ", "), nil
}

func (g *Grid[R]) readCells(ctx context.Context, index int, row interfaces.Element) (models.GridRow, error) {
	cells, err := row.FindAll(ctx, g.schema.Cell)
	if err != nil {
		return models.GridRow{}, err
	}
	texts := make([]string, 0, len(cells))
	for _, cell := range cells {
		text, err := cell.Text(ctx)
		if err != nil {
			return models.GridRow{}, err
		}
		texts = append(texts, strings.TrimSpace(text))
	}
	return models.GridRow{Index: index, Cells: texts}, nil
}

func (g *Grid[R]) toRecord(row models.GridRow) R {
	values := make(map[models.Field]string, len(g.schema.Columns))
	for i, field := range g.schema.Columns {
		values[field] = row.Cell(i)
	}
	return g.schema.Build(values)
}

// dump renders each record normalized, in a/b/c form
func dump[R models.Record](records []R) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, textnorm.Normalize(models.Compact(r)))
	}
	return out
}
