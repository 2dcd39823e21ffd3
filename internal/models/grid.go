package models

import "strings"

// GridRow holds the cell texts of one rendered table row, in column order,
// as they were at the moment of the snapshot. It goes stale as soon as the
// view changes and must not be kept across an action.
type GridRow struct {
	Index int      `json:"index"`
	Cells []string `json:"cells"`
}

// Cell returns the trimmed text of column i, or "" when the row is short
func (r GridRow) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[i])
}

// Dropdown identifies a select control on a grid form
type Dropdown int

const (
	DropdownCountry Dropdown = iota + 1
	DropdownTitle
	DropdownGraduationYear
	DropdownCertificationYear
)

func (d Dropdown) String() string {
	switch d {
	case DropdownCountry:
		return "country"
	case DropdownTitle:
		return "title"
	case DropdownGraduationYear:
		return "graduation_year"
	case DropdownCertificationYear:
		return "certification_year"
	}
	return "unknown"
}
