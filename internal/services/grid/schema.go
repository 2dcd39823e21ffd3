package grid

import (
	"fmt"

	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
)

// ControlKind says how a form control is filled
type ControlKind int

const (
	ControlInput ControlKind = iota
	ControlSelect
)

// Control binds a record field to a form control
type Control struct {
	Field   models.Field
	Kind    ControlKind
	Locator interfaces.Locator
}

// Schema describes one grid: where it lives on the page, its column order
// and how its form is filled. Row-relative locators (Cell, DeleteIcon,
// EditIcon) are searched inside a row element.
type Schema[R models.Record] struct {
	Kind models.GridKind

	Tab  interfaces.Locator
	Pane interfaces.Locator
	Rows interfaces.Locator

	Cell       interfaces.Locator
	DeleteIcon interfaces.Locator
	EditIcon   interfaces.Locator

	AddNew interfaces.Locator
	Add    interfaces.Locator
	Update interfaces.Locator
	Cancel interfaces.Locator

	// Columns lists the record field rendered in each cell, left to right
	Columns []models.Field
	// Controls are filled in order
	Controls  []Control
	Dropdowns map[models.Dropdown]interfaces.Locator

	// Build rebuilds a record from cell values
	Build func(values map[models.Field]string) R
}

// dropdown resolves d to its select locator
func (s Schema[R]) dropdown(d models.Dropdown) (interfaces.Locator, error) {
	loc, ok := s.Dropdowns[d]
	if !ok {
		return interfaces.Locator{}, fmt.Errorf("%s grid has no %s dropdown: %w", s.Kind, d, ErrUnknownDropdown)
	}
	return loc, nil
}

func inPane(pane, selector string) interfaces.Locator {
	return interfaces.CSS(fmt.Sprintf("div[data-tab='%s'] %s", pane, selector))
}

func baseSchema[R models.Record](kind models.GridKind, pane string) Schema[R] {
	return Schema[R]{
		Kind:       kind,
		Tab:        interfaces.CSS(fmt.Sprintf("a[data-tab='%s']", pane)),
		Pane:       interfaces.CSS(fmt.Sprintf("div[data-tab='%s']", pane)),
		Rows:       inPane(pane, "table tbody tr"),
		Cell:       interfaces.CSS("td"),
		DeleteIcon: interfaces.CSS("i.remove.icon"),
		EditIcon:   interfaces.CSS("i.write.icon"),
		AddNew:     inPane(pane, "div.ui.button").WithText("Add New"),
		Add:        inPane(pane, "input[type='button'][value='Add']"),
		Update:     inPane(pane, "input[type='button'][value='Update']"),
		Cancel:     inPane(pane, "input.ui.button[value='Cancel']"),
	}
}

// EducationSchema is the education grid of the profile page
func EducationSchema() Schema[models.EducationRecord] {
	s := baseSchema[models.EducationRecord](models.GridEducation, "third")
	s.Columns = []models.Field{
		models.FieldCountry,
		models.FieldUniversity,
		models.FieldTitle,
		models.FieldDegree,
		models.FieldGraduationYear,
	}
	country := inPane("third", "select[name='country']")
	title := inPane("third", "select[name='title']")
	year := inPane("third", "select[name='yearOfGraduation']")
	s.Controls = []Control{
		{Field: models.FieldUniversity, Kind: ControlInput, Locator: inPane("third", "input[placeholder='College/University Name']")},
		{Field: models.FieldCountry, Kind: ControlSelect, Locator: country},
		{Field: models.FieldTitle, Kind: ControlSelect, Locator: title},
		{Field: models.FieldGraduationYear, Kind: ControlSelect, Locator: year},
		{Field: models.FieldDegree, Kind: ControlInput, Locator: inPane("third", "input[placeholder='Degree']")},
	}
	s.Dropdowns = map[models.Dropdown]interfaces.Locator{
		models.DropdownCountry:        country,
		models.DropdownTitle:          title,
		models.DropdownGraduationYear: year,
	}
	s.Build = models.NewEducationRecord
	return s
}

// CertificationSchema is the certification grid of the profile page
func CertificationSchema() Schema[models.CertificationRecord] {
	s := baseSchema[models.CertificationRecord](models.GridCertification, "fourth")
	s.Columns = []models.Field{
		models.FieldCertificate,
		models.FieldFrom,
		models.FieldCertificationYear,
	}
	year := inPane("fourth", "select[name='certificationYear']")
	s.Controls = []Control{
		{Field: models.FieldCertificate, Kind: ControlInput, Locator: inPane("fourth", "input[placeholder='Certificate or Award']")},
		{Field: models.FieldFrom, Kind: ControlInput, Locator: inPane("fourth", "input.received-from[name='certificationFrom']")},
		{Field: models.FieldCertificationYear, Kind: ControlSelect, Locator: year},
	}
	s.Dropdowns = map[models.Dropdown]interfaces.Locator{
		models.DropdownCertificationYear: year,
	}
	s.Build = models.NewCertificationRecord
	return s
}
