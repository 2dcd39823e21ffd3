package models

import (
	"fmt"
	"strings"
)

// GridKind identifies which profile grid a record belongs to
type GridKind string

const (
	GridEducation     GridKind = "education"
	GridCertification GridKind = "certification"
)

// Field names a single record field. The set is closed: grids map each field
// to a column and a form control at compile time.
type Field string

const (
	FieldCountry           Field = "country"
	FieldUniversity        Field = "university"
	FieldTitle             Field = "title"
	FieldDegree            Field = "degree"
	FieldGraduationYear    Field = "graduation_year"
	FieldCertificate       Field = "certificate"
	FieldFrom              Field = "from"
	FieldCertificationYear Field = "certification_year"
)

// Record is a value object read from a fixture or rebuilt from a grid row.
// A blank field is a wildcard when matching.
type Record interface {
	Kind() GridKind
	// Fields lists the record's fields in grid column order
	Fields() []Field
	Value(f Field) string
}

// EducationRecord is one row of the education grid
type EducationRecord struct {
	Country        string `json:"country" yaml:"country" validate:"max=1000"`
	University     string `json:"university" yaml:"university" validate:"max=1000"`
	Title          string `json:"title" yaml:"title" validate:"max=1000"`
	Degree         string `json:"degree" yaml:"degree" validate:"max=1000"`
	GraduationYear string `json:"graduationYear" yaml:"graduationYear" validate:"max=1000"`
}

var educationFields = []Field{FieldCountry, FieldUniversity, FieldTitle, FieldDegree, FieldGraduationYear}

func (r EducationRecord) Kind() GridKind { return GridEducation }

func (r EducationRecord) Fields() []Field { return educationFields }

func (r EducationRecord) Value(f Field) string {
	switch f {
	case FieldCountry:
		return r.Country
	case FieldUniversity:
		return r.University
	case FieldTitle:
		return r.Title
	case FieldDegree:
		return r.Degree
	case FieldGraduationYear:
		return r.GraduationYear
	}
	return ""
}

// NewEducationRecord builds a record from field values; unknown fields are ignored
func NewEducationRecord(values map[Field]string) EducationRecord {
	return EducationRecord{
		Country:        values[FieldCountry],
		University:     values[FieldUniversity],
		Title:          values[FieldTitle],
		Degree:         values[FieldDegree],
		GraduationYear: values[FieldGraduationYear],
	}
}

// CertificationRecord is one row of the certification grid
type CertificationRecord struct {
	Certificate string `json:"certificate" yaml:"certificate" validate:"max=1000"`
	From        string `json:"from" yaml:"from" validate:"max=1000"`
	Year        string `json:"year" yaml:"year" validate:"max=1000"`
}

var certificationFields = []Field{FieldCertificate, FieldFrom, FieldCertificationYear}

func (r CertificationRecord) Kind() GridKind { return GridCertification }

func (r CertificationRecord) Fields() []Field { return certificationFields }

func (r CertificationRecord) Value(f Field) string {
	switch f {
	case FieldCertificate:
		return r.Certificate
	case FieldFrom:
		return r.From
	case FieldCertificationYear:
		return r.Year
	}
	return ""
}

// NewCertificationRecord builds a record from field values; unknown fields are ignored
func NewCertificationRecord(values map[Field]string) CertificationRecord {
	return CertificationRecord{
		Certificate: values[FieldCertificate],
		From:        values[FieldFrom],
		Year:        values[FieldCertificationYear],
	}
}

// Describe renders a record as "a" | "b" | "c" in column order for log and
// assertion messages
func Describe(r Record) string {
	parts := make([]string, 0, len(r.Fields()))
	for _, f := range r.Fields() {
		parts = append(parts, fmt.Sprintf("%q", r.Value(f)))
	}
	return strings.Join(parts, " | ")
}

// Compact renders a record as a/b/c in column order, the format used by grid dumps
func Compact(r Record) string {
	parts := make([]string, 0, len(r.Fields()))
	for _, f := range r.Fields() {
		parts = append(parts, r.Value(f))
	}
	return strings.Join(parts, "/")
}
