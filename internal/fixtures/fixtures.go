// Package fixtures loads expected records from JSON or YAML data files.
// Values may carry placeholders for characters that are awkward to keep in
// a data file: {DQ} is a double quote and {EQ:n} is n '=' characters.
package fixtures

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/gridcheck/internal/models"
)

var (
	// ErrEmptyDataset means a fixture file holds no records
	ErrEmptyDataset = errors.New("fixture dataset is empty")
	// ErrIndexOutOfRange means a record index is outside the dataset
	ErrIndexOutOfRange = errors.New("fixture index out of range")
	// ErrUnsupportedFormat means the file extension is not json, yaml or yml
	ErrUnsupportedFormat = errors.New("unsupported fixture format")
)

var eqPlaceholder = regexp.MustCompile(`\{EQ:(\d+)\}`)

// maxFieldLength matches the max=1000 tag on record fields. {EQ:n} expands to
// at most one character more, so an oversized count still fails validation.
const maxFieldLength = 1000

// DecodePlaceholders expands {DQ} and {EQ:n} and trims the result
func DecodePlaceholders(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "{DQ}", `"`)
	s = eqPlaceholder.ReplaceAllStringFunc(s, func(token string) string {
		n, err := strconv.Atoi(eqPlaceholder.FindStringSubmatch(token)[1])
		if err != nil {
			// out of int range
			n = maxFieldLength + 1
		}
		return strings.Repeat("=", min(n, maxFieldLength+1))
	})
	return strings.TrimSpace(s)
}

// Loader reads fixture files from a directory
type Loader struct {
	dir      string
	validate *validator.Validate
}

// NewLoader creates a Loader rooted at dir
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, validate: validator.New()}
}

// Dir returns the fixture directory
func (l *Loader) Dir() string {
	return l.dir
}

// Education loads and decodes an education dataset
func (l *Loader) Education(name string) ([]models.EducationRecord, error) {
	records, err := load[models.EducationRecord](l, name)
	if err != nil {
		return nil, err
	}
	for i, r := range records {
		records[i] = models.EducationRecord{
			Country:        DecodePlaceholders(r.Country),
			University:     DecodePlaceholders(r.University),
			Title:          DecodePlaceholders(r.Title),
			Degree:         DecodePlaceholders(r.Degree),
			GraduationYear: DecodePlaceholders(r.GraduationYear),
		}
	}
	if err := check(l, name, records); err != nil {
		return nil, err
	}
	return records, nil
}

// Certification loads and decodes a certification dataset
func (l *Loader) Certification(name string) ([]models.CertificationRecord, error) {
	records, err := load[models.CertificationRecord](l, name)
	if err != nil {
		return nil, err
	}
	for i, r := range records {
		records[i] = models.CertificationRecord{
			Certificate: DecodePlaceholders(r.Certificate),
			From:        DecodePlaceholders(r.From),
			Year:        DecodePlaceholders(r.Year),
		}
	}
	if err := check(l, name, records); err != nil {
		return nil, err
	}
	return records, nil
}

// EducationAt loads one education record by index
func (l *Loader) EducationAt(name string, index int) (models.EducationRecord, error) {
	records, err := l.Education(name)
	if err != nil {
		return models.EducationRecord{}, err
	}
	return Pick(records, index, name)
}

// CertificationAt loads one certification record by index
func (l *Loader) CertificationAt(name string, index int) (models.CertificationRecord, error) {
	records, err := l.Certification(name)
	if err != nil {
		return models.CertificationRecord{}, err
	}
	return Pick(records, index, name)
}

// Pick returns records[index] or ErrIndexOutOfRange
func Pick[R any](records []R, index int, name string) (R, error) {
	var zero R
	if index < 0 || index >= len(records) {
		return zero, fmt.Errorf("index %d not in 0-%d of %s: %w", index, len(records)-1, name, ErrIndexOutOfRange)
	}
	return records[index], nil
}

func load[R any](l *Loader, name string) ([]R, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dir, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}

	var records []R
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &records)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyDataset)
	}
	return records, nil
}

func check[R any](l *Loader, name string, records []R) error {
	for i := range records {
		if err := l.validate.Struct(records[i]); err != nil {
			return fmt.Errorf("fixture %s record %d is invalid: %w", name, i, err)
		}
	}
	return nil
}
