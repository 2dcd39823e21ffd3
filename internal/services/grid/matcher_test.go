package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/gridcheck/internal/models"
)

func TestMatchesNormalizes(t *testing.T) {
	row := models.EducationRecord{
		Country:        "  New Zealand ",
		University:     "St Mary&#39;s College",
		Title:          "B.SC",
		Degree:         "Arts &amp; Design",
		GraduationYear: "2019",
	}
	tests := []struct {
		name     string
		expected models.EducationRecord
		want     bool
	}{
		{"exact after decode", models.EducationRecord{Country: "New Zealand", University: "St Mary's College", Title: "B.Sc", Degree: "Arts & Design", GraduationYear: "2019"}, true},
		{"case and whitespace", models.EducationRecord{Country: "new zealand", University: " ST MARY'S COLLEGE", Title: "b.sc", Degree: "arts & design ", GraduationYear: "2019"}, true},
		{"encoded expected", models.EducationRecord{University: "St Mary&#x27;s College"}, true},
		{"blank fields are wildcards", models.EducationRecord{GraduationYear: "2019"}, true},
		{"empty record matches anything", models.EducationRecord{}, true},
		{"one field differs", models.EducationRecord{Country: "New Zealand", GraduationYear: "2020"}, false},
		{"substring is not a match", models.EducationRecord{University: "St Mary"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.expected, row))
		})
	}
}

func TestMatchesRejectsOtherGrid(t *testing.T) {
	assert.False(t, Matches(models.CertificationRecord{}, models.EducationRecord{}))
}

func TestCountMatches(t *testing.T) {
	records := []models.CertificationRecord{
		{Certificate: "ISTQB", From: "ISTQB", Year: "2021"},
		{Certificate: "istqb", From: "Board", Year: "2022"},
		{Certificate: "AWS", From: "Amazon", Year: "2022"},
	}
	assert.Equal(t, 2, CountMatches(models.CertificationRecord{Certificate: "ISTQB"}, records))
	assert.Equal(t, 2, CountMatches(models.CertificationRecord{Year: "2022"}, records))
	assert.Equal(t, 1, CountMatches(models.CertificationRecord{Certificate: "AWS", From: "amazon", Year: "2022"}, records))
	assert.Equal(t, 0, CountMatches(models.CertificationRecord{From: "Google"}, records))
	assert.Equal(t, 3, CountMatches(models.CertificationRecord{}, records))
}
