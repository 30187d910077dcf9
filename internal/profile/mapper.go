package profile

import (
	"strings"

	"golang.org/x/text/cases"
)

// UnknownBoard is used when a certification has no issuing authority.
const UnknownBoard = "Unknown"

// DefaultMedicalKeywords are matched against education entries to find the
// medical school. English and Spanish terms.
var DefaultMedicalKeywords = []string{
	"medicine",
	"medical",
	"md",
	"doctor",
	"physician",
	"medicina",
	"médico",
	"medico",
	"médica",
	"medica",
}

// Mapper projects an ExternalProfile onto the onboarding form fields.
// Map is pure and safe for concurrent use.
type Mapper struct {
	keywords []string
}

// NewMapper creates a Mapper using the given medical-school keywords.
// An empty list falls back to DefaultMedicalKeywords.
func NewMapper(keywords []string) *Mapper {
	if len(keywords) == 0 {
		keywords = DefaultMedicalKeywords
	}
	fold := cases.Fold()
	folded := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		folded = append(folded, fold.String(k))
	}
	return &Mapper{keywords: folded}
}

// Map never fails: absent input fields produce absent output fields.
func (m *Mapper) Map(p *ExternalProfile) MappedProfile {
	var out MappedProfile
	if p == nil {
		return out
	}

	out.FullName = fullName(p)
	out.Email = p.Email
	out.PhotoURL = p.PhotoURL
	out.LinkedInURL = p.ProfileURL

	if edu := m.medicalSchool(p.Education); edu != nil {
		out.MedicalSchool = edu.School
		if edu.EndYear != nil {
			y := *edu.EndYear
			out.GraduationYear = &y
		}
	}

	out.CurrentInstitutions = currentInstitutions(p.Positions)
	out.BoardCertifications = boardCertifications(p.Certifications)
	return out
}

func fullName(p *ExternalProfile) string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(p.GivenName) + " " + strings.TrimSpace(p.FamilyName))
}

// medicalSchool returns the first entry whose school, degree or field of study
// contains a keyword. Without a match it returns the entry with the highest
// end year, earliest entry winning ties.
func (m *Mapper) medicalSchool(education []EducationRecord) *EducationRecord {
	if len(education) == 0 {
		return nil
	}

	fold := cases.Fold()
	for i := range education {
		e := &education[i]
		haystack := fold.String(e.School + " " + e.Degree + " " + e.FieldOfStudy)
		for _, kw := range m.keywords {
			if strings.Contains(haystack, kw) {
				return e
			}
		}
	}

	best := &education[0]
	for i := 1; i < len(education); i++ {
		if endYear(&education[i]) > endYear(best) {
			best = &education[i]
		}
	}
	return best
}

func endYear(e *EducationRecord) int {
	if e.EndYear == nil {
		return 0
	}
	return *e.EndYear
}

// currentInstitutions never falls back to past employers.
func currentInstitutions(positions []PositionRecord) []string {
	var out []string
	for _, p := range positions {
		if p.IsCurrent && p.Company != "" {
			out = append(out, p.Company)
		}
	}
	return out
}

func boardCertifications(certs []CertificationRecord) []BoardCertification {
	if len(certs) == 0 {
		return nil
	}
	out := make([]BoardCertification, 0, len(certs))
	for _, c := range certs {
		bc := BoardCertification{
			Board:         c.Authority,
			Certification: c.Name,
		}
		if bc.Board == "" {
			bc.Board = UnknownBoard
		}
		if c.StartDate != nil && c.StartDate.Year != 0 {
			y := c.StartDate.Year
			bc.Year = &y
		}
		out = append(out, bc)
	}
	return out
}
