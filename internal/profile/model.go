// Package profile defines the external profile imported from the identity
// provider and its projection onto the onboarding form fields.
package profile

// Date is a partial calendar date as reported by the provider. Any part may
// be zero when the provider omits it.
type Date struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// EducationRecord is a single education entry. Lists of these keep provider
// order, which is not chronological.
type EducationRecord struct {
	School       string `json:"school"`
	Degree       string `json:"degree,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
	StartYear    *int   `json:"start_year,omitempty"`
	EndYear      *int   `json:"end_year,omitempty"`
}

// PositionRecord is a single work history entry.
// IsCurrent is the only signal that the position is held today; a missing
// EndDate does not imply it.
type PositionRecord struct {
	Title     string `json:"title"`
	Company   string `json:"company"`
	StartDate *Date  `json:"start_date,omitempty"`
	EndDate   *Date  `json:"end_date,omitempty"`
	IsCurrent bool   `json:"is_current"`
}

// CertificationRecord is a license or certification entry.
type CertificationRecord struct {
	Name          string `json:"name"`
	Authority     string `json:"authority,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
	StartDate     *Date  `json:"start_date,omitempty"`
	EndDate       *Date  `json:"end_date,omitempty"`
	URL           string `json:"url,omitempty"`
}

// ExternalProfile is the account data fetched from the identity provider.
// ExternalID is always set; every other field is best-effort.
type ExternalProfile struct {
	ExternalID  string `json:"external_id"`
	GivenName   string `json:"given_name,omitempty"`
	FamilyName  string `json:"family_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`

	Headline       string                `json:"headline,omitempty"`
	Location       string                `json:"location,omitempty"`
	Industry       string                `json:"industry,omitempty"`
	Education      []EducationRecord     `json:"education,omitempty"`
	Positions      []PositionRecord      `json:"positions,omitempty"`
	Certifications []CertificationRecord `json:"certifications,omitempty"`
	Skills         []string              `json:"skills,omitempty"`
}

// BoardCertification is a certification as shown on the onboarding form.
type BoardCertification struct {
	Board         string `json:"board"`
	Certification string `json:"certification"`
	Year          *int   `json:"year,omitempty"`
}

// MappedProfile is the onboarding form projection of an ExternalProfile.
// It is recomputed from the ExternalProfile on every request and never stored.
// A nil slice means the provider returned no data for that field.
type MappedProfile struct {
	FullName            string               `json:"full_name,omitempty"`
	Email               string               `json:"email,omitempty"`
	PhotoURL            string               `json:"photo_url,omitempty"`
	LinkedInURL         string               `json:"linkedin_url,omitempty"`
	MedicalSchool       string               `json:"medical_school,omitempty"`
	GraduationYear      *int                 `json:"graduation_year,omitempty"`
	CurrentInstitutions []string             `json:"current_institutions,omitempty"`
	BoardCertifications []BoardCertification `json:"board_certifications,omitempty"`
}
