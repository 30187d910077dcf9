package client

import "time"

// Date is a partial calendar date; any part may be zero.
type Date struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// Education is one education entry of an imported profile.
type Education struct {
	School       string `json:"school"`
	Degree       string `json:"degree,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
	StartYear    *int   `json:"start_year,omitempty"`
	EndYear      *int   `json:"end_year,omitempty"`
}

// Position is one work history entry of an imported profile.
type Position struct {
	Title     string `json:"title"`
	Company   string `json:"company"`
	StartDate *Date  `json:"start_date,omitempty"`
	EndDate   *Date  `json:"end_date,omitempty"`
	IsCurrent bool   `json:"is_current"`
}

// Certification is a license or certification entry of an imported profile.
type Certification struct {
	Name          string `json:"name"`
	Authority     string `json:"authority,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
	StartDate     *Date  `json:"start_date,omitempty"`
	EndDate       *Date  `json:"end_date,omitempty"`
	URL           string `json:"url,omitempty"`
}

// ExternalProfile is the account data imported from the identity provider.
type ExternalProfile struct {
	ExternalID  string `json:"external_id"`
	GivenName   string `json:"given_name,omitempty"`
	FamilyName  string `json:"family_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`

	Headline       string          `json:"headline,omitempty"`
	Location       string          `json:"location,omitempty"`
	Industry       string          `json:"industry,omitempty"`
	Education      []Education     `json:"education,omitempty"`
	Positions      []Position      `json:"positions,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
	Skills         []string        `json:"skills,omitempty"`
}

// BoardCertification is a certification as shown on the onboarding form.
type BoardCertification struct {
	Board         string `json:"board"`
	Certification string `json:"certification"`
	Year          *int   `json:"year,omitempty"`
}

// MappedProfile is the onboarding form projection of an imported profile.
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

// StatusResult is the response of GET /auth/external/status.
type StatusResult struct {
	Configured bool `json:"configured"`
}

// ProfileResult is the response of GET /auth/external/profile.
type ProfileResult struct {
	Success    bool            `json:"success"`
	Profile    ExternalProfile `json:"profile"`
	MappedData MappedProfile   `json:"mappedData"`
	ExpiresAt  time.Time       `json:"expires_at"`
}
