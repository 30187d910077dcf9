package linkedin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/carelinkhealth/onboarding/internal/profile"
	"go.uber.org/zap"
)

// ErrProfileFetchFailed is returned when the basic identity claims cannot be read.
var ErrProfileFetchFailed = errors.New("profile fetch failed")

// Reasons reported by ExtendedResult when no extended data is available.
const (
	ReasonForbidden   = "forbidden"
	ReasonUnavailable = "unavailable"
	ReasonTransport   = "transport"
	ReasonDecode      = "decode"
)

// ExtendedResult is the outcome of the best-effort extended profile fetch.
// Either Profile is set, or Reason says why there is no extended data.
// It is never an error.
type ExtendedResult struct {
	Profile *profile.ExternalProfile
	Reason  string
}

// Available reports whether extended data was retrieved.
func (r ExtendedResult) Available() bool {
	return r.Profile != nil
}

// userInfo is the OpenID Connect userinfo response.
type userInfo struct {
	Sub        string `json:"sub"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
	Email      string `json:"email"`
	Profile    string `json:"profile"`
}

type wireDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (d *wireDate) toDate() *profile.Date {
	if d == nil || (d.Year == 0 && d.Month == 0 && d.Day == 0) {
		return nil
	}
	return &profile.Date{Year: d.Year, Month: d.Month, Day: d.Day}
}

func (d *wireDate) year() *int {
	if d == nil || d.Year == 0 {
		return nil
	}
	y := d.Year
	return &y
}

// extendedProfile is the extended member profile response. Every section
// may be missing depending on the API products granted to the app.
type extendedProfile struct {
	Headline         string `json:"headline"`
	Location         string `json:"location"`
	Industry         string `json:"industry"`
	VanityName       string `json:"vanityName"`
	PublicProfileURL string `json:"publicProfileUrl"`
	ProfilePicture   string `json:"profilePicture"`
	Educations       []struct {
		SchoolName   string    `json:"schoolName"`
		DegreeName   string    `json:"degreeName"`
		FieldOfStudy string    `json:"fieldOfStudy"`
		StartDate    *wireDate `json:"startDate"`
		EndDate      *wireDate `json:"endDate"`
	} `json:"educations"`
	Positions []struct {
		Title       string    `json:"title"`
		CompanyName string    `json:"companyName"`
		StartDate   *wireDate `json:"startDate"`
		EndDate     *wireDate `json:"endDate"`
		IsCurrent   bool      `json:"isCurrent"`
	} `json:"positions"`
	Certifications []struct {
		Name          string    `json:"name"`
		Authority     string    `json:"authority"`
		LicenseNumber string    `json:"licenseNumber"`
		StartDate     *wireDate `json:"startDate"`
		EndDate       *wireDate `json:"endDate"`
		URL           string    `json:"url"`
	} `json:"certifications"`
	Skills []struct {
		Name string `json:"name"`
	} `json:"skills"`
}

// FetchBasic reads the guaranteed identity claims. Any failure is fatal to the import.
func (c *Client) FetchBasic(ctx context.Context, accessToken string) (*profile.ExternalProfile, error) {
	body, status, err := c.apiGet(ctx, c.userInfoURL, accessToken, 1<<16)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: userinfo returned %d: %s", ErrProfileFetchFailed, status, truncate(body, 256))
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: parse userinfo: %v", ErrProfileFetchFailed, err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("%w: userinfo has no subject", ErrProfileFetchFailed)
	}

	p := &profile.ExternalProfile{
		ExternalID:  info.Sub,
		GivenName:   info.GivenName,
		FamilyName:  info.FamilyName,
		DisplayName: info.Name,
		Email:       info.Email,
		PhotoURL:    info.Picture,
		ProfileURL:  info.Profile,
	}
	if p.DisplayName == "" {
		p.DisplayName = strings.TrimSpace(p.GivenName + " " + p.FamilyName)
	}
	return p, nil
}

// FetchExtended reads work history, education and credentials. The data
// requires elevated API access that most apps lack, so every failure is
// reported as an ExtendedResult without a profile.
func (c *Client) FetchExtended(ctx context.Context, accessToken string) ExtendedResult {
	body, status, err := c.apiGet(ctx, c.extendedURL, accessToken, 1<<20)
	if err != nil {
		c.logger.Debug("extended profile unavailable", zap.Error(err))
		return ExtendedResult{Reason: ReasonTransport}
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.logger.Debug("extended profile not permitted", zap.Int("status", status))
		return ExtendedResult{Reason: ReasonForbidden}
	case status >= 400:
		c.logger.Debug("extended profile unavailable", zap.Int("status", status))
		return ExtendedResult{Reason: ReasonUnavailable}
	}

	var ext extendedProfile
	if err := json.Unmarshal(body, &ext); err != nil {
		c.logger.Debug("extended profile undecodable", zap.Error(err))
		return ExtendedResult{Reason: ReasonDecode}
	}
	return ExtendedResult{Profile: ext.toProfile()}
}

func (e *extendedProfile) toProfile() *profile.ExternalProfile {
	p := &profile.ExternalProfile{
		Headline: e.Headline,
		Location: e.Location,
		Industry: e.Industry,
		PhotoURL: e.ProfilePicture,
	}
	switch {
	case e.PublicProfileURL != "":
		p.ProfileURL = e.PublicProfileURL
	case e.VanityName != "":
		p.ProfileURL = "https://www.linkedin.com/in/" + e.VanityName
	}

	for _, ed := range e.Educations {
		if ed.SchoolName == "" {
			continue
		}
		p.Education = append(p.Education, profile.EducationRecord{
			School:       ed.SchoolName,
			Degree:       ed.DegreeName,
			FieldOfStudy: ed.FieldOfStudy,
			StartYear:    ed.StartDate.year(),
			EndYear:      ed.EndDate.year(),
		})
	}
	for _, pos := range e.Positions {
		p.Positions = append(p.Positions, profile.PositionRecord{
			Title:     pos.Title,
			Company:   pos.CompanyName,
			StartDate: pos.StartDate.toDate(),
			EndDate:   pos.EndDate.toDate(),
			IsCurrent: pos.IsCurrent,
		})
	}
	for _, cert := range e.Certifications {
		if cert.Name == "" {
			continue
		}
		p.Certifications = append(p.Certifications, profile.CertificationRecord{
			Name:          cert.Name,
			Authority:     cert.Authority,
			LicenseNumber: cert.LicenseNumber,
			StartDate:     cert.StartDate.toDate(),
			EndDate:       cert.EndDate.toDate(),
			URL:           cert.URL,
		})
	}
	for _, s := range e.Skills {
		if s.Name != "" {
			p.Skills = append(p.Skills, s.Name)
		}
	}
	return p
}

// Merge layers extended data over the basic profile and returns a new value.
// Photo and profile URL from the extended fetch only fill gaps left by the
// basic claims.
func Merge(basic *profile.ExternalProfile, ext ExtendedResult) *profile.ExternalProfile {
	out := *basic
	if !ext.Available() {
		return &out
	}
	e := ext.Profile

	if out.PhotoURL == "" {
		out.PhotoURL = e.PhotoURL
	}
	if out.ProfileURL == "" {
		out.ProfileURL = e.ProfileURL
	}
	if e.Headline != "" {
		out.Headline = e.Headline
	}
	if e.Location != "" {
		out.Location = e.Location
	}
	if e.Industry != "" {
		out.Industry = e.Industry
	}
	if len(e.Education) > 0 {
		out.Education = e.Education
	}
	if len(e.Positions) > 0 {
		out.Positions = e.Positions
	}
	if len(e.Certifications) > 0 {
		out.Certifications = e.Certifications
	}
	if len(e.Skills) > 0 {
		out.Skills = e.Skills
	}
	return &out
}

func (c *Client) apiGet(ctx context.Context, url, accessToken string, limit int64) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.authorizedClient(ctx, accessToken).Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("api get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
