package handler

import "testing"

func TestSanitizeRedirectPath(t *testing.T) {
	tests := map[string]string{
		"":                          "",
		"/onboarding":               "/onboarding",
		"/onboarding?step=2":        "/onboarding?step=2",
		"//evil.example.com":        "",
		"https://evil.example.com/": "",
		"javascript:alert(1)":       "",
		`/\evil.example.com`:        "",
		"relative/path":             "",
	}
	for in, want := range tests {
		if got := sanitizeRedirectPath(in); got != want {
			t.Errorf("sanitizeRedirectPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildRedirect(t *testing.T) {
	got := buildRedirect("https://www.example.com/", "/onboarding?step=2", "/onboarding", map[string][]string{
		"imported": {"connected"},
		"name":     {"Ana Ruiz"},
	})
	want := "https://www.example.com/onboarding?imported=connected&name=Ana+Ruiz&step=2"
	if got != want {
		t.Errorf("buildRedirect: got %q, want %q", got, want)
	}

	got = buildRedirect("https://www.example.com", "", "/onboarding", map[string][]string{"imported": {"error"}})
	if got != "https://www.example.com/onboarding?imported=error" {
		t.Errorf("default path: got %q", got)
	}
}
