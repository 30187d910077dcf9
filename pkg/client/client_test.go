package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/carelinkhealth/onboarding/pkg/client"
)

// ── Stub server ─────────────────────────────────────────────────────────

func stubServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var purged []string
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/external/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"configured": true})
	})

	mux.HandleFunc("/auth/external/profile", func(w http.ResponseWriter, r *http.Request) {
		sid := r.URL.Query().Get("session_id")
		switch r.Method {
		case http.MethodDelete:
			purged = append(purged, sid)
			json.NewEncoder(w).Encode(map[string]any{"success": true})
		case http.MethodGet:
			if sid != "sess-1" {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "no imported profile for this session"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"profile": map[string]any{"external_id": "li-123", "display_name": "Ana Ruiz"},
				"mappedData": map[string]any{
					"full_name":            "Ana Ruiz",
					"current_institutions": []string{"General Hospital"},
				},
			})
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &purged
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestNew_invalidURL(t *testing.T) {
	if _, err := client.New("not a url"); err == nil {
		t.Error("expected error for invalid base URL")
	}
}

func TestStatus(t *testing.T) {
	srv, _ := stubServer(t)
	c, err := client.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	res, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !res.Configured {
		t.Error("expected configured=true")
	}
}

func TestProfile(t *testing.T) {
	srv, _ := stubServer(t)
	c, _ := client.New(srv.URL)

	res, err := c.Profile(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if res.Profile.ExternalID != "li-123" {
		t.Errorf("ExternalID: got %q", res.Profile.ExternalID)
	}
	if res.MappedData.FullName != "Ana Ruiz" {
		t.Errorf("FullName: got %q", res.MappedData.FullName)
	}
	if len(res.MappedData.CurrentInstitutions) != 1 {
		t.Errorf("CurrentInstitutions: got %v", res.MappedData.CurrentInstitutions)
	}
}

func TestProfile_notFound(t *testing.T) {
	srv, _ := stubServer(t)
	c, _ := client.New(srv.URL)

	_, err := c.Profile(context.Background(), "unknown")
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPurge(t *testing.T) {
	srv, purged := stubServer(t)
	c, _ := client.New(srv.URL + "/")

	if err := c.Purge(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if len(*purged) != 1 || (*purged)[0] != "sess-1" {
		t.Errorf("expected purge of sess-1, got %v", *purged)
	}
}

func TestStartURL(t *testing.T) {
	c, _ := client.New("https://onboarding.example.com/")
	raw := c.StartURL("sess 1", "/onboarding/doctor")

	if !strings.HasPrefix(raw, "https://onboarding.example.com/auth/external/start?") {
		t.Fatalf("unexpected start URL: %s", raw)
	}
	u, _ := url.Parse(raw)
	if u.Query().Get("session_id") != "sess 1" || u.Query().Get("redirect") != "/onboarding/doctor" {
		t.Errorf("unexpected query: %s", u.RawQuery)
	}
}
