package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/carelinkhealth/onboarding/pkg/client"
)

func profileServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("session_id") != "sess-1" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "no imported profile for this session"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"profile": map[string]any{"external_id": "li-1"},
			"mappedData": map[string]any{
				"full_name":      "Ana Ruiz",
				"medical_school": "Universidad de Medicina",
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchProfiles_keepsInputOrder(t *testing.T) {
	srv := profileServer(t)
	c, err := client.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	rows := fetchProfiles(context.Background(), c, []string{"missing", "sess-1"})
	if rows[0].sessionID != "missing" || !errors.Is(rows[0].err, client.ErrNotFound) {
		t.Errorf("row 0: %+v", rows[0])
	}
	if rows[1].err != nil || rows[1].result.MappedData.FullName != "Ana Ruiz" {
		t.Errorf("row 1: %+v", rows[1])
	}
}

func TestPrintProfilesText_table(t *testing.T) {
	srv := profileServer(t)
	c, _ := client.New(srv.URL)
	rows := fetchProfiles(context.Background(), c, []string{"sess-1", "missing"})

	var buf bytes.Buffer
	if err := printProfilesText(&buf, rows); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Universidad de Medicina") {
		t.Errorf("expected school in output:\n%s", out)
	}
	if !strings.Contains(out, "not found") {
		t.Errorf("expected not found row:\n%s", out)
	}
}

func TestPrintProfilesText_singleNotFound(t *testing.T) {
	var buf bytes.Buffer
	err := printProfilesText(&buf, []profileRow{{sessionID: "x", err: client.ErrNotFound}})
	if err != nil {
		t.Fatalf("not found should not be an error: %v", err)
	}
	if !strings.Contains(buf.String(), "no imported profile for session x") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
