package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/clearintake-ai/platform/pkg/common/models"
)

func completionsResponse(t *testing.T, fields models.ExtractedFields) []byte {
	t.Helper()
	content, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("failed to marshal fields: %v", err)
	}
	body, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": string(content)}},
		},
	})
	if err != nil {
		t.Fatalf("failed to marshal response: %v", err)
	}
	return body
}

func TestVisionExtractorUnconfiguredReturnsEmptyPayload(t *testing.T) {
	x := NewVisionExtractor("", "", "gpt-4o", "2024-06-01", time.Second)
	fields := x.Extract(context.Background(), "referral.png")
	if !reflect.DeepEqual(fields, models.ExtractedFields{}) {
		t.Fatalf("expected zero payload, got %+v", fields)
	}
}

func TestVisionExtractorParsesBackendResponse(t *testing.T) {
	want := models.ExtractedFields{}
	want.Patient.FirstName = "Jane"
	want.Patient.LastName = "Rivera"
	want.Clinical.VisitsRequested = 8

	var gotPath, gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionsResponse(t, want))
	}))
	defer ts.Close()

	x := NewVisionExtractor(ts.URL, "test-key", "gpt-4o", "2024-06-01", 5*time.Second)
	fields := x.Extract(context.Background(), "https://example.com/referral.png")

	if fields.Patient.FirstName != "Jane" || fields.Patient.LastName != "Rivera" {
		t.Fatalf("unexpected patient fields: %+v", fields.Patient)
	}
	if fields.Clinical.VisitsRequested != 8 {
		t.Fatalf("unexpected visits: %d", fields.Clinical.VisitsRequested)
	}
	if !strings.Contains(gotPath, "/openai/deployments/gpt-4o/chat/completions") {
		t.Fatalf("unexpected request path: %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api-key header, got %q", gotKey)
	}
}

func TestVisionExtractorDegradesOnServerError(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	x := NewVisionExtractor(ts.URL, "test-key", "gpt-4o", "2024-06-01", 5*time.Second)
	fields := x.Extract(context.Background(), "https://example.com/referral.png")
	if !reflect.DeepEqual(fields, models.ExtractedFields{}) {
		t.Fatalf("expected zero payload on failure, got %+v", fields)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts for a server error, got %d", attempts)
	}
}

func TestVisionExtractorDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer ts.Close()

	x := NewVisionExtractor(ts.URL, "test-key", "gpt-4o", "2024-06-01", 5*time.Second)
	x.Extract(context.Background(), "https://example.com/referral.png")
	if attempts != 1 {
		t.Fatalf("expected a single attempt for a client error, got %d", attempts)
	}
}

func TestDocumentURLInlinesLocalFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "referral.png")
	if err := os.WriteFile(path, []byte("fake-image-bytes"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	x := NewVisionExtractor("https://azure.example.com", "key", "gpt-4o", "2024-06-01", time.Second)
	url, err := x.documentURL(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("expected a png data URI, got %.40s", url)
	}
}

func TestDocumentURLPassesRemoteRefsThrough(t *testing.T) {
	x := NewVisionExtractor("https://azure.example.com", "key", "gpt-4o", "2024-06-01", time.Second)
	ref := "https://cdn.example.com/doc.pdf"
	url, err := x.documentURL(ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != ref {
		t.Fatalf("expected pass-through, got %s", url)
	}
}
