package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"intake-backend/internal/analysis"
)

func TestInvokePostsPayloadAndDecodesFields(t *testing.T) {
	var got analysis.Request
	var path, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fields":{"creditorName":"Acme Ltd","claimAmount":1250.5,"nested":{"x":1}},"summary":"proof of claim"}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL+"/", "secret", time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := client.Invoke(context.Background(), analysis.DefaultFunction, analysis.Request{
		DocumentID:              "doc-1",
		StoragePath:             "user-1/doc-1/Form_31.pdf",
		Title:                   "Form 31.pdf",
		IncludeRegulatory:       true,
		IncludeClientExtraction: true,
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if path != "/functions/v1/document-analysis" {
		t.Fatalf("unexpected path %q", path)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if got.DocumentID != "doc-1" || !got.IncludeRegulatory || !got.IncludeClientExtraction {
		t.Fatalf("unexpected payload %+v", got)
	}
	if res.Fields["creditorName"] != "Acme Ltd" || res.Fields["claimAmount"] != "1250.5" {
		t.Fatalf("unexpected fields %+v", res.Fields)
	}
	if _, ok := res.Fields["nested"]; ok {
		t.Fatalf("nested values should be dropped")
	}
	if res.Summary != "proof of claim" {
		t.Fatalf("unexpected summary %q", res.Summary)
	}
}

func TestInvokeReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := New(srv.URL, "", time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Invoke(context.Background(), "document-analysis", analysis.Request{DocumentID: "doc-1"})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected 503 error, got %v", err)
	}
}

func TestInvokeReportsFunctionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"unreadable scan"}}`))
	}))
	defer srv.Close()

	client, _ := New(srv.URL, "", time.Second)
	_, err := client.Invoke(context.Background(), "document-analysis", analysis.Request{DocumentID: "doc-1"})
	if err == nil || !strings.Contains(err.Error(), "unreadable scan") {
		t.Fatalf("expected function error, got %v", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New("  ", "", 0); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
