package minio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"intake-backend/internal/shared/storage/object"
)

// fakeS3Server answers the handful of calls the store makes.
type fakeS3Server struct {
	mu      sync.Mutex
	objects     map[string]bool
	puts        int
	conditional int
}

func (f *fakeS3Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := r.URL.Query()["location"]; ok {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodHead:
		if path == "docs" || f.objects[path] {
			w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		if r.Header.Get("If-None-Match") == "*" {
			f.conditional++
			if f.objects[path] {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusPreconditionFailed)
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>PreconditionFailed</Code><Message>At least one of the pre-conditions you specified did not hold</Message></Error>`)
				return
			}
		}
		f.objects[path] = true
		f.puts++
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestPutRejectsExistingKeyWithoutUpsert(t *testing.T) {
	fake := &fakeS3Server{objects: map[string]bool{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	endpoint := strings.TrimPrefix(srv.URL, "http://")
	store, err := New(context.Background(), endpoint, "key", "secret", "docs", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := store.Put(context.Background(), "U1/doc/a.txt", strings.NewReader("hello"), 5, object.PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	_, err = store.Put(context.Background(), "U1/doc/a.txt", strings.NewReader("hello"), 5, object.PutOptions{})
	if !errors.Is(err, object.ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}
	if fake.puts != 1 || fake.conditional != 2 {
		t.Fatalf("expected one stored PUT out of two conditional ones, got puts=%d conditional=%d", fake.puts, fake.conditional)
	}
	if got := store.PublicURL("U1/doc/a.txt"); got != "http://"+endpoint+"/docs/U1/doc/a.txt" {
		t.Fatalf("unexpected url %s", got)
	}
}

func TestPutUpsertOverwrites(t *testing.T) {
	fake := &fakeS3Server{objects: map[string]bool{"docs/U1/doc/a.txt": true}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(context.Background(), strings.TrimPrefix(srv.URL, "http://"), "key", "secret", "docs", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := store.Put(context.Background(), "U1/doc/a.txt", strings.NewReader("hello"), 5, object.PutOptions{Upsert: true}); err != nil {
		t.Fatalf("upsert Put: %v", err)
	}
	if fake.conditional != 0 || fake.puts != 1 {
		t.Fatalf("upsert must not be conditional, got puts=%d conditional=%d", fake.puts, fake.conditional)
	}
}
