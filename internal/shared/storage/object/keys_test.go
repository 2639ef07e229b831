package object

import (
	"strings"
	"testing"
	"time"
)

func TestDocumentKey(t *testing.T) {
	got, err := DocumentKey("U1", "doc-1", "Form 47 Smith.pdf")
	if err != nil {
		t.Fatalf("DocumentKey: %v", err)
	}
	if got != "U1/doc-1/Form_47_Smith.pdf" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestVersionKeyIsUniquePerVersion(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	k1, err := VersionKey("U1", "doc-1", 2, at, "a.pdf")
	if err != nil {
		t.Fatalf("VersionKey: %v", err)
	}
	k2, _ := VersionKey("U1", "doc-1", 3, at, "a.pdf")
	if k1 == k2 {
		t.Fatalf("expected distinct keys, got %s", k1)
	}
	if !strings.HasPrefix(k1, "U1/doc-1/versions/v2-1700000000123-") {
		t.Fatalf("unexpected key %s", k1)
	}
	if _, err := VersionKey("U1", "doc-1", 0, at, "a.pdf"); err == nil {
		t.Fatalf("expected error for version 0")
	}
}

func TestCleanKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"../x", "/abs/key", "a/../../b", ""} {
		if _, err := CleanKey(key); err == nil {
			t.Fatalf("expected error for %q", key)
		}
	}
	if got, err := CleanKey("a/b/../c"); err != nil || got != "a/c" {
		t.Fatalf("unexpected clean result %q %v", got, err)
	}
}
