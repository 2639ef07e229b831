package uploads

import (
	"context"
	"testing"

	"intake-backend/internal/documents"
)

func TestDuplicateDetectorMatchesOwnerTitleAndSize(t *testing.T) {
	ctx := context.Background()
	docs := documents.NewService(documents.NewMemoryRepo())
	existing, err := docs.Create(ctx, documents.NewDocument{OwnerID: "U1", Title: "Form 47 Smith.pdf", SizeBytes: 50000, Kind: documents.KindForm47})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	d := DuplicateDetector{Docs: docs}

	res, err := d.Check(ctx, File{Name: "Form 47 Smith.pdf", Size: 50000}, "U1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.IsDuplicate || res.Candidate == nil || res.Candidate.MatchedDocumentID != existing.ID {
		t.Fatalf("expected duplicate of %s, got %+v", existing.ID, res)
	}
	if res.Candidate.Kind != documents.KindForm47 {
		t.Fatalf("expected candidate kind form_47, got %s", res.Candidate.Kind)
	}

	misses := []struct {
		file  File
		owner string
	}{
		{File{Name: "Form 47 Smith.pdf", Size: 50001}, "U1"},
		{File{Name: "Form 47 Smith (copy).pdf", Size: 50000}, "U1"},
		{File{Name: "Form 47 Smith.pdf", Size: 50000}, "U2"},
	}
	for _, m := range misses {
		res, err := d.Check(ctx, m.file, m.owner)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if res.IsDuplicate {
			t.Fatalf("unexpected duplicate for %+v owner %s", m.file, m.owner)
		}
	}
}
