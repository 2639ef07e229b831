package uploads

import (
	"context"
	"time"

	"intake-backend/internal/documents"
)

// Candidate is an existing document that an upload duplicates.
type Candidate struct {
	MatchedDocumentID string         `json:"matchedDocumentId"`
	Title             string         `json:"title"`
	SizeBytes         int64          `json:"sizeBytes"`
	Kind              documents.Kind `json:"kind"`
	UploadedAt        time.Time      `json:"uploadedAt"`
}

// DuplicateResult is the outcome of a duplicate check.
type DuplicateResult struct {
	IsDuplicate bool
	Candidate   *Candidate
}

// ExactFinder looks documents up by owner, title and size.
type ExactFinder interface {
	FindExact(ctx context.Context, ownerID, title string, sizeBytes int64) ([]documents.Document, error)
}

// DuplicateDetector matches uploads on (owner, title, size) only. Content is
// never compared: same-name same-size files always match and renamed copies
// never do.
type DuplicateDetector struct {
	Docs ExactFinder
}

// Check reports whether ownerID already has a document with f's name and size.
// The newest match is returned.
func (d DuplicateDetector) Check(ctx context.Context, f File, ownerID string) (DuplicateResult, error) {
	matches, err := d.Docs.FindExact(ctx, ownerID, f.Name, f.Size)
	if err != nil {
		return DuplicateResult{}, err
	}
	if len(matches) == 0 {
		return DuplicateResult{}, nil
	}
	m := matches[0]
	return DuplicateResult{
		IsDuplicate: true,
		Candidate: &Candidate{
			MatchedDocumentID: m.ID,
			Title:             m.Title,
			SizeBytes:         m.SizeBytes,
			Kind:              m.Kind,
			UploadedAt:        m.CreatedAt,
		},
	}, nil
}
