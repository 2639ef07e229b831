package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	// FindExact returns documents of ownerID with exactly this title and size, newest first.
	FindExact(ctx context.Context, ownerID, title string, sizeBytes int64) ([]Document, error)
	TitleExists(ctx context.Context, ownerID, title string) (bool, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Document, error)
	// Update applies fn to the stored document and persists the result as one write.
	Update(ctx context.Context, id string, fn func(doc *Document) error) (Document, error)
}

// Pointer repoints a document at its current version.
type Pointer interface {
	SetCurrentVersion(ctx context.Context, documentID, versionID, storagePath string, at time.Time) error
}
