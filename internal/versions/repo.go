package versions

import (
	"context"
	"time"
)

// Repo persists versions. Commit and Restore leave exactly one current version
// for the document and repoint the document at it, all in one atomic step.
type Repo interface {
	MaxVersionNumber(ctx context.Context, documentID string) (int, error)
	Commit(ctx context.Context, v Version) error
	Restore(ctx context.Context, documentID, versionID string, at time.Time) (Version, error)
	GetByID(ctx context.Context, id string) (Version, error)
	// ListByDocument returns versions ordered by version number, highest first.
	ListByDocument(ctx context.Context, documentID string) ([]Version, error)
}
