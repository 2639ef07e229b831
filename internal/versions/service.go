package versions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"intake-backend/internal/documents"
	"intake-backend/internal/shared/storage/object"
	"intake-backend/internal/shared/telemetry"
)

// DocumentReader loads the parent document of a version.
type DocumentReader interface {
	FindByID(ctx context.Context, id string) (documents.Document, error)
}

// Manager creates, lists and restores document versions.
type Manager struct {
	Repo         Repo
	Documents    DocumentReader
	Store        object.ObjectStore
	CacheControl string
	Now          func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

// NextVersionNumber returns one more than the highest existing number, or 1.
func (m *Manager) NextVersionNumber(ctx context.Context, documentID string) (int, error) {
	if documentID == "" {
		return 0, ErrInvalidInput
	}
	max, err := m.Repo.MaxVersionNumber(ctx, documentID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// CreateInitialVersion records the first version of a document whose blob is
// already written at storagePath.
func (m *Manager) CreateInitialVersion(ctx context.Context, documentID, storagePath, authorID string) (Version, error) {
	if documentID == "" || strings.TrimSpace(storagePath) == "" {
		return Version{}, ErrInvalidInput
	}
	n, err := m.NextVersionNumber(ctx, documentID)
	if err != nil {
		return Version{}, err
	}
	v := Version{
		ID:             uuid.NewString(),
		DocumentID:     documentID,
		VersionNumber:  n,
		StoragePath:    storagePath,
		CreatedBy:      authorID,
		CreatedAt:      m.now(),
		IsCurrent:      true,
		Description:    "Initial upload",
		ChangesSummary: "Initial version",
	}
	if err := m.Repo.Commit(ctx, v); err != nil {
		return Version{}, err
	}
	telemetry.Info("version.committed", map[string]any{
		"document_id":    documentID,
		"version_id":     v.ID,
		"version_number": v.VersionNumber,
	})
	return v, nil
}

// CreateVersion writes content to a fresh version path and commits it as the
// document's current version.
func (m *Manager) CreateVersion(ctx context.Context, documentID string, content Content, authorID, description string) (Version, error) {
	if documentID == "" || content.Body == nil || content.FileName == "" {
		return Version{}, ErrInvalidInput
	}
	if m.Repo == nil || m.Documents == nil || m.Store == nil {
		return Version{}, errors.New("missing dependencies")
	}
	doc, err := m.Documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return Version{}, ErrDocumentNotFound
		}
		return Version{}, err
	}
	n, err := m.NextVersionNumber(ctx, documentID)
	if err != nil {
		return Version{}, err
	}

	now := m.now()
	key, err := object.VersionKey(doc.OwnerID, doc.ID, n, now, content.FileName)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	written, err := m.Store.Put(ctx, key, content.Body, content.Size, object.PutOptions{
		ContentType:  content.ContentType,
		CacheControl: m.CacheControl,
		Upsert:       false,
	})
	if err != nil {
		return Version{}, fmt.Errorf("%w: %w", ErrBlobWrite, err)
	}

	if strings.TrimSpace(description) == "" {
		description = fmt.Sprintf("Version %d", n)
	}
	v := Version{
		ID:             uuid.NewString(),
		DocumentID:     documentID,
		VersionNumber:  n,
		StoragePath:    key,
		CreatedBy:      authorID,
		CreatedAt:      now,
		IsCurrent:      true,
		Description:    description,
		ChangesSummary: fmt.Sprintf("Replaced content with %s (%d bytes)", content.FileName, written),
	}
	if err := m.Repo.Commit(ctx, v); err != nil {
		return Version{}, err
	}
	telemetry.Info("version.committed", map[string]any{
		"document_id":    documentID,
		"version_id":     v.ID,
		"version_number": v.VersionNumber,
		"storage_path":   key,
	})
	return v, nil
}

// RestoreVersion makes versionID the current version of documentID.
func (m *Manager) RestoreVersion(ctx context.Context, documentID, versionID string) (Version, error) {
	if documentID == "" || versionID == "" {
		return Version{}, ErrInvalidInput
	}
	v, err := m.Repo.Restore(ctx, documentID, versionID, m.now())
	if err != nil {
		return Version{}, err
	}
	telemetry.Info("version.restored", map[string]any{
		"document_id":    documentID,
		"version_id":     versionID,
		"version_number": v.VersionNumber,
	})
	return v, nil
}

// ListVersions returns the document's versions, newest number first.
func (m *Manager) ListVersions(ctx context.Context, documentID string) ([]Version, error) {
	if documentID == "" {
		return nil, ErrInvalidInput
	}
	return m.Repo.ListByDocument(ctx, documentID)
}
