package versions

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"intake-backend/internal/documents"
)

// MemoryRepo is an in-memory Repo. Parent documents are repointed through
// Docs while the version lock is held.
type MemoryRepo struct {
	Docs documents.Pointer

	mu   sync.Mutex
	data map[string]Version
}

// NewMemoryRepo constructs a MemoryRepo that repoints documents through docs.
func NewMemoryRepo(docs documents.Pointer) *MemoryRepo {
	return &MemoryRepo{Docs: docs, data: make(map[string]Version)}
}

func (r *MemoryRepo) MaxVersionNumber(ctx context.Context, documentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, v := range r.data {
		if v.DocumentID == documentID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (r *MemoryRepo) Commit(ctx context.Context, v Version) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.DocumentID == v.DocumentID && existing.VersionNumber == v.VersionNumber {
			return ErrConflict
		}
	}
	if err := r.repoint(ctx, v.DocumentID, v.ID, v.StoragePath, v.CreatedAt); err != nil {
		return err
	}
	r.clearCurrent(v.DocumentID)
	v.IsCurrent = true
	r.data[v.ID] = v
	return nil
}

func (r *MemoryRepo) Restore(ctx context.Context, documentID, versionID string, at time.Time) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.data[versionID]
	if !ok || target.DocumentID != documentID {
		return Version{}, ErrNotFound
	}
	if err := r.repoint(ctx, documentID, target.ID, target.StoragePath, at); err != nil {
		return Version{}, err
	}
	r.clearCurrent(documentID)
	target.IsCurrent = true
	r.data[versionID] = target
	return target, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[id]
	if !ok {
		return Version{}, ErrNotFound
	}
	return v, nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	var out []Version
	for _, v := range r.data {
		if v.DocumentID == documentID {
			out = append(out, v)
		}
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (r *MemoryRepo) repoint(ctx context.Context, documentID, versionID, storagePath string, at time.Time) error {
	if r.Docs == nil {
		return nil
	}
	err := r.Docs.SetCurrentVersion(ctx, documentID, versionID, storagePath, at)
	if errors.Is(err, documents.ErrNotFound) {
		return ErrDocumentNotFound
	}
	return err
}

func (r *MemoryRepo) clearCurrent(documentID string) {
	for id, v := range r.data {
		if v.DocumentID == documentID && v.IsCurrent {
			v.IsCurrent = false
			r.data[id] = v
		}
	}
}

var _ Repo = (*MemoryRepo)(nil)
