package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Document)}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[doc.ID]; exists {
		return ErrInvalidInput
	}
	r.data[doc.ID] = cloneDocument(doc)
	return nil
}

// GetByID returns a document by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

// FindExact returns owner documents matching title and size, newest first.
func (r *MemoryRepo) FindExact(ctx context.Context, ownerID, title string, sizeBytes int64) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Document
	for _, doc := range r.data {
		if doc.OwnerID == ownerID && doc.Title == title && doc.SizeBytes == sizeBytes {
			out = append(out, cloneDocument(doc))
		}
	}
	r.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

// TitleExists reports whether the owner already has a document with title.
func (r *MemoryRepo) TitleExists(ctx context.Context, ownerID, title string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.data {
		if doc.OwnerID == ownerID && doc.Title == title {
			return true, nil
		}
	}
	return false, nil
}

// ListByOwner returns documents for an owner, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.RLock()
	var docs []Document
	for _, doc := range r.data {
		if doc.OwnerID == ownerID {
			docs = append(docs, cloneDocument(doc))
		}
	}
	r.mu.RUnlock()

	if offset >= len(docs) {
		return []Document{}, nil
	}
	sortNewestFirst(docs)
	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

// Update applies fn under the write lock.
func (r *MemoryRepo) Update(ctx context.Context, id string, fn func(doc *Document) error) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	working := cloneDocument(doc)
	if err := fn(&working); err != nil {
		return Document{}, err
	}
	working.ID = id
	r.data[id] = working
	return cloneDocument(working), nil
}

// SetCurrentVersion repoints the document at a committed version.
func (r *MemoryRepo) SetCurrentVersion(ctx context.Context, documentID, versionID, storagePath string, at time.Time) error {
	_, err := r.Update(ctx, documentID, func(doc *Document) error {
		doc.CurrentVersionID = versionID
		doc.StoragePath = storagePath
		doc.UpdatedAt = at
		return nil
	})
	return err
}

func sortNewestFirst(docs []Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}

// cloneDocument copies the pointer-valued parts of the metadata so callers
// cannot mutate stored state.
func cloneDocument(doc Document) Document {
	m := doc.Metadata
	if m.Form31 != nil {
		v := *m.Form31
		m.Form31 = &v
	}
	if m.Form47 != nil {
		v := *m.Form47
		m.Form47 = &v
	}
	if m.General != nil {
		v := *m.General
		m.General = &v
	}
	if m.Upload != nil {
		v := *m.Upload
		m.Upload = &v
	}
	if m.Analysis != nil {
		v := *m.Analysis
		m.Analysis = &v
	}
	if m.Labels != nil {
		labels := make(map[string]string, len(m.Labels))
		for k, v := range m.Labels {
			labels[k] = v
		}
		m.Labels = labels
	}
	doc.Metadata = m
	return doc
}

var (
	_ Repo    = (*MemoryRepo)(nil)
	_ Pointer = (*MemoryRepo)(nil)
)
