package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"intake-backend/internal/shared/telemetry"
)

// NewDocument carries what is known about a document before any content is written.
type NewDocument struct {
	OwnerID          string
	ParentFolderID   string
	Title            string
	MimeType         string
	SizeBytes        int64
	Kind             Kind
	RequiresAnalysis bool
	Labels           map[string]string
}

// Service is the document record store.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// NewService constructs a Service backed by repo.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// NormalizeTitle is the form in which titles are stored and compared.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(title)
}

// Create records a document with no storage path. Its analysis status is
// pending when analysis is required and not_applicable otherwise.
func (s *Service) Create(ctx context.Context, in NewDocument) (Document, error) {
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.Title = NormalizeTitle(in.Title)
	if in.OwnerID == "" || in.Title == "" || in.SizeBytes < 0 {
		return Document{}, ErrInvalidInput
	}
	if s.Repo == nil {
		return Document{}, errors.New("missing dependencies")
	}

	kind := in.Kind
	if kind == "" {
		kind = KindNone
	}
	status := StatusNotApplicable
	if in.RequiresAnalysis {
		status = StatusPending
	}
	now := s.now()
	doc := Document{
		ID:             uuid.NewString(),
		OwnerID:        in.OwnerID,
		ParentFolderID: strings.TrimSpace(in.ParentFolderID),
		Title:          in.Title,
		SizeBytes:      in.SizeBytes,
		MimeType:       in.MimeType,
		Kind:           kind,
		Metadata:       NewMetadata(kind, in.Title, in.Labels),
		AnalysisStatus: status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	telemetry.Info("document.created", map[string]any{
		"document_id":     doc.ID,
		"owner_id":        doc.OwnerID,
		"kind":            string(doc.Kind),
		"analysis_status": string(doc.AnalysisStatus),
	})
	return doc, nil
}

// UpdateStoragePath records the blob path of the first committed content and
// applies patch to the metadata in the same write.
func (s *Service) UpdateStoragePath(ctx context.Context, id, path string, patch func(*Metadata)) (Document, error) {
	if id == "" || strings.TrimSpace(path) == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.Update(ctx, id, func(doc *Document) error {
		doc.StoragePath = path
		if patch != nil {
			patch(&doc.Metadata)
		}
		doc.UpdatedAt = s.now()
		return nil
	})
}

// UpdateAnalysisStatus moves the document to status, rejecting transitions the
// status machine does not allow.
func (s *Service) UpdateAnalysisStatus(ctx context.Context, id string, status AnalysisStatus, patch func(*Metadata)) (Document, error) {
	if id == "" || !status.Valid() {
		return Document{}, ErrInvalidInput
	}
	var from AnalysisStatus
	doc, err := s.Repo.Update(ctx, id, func(doc *Document) error {
		from = doc.AnalysisStatus
		if !from.CanTransition(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
		}
		doc.AnalysisStatus = status
		if patch != nil {
			patch(&doc.Metadata)
		}
		doc.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	telemetry.Info("document.analysis_status", map[string]any{
		"document_id": id,
		"from":        string(from),
		"to":          string(status),
	})
	return doc, nil
}

// FindByID returns the document with id.
func (s *Service) FindByID(ctx context.Context, id string) (Document, error) {
	if id == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, id)
}

// FindExact returns the owner's documents with exactly this title and size.
func (s *Service) FindExact(ctx context.Context, ownerID, title string, sizeBytes int64) ([]Document, error) {
	title = NormalizeTitle(title)
	if ownerID == "" || title == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.FindExact(ctx, ownerID, title, sizeBytes)
}

// Owned returns the document when it belongs to userID. Documents owned by
// someone else are reported as ErrNotFound.
func (s *Service) Owned(ctx context.Context, id, userID string) (Document, error) {
	doc, err := s.FindByID(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if doc.OwnerID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// TitleExists reports whether the owner already uses title.
func (s *Service) TitleExists(ctx context.Context, ownerID, title string) (bool, error) {
	title = NormalizeTitle(title)
	if ownerID == "" || title == "" {
		return false, ErrInvalidInput
	}
	return s.Repo.TitleExists(ctx, ownerID, title)
}

// List returns the owner's documents newest first.
func (s *Service) List(ctx context.Context, ownerID string, limit, offset int) ([]Document, error) {
	if ownerID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByOwner(ctx, ownerID, limit, offset)
}
