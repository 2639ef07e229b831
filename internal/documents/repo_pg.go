package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"intake-backend/internal/shared/storage/db"
)

// invalidTextRepresentation is raised when an id is not a valid UUID.
const invalidTextRepresentation = "22P02"

const documentColumns = `id, owner_id, parent_folder_id, title, size_bytes, mime_type, storage_path, current_version_id, kind, metadata, analysis_status, created_at, updated_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    owner_id,
    parent_folder_id,
    title,
    size_bytes,
    mime_type,
    storage_path,
    current_version_id,
    kind,
    metadata,
    analysis_status,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OwnerID,
		nullString(doc.ParentFolderID),
		doc.Title,
		doc.SizeBytes,
		doc.MimeType,
		nullString(doc.StoragePath),
		nullString(doc.CurrentVersionID),
		string(doc.Kind),
		meta,
		string(doc.AnalysisStatus),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// GetByID fetches a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, id))
}

// FindExact returns owner documents with the exact title and size, newest first.
func (r *PGRepo) FindExact(ctx context.Context, ownerID, title string, sizeBytes int64) ([]Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = $1 AND title = $2 AND size_bytes = $3
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, title, sizeBytes)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

// TitleExists reports whether the owner already has a document with title.
func (r *PGRepo) TitleExists(ctx context.Context, ownerID, title string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM documents WHERE owner_id = $1 AND title = $2)`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, ownerID, title).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByOwner lists documents ordered newest-first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

// Update locks the row, applies fn and writes every mutable column back.
func (r *PGRepo) Update(ctx context.Context, id string, fn func(doc *Document) error) (Document, error) {
	var out Document
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 FOR UPDATE`
		doc, err := scanDocument(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			return err
		}
		if err := fn(&doc); err != nil {
			return err
		}
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		const update = `
UPDATE documents
SET parent_folder_id = $2,
    title = $3,
    storage_path = $4,
    current_version_id = $5,
    kind = $6,
    metadata = $7,
    analysis_status = $8,
    updated_at = $9
WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update,
			id,
			nullString(doc.ParentFolderID),
			doc.Title,
			nullString(doc.StoragePath),
			nullString(doc.CurrentVersionID),
			string(doc.Kind),
			meta,
			string(doc.AnalysisStatus),
			doc.UpdatedAt,
		); err != nil {
			return err
		}
		doc.ID = id
		out = doc
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	return out, nil
}

// SetCurrentVersion repoints the document at a committed version.
func (r *PGRepo) SetCurrentVersion(ctx context.Context, documentID, versionID, storagePath string, at time.Time) error {
	const query = `
UPDATE documents
SET current_version_id = $2, storage_path = $3, updated_at = $4
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, documentID, versionID, storagePath, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// IsMalformedID reports whether Postgres rejected an id that cannot name any
// row. Callers treat it as not found.
func IsMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc              Document
		parentFolderID   sql.NullString
		storagePath      sql.NullString
		currentVersionID sql.NullString
		kind             string
		metadata         []byte
		status           string
	)
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&parentFolderID,
		&doc.Title,
		&doc.SizeBytes,
		&doc.MimeType,
		&storagePath,
		&currentVersionID,
		&kind,
		&metadata,
		&status,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || IsMalformedID(err) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.ParentFolderID = parentFolderID.String
	doc.StoragePath = storagePath.String
	doc.CurrentVersionID = currentVersionID.String
	doc.Kind = Kind(kind)
	doc.AnalysisStatus = AnalysisStatus(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return Document{}, fmt.Errorf("decode metadata id=%s: %w", doc.ID, err)
		}
	}
	return doc, nil
}

func collectDocuments(rows *sql.Rows) ([]Document, error) {
	defer rows.Close()
	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

var (
	_ Repo    = (*PGRepo)(nil)
	_ Pointer = (*PGRepo)(nil)
)
