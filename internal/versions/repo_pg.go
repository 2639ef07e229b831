package versions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"intake-backend/internal/documents"
	"intake-backend/internal/shared/storage/db"
)

const uniqueViolation = "23505"

const versionColumns = `id, document_id, version_number, storage_path, created_by, created_at, is_current, description, changes_summary`

// PGRepo implements Repo using Postgres. Commit and Restore run the current
// flag flip and the document repoint in a single transaction.
type PGRepo struct {
	DB *sql.DB
}

// MaxVersionNumber returns the highest version number for a document, or 0.
func (r *PGRepo) MaxVersionNumber(ctx context.Context, documentID string) (int, error) {
	const query = `SELECT COALESCE(MAX(version_number), 0) FROM document_versions WHERE document_id = $1`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, documentID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Commit inserts v as the only current version and repoints its document.
func (r *PGRepo) Commit(ctx context.Context, v Version) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := lockDocument(ctx, tx, v.DocumentID); err != nil {
			return err
		}
		if err := clearCurrent(ctx, tx, v.DocumentID); err != nil {
			return err
		}
		const insert = `
INSERT INTO document_versions (
    id,
    document_id,
    version_number,
    storage_path,
    created_by,
    created_at,
    is_current,
    description,
    changes_summary
) VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)`
		_, err := tx.ExecContext(ctx, insert,
			v.ID,
			v.DocumentID,
			v.VersionNumber,
			v.StoragePath,
			v.CreatedBy,
			v.CreatedAt,
			v.Description,
			v.ChangesSummary,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return ErrConflict
			}
			return err
		}
		return repointDocument(ctx, tx, v.DocumentID, v.ID, v.StoragePath, v.CreatedAt)
	})
}

// Restore makes an existing version current and repoints its document.
func (r *PGRepo) Restore(ctx context.Context, documentID, versionID string, at time.Time) (Version, error) {
	var out Version
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := lockDocument(ctx, tx, documentID); err != nil {
			return err
		}
		query := `SELECT ` + versionColumns + ` FROM document_versions WHERE id = $1 AND document_id = $2`
		v, err := scanVersion(tx.QueryRowContext(ctx, query, versionID, documentID))
		if err != nil {
			return err
		}
		if err := clearCurrent(ctx, tx, documentID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE document_versions SET is_current = TRUE WHERE id = $1`, versionID); err != nil {
			return err
		}
		if err := repointDocument(ctx, tx, documentID, v.ID, v.StoragePath, at); err != nil {
			return err
		}
		v.IsCurrent = true
		out = v
		return nil
	})
	if err != nil {
		return Version{}, err
	}
	return out, nil
}

// GetByID fetches a version.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Version, error) {
	query := `SELECT ` + versionColumns + ` FROM document_versions WHERE id = $1`
	return scanVersion(r.DB.QueryRowContext(ctx, query, id))
}

// ListByDocument returns a document's versions, highest number first.
func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Version, error) {
	query := `SELECT ` + versionColumns + `
FROM document_versions
WHERE document_id = $1
ORDER BY version_number DESC`
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func lockDocument(ctx context.Context, tx *sql.Tx, documentID string) error {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM documents WHERE id = $1 FOR UPDATE`, documentID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || documents.IsMalformedID(err) {
		return ErrDocumentNotFound
	}
	return err
}

func clearCurrent(ctx context.Context, tx *sql.Tx, documentID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE document_versions SET is_current = FALSE WHERE document_id = $1 AND is_current`, documentID)
	return err
}

func repointDocument(ctx context.Context, tx *sql.Tx, documentID, versionID, storagePath string, at time.Time) error {
	const query = `
UPDATE documents
SET storage_path = $2, current_version_id = $3, updated_at = $4
WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, documentID, storagePath, versionID, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (Version, error) {
	var v Version
	err := row.Scan(
		&v.ID,
		&v.DocumentID,
		&v.VersionNumber,
		&v.StoragePath,
		&v.CreatedBy,
		&v.CreatedAt,
		&v.IsCurrent,
		&v.Description,
		&v.ChangesSummary,
	)
	if errors.Is(err, sql.ErrNoRows) || documents.IsMalformedID(err) {
		return Version{}, ErrNotFound
	}
	return v, err
}

var _ Repo = (*PGRepo)(nil)
