package documents

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var documentRowColumns = []string{
	"id", "owner_id", "parent_folder_id", "title", "size_bytes", "mime_type",
	"storage_path", "current_version_id", "kind", "metadata", "analysis_status",
	"created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateWritesNullsForUnsetColumns(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := Document{
		ID:             "doc-1",
		OwnerID:        "user-1",
		Title:          "Form 47 Smith.pdf",
		SizeBytes:      50000,
		MimeType:       "application/pdf",
		Kind:           KindForm47,
		Metadata:       NewMetadata(KindForm47, "Form 47 Smith.pdf", nil),
		AnalysisStatus: StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.OwnerID,
			nil, // parent_folder_id
			doc.Title,
			doc.SizeBytes,
			doc.MimeType,
			nil, // storage_path
			nil, // current_version_id
			"form_47",
			sqlmock.AnyArg(),
			"pending",
			now,
			now,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoGetByIDMalformedIDIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1").
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "not-a-uuid"`})

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoGetByIDDecodesMetadata(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentRowColumns).AddRow(
		"doc-1", "user-1", nil, "proof of claim.pdf", int64(1200), "application/pdf",
		"user-1/doc-1/proof_of_claim.pdf", "ver-1", "form_31",
		[]byte(`{"kind":"form_31","form31":{"creditorName":"Acme Ltd"}}`),
		"complete", now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1").
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.ParentFolderID != "" {
		t.Fatalf("expected empty parent folder, got %q", doc.ParentFolderID)
	}
	if doc.Kind != KindForm31 || doc.AnalysisStatus != StatusComplete {
		t.Fatalf("unexpected kind/status: %s/%s", doc.Kind, doc.AnalysisStatus)
	}
	if doc.Metadata.Form31 == nil || doc.Metadata.Form31.CreditorName != "Acme Ltd" {
		t.Fatalf("expected decoded form 31 fields, got %+v", doc.Metadata.Form31)
	}
	if doc.CurrentVersionID != "ver-1" {
		t.Fatalf("expected current version ver-1, got %q", doc.CurrentVersionID)
	}
}

func TestPGRepoFindExactFiltersByOwnerTitleAndSize(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentRowColumns).AddRow(
		"doc-9", "user-1", nil, "Form 47 Smith.pdf", int64(50000), "application/pdf",
		"user-1/doc-9/Form_47_Smith.pdf", "ver-9", "form_47",
		[]byte(`{"kind":"form_47","form47":{}}`), "complete", now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE owner_id = \\$1 AND title = \\$2 AND size_bytes = \\$3 ORDER BY created_at DESC").
		WithArgs("user-1", "Form 47 Smith.pdf", int64(50000)).
		WillReturnRows(rows)

	docs, err := repo.FindExact(context.Background(), "user-1", "Form 47 Smith.pdf", 50000)
	if err != nil {
		t.Fatalf("FindExact: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "doc-9" {
		t.Fatalf("unexpected result: %+v", docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateLocksRowAndWritesBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	updated := created.Add(time.Minute)
	rows := sqlmock.NewRows(documentRowColumns).AddRow(
		"doc-1", "user-1", "folder-1", "Form 47 Smith.pdf", int64(50000), "application/pdf",
		nil, nil, "form_47", []byte(`{"kind":"form_47","form47":{}}`), "pending", created, created,
	)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1 FOR UPDATE").
		WithArgs("doc-1").
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE documents").
		WithArgs(
			"doc-1",
			"folder-1",
			"Form 47 Smith.pdf",
			"user-1/doc-1/Form_47_Smith.pdf",
			nil,
			"form_47",
			sqlmock.AnyArg(),
			"pending",
			updated,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	doc, err := repo.Update(context.Background(), "doc-1", func(doc *Document) error {
		doc.StoragePath = "user-1/doc-1/Form_47_Smith.pdf"
		doc.UpdatedAt = updated
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if doc.StoragePath != "user-1/doc-1/Form_47_Smith.pdf" {
		t.Fatalf("unexpected storage path %q", doc.StoragePath)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateRollsBackWhenMutationFails(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentRowColumns).AddRow(
		"doc-1", "user-1", nil, "contract.pdf", int64(10), "application/pdf",
		nil, nil, "none", []byte(`{"kind":"none"}`), "not_applicable", now, now,
	)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("doc-1").WillReturnRows(rows)
	mock.ExpectRollback()

	boom := errors.New("boom")
	_, err := repo.Update(context.Background(), "doc-1", func(*Document) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSetCurrentVersionMissingDocument(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now().UTC()
	mock.ExpectExec("UPDATE documents SET current_version_id").
		WithArgs("doc-x", "ver-1", "user-1/doc-x/a.pdf", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetCurrentVersion(context.Background(), "doc-x", "ver-1", "user-1/doc-x/a.pdf", at)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
