package uploads

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate matches DuplicateConflict via errors.Is.
	ErrDuplicate = errors.New("duplicate document")
	// ErrCancelled is returned when the caller chose to cancel a duplicate upload.
	ErrCancelled = errors.New("upload cancelled")
)

// ValidationError rejects a file before any write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// AuthError means no valid session exists. Nothing has been written.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return "auth: " + errText(e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// DuplicateConflict reports an exact duplicate when the caller supplied no
// decision callback.
type DuplicateConflict struct {
	Candidate Candidate
}

func (e *DuplicateConflict) Error() string {
	return fmt.Sprintf("duplicate of document %s", e.Candidate.MatchedDocumentID)
}

func (e *DuplicateConflict) Is(target error) bool { return target == ErrDuplicate }

// StorageError is a failed blob write. The document record may already exist.
type StorageError struct {
	Stage Stage
	Err   error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage (%s): %s", e.Stage, errText(e.Err)) }
func (e *StorageError) Unwrap() error { return e.Err }

// RecordError is a failed document store read or write.
type RecordError struct {
	Stage Stage
	Err   error
}

func (e *RecordError) Error() string { return fmt.Sprintf("record (%s): %s", e.Stage, errText(e.Err)) }
func (e *RecordError) Unwrap() error { return e.Err }

// AnalysisError is recorded on the document and reported in the Outcome. It
// never fails an upload.
type AnalysisError struct {
	DocumentID string
	Err        error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis for document %s: %s", e.DocumentID, errText(e.Err))
}
func (e *AnalysisError) Unwrap() error { return e.Err }

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// UserMessage converts a pipeline error into the text shown to users. Only
// duplicates and cancellations get their own wording.
func UserMessage(err error) string {
	var dup *DuplicateConflict
	switch {
	case err == nil:
		return ""
	case errors.As(err, &dup):
		return fmt.Sprintf("A document named %q with the same size already exists.", dup.Candidate.Title)
	case errors.Is(err, ErrCancelled):
		return "Upload cancelled."
	default:
		return "Upload failed. Please try again."
	}
}
