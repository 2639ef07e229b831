package versions

import "errors"

var (
	ErrNotFound         = errors.New("version not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	// ErrConflict means the version number is already taken for the document.
	ErrConflict = errors.New("version number already exists")
	// ErrBlobWrite wraps failures writing version content to object storage.
	ErrBlobWrite = errors.New("version blob write failed")
)
