package uploads

import (
	"errors"

	"intake-backend/internal/documents"
)

// DefaultMaxBytes is the upload size limit when none is configured.
const DefaultMaxBytes = documents.DefaultMaxBytes

// Validator checks size and type class. It performs no I/O.
type Validator struct {
	MaxBytes int64
}

// Validate returns a *ValidationError when f must not be uploaded.
func (v Validator) Validate(f File) error {
	err := documents.CheckFile(f.Name, f.ContentType, f.Size, v.MaxBytes)
	var rej *documents.FileRejection
	if errors.As(err, &rej) {
		return &ValidationError{Reason: rej.Reason}
	}
	return err
}
