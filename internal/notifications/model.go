package notifications

import (
	"errors"
	"time"
)

// Severity classifies a notification for display.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// Categories used by the upload pipeline.
const (
	CategoryUpload   = "upload"
	CategoryAnalysis = "analysis"
)

var ErrInvalidInput = errors.New("invalid notification")

// Notification is a user-facing message. Notifications are written once and
// never updated.
type Notification struct {
	ID                string
	UserID            string
	Title             string
	Message           string
	Severity          Severity
	RelatedDocumentID string
	FileName          string
	Category          string
	CreatedAt         time.Time
}
