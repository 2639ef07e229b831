package documents

import "time"

// AnalysisStatus tracks a document's external content analysis.
type AnalysisStatus string

const (
	StatusNotApplicable AnalysisStatus = "not_applicable"
	StatusPending       AnalysisStatus = "pending"
	StatusProcessing    AnalysisStatus = "processing"
	StatusComplete      AnalysisStatus = "complete"
	StatusError         AnalysisStatus = "error"
)

// Valid reports whether s is one of the known statuses.
func (s AnalysisStatus) Valid() bool {
	switch s {
	case StatusNotApplicable, StatusPending, StatusProcessing, StatusComplete, StatusError:
		return true
	}
	return false
}

// CanTransition reports whether a document may move from s to next.
// pending is the re-entry point for any re-analysis. A pending document goes
// straight to error when its job could not be scheduled.
func (s AnalysisStatus) CanTransition(next AnalysisStatus) bool {
	switch next {
	case StatusPending:
		return true
	case StatusProcessing:
		return s == StatusPending || s == StatusError || s == StatusComplete
	case StatusComplete:
		return s == StatusProcessing
	case StatusError:
		return s == StatusProcessing || s == StatusPending
	case StatusNotApplicable:
		return s == StatusNotApplicable
	}
	return false
}

// Document represents an uploaded document owned by a user. StoragePath is
// empty until the first blob write commits and never returns to empty after.
type Document struct {
	ID               string
	OwnerID          string
	ParentFolderID   string
	Title            string
	SizeBytes        int64
	MimeType         string
	StoragePath      string
	CurrentVersionID string
	Kind             Kind
	Metadata         Metadata
	AnalysisStatus   AnalysisStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
