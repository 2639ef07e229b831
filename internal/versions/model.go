package versions

import (
	"io"
	"time"
)

// Version is one committed revision of a document's content.
type Version struct {
	ID             string
	DocumentID     string
	VersionNumber  int
	StoragePath    string
	CreatedBy      string
	CreatedAt      time.Time
	IsCurrent      bool
	Description    string
	ChangesSummary string
}

// Content is the file body of a new version.
type Content struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}
