package documents

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxBytes is the file size limit when none is configured.
const DefaultMaxBytes int64 = 50 << 20

var extensionClasses = map[string]string{
	".pdf":  "pdf",
	".doc":  "word",
	".docx": "word",
	".xls":  "spreadsheet",
	".xlsx": "spreadsheet",
	".csv":  "csv",
	".txt":  "text",
	".png":  "image",
	".jpg":  "image",
	".jpeg": "image",
	".gif":  "image",
}

var mimeClasses = map[string]string{
	"application/pdf":    "pdf",
	"application/msword": "word",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "word",
	"application/vnd.ms-excel": "spreadsheet",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "spreadsheet",
	"text/csv":   "csv",
	"text/plain": "text",
	"image/png":  "image",
	"image/jpeg": "image",
	"image/gif":  "image",
}

// FileRejection explains why content may not be stored.
type FileRejection struct {
	Reason string
}

func (e *FileRejection) Error() string { return "file rejected: " + e.Reason }

// CheckFile applies the size and type-class rules shared by first uploads and
// new versions. It performs no I/O. maxBytes <= 0 means DefaultMaxBytes.
func CheckFile(name, contentType string, size, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if NormalizeTitle(name) == "" {
		return &FileRejection{Reason: "file name is required"}
	}
	if size <= 0 {
		return &FileRejection{Reason: "file is empty"}
	}
	if size > maxBytes {
		return &FileRejection{Reason: fmt.Sprintf("file exceeds %d bytes", maxBytes)}
	}
	if _, ok := TypeClass(name, contentType); !ok {
		return &FileRejection{Reason: "file type is not allowed"}
	}
	return nil
}

// TypeClass resolves the type class from the extension, falling back to the
// declared MIME type.
func TypeClass(name, contentType string) (string, bool) {
	if class, ok := extensionClasses[strings.ToLower(filepath.Ext(NormalizeTitle(name)))]; ok {
		return class, true
	}
	mime := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	class, ok := mimeClasses[mime]
	return class, ok
}
