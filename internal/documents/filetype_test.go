package documents

import (
	"errors"
	"testing"
)

func TestCheckFile(t *testing.T) {
	cases := []struct {
		name        string
		file        string
		contentType string
		size        int64
		reason      string
	}{
		{"pdf", "Form 31 Claim.pdf", "", 10, ""},
		{"mime fallback", "scan", "image/png", 10, ""},
		{"empty", "a.pdf", "", 0, "file is empty"},
		{"too large", "a.pdf", "", 1001, "file exceeds 1000 bytes"},
		{"exe", "setup.exe", "application/octet-stream", 10, "file type is not allowed"},
		{"blank name", "  ", "", 10, "file name is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckFile(tc.file, tc.contentType, tc.size, 1000)
			if tc.reason == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var rej *FileRejection
			if !errors.As(err, &rej) || rej.Reason != tc.reason {
				t.Fatalf("expected rejection %q, got %v", tc.reason, err)
			}
		})
	}
}

func TestTypeClassPrefersExtension(t *testing.T) {
	class, ok := TypeClass("report.xlsx", "application/pdf")
	if !ok || class != "spreadsheet" {
		t.Fatalf("expected spreadsheet, got %q %v", class, ok)
	}
	if class, ok := TypeClass("notes.txt ", ""); !ok || class != "text" {
		t.Fatalf("trailing space should not hide the extension, got %q %v", class, ok)
	}
}
