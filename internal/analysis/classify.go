package analysis

import (
	"path/filepath"
	"strings"

	"intake-backend/internal/documents"
)

var kindMarkers = []struct {
	kind    documents.Kind
	markers []string
}{
	{documents.KindForm31, []string{"form 31", "form31", "form_31", "form-31", "proof of claim"}},
	{documents.KindForm47, []string{"form 47", "form47", "form_47", "form-47", "consumer proposal"}},
}

// Classify infers the regulated form kind from a file name. Matching is
// case-insensitive and ignores the extension.
func Classify(fileName string) documents.Kind {
	name := strings.ToLower(strings.TrimSuffix(fileName, filepath.Ext(fileName)))
	for _, km := range kindMarkers {
		for _, marker := range km.markers {
			if strings.Contains(name, marker) {
				return km.kind
			}
		}
	}
	return documents.KindNone
}

// RequiresAnalysis reports whether documents of kind are sent for analysis.
func RequiresAnalysis(kind documents.Kind) bool {
	return kind.Regulated()
}
