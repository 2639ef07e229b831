package analysis

import "context"

// DefaultFunction is the analysis function invoked for uploaded documents.
const DefaultFunction = "document-analysis"

// Request is the payload sent to the analysis service.
type Request struct {
	DocumentID              string `json:"documentId"`
	StoragePath             string `json:"storagePath"`
	Title                   string `json:"title"`
	IncludeRegulatory       bool   `json:"includeRegulatory"`
	IncludeClientExtraction bool   `json:"includeClientExtraction"`
}

// Result is what the analysis service extracted.
type Result struct {
	Fields  map[string]string `json:"fields"`
	Summary string            `json:"summary,omitempty"`
}

// Client invokes a named analysis function.
type Client interface {
	Invoke(ctx context.Context, function string, req Request) (Result, error)
}
