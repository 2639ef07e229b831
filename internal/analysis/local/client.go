// Package local runs document analysis in-process: it reads the stored blob,
// pulls its text and matches labelled form fields.
package local

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"intake-backend/internal/analysis"
	"intake-backend/internal/documents"
	"intake-backend/internal/extract"
	"intake-backend/internal/shared/storage/object"
)

type fieldPattern struct {
	key string
	re  *regexp.Regexp
}

var (
	estatePattern = fieldPattern{"estateNumber", regexp.MustCompile(`(?im)estate\s*(?:no\.?|number|#)\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9\-]*)`)}

	form31Patterns = []fieldPattern{
		{"creditorName", regexp.MustCompile(`(?im)^\s*creditor(?:'s)?(?:\s+name)?\s*:\s*([^\n]+)`)},
		{"debtorName", regexp.MustCompile(`(?im)^\s*debtor(?:'s)?(?:\s+name)?\s*:\s*([^\n]+)`)},
		{"claimAmount", regexp.MustCompile(`(?im)(?:claim\s+amount|amount\s+of\s+claim)\s*:\s*\$?\s*([\d,]+(?:\.\d{2})?)`)},
		{"claimType", regexp.MustCompile(`(?im)(?:claim\s+type|type\s+of\s+claim)\s*:\s*([^\n]+)`)},
		estatePattern,
	}

	form47Patterns = []fieldPattern{
		{"debtorName", regexp.MustCompile(`(?im)^\s*(?:debtor|consumer\s+debtor)(?:'s)?(?:\s+name)?\s*:\s*([^\n]+)`)},
		{"administratorName", regexp.MustCompile(`(?im)^\s*administrator(?:'s)?(?:\s+name)?\s*:\s*([^\n]+)`)},
		{"proposalAmount", regexp.MustCompile(`(?im)proposal\s+amount\s*:\s*\$?\s*([\d,]+(?:\.\d{2})?)`)},
		{"filingDate", regexp.MustCompile(`(?im)(?:filing\s+date|date\s+filed|filed\s+on)\s*:\s*(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})`)},
		estatePattern,
	}
)

// Client implements analysis.Client against an object store.
type Client struct {
	Store object.ObjectStore
}

// New constructs a Client reading blobs from store.
func New(store object.ObjectStore) *Client {
	return &Client{Store: store}
}

// Invoke extracts the document text and matches the fields of its form kind.
func (c *Client) Invoke(ctx context.Context, function string, req analysis.Request) (analysis.Result, error) {
	if c.Store == nil {
		return analysis.Result{}, errors.New("object store not configured")
	}
	if req.StoragePath == "" {
		return analysis.Result{}, errors.New("storage path is required")
	}
	name := req.Title
	if name == "" {
		name = path.Base(req.StoragePath)
	}

	text, err := extract.ExtractText(ctx, c.Store, req.StoragePath, "", name)
	if err != nil {
		return analysis.Result{}, err
	}
	if strings.TrimSpace(text) == "" {
		return analysis.Result{}, errors.New("no text could be extracted")
	}

	kind := analysis.Classify(name)
	fields := map[string]string{}
	if req.IncludeRegulatory {
		fields = ExtractFields(kind, text)
	}
	return analysis.Result{
		Fields:  fields,
		Summary: fmt.Sprintf("%s: matched %d field(s) in %d characters", kind, len(fields), len(text)),
	}, nil
}

// ExtractFields matches labelled values for kind in text. The first match of
// each field wins.
func ExtractFields(kind documents.Kind, text string) map[string]string {
	var patterns []fieldPattern
	switch kind {
	case documents.KindForm31:
		patterns = form31Patterns
	case documents.KindForm47:
		patterns = form47Patterns
	default:
		return map[string]string{}
	}
	out := make(map[string]string, len(patterns))
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			out[p.key] = v
		}
	}
	return out
}

var _ analysis.Client = (*Client)(nil)
