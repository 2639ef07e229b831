package analysis

import (
	"strings"

	"intake-backend/internal/documents"
)

// Policy says how the upload pipeline runs analysis for a kind.
type Policy string

const (
	// PolicySkip never dispatches.
	PolicySkip Policy = "skip"
	// PolicyAwait dispatches inline and waits for the outcome.
	PolicyAwait Policy = "await"
	// PolicyBackground dispatches without blocking the upload.
	PolicyBackground Policy = "background"
)

// Policies maps kinds to policies. Regulated kinds default to PolicyAwait.
type Policies struct {
	background map[documents.Kind]bool
}

// NewPolicies returns policies where the named kinds run in the background.
// Unknown names are ignored.
func NewPolicies(backgroundKinds ...string) Policies {
	p := Policies{background: make(map[documents.Kind]bool)}
	for _, name := range backgroundKinds {
		kind := documents.Kind(strings.ToLower(strings.TrimSpace(name)))
		if kind.Regulated() {
			p.background[kind] = true
		}
	}
	return p
}

// PolicyFor returns the policy for kind.
func (p Policies) PolicyFor(kind documents.Kind) Policy {
	if !RequiresAnalysis(kind) {
		return PolicySkip
	}
	if p.background[kind] {
		return PolicyBackground
	}
	return PolicyAwait
}
