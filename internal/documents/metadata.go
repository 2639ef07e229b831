package documents

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind is the regulated form kind of a document, or KindNone.
type Kind string

const (
	KindNone   Kind = "none"
	KindForm31 Kind = "form_31"
	KindForm47 Kind = "form_47"
)

// Regulated reports whether k is one of the regulated form kinds.
func (k Kind) Regulated() bool {
	return k == KindForm31 || k == KindForm47
}

// Metadata is a tagged union keyed by Kind. Exactly one of Form31, Form47 or
// General is set and it matches Kind. Labels and Analysis apply to every kind.
type Metadata struct {
	Kind     Kind              `json:"kind"`
	Form31   *Form31Fields     `json:"form31,omitempty"`
	Form47   *Form47Fields     `json:"form47,omitempty"`
	General  *GeneralFields    `json:"general,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
	Upload   *UploadInfo       `json:"upload,omitempty"`
	Analysis *AnalysisOutcome  `json:"analysis,omitempty"`
}

// Form31Fields are extracted from a proof of claim.
type Form31Fields struct {
	CreditorName string `json:"creditorName,omitempty"`
	DebtorName   string `json:"debtorName,omitempty"`
	ClaimAmount  string `json:"claimAmount,omitempty"`
	ClaimType    string `json:"claimType,omitempty"`
	EstateNumber string `json:"estateNumber,omitempty"`
}

// Form47Fields are extracted from a consumer proposal.
type Form47Fields struct {
	DebtorName        string `json:"debtorName,omitempty"`
	AdministratorName string `json:"administratorName,omitempty"`
	ProposalAmount    string `json:"proposalAmount,omitempty"`
	FilingDate        string `json:"filingDate,omitempty"`
	EstateNumber      string `json:"estateNumber,omitempty"`
}

// GeneralFields describe documents that are not regulated forms.
type GeneralFields struct {
	Extension string `json:"extension,omitempty"`
}

// UploadInfo records where the committed content came from.
type UploadInfo struct {
	OriginalName string    `json:"originalName,omitempty"`
	PublicURL    string    `json:"publicUrl,omitempty"`
	CommittedAt  time.Time `json:"committedAt"`
}

// AnalysisOutcome is the document-level trace of the last analysis attempt.
type AnalysisOutcome struct {
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Error       string     `json:"error,omitempty"`
	FailedAt    *time.Time `json:"failedAt,omitempty"`
}

// NewMetadata returns the variant for kind with labels copied in.
func NewMetadata(kind Kind, fileName string, labels map[string]string) Metadata {
	m := Metadata{Kind: kind}
	switch kind {
	case KindForm31:
		m.Form31 = &Form31Fields{}
	case KindForm47:
		m.Form47 = &Form47Fields{}
	default:
		m.Kind = KindNone
		m.General = &GeneralFields{Extension: strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")}
	}
	if len(labels) > 0 {
		m.Labels = make(map[string]string, len(labels))
		for k, v := range labels {
			m.Labels[k] = v
		}
	}
	return m
}

// MergeFields merges extracted key/value pairs into the active variant. Unknown
// keys are ignored; empty values never overwrite existing ones.
func (m *Metadata) MergeFields(fields map[string]string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(fields[key]); v != "" {
			*dst = v
		}
	}
	switch m.Kind {
	case KindForm31:
		if m.Form31 == nil {
			m.Form31 = &Form31Fields{}
		}
		set(&m.Form31.CreditorName, "creditorName")
		set(&m.Form31.DebtorName, "debtorName")
		set(&m.Form31.ClaimAmount, "claimAmount")
		set(&m.Form31.ClaimType, "claimType")
		set(&m.Form31.EstateNumber, "estateNumber")
	case KindForm47:
		if m.Form47 == nil {
			m.Form47 = &Form47Fields{}
		}
		set(&m.Form47.DebtorName, "debtorName")
		set(&m.Form47.AdministratorName, "administratorName")
		set(&m.Form47.ProposalAmount, "proposalAmount")
		set(&m.Form47.FilingDate, "filingDate")
		set(&m.Form47.EstateNumber, "estateNumber")
	}
}
