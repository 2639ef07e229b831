package uploads

import (
	"context"
	"io"
)

// File is an upload as received from the caller.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Stage is a pipeline state.
type Stage string

const (
	StageIdle                   Stage = "idle"
	StageValidating             Stage = "validating"
	StageCheckingDuplicate      Stage = "checking_duplicate"
	StageAwaitingDecision       Stage = "awaiting_decision"
	StageCreatingRecord         Stage = "creating_record"
	StageWritingBlob            Stage = "writing_blob"
	StageUpdatingMetadata       Stage = "updating_metadata"
	StageCreatingInitialVersion Stage = "creating_initial_version"
	StageCreatingVersion        Stage = "creating_version"
	StageAnalyzing              Stage = "analyzing"
	StageNotifyingComplete      Stage = "notifying_complete"
	StageDone                   Stage = "done"
	StageCancelled              Stage = "cancelled"
	StageFailed                 Stage = "failed"
)

var stageProgress = map[Stage]int{
	StageIdle:                   0,
	StageValidating:             5,
	StageCheckingDuplicate:      10,
	StageAwaitingDecision:       15,
	StageCreatingRecord:         25,
	StageWritingBlob:            40,
	StageCreatingVersion:        40,
	StageUpdatingMetadata:       60,
	StageCreatingInitialVersion: 75,
	StageAnalyzing:              85,
	StageNotifyingComplete:      95,
	StageDone:                   100,
}

// Terminal reports whether s ends a pipeline run.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageCancelled || s == StageFailed
}

// Session is the caller-visible state of one upload. It is a value: each
// stage change produces a new Session that is passed to the progress callback
// and returned in the Outcome.
type Session struct {
	FileName         string     `json:"fileName"`
	Stage            Stage      `json:"stage"`
	ProgressPercent  int        `json:"progressPercent"`
	PendingDuplicate *Candidate `json:"pendingDuplicate,omitempty"`
	IsUploading      bool       `json:"isUploading"`
}

// NewSession starts a session for fileName.
func NewSession(fileName string) Session {
	return Session{FileName: fileName, Stage: StageIdle}
}

// Advance returns the session moved to stage. Progress only reflects stages
// actually reached; terminal failure states keep the last value.
func (s Session) Advance(stage Stage) Session {
	s.Stage = stage
	if p, ok := stageProgress[stage]; ok && p > s.ProgressPercent {
		s.ProgressPercent = p
	}
	s.IsUploading = !stage.Terminal() && stage != StageIdle
	if stage != StageAwaitingDecision {
		s.PendingDuplicate = nil
	}
	return s
}

// Decision resolves a duplicate.
type Decision string

const (
	DecisionReplace  Decision = "replace"
	DecisionKeepBoth Decision = "keep_both"
	DecisionCancel   Decision = "cancel"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionReplace || d == DecisionKeepBoth || d == DecisionCancel
}

// DecideFunc is asked how to resolve a duplicate. It may block for as long as
// the caller needs; there is no timeout.
type DecideFunc func(ctx context.Context, c Candidate) (Decision, error)

// AlwaysDecide returns a DecideFunc that answers d without asking.
func AlwaysDecide(d Decision) DecideFunc {
	return func(context.Context, Candidate) (Decision, error) { return d, nil }
}
