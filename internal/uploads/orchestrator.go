package uploads

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"intake-backend/internal/analysis"
	"intake-backend/internal/documents"
	"intake-backend/internal/notifications"
	"intake-backend/internal/shared/auth"
	"intake-backend/internal/shared/lock"
	"intake-backend/internal/shared/metrics"
	"intake-backend/internal/shared/storage/object"
	"intake-backend/internal/shared/telemetry"
	"intake-backend/internal/shared/util"
	"intake-backend/internal/versions"
)

// maxTitleSuffix bounds the keep_both title search.
const maxTitleSuffix = 1000

// RecordStore is the document record surface the pipeline writes to.
type RecordStore interface {
	Create(ctx context.Context, in documents.NewDocument) (documents.Document, error)
	UpdateStoragePath(ctx context.Context, id, path string, patch func(*documents.Metadata)) (documents.Document, error)
	UpdateAnalysisStatus(ctx context.Context, id string, status documents.AnalysisStatus, patch func(*documents.Metadata)) (documents.Document, error)
	TitleExists(ctx context.Context, ownerID, title string) (bool, error)
}

// VersionStore commits document versions.
type VersionStore interface {
	CreateInitialVersion(ctx context.Context, documentID, storagePath, authorID string) (versions.Version, error)
	CreateVersion(ctx context.Context, documentID string, content versions.Content, authorID, description string) (versions.Version, error)
}

// AnalysisRunner runs analysis inline or schedules it.
type AnalysisRunner interface {
	Dispatch(ctx context.Context, documentID, fileName, storagePath string) error
	Enqueue(ctx context.Context, documentID, fileName, storagePath string) error
}

// Notifier records user notifications. It never fails the caller.
type Notifier interface {
	Emit(ctx context.Context, n notifications.Notification) bool
}

// Orchestrator drives one upload from validation to the final notification.
type Orchestrator struct {
	Validator    Validator
	Sessions     auth.SessionProvider
	Duplicates   DuplicateDetector
	Docs         RecordStore
	Store        object.ObjectStore
	Versions     VersionStore
	Analysis     AnalysisRunner
	Policies     analysis.Policies
	Notifier     Notifier
	Locker       lock.Locker
	CacheControl string
	Now          func() time.Time
}

// Request is one upload submission.
type Request struct {
	File           File
	ParentFolderID string
	Description    string
	Labels         map[string]string
	// Decide resolves a duplicate. When nil a duplicate fails the upload with
	// a *DuplicateConflict.
	Decide DecideFunc
	// OnProgress receives every stage transition.
	OnProgress func(Session)
	// OnComplete runs after a successful commit and before the final
	// notification.
	OnComplete func(ctx context.Context, out Outcome)
}

// Outcome describes a finished upload.
type Outcome struct {
	DocumentID     string                   `json:"documentId"`
	VersionID      string                   `json:"versionId"`
	VersionNumber  int                      `json:"versionNumber"`
	Title          string                   `json:"title"`
	StoragePath    string                   `json:"storagePath"`
	Kind           documents.Kind           `json:"kind"`
	Decision       Decision                 `json:"decision,omitempty"`
	Policy         analysis.Policy          `json:"analysisPolicy"`
	AnalysisStatus documents.AnalysisStatus `json:"analysisStatus"`
	// AnalysisErr is set when analysis failed. The upload itself succeeded.
	AnalysisErr error   `json:"-"`
	Session     Session `json:"session"`
}

type run struct {
	req     Request
	user    auth.User
	session Session
	started time.Time
}

func (r *run) advance(stage Stage) {
	r.session = r.session.Advance(stage)
	telemetry.Info("upload.stage", map[string]any{
		"user_id":  r.user.ID,
		"file":     r.req.File.Name,
		"stage":    string(stage),
		"progress": r.session.ProgressPercent,
	})
	if r.req.OnProgress != nil {
		r.req.OnProgress(r.session)
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

// Upload runs the pipeline for req. The context is honoured until the
// document record is created; after that every write completes regardless of
// cancellation. Errors are typed (see errors.go) and safe to pass to
// UserMessage.
func (o *Orchestrator) Upload(ctx context.Context, req Request) (Outcome, error) {
	req.File.Name = documents.NormalizeTitle(req.File.Name)
	r := &run{req: req, session: NewSession(req.File.Name), started: o.now()}
	metrics.IncUploadStarted()

	r.advance(StageValidating)
	if err := o.Validator.Validate(req.File); err != nil {
		return o.fail(ctx, r, "", err)
	}

	user, err := o.Sessions.CurrentUser(ctx)
	if err != nil {
		return o.fail(ctx, r, "", &AuthError{Err: err})
	}
	r.user = user
	if ctx.Err() != nil {
		return o.cancel(r)
	}

	release, err := o.acquire(ctx, user.ID)
	if err != nil {
		return o.fail(ctx, r, "", err)
	}
	defer func() { release() }()

	r.advance(StageCheckingDuplicate)
	dup, err := o.Duplicates.Check(ctx, req.File, user.ID)
	if err != nil {
		return o.fail(ctx, r, "", &RecordError{Stage: StageCheckingDuplicate, Err: err})
	}
	if !dup.IsDuplicate {
		return o.commitNew(ctx, r, req.File.Name, "", release)
	}

	metrics.IncDuplicateFound()
	release()
	candidate := *dup.Candidate
	telemetry.Info("upload.duplicate_found", map[string]any{
		"user_id":     user.ID,
		"file":        req.File.Name,
		"document_id": candidate.MatchedDocumentID,
	})
	if req.Decide == nil {
		return o.fail(ctx, r, "", &DuplicateConflict{Candidate: candidate})
	}

	r.session.PendingDuplicate = &candidate
	r.advance(StageAwaitingDecision)
	decision, err := req.Decide(ctx, candidate)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return o.cancel(r)
		}
		return o.fail(ctx, r, "", fmt.Errorf("duplicate decision: %w", err))
	}
	if !decision.Valid() {
		return o.fail(ctx, r, "", &ValidationError{Reason: fmt.Sprintf("unknown duplicate decision %q", decision)})
	}
	telemetry.Info("upload.decision", map[string]any{
		"user_id":     user.ID,
		"document_id": candidate.MatchedDocumentID,
		"decision":    string(decision),
	})

	switch decision {
	case DecisionCancel:
		return o.cancel(r)
	case DecisionReplace:
		if err := ctx.Err(); err != nil {
			return o.cancel(r)
		}
		return o.replace(ctx, r, candidate)
	default:
		relock, err := o.acquire(ctx, user.ID)
		if err != nil {
			return o.fail(ctx, r, "", err)
		}
		release = relock
		title, err := o.freeTitle(ctx, user.ID, req.File.Name)
		if err != nil {
			return o.fail(ctx, r, "", &RecordError{Stage: StageAwaitingDecision, Err: err})
		}
		return o.commitNew(ctx, r, title, DecisionKeepBoth, release)
	}
}

func (o *Orchestrator) acquire(ctx context.Context, ownerID string) (lock.Release, error) {
	if o.Locker == nil {
		return func() {}, nil
	}
	release, err := o.Locker.Acquire(ctx, util.HashUserKey(ownerID))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, &RecordError{Stage: StageCheckingDuplicate, Err: err}
	}
	return release, nil
}

// commitNew creates a fresh document titled title and commits the file as its
// first version. release is called once the record exists.
func (o *Orchestrator) commitNew(ctx context.Context, r *run, title string, decision Decision, release lock.Release) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return o.cancel(r)
	}
	f := r.req.File
	kind := analysis.Classify(f.Name)
	requires := analysis.RequiresAnalysis(kind)

	r.advance(StageCreatingRecord)
	doc, err := o.Docs.Create(ctx, documents.NewDocument{
		OwnerID:          r.user.ID,
		ParentFolderID:   r.req.ParentFolderID,
		Title:            title,
		MimeType:         f.ContentType,
		SizeBytes:        f.Size,
		Kind:             kind,
		RequiresAnalysis: requires,
		Labels:           r.req.Labels,
	})
	release()
	if err != nil {
		return o.fail(ctx, r, "", &RecordError{Stage: StageCreatingRecord, Err: err})
	}

	// The record exists; finish every remaining write even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	r.advance(StageWritingBlob)
	key, err := object.DocumentKey(r.user.ID, doc.ID, title)
	if err != nil {
		return o.fail(ctx, r, doc.ID, &StorageError{Stage: StageWritingBlob, Err: err})
	}
	if _, err := o.Store.Put(ctx, key, f.Body, f.Size, object.PutOptions{
		ContentType:  f.ContentType,
		CacheControl: o.CacheControl,
		Upsert:       false,
	}); err != nil {
		return o.fail(ctx, r, doc.ID, &StorageError{Stage: StageWritingBlob, Err: err})
	}

	r.advance(StageUpdatingMetadata)
	committed := o.now()
	publicURL := o.Store.PublicURL(key)
	if _, err := o.Docs.UpdateStoragePath(ctx, doc.ID, key, func(m *documents.Metadata) {
		m.Upload = &documents.UploadInfo{OriginalName: f.Name, PublicURL: publicURL, CommittedAt: committed}
	}); err != nil {
		return o.fail(ctx, r, doc.ID, &RecordError{Stage: StageUpdatingMetadata, Err: err})
	}

	r.advance(StageCreatingInitialVersion)
	v, err := o.Versions.CreateInitialVersion(ctx, doc.ID, key, r.user.ID)
	if err != nil {
		return o.fail(ctx, r, doc.ID, &RecordError{Stage: StageCreatingInitialVersion, Err: err})
	}

	out := Outcome{
		DocumentID:     doc.ID,
		VersionID:      v.ID,
		VersionNumber:  v.VersionNumber,
		Title:          title,
		StoragePath:    key,
		Kind:           kind,
		Decision:       decision,
		Policy:         analysis.PolicySkip,
		AnalysisStatus: doc.AnalysisStatus,
	}
	if requires {
		out.Policy = o.Policies.PolicyFor(kind)
	}
	return o.finish(ctx, r, out)
}

// replace commits the file as a new version of the matched document.
func (o *Orchestrator) replace(ctx context.Context, r *run, c Candidate) (Outcome, error) {
	f := r.req.File
	ctx = context.WithoutCancel(ctx)

	r.advance(StageCreatingVersion)
	description := r.req.Description
	if strings.TrimSpace(description) == "" {
		description = "Replaced by upload of " + f.Name
	}
	v, err := o.Versions.CreateVersion(ctx, c.MatchedDocumentID, versions.Content{
		FileName:    f.Name,
		ContentType: f.ContentType,
		Size:        f.Size,
		Body:        f.Body,
	}, r.user.ID, description)
	if err != nil {
		if errors.Is(err, versions.ErrBlobWrite) {
			return o.fail(ctx, r, c.MatchedDocumentID, &StorageError{Stage: StageCreatingVersion, Err: err})
		}
		return o.fail(ctx, r, c.MatchedDocumentID, &RecordError{Stage: StageCreatingVersion, Err: err})
	}

	out := Outcome{
		DocumentID:     c.MatchedDocumentID,
		VersionID:      v.ID,
		VersionNumber:  v.VersionNumber,
		Title:          c.Title,
		StoragePath:    v.StoragePath,
		Kind:           c.Kind,
		Decision:       DecisionReplace,
		Policy:         analysis.PolicySkip,
		AnalysisStatus: documents.StatusNotApplicable,
	}
	if analysis.RequiresAnalysis(c.Kind) {
		out.Policy = o.Policies.PolicyFor(c.Kind)
		if out.Policy != analysis.PolicySkip {
			doc, err := o.Docs.UpdateAnalysisStatus(ctx, c.MatchedDocumentID, documents.StatusPending, nil)
			if err != nil {
				return o.fail(ctx, r, c.MatchedDocumentID, &RecordError{Stage: StageCreatingVersion, Err: err})
			}
			out.AnalysisStatus = doc.AnalysisStatus
		}
	}
	return o.finish(ctx, r, out)
}

// finish applies the analysis policy and emits the completion notifications.
func (o *Orchestrator) finish(ctx context.Context, r *run, out Outcome) (Outcome, error) {
	switch out.Policy {
	case analysis.PolicyAwait:
		r.advance(StageAnalyzing)
		if err := o.Analysis.Dispatch(ctx, out.DocumentID, out.Title, out.StoragePath); err != nil {
			out.AnalysisErr = &AnalysisError{DocumentID: out.DocumentID, Err: err}
			out.AnalysisStatus = documents.StatusError
		} else {
			out.AnalysisStatus = documents.StatusComplete
		}
	case analysis.PolicyBackground:
		r.advance(StageAnalyzing)
		if err := o.Analysis.Enqueue(ctx, out.DocumentID, out.Title, out.StoragePath); err != nil {
			out.AnalysisErr = &AnalysisError{DocumentID: out.DocumentID, Err: err}
			out.AnalysisStatus = documents.StatusError
			telemetry.Warn("upload.analysis_enqueue_failed", map[string]any{
				"document_id": out.DocumentID,
				"error":       err.Error(),
			})
		}
	}

	r.advance(StageNotifyingComplete)
	o.notify(ctx, notifications.Notification{
		UserID:            r.user.ID,
		Title:             "Upload complete",
		Message:           uploadMessage(out),
		Severity:          notifications.SeveritySuccess,
		RelatedDocumentID: out.DocumentID,
		FileName:          r.req.File.Name,
		Category:          notifications.CategoryUpload,
	})

	r.advance(StageDone)
	out.Session = r.session
	if r.req.OnComplete != nil {
		r.req.OnComplete(ctx, out)
	}

	final := notifications.Notification{
		UserID:            r.user.ID,
		Title:             "Processing complete",
		Message:           fmt.Sprintf("%s is ready.", out.Title),
		Severity:          notifications.SeveritySuccess,
		RelatedDocumentID: out.DocumentID,
		FileName:          r.req.File.Name,
		Category:          notifications.CategoryUpload,
	}
	if out.Policy != analysis.PolicySkip {
		final.Category = notifications.CategoryAnalysis
	}
	if out.AnalysisErr != nil {
		final.Severity = notifications.SeverityWarning
		final.Message = fmt.Sprintf("%s was saved but analysis did not complete.", out.Title)
	}
	o.notify(ctx, final)

	metrics.IncUploadCompleted()
	metrics.ObserveUploadDurationMs(float64(o.now().Sub(r.started).Milliseconds()))
	telemetry.Info("upload.completed", map[string]any{
		"user_id":         r.user.ID,
		"document_id":     out.DocumentID,
		"version_number":  out.VersionNumber,
		"decision":        string(out.Decision),
		"analysis_policy": string(out.Policy),
		"analysis_status": string(out.AnalysisStatus),
	})
	return out, nil
}

func uploadMessage(out Outcome) string {
	if out.Decision == DecisionReplace {
		return fmt.Sprintf("%s was updated to version %d.", out.Title, out.VersionNumber)
	}
	return fmt.Sprintf("%s was uploaded.", out.Title)
}

// freeTitle returns name, or the first "base (n).ext" the owner does not use.
func (o *Orchestrator) freeTitle(ctx context.Context, ownerID, name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 2; n <= maxTitleSuffix; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		taken, err := o.Docs.TitleExists(ctx, ownerID, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free title for %q", name)
}

func (o *Orchestrator) notify(ctx context.Context, n notifications.Notification) {
	if o.Notifier == nil {
		return
	}
	o.Notifier.Emit(ctx, n)
}

func (o *Orchestrator) cancel(r *run) (Outcome, error) {
	r.advance(StageCancelled)
	metrics.IncUploadCancelled()
	return Outcome{Session: r.session}, ErrCancelled
}

// fail ends the run. Once a document exists (documentID set) the user also
// gets a failure notification; the document is left as is.
func (o *Orchestrator) fail(ctx context.Context, r *run, documentID string, err error) (Outcome, error) {
	if errors.Is(err, ErrCancelled) {
		return o.cancel(r)
	}
	failedAt := r.session.Stage
	r.advance(StageFailed)
	metrics.IncUploadFailed()
	fields := map[string]any{
		"user_id": r.user.ID,
		"file":    r.req.File.Name,
		"stage":   string(failedAt),
		"error":   err.Error(),
	}
	if documentID != "" {
		fields["document_id"] = documentID
	}
	var dup *DuplicateConflict
	var verr *ValidationError
	if errors.As(err, &dup) || errors.As(err, &verr) {
		telemetry.Warn("upload.rejected", fields)
	} else {
		telemetry.Error("upload.failed", fields)
	}
	if documentID != "" {
		o.notify(context.WithoutCancel(ctx), notifications.Notification{
			UserID:            r.user.ID,
			Title:             "Upload failed",
			Message:           UserMessage(err),
			Severity:          notifications.SeverityError,
			RelatedDocumentID: documentID,
			FileName:          r.req.File.Name,
			Category:          notifications.CategoryUpload,
		})
	}
	return Outcome{DocumentID: documentID, Session: r.session}, err
}
