package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake-backend/internal/documents"
	"intake-backend/internal/queue"
)

type fakeClient struct {
	mu       sync.Mutex
	calls    []Request
	function string
	result   Result
	err      error
	done     chan struct{}
}

func (f *fakeClient) Invoke(ctx context.Context, function string, req Request) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.function = function
	f.mu.Unlock()
	if f.done != nil {
		defer close(f.done)
	}
	return f.result, f.err
}

type fakeQueue struct {
	msgs []queue.Message
}

func (f *fakeQueue) Send(ctx context.Context, msg queue.Message) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

type downQueue struct{}

func (downQueue) Send(context.Context, queue.Message) error {
	return errors.New("sqs unavailable")
}

// recordingStore wraps the document service and keeps every status it was asked for.
type recordingStore struct {
	*documents.Service
	mu       sync.Mutex
	statuses []documents.AnalysisStatus
}

func (r *recordingStore) UpdateAnalysisStatus(ctx context.Context, id string, status documents.AnalysisStatus, patch func(*documents.Metadata)) (documents.Document, error) {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	r.mu.Unlock()
	return r.Service.UpdateAnalysisStatus(ctx, id, status, patch)
}

func seedForm(t *testing.T, svc *documents.Service, title string, kind documents.Kind) documents.Document {
	t.Helper()
	doc, err := svc.Create(context.Background(), documents.NewDocument{
		OwnerID: "user-1", Title: title, MimeType: "application/pdf", SizeBytes: 100,
		Kind: kind, RequiresAnalysis: true,
	})
	require.NoError(t, err)
	return doc
}

func TestDispatchSuccessRecordsFields(t *testing.T) {
	svc := documents.NewService(documents.NewMemoryRepo())
	store := &recordingStore{Service: svc}
	doc := seedForm(t, svc, "Form 31 Acme.pdf", documents.KindForm31)
	client := &fakeClient{result: Result{
		Fields:  map[string]string{"creditorName": "Acme Ltd", "claimAmount": "1,250.00"},
		Summary: "proof of claim",
	}}
	d := &Dispatcher{Docs: store, Client: client}

	err := d.Dispatch(context.Background(), doc.ID, doc.Title, "user-1/"+doc.ID+"/Form_31_Acme.pdf")
	require.NoError(t, err)

	assert.Equal(t, []documents.AnalysisStatus{documents.StatusProcessing, documents.StatusComplete}, store.statuses)
	assert.Equal(t, DefaultFunction, client.function)
	require.Len(t, client.calls, 1)
	assert.Equal(t, Request{
		DocumentID:              doc.ID,
		StoragePath:             "user-1/" + doc.ID + "/Form_31_Acme.pdf",
		Title:                   "Form 31 Acme.pdf",
		IncludeRegulatory:       true,
		IncludeClientExtraction: true,
	}, client.calls[0])

	stored, err := svc.FindByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusComplete, stored.AnalysisStatus)
	require.NotNil(t, stored.Metadata.Form31)
	assert.Equal(t, "Acme Ltd", stored.Metadata.Form31.CreditorName)
	require.NotNil(t, stored.Metadata.Analysis)
	assert.NotNil(t, stored.Metadata.Analysis.CompletedAt)
	assert.Equal(t, "proof of claim", stored.Metadata.Analysis.Summary)
}

func TestDispatchFailureRecordsErrorAndKeepsMetadata(t *testing.T) {
	svc := documents.NewService(documents.NewMemoryRepo())
	store := &recordingStore{Service: svc}
	doc := seedForm(t, svc, "Form 31 Acme.pdf", documents.KindForm31)
	_, err := svc.UpdateStoragePath(context.Background(), doc.ID, "user-1/doc/Form_31_Acme.pdf", func(m *documents.Metadata) {
		m.Upload = &documents.UploadInfo{OriginalName: "Form 31 Acme.pdf"}
	})
	require.NoError(t, err)

	d := &Dispatcher{Docs: store, Client: &fakeClient{err: errors.New("function timed out")}}
	err = d.Dispatch(context.Background(), doc.ID, doc.Title, "user-1/doc/Form_31_Acme.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnalysisFailed)

	assert.Equal(t, []documents.AnalysisStatus{documents.StatusProcessing, documents.StatusError}, store.statuses)
	stored, err := svc.FindByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusError, stored.AnalysisStatus)
	require.NotNil(t, stored.Metadata.Upload, "prior metadata must survive")
	require.NotNil(t, stored.Metadata.Analysis)
	assert.Equal(t, "function timed out", stored.Metadata.Analysis.Error)
	assert.NotNil(t, stored.Metadata.Analysis.FailedAt)
}

func TestDispatchRejectsNotApplicableDocument(t *testing.T) {
	svc := documents.NewService(documents.NewMemoryRepo())
	doc, err := svc.Create(context.Background(), documents.NewDocument{OwnerID: "user-1", Title: "contract.pdf", SizeBytes: 1})
	require.NoError(t, err)
	client := &fakeClient{}

	err = (&Dispatcher{Docs: svc, Client: client}).Dispatch(context.Background(), doc.ID, doc.Title, "p")
	assert.ErrorIs(t, err, documents.ErrInvalidTransition)
	assert.Empty(t, client.calls)
}

func TestEnqueueSendsJobWhenQueueConfigured(t *testing.T) {
	q := &fakeQueue{}
	client := &fakeClient{}
	d := &Dispatcher{Docs: documents.NewService(documents.NewMemoryRepo()), Client: client, Queue: q,
		Now: func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }}

	ctx := WithRequestID(context.Background(), "req-7")
	require.NoError(t, d.Enqueue(ctx, "doc-1", "Form 47 Smith.pdf", "user-1/doc-1/Form_47_Smith.pdf"))
	require.Len(t, q.msgs, 1)
	assert.Equal(t, queue.Message{
		DocumentID:  "doc-1",
		FileName:    "Form 47 Smith.pdf",
		StoragePath: "user-1/doc-1/Form_47_Smith.pdf",
		RequestID:   "req-7",
		EnqueuedAt:  "2024-01-01T00:00:00Z",
		Version:     queue.MessageVersion,
	}, q.msgs[0])
	assert.Empty(t, client.calls)
}

func TestEnqueueWithoutQueueRunsDetached(t *testing.T) {
	svc := documents.NewService(documents.NewMemoryRepo())
	doc := seedForm(t, svc, "Form 47 Smith.pdf", documents.KindForm47)
	client := &fakeClient{done: make(chan struct{})}
	d := &Dispatcher{Docs: svc, Client: client}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Enqueue(ctx, doc.ID, doc.Title, "user-1/doc/Form_47_Smith.pdf"))
	cancel()

	select {
	case <-client.done:
	case <-time.After(2 * time.Second):
		t.Fatal("background analysis did not run")
	}
	require.Eventually(t, func() bool {
		stored, err := svc.FindByID(context.Background(), doc.ID)
		return err == nil && stored.AnalysisStatus == documents.StatusComplete
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFailedRerunKeepsPreviousSummary(t *testing.T) {
	svc := documents.NewService(documents.NewMemoryRepo())
	doc := seedForm(t, svc, "Form 31 Acme.pdf", documents.KindForm31)
	client := &fakeClient{result: Result{Summary: "proof of claim"}}
	d := &Dispatcher{Docs: svc, Client: client}
	require.NoError(t, d.Dispatch(context.Background(), doc.ID, doc.Title, "user-1/doc/Form_31_Acme.pdf"))

	client.err = errors.New("function timed out")
	err := d.Dispatch(context.Background(), doc.ID, doc.Title, "user-1/doc/Form_31_Acme.pdf")
	require.ErrorIs(t, err, ErrAnalysisFailed)

	stored, err := svc.FindByID(context.Background(), doc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Metadata.Analysis)
	assert.Equal(t, "proof of claim", stored.Metadata.Analysis.Summary)
	assert.NotNil(t, stored.Metadata.Analysis.CompletedAt)
	assert.Equal(t, "function timed out", stored.Metadata.Analysis.Error)
}

func TestEnqueueFailureMovesDocumentToError(t *testing.T) {
	svc := documents.NewService(documents.NewMemoryRepo())
	store := &recordingStore{Service: svc}
	doc := seedForm(t, svc, "Form 31 Claim.pdf", documents.KindForm31)
	d := &Dispatcher{Docs: store, Client: &fakeClient{}, Queue: downQueue{}}

	err := d.Enqueue(context.Background(), doc.ID, doc.Title, "user-1/doc/Form_31_Claim.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqs unavailable")

	assert.Equal(t, []documents.AnalysisStatus{documents.StatusError}, store.statuses)
	stored, err := svc.FindByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusError, stored.AnalysisStatus)
	require.NotNil(t, stored.Metadata.Analysis)
	assert.Contains(t, stored.Metadata.Analysis.Error, "sqs unavailable")
	assert.NotNil(t, stored.Metadata.Analysis.FailedAt)
}
