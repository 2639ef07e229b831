package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intake-backend/internal/documents"
	"intake-backend/internal/queue"
	"intake-backend/internal/shared/metrics"
	"intake-backend/internal/shared/telemetry"
)

const defaultTimeout = 2 * time.Minute

// ErrAnalysisFailed wraps any failure of the analysis call itself.
var ErrAnalysisFailed = errors.New("document analysis failed")

// StatusStore records analysis progress on documents.
type StatusStore interface {
	UpdateAnalysisStatus(ctx context.Context, id string, status documents.AnalysisStatus, patch func(*documents.Metadata)) (documents.Document, error)
}

// Dispatcher runs analysis for a document and records the outcome on it.
type Dispatcher struct {
	Docs     StatusStore
	Client   Client
	Function string
	Timeout  time.Duration
	// Queue receives background jobs. When nil, background jobs run in a
	// detached goroutine.
	Queue queue.Client
	Now   func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Dispatcher) function() string {
	if d.Function != "" {
		return d.Function
	}
	return DefaultFunction
}

// Dispatch moves the document to processing, invokes the analysis function and
// records complete or error. An analysis failure is returned wrapped in
// ErrAnalysisFailed after the error status is stored. There is no retry.
func (d *Dispatcher) Dispatch(ctx context.Context, documentID, fileName, storagePath string) error {
	if documentID == "" || storagePath == "" {
		return documents.ErrInvalidInput
	}
	if d.Docs == nil || d.Client == nil {
		return errors.New("analysis dispatcher not configured")
	}

	started := d.now()
	if _, err := d.Docs.UpdateAnalysisStatus(ctx, documentID, documents.StatusProcessing, func(m *documents.Metadata) {
		if m.Analysis == nil {
			m.Analysis = &documents.AnalysisOutcome{}
		}
		m.Analysis.StartedAt = &started
	}); err != nil {
		return fmt.Errorf("mark analysis processing: %w", err)
	}
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"document_id": documentID,
		"status":      string(documents.StatusProcessing),
		"function":    d.function(),
	})

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	result, invokeErr := d.Client.Invoke(callCtx, d.function(), Request{
		DocumentID:              documentID,
		StoragePath:             storagePath,
		Title:                   fileName,
		IncludeRegulatory:       true,
		IncludeClientExtraction: true,
	})
	cancel()
	finished := d.now()
	metrics.ObserveAnalysisDurationMs(float64(finished.Sub(started).Milliseconds()))

	if invokeErr != nil {
		metrics.IncAnalysisFailed()
		telemetry.Error("analysis.status", map[string]any{
			"document_id": documentID,
			"status":      string(documents.StatusError),
			"error":       invokeErr.Error(),
		})
		if _, err := d.Docs.UpdateAnalysisStatus(ctx, documentID, documents.StatusError, func(m *documents.Metadata) {
			if m.Analysis == nil {
				m.Analysis = &documents.AnalysisOutcome{StartedAt: &started}
			}
			m.Analysis.Error = invokeErr.Error()
			m.Analysis.FailedAt = &finished
		}); err != nil {
			return errors.Join(fmt.Errorf("%w: %w", ErrAnalysisFailed, invokeErr), fmt.Errorf("mark analysis error: %w", err))
		}
		return fmt.Errorf("%w: %w", ErrAnalysisFailed, invokeErr)
	}

	if _, err := d.Docs.UpdateAnalysisStatus(ctx, documentID, documents.StatusComplete, func(m *documents.Metadata) {
		m.MergeFields(result.Fields)
		if m.Analysis == nil {
			m.Analysis = &documents.AnalysisOutcome{StartedAt: &started}
		}
		m.Analysis.CompletedAt = &finished
		m.Analysis.Summary = result.Summary
		m.Analysis.Error = ""
		m.Analysis.FailedAt = nil
	}); err != nil {
		return fmt.Errorf("mark analysis complete: %w", err)
	}
	metrics.IncAnalysisCompleted()
	telemetry.Info("analysis.status", map[string]any{
		"document_id": documentID,
		"status":      string(documents.StatusComplete),
		"fields":      len(result.Fields),
	})
	return nil
}

// Enqueue schedules Dispatch without blocking the caller. With a queue the job
// is handed to the worker; otherwise it runs in a goroutine detached from
// ctx cancellation. A job that cannot be queued moves the document to error
// so it is not left pending with nothing to run it.
func (d *Dispatcher) Enqueue(ctx context.Context, documentID, fileName, storagePath string) error {
	if documentID == "" || storagePath == "" {
		return documents.ErrInvalidInput
	}
	if d.Queue != nil {
		err := d.Queue.Send(ctx, queue.Message{
			DocumentID:  documentID,
			FileName:    fileName,
			StoragePath: storagePath,
			RequestID:   RequestIDFromContext(ctx),
			EnqueuedAt:  d.now().Format(time.RFC3339),
			Version:     queue.MessageVersion,
		})
		if err != nil {
			return d.recordEnqueueFailure(ctx, documentID, fmt.Errorf("enqueue analysis: %w", err))
		}
		telemetry.Info("analysis.enqueued", map[string]any{"document_id": documentID})
		return nil
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		if err := d.Dispatch(detached, documentID, fileName, storagePath); err != nil {
			telemetry.Warn("analysis.background_failed", map[string]any{
				"document_id": documentID,
				"error":       err.Error(),
			})
		}
	}()
	return nil
}

func (d *Dispatcher) recordEnqueueFailure(ctx context.Context, documentID string, cause error) error {
	metrics.IncAnalysisFailed()
	telemetry.Error("analysis.status", map[string]any{
		"document_id": documentID,
		"status":      string(documents.StatusError),
		"error":       cause.Error(),
	})
	if d.Docs == nil {
		return cause
	}
	failed := d.now()
	if _, err := d.Docs.UpdateAnalysisStatus(context.WithoutCancel(ctx), documentID, documents.StatusError, func(m *documents.Metadata) {
		if m.Analysis == nil {
			m.Analysis = &documents.AnalysisOutcome{}
		}
		m.Analysis.Error = cause.Error()
		m.Analysis.FailedAt = &failed
	}); err != nil {
		return errors.Join(cause, fmt.Errorf("mark analysis error: %w", err))
	}
	return cause
}
