package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"intake-backend/internal/analysis"
	"intake-backend/internal/documents"
	"intake-backend/internal/queue"
)

// Processor runs analysis for one queued document.
type Processor interface {
	Dispatch(ctx context.Context, documentID, fileName, storagePath string) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingField indicates a job without a document id or storage path.
type ErrMissingField struct {
	Meta      MessageMeta
	Field     string
	RequestID string
}

func (e ErrMissingField) Error() string { return "missing " + e.Field }

// ErrProcess indicates the analysis run failed after the job was parsed.
type ErrProcess struct {
	DocumentID string
	RequestID  string
	Err        error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process analysis"
	}
	return "process analysis: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether err means the message can never succeed and
// should be removed from the queue. Jobs for deleted documents or documents
// no longer pending are stale.
func Unrecoverable(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		missing ErrMissingField
	)
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &missing) ||
		errors.Is(err, documents.ErrNotFound) || errors.Is(err, documents.ErrInvalidTransition)
}

// Settled reports whether the message is done with and should be deleted. A
// failed analysis is recorded on the document and is not retried; only
// failures before any status was written leave the message for redelivery.
func Settled(err error) bool {
	return err == nil || Unrecoverable(err) || errors.Is(err, analysis.ErrAnalysisFailed)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.DocumentID) == "" {
		return msg, meta, ErrMissingField{Meta: meta, Field: "documentId", RequestID: msg.RequestID}
	}
	if strings.TrimSpace(msg.StoragePath) == "" {
		return msg, meta, ErrMissingField{Meta: meta, Field: "storagePath", RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, processor Processor, body string) (queue.Message, error) {
	if processor == nil {
		return queue.Message{}, errors.New("analysis processor not configured")
	}
	msg, _, err := ParseMessage(body)
	if err != nil {
		return msg, err
	}

	ctx = analysis.WithRequestID(ctx, msg.RequestID)
	if err := processor.Dispatch(ctx, msg.DocumentID, msg.FileName, msg.StoragePath); err != nil {
		return msg, ErrProcess{DocumentID: msg.DocumentID, RequestID: msg.RequestID, Err: err}
	}
	return msg, nil
}
