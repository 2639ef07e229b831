package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"intake-backend/internal/analysis"
	"intake-backend/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err   error
	calls int
}

func (f *fakeProcessor) Dispatch(ctx context.Context, documentID, fileName, storagePath string) error {
	f.calls++
	return f.err
}

func jobMessage(t *testing.T, id string) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{DocumentID: "doc-" + id, StoragePath: "u/doc/" + id + ".pdf", RequestID: "req-" + id})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String("m" + id),
		ReceiptHandle: aws.String("r" + id),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{}

	handleMessage(context.Background(), client, "queue", proc, jobMessage(t, "1"))

	if proc.calls != 1 || len(client.deleted) != 1 {
		t.Fatalf("expected dispatch and delete, got calls=%d deleted=%d", proc.calls, len(client.deleted))
	}
}

func TestWorkerDeletesRecordedAnalysisFailure(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{err: fmt.Errorf("%w: timeout", analysis.ErrAnalysisFailed)}

	handleMessage(context.Background(), client, "queue", proc, jobMessage(t, "2"))

	if len(client.deleted) != 1 {
		t.Fatalf("analysis failures are not retried, expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerKeepsMessageWhenStoreUnavailable(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{err: errors.New("connection refused")}

	handleMessage(context.Background(), client, "queue", proc, jobMessage(t, "3"))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{}
	msg := sqstypes.Message{
		MessageId:     aws.String("m4"),
		ReceiptHandle: aws.String("r4"),
		Body:          aws.String("{bad-json"),
	}

	handleMessage(context.Background(), client, "queue", proc, msg)

	if proc.calls != 0 || len(client.deleted) != 1 {
		t.Fatalf("expected delete without dispatch, got calls=%d deleted=%d", proc.calls, len(client.deleted))
	}
}
