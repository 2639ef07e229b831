package local

import (
	"context"
	"strings"
	"testing"

	"intake-backend/internal/analysis"
	"intake-backend/internal/documents"
	"intake-backend/internal/shared/storage/object"
	localstore "intake-backend/internal/shared/storage/object/local"
)

const form31Text = `PROOF OF CLAIM
Estate No: 31-2045518
Creditor: Acme Lending Ltd
Debtor: Jane Smith
Amount of claim: $12,500.00
Type of claim: Unsecured
`

const form47Text = `CONSUMER PROPOSAL
Consumer debtor: John Smith
Administrator: North Trustee Inc.
Proposal amount: $18,000
Date filed: 2024-02-14
Estate number 47-998877
`

func TestExtractFieldsForm31(t *testing.T) {
	fields := ExtractFields(documents.KindForm31, form31Text)
	want := map[string]string{
		"creditorName": "Acme Lending Ltd",
		"debtorName":   "Jane Smith",
		"claimAmount":  "12,500.00",
		"claimType":    "Unsecured",
		"estateNumber": "31-2045518",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Fatalf("%s: expected %q, got %q", k, v, fields[k])
		}
	}
}

func TestExtractFieldsForm47(t *testing.T) {
	fields := ExtractFields(documents.KindForm47, form47Text)
	want := map[string]string{
		"debtorName":        "John Smith",
		"administratorName": "North Trustee Inc.",
		"proposalAmount":    "18,000",
		"filingDate":        "2024-02-14",
		"estateNumber":      "47-998877",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Fatalf("%s: expected %q, got %q", k, v, fields[k])
		}
	}
}

func TestExtractFieldsIgnoresOrdinaryDocuments(t *testing.T) {
	if fields := ExtractFields(documents.KindNone, form31Text); len(fields) != 0 {
		t.Fatalf("expected no fields, got %+v", fields)
	}
}

func TestInvokeReadsBlob(t *testing.T) {
	store := localstore.New(t.TempDir(), "")
	ctx := context.Background()
	key := "user-1/doc-1/form_31_acme.txt"
	if _, err := store.Put(ctx, key, strings.NewReader(form31Text), int64(len(form31Text)), object.PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := New(store).Invoke(ctx, analysis.DefaultFunction, analysis.Request{
		DocumentID:        "doc-1",
		StoragePath:       key,
		Title:             "form_31_acme.txt",
		IncludeRegulatory: true,
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.Fields["creditorName"] != "Acme Lending Ltd" {
		t.Fatalf("unexpected fields %+v", res.Fields)
	}
	if !strings.HasPrefix(res.Summary, "form_31:") {
		t.Fatalf("unexpected summary %q", res.Summary)
	}
}

func TestInvokeFailsForMissingBlob(t *testing.T) {
	store := localstore.New(t.TempDir(), "")
	_, err := New(store).Invoke(context.Background(), analysis.DefaultFunction, analysis.Request{
		DocumentID: "doc-1", StoragePath: "user-1/doc-1/absent.pdf", Title: "Form 31.pdf",
	})
	if err == nil {
		t.Fatal("expected error for missing blob")
	}
}
