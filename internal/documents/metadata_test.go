package documents

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to AnalysisStatus
		ok       bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusComplete, true},
		{StatusProcessing, StatusError, true},
		{StatusError, StatusProcessing, true},
		{StatusPending, StatusComplete, false},
		{StatusPending, StatusError, true},
		{StatusNotApplicable, StatusError, false},
		{StatusNotApplicable, StatusProcessing, false},
		{StatusComplete, StatusNotApplicable, false},
		{StatusNotApplicable, StatusPending, true},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestMergeFieldsKeepsExistingValues(t *testing.T) {
	m := NewMetadata(KindForm47, "Form 47 Smith.pdf", nil)
	m.Form47.DebtorName = "J. Smith"
	m.MergeFields(map[string]string{"debtorName": " ", "administratorName": "LIT Inc."})
	if m.Form47.DebtorName != "J. Smith" {
		t.Fatalf("empty value overwrote debtor name: %q", m.Form47.DebtorName)
	}
	if m.Form47.AdministratorName != "LIT Inc." {
		t.Fatalf("expected administrator to be merged, got %q", m.Form47.AdministratorName)
	}
}

func TestNewMetadataFallsBackToGeneral(t *testing.T) {
	m := NewMetadata("", "Budget.XLSX", nil)
	if m.Kind != KindNone || m.General == nil || m.General.Extension != "xlsx" {
		t.Fatalf("unexpected metadata: %+v", m)
	}
}
