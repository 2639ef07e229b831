package util

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Form 47 Smith.pdf", "Form_47_Smith.pdf"},
		{"contract.pdf", "contract.pdf"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"résumé-v2.docx", "r_sum_-v2.docx"},
	}
	for _, tc := range cases {
		got, err := SanitizeFileName(tc.in)
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFileNameRejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "..", "."} {
		if _, err := SanitizeFileName(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
