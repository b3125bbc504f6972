package utils

import "testing"

func TestSanitizeSearchKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf_0", "report_pdf_0"},
		{"annual report (2024).pdf_12", "annual_report__2024__pdf_12"},
		{"already_valid-key=1", "already_valid-key=1"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeSearchKey(tt.in); got != tt.want {
			t.Errorf("SanitizeSearchKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashTextStable(t *testing.T) {
	a := HashText("hello world")
	b := HashText("hello world")
	if a != b {
		t.Fatalf("hash not deterministic: %s != %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(a))
	}
	if HashText("hello") == HashText("world") {
		t.Fatal("different inputs produced same hash")
	}
}
