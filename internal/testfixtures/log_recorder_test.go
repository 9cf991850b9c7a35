package testfixtures

import "testing"

func TestLogRecorder(t *testing.T) {
	rec := NewLogRecorder()
	rec.WriteInformation("Database updated to %s", "cafef00d")
	rec.WriteError("plain")

	if !rec.Contains(SeverityInformation, "cafef00d") {
		t.Fatalf("expected formatted information message, got %+v", rec.Entries())
	}
	if got := rec.Messages(SeverityError); len(got) != 1 || got[0] != "plain" {
		t.Fatalf("unexpected error messages %q", got)
	}
	if len(rec.Messages(SeverityWarning)) != 0 {
		t.Fatalf("expected no warnings")
	}
}
