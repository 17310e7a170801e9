package object

import (
	"regexp"
	"testing"
	"time"
)

func TestRawKeyLayout(t *testing.T) {
	now := time.Unix(1700000000, 42)
	key := RawKey("u1", "j1", "My CV.PDF", now)

	re := regexp.MustCompile(`^resumes/raw/u1_j1_1700000000000000042_[0-9a-f]{16}\.pdf$`)
	if !re.MatchString(key) {
		t.Fatalf("unexpected raw key %q", key)
	}
	if other := RawKey("u1", "j1", "My CV.PDF", now); other == key {
		t.Fatalf("expected random suffix to differ between keys")
	}
}

func TestTextKeyIsStable(t *testing.T) {
	raw := "resumes/raw/u1_j1_1_abcd.docx"
	want := "resumes/text/u1_j1_1_abcd.docx.txt"
	if got := TextKey(raw); got != want {
		t.Fatalf("TextKey(%q) = %q, want %q", raw, got, want)
	}
	if TextKey(raw) != TextKey(raw) {
		t.Fatalf("TextKey must be deterministic")
	}
}

func TestExt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "pdf", in: "resume.pdf", want: ".pdf"},
		{name: "upper", in: "RESUME.DOCX", want: ".docx"},
		{name: "none", in: "resume", want: ""},
		{name: "windows path", in: `C:\tmp\cv.txt`, want: ".txt"},
		{name: "odd chars", in: "cv.p$f", want: ""},
		{name: "trailing dot", in: "cv.", want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Ext(tt.in); got != tt.want {
				t.Fatalf("Ext(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
