package util

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "  resume.pdf ", want: "resume.pdf"},
		{in: "dir/sub\\cv.docx", want: "dir_sub_cv.docx"},
		{in: "../etc/passwd", err: true},
		{in: "   ", err: true},
	}
	for _, tc := range cases {
		got, err := SanitizeFileName(tc.in)
		if tc.err {
			if err == nil {
				t.Fatalf("SanitizeFileName(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
