package s3

import (
	"errors"
	"testing"

	"github.com/aws/smithy-go"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "resumes/raw/a.pdf", want: "resumes/raw/a.pdf"},
		{name: "simple prefix", prefix: "env", key: "resumes/raw/a.pdf", want: "env/resumes/raw/a.pdf"},
		{name: "slashes trimmed", prefix: "/env/", key: "/resumes/text/a.pdf.txt", want: "env/resumes/text/a.pdf.txt"},
		{name: "empty key", prefix: "env", key: "", want: "env"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestIsPreconditionFailed(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"precondition": {err: &smithy.GenericAPIError{Code: "PreconditionFailed"}, want: true},
		"conflict":     {err: &smithy.GenericAPIError{Code: "ConditionalRequestConflict"}, want: true},
		"access":       {err: &smithy.GenericAPIError{Code: "AccessDenied"}, want: false},
		"plain":        {err: errors.New("boom"), want: false},
	}
	for name, tc := range cases {
		if got := isPreconditionFailed(tc.err); got != tc.want {
			t.Fatalf("%s: got %v want %v", name, got, tc.want)
		}
	}
}
