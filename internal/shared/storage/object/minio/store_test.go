package minio

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestIsNoSuchKey(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":          {err: nil, want: false},
		"no such key":  {err: minio.ErrorResponse{Code: "NoSuchKey"}, want: true},
		"not found":    {err: minio.ErrorResponse{Code: "NotFound"}, want: true},
		"wrapped":      {err: fmt.Errorf("stat: %w", minio.ErrorResponse{Code: "NoSuchKey"}), want: true},
		"access":       {err: minio.ErrorResponse{Code: "AccessDenied"}, want: false},
		"plain string": {err: errors.New("connection refused"), want: false},
	}
	for name, tc := range cases {
		if got := isNoSuchKey(tc.err); got != tc.want {
			t.Fatalf("%s: got %v want %v", name, got, tc.want)
		}
	}
}
