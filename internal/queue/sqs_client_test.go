package queue

import (
	"testing"
	"time"
)

func TestSQSDelaySeconds(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int32
	}{
		{in: 0, want: 0},
		{in: -time.Second, want: 0},
		{in: 1500 * time.Millisecond, want: 2},
		{in: 30 * time.Second, want: 30},
		{in: time.Hour, want: 900},
	}
	for _, tc := range cases {
		if got := sqsDelaySeconds(tc.in); got != tc.want {
			t.Fatalf("sqsDelaySeconds(%s) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
