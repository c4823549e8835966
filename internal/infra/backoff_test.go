package infra

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{10, 30 * time.Second}, // capped
		{63, 30 * time.Second}, // shift overflow guarded
	}

	for _, c := range cases {
		if got := CalculateBackoff(c.retry); got != c.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", c.retry, got, c.want)
		}
	}
}
