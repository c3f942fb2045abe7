package poller

import (
	"testing"
	"time"
)

func TestNextDelay(t *testing.T) {
	tests := []struct {
		sinceChange time.Duration
		want        time.Duration
	}{
		{0, 60 * time.Second},
		{30 * time.Second, 60 * time.Second},
		{59 * time.Second, 60 * time.Second},
		{60 * time.Second, 30 * time.Second},
		{90 * time.Second, 30 * time.Second},
		{119 * time.Second, 30 * time.Second},
		{120 * time.Second, 15 * time.Second},
		{149 * time.Second, 15 * time.Second},
		{150 * time.Second, 5 * time.Second},
		{180 * time.Second, 5 * time.Second},
		{time.Hour, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := NextDelay(tt.sinceChange); got != tt.want {
			t.Errorf("NextDelay(%v) = %v, want %v", tt.sinceChange, got, tt.want)
		}
	}
}
