package server

import (
	"testing"
	"time"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{5 * time.Minute, "5m"},
		{2*time.Hour + 30*time.Minute, "2h 30m"},
		{25*time.Hour + 10*time.Minute, "1d 1h 10m"},
		{48 * time.Hour, "2d 0h 0m"},
		{30 * time.Second, "0m"}, // Integer division results in 0m
	}

	for _, tt := range tests {
		result := FormatUptime(tt.duration)
		if result != tt.expected {
			t.Errorf("FormatUptime(%v) = %s; want %s", tt.duration, result, tt.expected)
		}
	}
}

func TestFormatSince(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	if got := FormatSince(now.Add(-90*time.Minute), now); got != "1h 30m" {
		t.Errorf("FormatSince = %s; want 1h 30m", got)
	}
	if got := FormatSince(time.Time{}, now); got != "" {
		t.Errorf("FormatSince(zero) = %q; want empty", got)
	}
}
