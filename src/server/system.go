package server

import (
	"fmt"
	"time"
)

// FormatUptime formats a duration into a human-readable string
func FormatUptime(duration time.Duration) string {
	totalSeconds := int(duration.Seconds())
	days := totalSeconds / 86400
	hours := (totalSeconds % 86400) / 3600
	minutes := (totalSeconds % 3600) / 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	} else {
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatSince formats the time elapsed from start to now, or "" for a zero start.
func FormatSince(start, now time.Time) string {
	if start.IsZero() {
		return ""
	}
	return FormatUptime(now.Sub(start))
}
