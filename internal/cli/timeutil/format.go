// Package timeutil formats the timestamps the glide admin API returns
// (connection times, server uptime) for terminal display.
package timeutil

import (
	"fmt"
	"time"
)

// FormatTime converts an RFC3339 timestamp to local time in a compact
// display form. Anything unparseable is shown as received.
func FormatTime(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp
	}
	return t.Local().Format("Mon Jan 2 15:04:05 2006")
}

// FormatUptime rewrites a Go duration string ("75h4m10s") as days, hours,
// minutes and seconds, dropping leading zero units. Unparseable input is
// returned as is.
func FormatUptime(uptime string) string {
	d, err := time.ParseDuration(uptime)
	if err != nil {
		return uptime
	}

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := (d - minutes*time.Minute) / time.Second

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
