package presenter

import (
	"fmt"
	"time"
)

// FormatRelative formats t relative to now as "in 3 days" or "5 minutes ago".
// This is the verbose format suitable for detailed displays.
func FormatRelative(t, now time.Time) string {
	d := t.Sub(now)
	if d < 0 {
		return formatDuration(-d, false) + " ago"
	}
	return "in " + formatDuration(d, false)
}

// FormatRelativeCompact formats t relative to now as "+3d" or "-5m".
// This is the compact format suitable for table displays with limited space.
func FormatRelativeCompact(t, now time.Time) string {
	d := t.Sub(now)
	if d < 0 {
		return "-" + formatDuration(-d, true)
	}
	return "+" + formatDuration(d, true)
}

func formatDuration(d time.Duration, compact bool) string {
	switch {
	case d < time.Hour:
		if compact {
			return fmt.Sprintf("%.0fm", d.Minutes())
		}
		return fmt.Sprintf("%.0f minutes", d.Minutes())
	case d < 24*time.Hour:
		if compact {
			return fmt.Sprintf("%.1fh", d.Hours())
		}
		return fmt.Sprintf("%.1f hours", d.Hours())
	default:
		if compact {
			return fmt.Sprintf("%.0fd", d.Hours()/24)
		}
		return fmt.Sprintf("%.0f days", d.Hours()/24)
	}
}

// FormatTimestamp renders t in UTC, or "-" for the zero time
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
