package sys

import (
	"fmt"
	"strings"
	"time"
)

// FormatTimedelta renders d as "1 day, 2 hours, 3 minutes and 4 seconds".
// Zero-valued leading units are omitted; seconds are always present.
func FormatTimedelta(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)

	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if days > 0 || hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if days > 0 || hours > 0 || minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	secs := plural(seconds, "second")
	if len(parts) == 0 {
		return secs
	}
	return strings.Join(parts, ", ") + " and " + secs
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// DiscordTimestamp renders t as a Discord timestamp markup tag.
func DiscordTimestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}
