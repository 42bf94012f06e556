package common

import (
	"fmt"
	"time"
)

// Elapsed formats the time passed between t and now using the largest whole unit,
// e.g. "3 minutes ago". Anything under a minute, or in the future, is "just now".
func Elapsed(t, now time.Time) string {
	d := now.Sub(t)
	if d < time.Minute {
		return "just now"
	}
	const (
		day   = 24 * time.Hour
		month = 30 * day
		year  = 365 * day
	)
	switch {
	case d >= year:
		return plural(int(d/year), "year")
	case d >= month:
		return plural(int(d/month), "month")
	case d >= day:
		return plural(int(d/day), "day")
	case d >= time.Hour:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
