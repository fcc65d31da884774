// Package datefilter parses the date filter mini-language into a time window.
//
// Supported forms:
//
//	today, 0    now .. now
//	yesterday   now-24h .. now
//	N_M         N hours .. M hours since the epoch
//	N-          midnight N days ago .. 23:59:59 today
//
// Local wall-clock times are read as if they were UTC before conversion to
// epoch seconds.
package datefilter

import (
	"strconv"
	"strings"
	"time"

	"github.com/cyra/logpipe/internal/errkind"
)

const op = "parse date filter"

// Window holds the (start, end) bounds in epoch seconds.
type Window struct {
	Start int64
	End   int64
}

// Contains reports whether t lies strictly inside w. The bounds are compared
// to time_unix as they are, without unit conversion. A nil time never matches.
func (w Window) Contains(t *int64) bool {
	if t == nil {
		return false
	}
	return w.Start < *t && *t < w.End
}

// Parse resolves s against the current local time.
func Parse(s string) (Window, error) {
	return ParseAt(s, time.Now())
}

// ParseAt resolves s against now, using now's wall clock.
func ParseAt(s string, now time.Time) (Window, error) {
	today := naive(now)

	switch {
	case s == "yesterday":
		yesterday := today.AddDate(0, 0, -1)
		return Window{Start: yesterday.Unix(), End: today.Unix()}, nil
	case s == "today" || s == "0":
		return Window{Start: today.Unix(), End: today.Unix()}, nil
	case strings.Contains(s, "_"):
		return parseHours(s)
	case strings.HasSuffix(s, "-"):
		return parseDaysBack(s, today)
	default:
		return Window{}, errkind.Errorf(errkind.Validation, op, "format not found: %q", s)
	}
}

func parseHours(s string) (Window, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 {
		return Window{}, errkind.Errorf(errkind.Validation, op, "expected N_M, got %q", s)
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Window{}, errkind.E(errkind.Validation, op, err)
	}
	end, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Window{}, errkind.E(errkind.Validation, op, err)
	}
	return Window{Start: start * 3600, End: end * 3600}, nil
}

func parseDaysBack(s string, today time.Time) (Window, error) {
	days, err := strconv.ParseInt(strings.TrimRight(s, "-"), 10, 64)
	if err != nil {
		return Window{}, errkind.Errorf(errkind.Validation, op, "expected N-, got %q", s)
	}
	if days < 0 {
		days = -days
	}

	y, m, d := today.Date()
	start := time.Date(y, m, d-int(days), 0, 0, 0, 0, time.UTC)
	end := time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
	return Window{Start: start.Unix(), End: end.Unix()}, nil
}

// naive moves t's wall clock into UTC without shifting the clock reading.
func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
