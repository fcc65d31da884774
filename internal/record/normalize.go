package record

import (
	"regexp"
	"strconv"
	"time"
)

// Example access message:
// 10.0.0.7 - GET /api/users 200 - 12.5ms
var messageRe = regexp.MustCompile(`^([:\w.]+)\s-\s(\w+)\s([/\w]+)\s(\d+)\s-\s([\d.]+)ms$`)

// DeriveTime sets TimeUnix from Timestamp when it is not already set.
// An unparseable timestamp leaves TimeUnix nil.
func (r *LogRecord) DeriveTime() {
	if r.TimeUnix != nil {
		return
	}
	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return
	}
	ms := ts.UnixMilli()
	r.TimeUnix = &ms
}

// Normalize extracts the access-log fields from Message and derives the
// record time. It runs at most once per record.
func (r *LogRecord) Normalize() {
	if r.IsProcessed {
		return
	}

	if m := messageRe.FindStringSubmatch(r.Message); m != nil {
		r.IPAddress = m[1]
		r.HTTPMethod = ParseHTTPMethod(m[2])
		r.URL = m[3]
		r.StatusCode = m[4]
		pt, err := strconv.ParseFloat(m[5], 64)
		if err != nil {
			pt = 0
		}
		r.ProcessTime = pt
	}

	r.DeriveTime()
	r.IsProcessed = true
}
