package record

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders r as a multi-line block. Optional fields are only written
// when they hold a non-default value.
func (r *LogRecord) Format() string {
	var b strings.Builder
	var timeUnix int64
	if r.TimeUnix != nil {
		timeUnix = *r.TimeUnix
	}

	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"timestamp\": \"%s\",\n", r.Timestamp)
	fmt.Fprintf(&b, "  \"level\": \"%s\",\n", r.Level)
	fmt.Fprintf(&b, "  \"message\": \"%s\",\n", r.Message)
	fmt.Fprintf(&b, "  \"time_unix\": \"%d\",\n", timeUnix)

	if r.HTTPMethod != MethodNone {
		fmt.Fprintf(&b, "  \"http_method\": \"%s\",\n", r.HTTPMethod)
	}
	if r.IPAddress != "" {
		fmt.Fprintf(&b, "  \"ip_address\": \"%s\",\n", r.IPAddress)
	}
	if r.URL != "" {
		fmt.Fprintf(&b, "  \"url\": \"%s\",\n", r.URL)
	}
	if r.StatusCode != "" {
		fmt.Fprintf(&b, "  \"status_code\": \"%s\",\n", r.StatusCode)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "  \"error\": \"%s\",\n", r.Error)
	}

	fmt.Fprintf(&b, "  \"process_time\": %s,\n", strconv.FormatFloat(r.ProcessTime, 'f', -1, 64))
	b.WriteString("}")
	return b.String()
}
