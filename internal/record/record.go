package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is the severity of a log record.
type Level int

const (
	LevelNone Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelDebug
)

var levelNames = map[Level]string{
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelDebug: "debug",
	LevelNone:  "none",
}

// String returns the display form used by the formatted renderer.
func (l Level) String() string {
	if l == LevelNone {
		return "none"
	}
	return strings.ToUpper(levelNames[l])
}

// MarshalText encodes the level in its stored (lowercase) form.
func (l Level) MarshalText() ([]byte, error) {
	name, ok := levelNames[l]
	if !ok {
		return nil, fmt.Errorf("invalid level %d", int(l))
	}
	return []byte(name), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for lvl, name := range levelNames {
		if name == s {
			*l = lvl
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", string(text))
}

// HTTPMethod is the request method extracted from a record message.
type HTTPMethod int

const (
	MethodNone HTTPMethod = iota
	MethodGet
	MethodPut
	MethodPost
	MethodDelete
	MethodPatch
	MethodHead
	MethodOptions
	MethodConnect
	MethodTrace
)

var methodNames = map[HTTPMethod]string{
	MethodGet:     "GET",
	MethodPut:     "PUT",
	MethodPost:    "POST",
	MethodDelete:  "DELETE",
	MethodPatch:   "PATCH",
	MethodHead:    "HEAD",
	MethodOptions: "OPTIONS",
	MethodConnect: "CONNECT",
	MethodTrace:   "TRACE",
	MethodNone:    "NONE",
}

// ParseHTTPMethod matches token exactly against the known method names.
// Unrecognized tokens yield MethodNone.
func ParseHTTPMethod(token string) HTTPMethod {
	for m, name := range methodNames {
		if name == token {
			return m
		}
	}
	return MethodNone
}

func (m HTTPMethod) String() string {
	if m == MethodNone {
		return "none"
	}
	return methodNames[m]
}

func (m HTTPMethod) MarshalText() ([]byte, error) {
	name, ok := methodNames[m]
	if !ok {
		return nil, fmt.Errorf("invalid http method %d", int(m))
	}
	return []byte(name), nil
}

func (m *HTTPMethod) UnmarshalText(text []byte) error {
	for method, name := range methodNames {
		if name == string(text) {
			*m = method
			return nil
		}
	}
	return fmt.Errorf("unknown http method %q", string(text))
}

// LogRecord is a structured log entry. Fields past Message are filled in by
// Normalize when the source message follows the access-log grammar.
type LogRecord struct {
	Timestamp   string     `json:"timestamp"`
	Level       Level      `json:"level"`
	Message     string     `json:"message"`
	HTTPMethod  HTTPMethod `json:"http_method"`
	IPAddress   string     `json:"ip_address"`
	URL         string     `json:"url"`
	StatusCode  string     `json:"status_code"`
	Error       string     `json:"error"`
	ProcessTime float64    `json:"process_time"`
	// TimeUnix is epoch milliseconds derived from Timestamp.
	TimeUnix    *int64 `json:"time_unix"`
	IsProcessed bool   `json:"is_process"`
}

// UnmarshalJSON requires timestamp, level and message and applies defaults
// to every other field.
func (r *LogRecord) UnmarshalJSON(data []byte) error {
	type plain LogRecord
	*r = LogRecord{HTTPMethod: MethodNone}
	aux := struct {
		*plain
		Timestamp *string `json:"timestamp"`
		Level     *Level  `json:"level"`
		Message   *string `json:"message"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Timestamp == nil:
		return fmt.Errorf("missing field timestamp")
	case aux.Level == nil:
		return fmt.Errorf("missing field level")
	case aux.Message == nil:
		return fmt.Errorf("missing field message")
	}
	r.Timestamp = *aux.Timestamp
	r.Level = *aux.Level
	r.Message = *aux.Message
	return nil
}
