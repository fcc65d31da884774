// Package render writes a finished sequence to the console.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cyra/logpipe/internal/config"
	"github.com/cyra/logpipe/internal/errkind"
	"github.com/cyra/logpipe/internal/record"
)

// Renderer presents records. It never modifies them.
type Renderer interface {
	Render(logs []record.LogRecord) error
}

// New returns the renderer for kind, or nil when kind is empty.
func New(kind string, w io.Writer) (Renderer, error) {
	switch kind {
	case "":
		return nil, nil
	case config.OutputJSON:
		return jsonRenderer{w: w}, nil
	case config.OutputPrettyJSON:
		return prettyRenderer{w: w}, nil
	case config.OutputCount:
		return countRenderer{w: w}, nil
	case config.OutputSummary:
		return summaryRenderer{w: w}, nil
	default:
		return nil, errkind.Errorf(errkind.Config, "create renderer", "unsupported output %q", kind)
	}
}

type jsonRenderer struct{ w io.Writer }

func (r jsonRenderer) Render(logs []record.LogRecord) error {
	if logs == nil {
		logs = []record.LogRecord{}
	}
	data, err := json.Marshal(logs)
	if err != nil {
		return errkind.E(errkind.IO, "render json", err)
	}
	return writeLine(r.w, data)
}

type prettyRenderer struct{ w io.Writer }

func (r prettyRenderer) Render(logs []record.LogRecord) error {
	for i := range logs {
		if _, err := fmt.Fprintln(r.w, logs[i].Format()); err != nil {
			return errkind.E(errkind.IO, "render pretty json", err)
		}
	}
	return nil
}

type countRenderer struct{ w io.Writer }

func (r countRenderer) Render(logs []record.LogRecord) error {
	if _, err := fmt.Fprintln(r.w, len(logs)); err != nil {
		return errkind.E(errkind.IO, "render count", err)
	}
	return nil
}

// Summary is the aggregate printed by the summary renderer.
type Summary struct {
	Count      int                       `json:"count"`
	DateRange  string                    `json:"date_range"`
	HTTPMethod map[record.HTTPMethod]int `json:"http_method"`
}

// Summarize counts records per HTTP method. DateRange pairs the first and
// last timestamps in the order given, which is not necessarily chronological.
func Summarize(logs []record.LogRecord) Summary {
	s := Summary{
		Count:      len(logs),
		HTTPMethod: make(map[record.HTTPMethod]int),
	}
	var first, last string
	if len(logs) > 0 {
		first = logs[0].Timestamp
		last = logs[len(logs)-1].Timestamp
	}
	s.DateRange = first + " - " + last
	for i := range logs {
		s.HTTPMethod[logs[i].HTTPMethod]++
	}
	return s
}

type summaryRenderer struct{ w io.Writer }

func (r summaryRenderer) Render(logs []record.LogRecord) error {
	data, err := json.MarshalIndent(Summarize(logs), "", "  ")
	if err != nil {
		return errkind.E(errkind.IO, "render summary", err)
	}
	return writeLine(r.w, data)
}

func writeLine(w io.Writer, data []byte) error {
	if _, err := w.Write(append(data, '\n')); err != nil {
		return errkind.E(errkind.IO, "write output", err)
	}
	return nil
}
