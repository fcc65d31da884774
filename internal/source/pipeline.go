package source

import (
	"slices"

	"github.com/cyra/logpipe/internal/datefilter"
	"github.com/cyra/logpipe/internal/logging"
	"github.com/cyra/logpipe/internal/record"
)

const progressEvery = 1000

// localPipeline is the filter chain shared by the file and url sources:
// derive time, level filter, date filter, reverse, limit, normalize.
// Filters only look at level and time_unix; message extraction happens
// after the sequence is cut down.
type localPipeline struct {
	reverse    bool
	limit      int
	level      *record.Level
	window     *datefilter.Window
	dateFilter string
	logger     *logging.Logger
}

func (p localPipeline) run(logs []record.LogRecord) []record.LogRecord {
	p.deriveTimes(logs)
	logs = p.filterLevel(logs)
	logs = p.filterDate(logs)
	p.reverseOrder(logs)
	logs = p.limitTo(logs)
	p.normalize(logs)
	return logs
}

func (p localPipeline) deriveTimes(logs []record.LogRecord) {
	p.logger.Tracef("process_logs_date")
	for i := range logs {
		logs[i].DeriveTime()
		if i%progressEvery == 0 {
			p.logger.Tracef("process_logs_date: %d/%d", i, len(logs))
		}
	}
}

func (p localPipeline) filterLevel(logs []record.LogRecord) []record.LogRecord {
	if p.level == nil {
		p.logger.Tracef("skip level filter")
		return logs
	}
	lvl := *p.level
	before := len(logs)
	logs = slices.DeleteFunc(logs, func(r record.LogRecord) bool {
		return r.Level != lvl
	})
	p.logger.Tracef("filter_logs_level %s: %d -> %d", lvl, before, len(logs))
	return logs
}

func (p localPipeline) filterDate(logs []record.LogRecord) []record.LogRecord {
	if p.window == nil {
		p.logger.Tracef("skip date filter")
		return logs
	}
	w := *p.window
	before := len(logs)
	logs = slices.DeleteFunc(logs, func(r record.LogRecord) bool {
		return !w.Contains(r.TimeUnix)
	})
	p.logger.Tracef("filter_logs_date %q (%d, %d): %d -> %d", p.dateFilter, w.Start, w.End, before, len(logs))
	return logs
}

func (p localPipeline) reverseOrder(logs []record.LogRecord) {
	if !p.reverse {
		p.logger.Tracef("skip reverse_logs")
		return
	}
	p.logger.Tracef("reverse_logs")
	slices.Reverse(logs)
}

func (p localPipeline) limitTo(logs []record.LogRecord) []record.LogRecord {
	p.logger.Tracef("limit_logs %d", p.limit)
	if p.limit >= 0 && len(logs) > p.limit {
		return logs[:p.limit]
	}
	return logs
}

func (p localPipeline) normalize(logs []record.LogRecord) {
	p.logger.Tracef("process_logs")
	for i := range logs {
		logs[i].Normalize()
		if i%progressEvery == 0 {
			p.logger.Tracef("process_logs: %d/%d", i, len(logs))
		}
	}
	p.logger.Tracef("process_logs finished")
}
