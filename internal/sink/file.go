package sink

import (
	"context"
	"encoding/json"

	"github.com/cyra/logpipe/internal/codec"
	"github.com/cyra/logpipe/internal/errkind"
	"github.com/cyra/logpipe/internal/logging"
	"github.com/cyra/logpipe/internal/record"
)

// fileSink writes the sequence as one JSON array, replacing any previous
// content of the file. The truncate option has no effect here.
type fileSink struct {
	path   string
	logger *logging.Logger
}

func newFileSink(path string, logger *logging.Logger) Sink {
	return &fileSink{path: path, logger: logger}
}

func (s *fileSink) Name() string {
	return "file"
}

func (s *fileSink) Save(_ context.Context, logs []record.LogRecord) error {
	if logs == nil {
		logs = []record.LogRecord{}
	}
	data, err := json.Marshal(logs)
	if err != nil {
		return errkind.E(errkind.IO, "encode log file", err)
	}
	if err := codec.WriteFile(s.path, data); err != nil {
		return errkind.E(errkind.IO, "write log file", err)
	}
	s.logger.Debugf("saved %d records to %s", len(logs), s.path)
	return nil
}
