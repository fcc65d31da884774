package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/cyra/logpipe/internal/codec"
	"github.com/cyra/logpipe/internal/errkind"
	"github.com/cyra/logpipe/internal/record"
)

// fileSource reads a JSON array of records from disk.
type fileSource struct {
	path     string
	pipeline localPipeline
}

func newFileSource(path string, pipeline localPipeline) Source {
	return &fileSource{path: path, pipeline: pipeline}
}

func (s *fileSource) Name() string {
	return "file"
}

func (s *fileSource) Get(ctx context.Context) ([]record.LogRecord, error) {
	s.pipeline.logger.Tracef("read_file_contents %s", s.path)
	data, err := codec.ReadFile(s.path)
	if err != nil {
		return nil, errkind.E(errkind.IO, "read log file", err)
	}

	logs, err := decodeArray(data)
	if err != nil {
		return nil, errkind.E(errkind.Parse, "parse log file", err)
	}
	s.pipeline.logger.Debugf("file %s: %d records", s.path, len(logs))

	return s.pipeline.run(logs), nil
}

func decodeArray(data []byte) ([]record.LogRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("expected a JSON array of records")
	}
	var logs []record.LogRecord
	if err := json.Unmarshal(trimmed, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
