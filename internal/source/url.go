package source

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/valyala/fastjson"

	"github.com/cyra/logpipe/internal/config"
	"github.com/cyra/logpipe/internal/errkind"
	"github.com/cyra/logpipe/internal/record"
)

// urlSource fetches newline-delimited JSON records over HTTP. The address
// comes from the DEFAULT_URL_<suffix> environment key.
type urlSource struct {
	suffix   string
	lookup   config.LookupFunc
	client   *http.Client
	pipeline localPipeline
}

func newURLSource(suffix string, lookup config.LookupFunc, client *http.Client, pipeline localPipeline) Source {
	return &urlSource{
		suffix:   suffix,
		lookup:   lookup,
		client:   client,
		pipeline: pipeline,
	}
}

func (s *urlSource) Name() string {
	return "url"
}

func (s *urlSource) Get(ctx context.Context) ([]record.LogRecord, error) {
	logger := s.pipeline.logger

	addr, err := config.DefaultURL(s.lookup, s.suffix)
	if err != nil {
		return nil, err
	}
	logger.Debugf("url: %s", addr)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, http.NoBody)
	if err != nil {
		return nil, errkind.E(errkind.Config, "build url request", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errkind.E(errkind.Network, "fetch url", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errkind.E(errkind.Network, "read url response", err)
	}
	logger.Debugf("url response: status=%s bytes=%d", resp.Status, len(body))

	logs, err := s.decodeLines(body)
	if err != nil {
		return nil, err
	}
	logger.Debugf("url records: %d", len(logs))

	return s.pipeline.run(logs), nil
}

// decodeLines parses one record per line. Invalid JSON aborts the load;
// valid JSON that is not a record is dropped.
func (s *urlSource) decodeLines(body []byte) ([]record.LogRecord, error) {
	logs := make([]record.LogRecord, 0)
	for n, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := fastjson.ValidateBytes(line); err != nil {
			return nil, errkind.Errorf(errkind.Parse, "parse url response", "line %d: %v", n+1, err)
		}

		var rec record.LogRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			s.pipeline.logger.Debugf("dropping line %d: %v", n+1, err)
			continue
		}
		logs = append(logs, rec)
	}
	return logs, nil
}
