package sink

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/valyala/fastjson"

	"github.com/cyra/logpipe/internal/elastic"
	"github.com/cyra/logpipe/internal/errkind"
	"github.com/cyra/logpipe/internal/logging"
	"github.com/cyra/logpipe/internal/record"
)

// BatchSize is the number of records sent per _bulk request.
const BatchSize = 1000

var matchAll = []byte(`{"query":{"match_all":{}}}`)

// elasticSink bulk-creates records in an index, one request per batch.
// Documents are keyed by their timestamp, so records sharing a timestamp
// collide and only the first is stored.
type elasticSink struct {
	index    string
	truncate bool
	conn     *elastic.Conn
	logger   *logging.Logger
}

func newElasticSink(index string, truncate bool, conn *elastic.Conn, logger *logging.Logger) Sink {
	return &elasticSink{
		index:    index,
		truncate: truncate,
		conn:     conn,
		logger:   logger,
	}
}

func (s *elasticSink) Name() string {
	return "es_index"
}

func (s *elasticSink) Save(ctx context.Context, logs []record.LogRecord) error {
	client, err := s.conn.Client()
	if err != nil {
		return err
	}

	if s.truncate {
		// Only a transport failure stops the run; the reply is not checked.
		res, err := client.DeleteByQuery(ctx, s.index, matchAll)
		if err != nil {
			return err
		}
		s.logger.Debugf("truncate %s: status=%d %s", s.index, res.Status, res.Body)
	}

	for start := 0; start < len(logs); start += BatchSize {
		end := min(start+BatchSize, len(logs))
		body, err := bulkBody(logs[start:end])
		if err != nil {
			return err
		}

		res, err := client.Bulk(ctx, s.index, body)
		if err != nil {
			return err
		}
		s.logger.Debugf("bulk %s [%d:%d]: status=%d %s", s.index, start, end, res.Status, res.Body)
		if bulkHasErrors(res.Body) {
			s.logger.Warnf("bulk %s [%d:%d]: some items were rejected", s.index, start, end)
		}
	}
	return nil
}

type bulkAction struct {
	Create bulkMeta `json:"create"`
}

type bulkMeta struct {
	ID string `json:"_id"`
}

// bulkBody renders one create action plus document per record as NDJSON.
func bulkBody(batch []record.LogRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range batch {
		if err := enc.Encode(bulkAction{Create: bulkMeta{ID: batch[i].Timestamp}}); err != nil {
			return nil, errkind.E(errkind.Parse, "encode bulk action", err)
		}
		if err := enc.Encode(&batch[i]); err != nil {
			return nil, errkind.E(errkind.Parse, "encode bulk document", err)
		}
	}
	return buf.Bytes(), nil
}

func bulkHasErrors(body []byte) bool {
	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return false
	}
	return v.GetBool("errors")
}
