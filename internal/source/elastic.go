package source

import (
	"context"
	"encoding/json"

	"github.com/valyala/fastjson"

	"github.com/cyra/logpipe/internal/datefilter"
	"github.com/cyra/logpipe/internal/elastic"
	"github.com/cyra/logpipe/internal/errkind"
	"github.com/cyra/logpipe/internal/logging"
	"github.com/cyra/logpipe/internal/record"
)

// ElasticQuery is the filter set pushed down into the search request.
type ElasticQuery struct {
	Reverse bool
	Limit   int
	Level   *record.Level
	Window  *datefilter.Window
}

// Body builds the _search request body. The range clause is inclusive on
// both ends and sends the window bounds unconverted. The level term uses the
// lowercase stored form ("info"), not the uppercase Level.String used by the
// formatted renderer.
func (q ElasticQuery) Body() map[string]any {
	body := map[string]any{}

	if q.Reverse {
		body["sort"] = []any{
			map[string]any{"time_unix": map[string]any{"order": "desc"}},
		}
	}

	var filters []any
	if q.Window != nil {
		filters = append(filters, map[string]any{
			"range": map[string]any{
				"time_unix": map[string]any{
					"gte": q.Window.Start,
					"lte": q.Window.End,
				},
			},
		})
	}
	if q.Level != nil {
		lvl, _ := q.Level.MarshalText()
		filters = append(filters, map[string]any{
			"term": map[string]any{"level": string(lvl)},
		})
	}

	switch len(filters) {
	case 0:
		body["query"] = map[string]any{"match_all": map[string]any{}}
	case 1:
		body["query"] = filters[0]
	default:
		body["query"] = map[string]any{"bool": map[string]any{"must": filters}}
	}
	return body
}

// elasticSource delegates filtering, ordering and limiting to one search
// request. Hits are returned exactly as stored: no local filters run and
// records are not normalized.
type elasticSource struct {
	index  string
	query  ElasticQuery
	conn   *elastic.Conn
	logger *logging.Logger
}

func newElasticSource(index string, query ElasticQuery, conn *elastic.Conn, logger *logging.Logger) Source {
	return &elasticSource{
		index:  index,
		query:  query,
		conn:   conn,
		logger: logger,
	}
}

func (s *elasticSource) Name() string {
	return "es_index"
}

func (s *elasticSource) Get(ctx context.Context) ([]record.LogRecord, error) {
	client, err := s.conn.Client()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(s.query.Body())
	if err != nil {
		return nil, errkind.E(errkind.Config, "build search body", err)
	}
	s.logger.Debugf("search %s: %s", s.index, body)

	res, err := client.Search(ctx, s.index, body, s.query.Limit)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, errkind.Errorf(errkind.Network, "elastic search", "status %d: %s", res.Status, res.Body)
	}

	logs, err := decodeHits(res.Body)
	if err != nil {
		return nil, err
	}
	s.logger.Debugf("search %s: %d hits", s.index, len(logs))
	return logs, nil
}

// decodeHits reads hits.hits[]._source. A single bad hit fails the batch.
func decodeHits(body []byte) ([]record.LogRecord, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, errkind.E(errkind.Network, "decode search response", err)
	}

	hits := v.Get("hits", "hits")
	if hits == nil || hits.Type() != fastjson.TypeArray {
		return nil, errkind.Errorf(errkind.Network, "decode search response", "missing hits array")
	}
	arr, _ := hits.Array()

	logs := make([]record.LogRecord, 0, len(arr))
	for i, hit := range arr {
		src := hit.Get("_source")
		if src == nil {
			return nil, errkind.Errorf(errkind.Parse, "decode search hit", "hit %d has no _source", i)
		}
		var rec record.LogRecord
		if err := json.Unmarshal(src.MarshalTo(nil), &rec); err != nil {
			return nil, errkind.Errorf(errkind.Parse, "decode search hit", "hit %d: %v", i, err)
		}
		logs = append(logs, rec)
	}
	return logs, nil
}
