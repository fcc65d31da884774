package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyra/logpipe/internal/config"
	"github.com/cyra/logpipe/internal/datefilter"
	"github.com/cyra/logpipe/internal/elastic"
	"github.com/cyra/logpipe/internal/errkind"
	"github.com/cyra/logpipe/internal/logging"
	"github.com/cyra/logpipe/internal/record"
)

func TestElasticQueryBody(t *testing.T) {
	window := &datefilter.Window{Start: 100, End: 200}

	tests := []struct {
		name  string
		query ElasticQuery
		want  string
	}{
		{
			name:  "match all",
			query: ElasticQuery{Limit: 10},
			want:  `{"query":{"match_all":{}}}`,
		},
		{
			name:  "level only",
			query: ElasticQuery{Limit: 10, Level: lvl(record.LevelError)},
			want:  `{"query":{"term":{"level":"error"}}}`,
		},
		{
			name:  "date only",
			query: ElasticQuery{Limit: 10, Window: window},
			want:  `{"query":{"range":{"time_unix":{"gte":100,"lte":200}}}}`,
		},
		{
			name:  "both with reverse",
			query: ElasticQuery{Limit: 10, Reverse: true, Level: lvl(record.LevelInfo), Window: window},
			want: `{"query":{"bool":{"must":[{"range":{"time_unix":{"gte":100,"lte":200}}},{"term":{"level":"info"}}]}},` +
				`"sort":[{"time_unix":{"order":"desc"}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.query.Body())
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("Body() = %s\nwant      %s", got, tt.want)
			}
		})
	}
}

func fakeSearch(t *testing.T, status int, response string, gotSize, gotBody *string) *elastic.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotSize != nil {
			*gotSize = r.URL.Query().Get("size")
		}
		if gotBody != nil {
			b, _ := io.ReadAll(r.Body)
			*gotBody = string(b)
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return elastic.NewConn(func() (elastic.Settings, error) {
		return elastic.Settings{Host: srv.URL, User: "u", Password: "p"}, nil
	}, logging.Discard())
}

func TestElasticSource(t *testing.T) {
	hits := `{"hits":{"hits":[
		{"_id":"b","_source":{"timestamp":"2024-05-01T10:00:02Z","level":"info","message":"10.0.0.1 - GET /b 200 - 1ms"}},
		{"_id":"a","_source":{"timestamp":"2024-05-01T10:00:01Z","level":"error","message":"x","time_unix":5,"is_process":true,"http_method":"PUT"}}
	]}}`
	var size, body string
	conn := fakeSearch(t, http.StatusOK, hits, &size, &body)

	cfg := &config.Config{Input: config.InputConfig{ESIndex: "logs"}, Filter: config.FilterConfig{Reverse: true}}
	src, err := New(cfg, Deps{Conn: conn, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if src.Name() != "es_index" {
		t.Errorf("Name() = %q", src.Name())
	}

	got, err := src.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if size != "100000" {
		t.Errorf("size = %q, want default limit", size)
	}
	if body != `{"query":{"match_all":{}},"sort":[{"time_unix":{"order":"desc"}}]}` {
		t.Errorf("body = %s", body)
	}

	if len(got) != 2 {
		t.Fatalf("Get() returned %d records, want 2", len(got))
	}
	// Hits come back in cluster order and untouched.
	if got[0].Timestamp != "2024-05-01T10:00:02Z" || got[0].IsProcessed || got[0].URL != "" || got[0].TimeUnix != nil {
		t.Errorf("first hit = %+v, want raw record", got[0])
	}
	if got[1].HTTPMethod != record.MethodPut || !got[1].IsProcessed || got[1].TimeUnix == nil || *got[1].TimeUnix != 5 {
		t.Errorf("second hit = %+v", got[1])
	}
}

func TestElasticSourceSkipsLocalPipeline(t *testing.T) {
	hits := `{"hits":{"hits":[
		{"_source":{"timestamp":"2024-05-01T10:00:01Z","level":"warn","message":"10.0.0.1 - GET /a 200 - 1ms","time_unix":1714557601000}},
		{"_source":{"timestamp":"2024-05-01T10:00:03Z","level":"info","message":"10.0.0.2 - GET /b 200 - 1ms","time_unix":1714557603000}},
		{"_source":{"timestamp":"2024-05-01T10:00:02Z","level":"info","message":"no time"}}
	]}}`
	var size string
	conn := fakeSearch(t, http.StatusOK, hits, &size, nil)

	limit := 1
	cfg := &config.Config{
		Input:  config.InputConfig{ESIndex: "logs"},
		Filter: config.FilterConfig{Limit: &limit},
	}
	cfg.Level = lvl(record.LevelError)
	cfg.Window = &datefilter.Window{Start: 0, End: 10}

	src, err := New(cfg, Deps{Conn: conn, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, err := src.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if size != "1" {
		t.Errorf("size = %q, want 1", size)
	}
	want := []string{"2024-05-01T10:00:01Z", "2024-05-01T10:00:03Z", "2024-05-01T10:00:02Z"}
	if !equalStrings(timestamps(got), want) {
		t.Fatalf("Get() = %v, want every hit in cluster order %v", timestamps(got), want)
	}
	for _, r := range got {
		if r.IsProcessed || r.URL != "" || r.HTTPMethod != record.MethodNone {
			t.Errorf("hit %s was normalized: %+v", r.Timestamp, r)
		}
	}
	if got[2].TimeUnix != nil {
		t.Errorf("hit without time_unix got one derived: %d", *got[2].TimeUnix)
	}
}

func TestElasticSourceErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		wantKind errkind.Kind
	}{
		{name: "error status", status: http.StatusNotFound, response: `{"error":"index_not_found"}`, wantKind: errkind.Network},
		{name: "not json", status: http.StatusOK, response: `<html>`, wantKind: errkind.Network},
		{name: "missing hits", status: http.StatusOK, response: `{"took":1}`, wantKind: errkind.Network},
		{name: "hit without source", status: http.StatusOK, response: `{"hits":{"hits":[{"_id":"x"}]}}`, wantKind: errkind.Parse},
		{name: "bad hit", status: http.StatusOK, response: `{"hits":{"hits":[{"_source":{"timestamp":"t"}}]}}`, wantKind: errkind.Parse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := fakeSearch(t, tt.status, tt.response, nil, nil)
			src := newElasticSource("logs", ElasticQuery{Limit: 5}, conn, logging.Discard())
			_, err := src.Get(context.Background())
			if !errkind.Is(err, tt.wantKind) {
				t.Errorf("Get() error = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestNewSourceErrors(t *testing.T) {
	if _, err := New(&config.Config{Input: config.InputConfig{ESIndex: "logs"}}, Deps{}); !errkind.Is(err, errkind.Config) {
		t.Errorf("es_index without conn: error = %v, want config", err)
	}
	if _, err := New(&config.Config{}, Deps{}); !errkind.Is(err, errkind.Config) {
		t.Errorf("no input: error = %v, want config", err)
	}
}
