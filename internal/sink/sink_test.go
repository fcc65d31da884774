package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cyra/logpipe/internal/codec"
	"github.com/cyra/logpipe/internal/config"
	"github.com/cyra/logpipe/internal/elastic"
	"github.com/cyra/logpipe/internal/errkind"
	"github.com/cyra/logpipe/internal/logging"
	"github.com/cyra/logpipe/internal/record"
)

func records(n int) []record.LogRecord {
	logs := make([]record.LogRecord, n)
	for i := range logs {
		logs[i] = record.LogRecord{
			Timestamp:  fmt.Sprintf("2024-05-01T10:%02d:%02dZ", i/60%60, i%60),
			Level:      record.LevelInfo,
			Message:    fmt.Sprintf("m%d", i),
			HTTPMethod: record.MethodNone,
		}
	}
	return logs
}

func TestNew(t *testing.T) {
	s, err := New(&config.Config{}, nil, nil)
	if err != nil || s != nil {
		t.Fatalf("New() without save = %v, %v; want nil, nil", s, err)
	}

	s, err = New(&config.Config{Save: config.SaveConfig{File: "out.json"}}, nil, nil)
	if err != nil || s.Name() != "file" {
		t.Fatalf("New() file = %v, %v", s, err)
	}

	_, err = New(&config.Config{Save: config.SaveConfig{ESIndex: "logs"}}, nil, nil)
	if !errkind.Is(err, errkind.Config) {
		t.Fatalf("New() es_index without conn error = %v, want config", err)
	}
}

func TestFileSinkOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := os.WriteFile(path, []byte(strings.Repeat("stale content ", 100)), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newFileSink(path, logging.Discard())
	logs := records(2)
	if err := s.Save(context.Background(), logs); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got []record.LogRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("saved file is not a record array: %v\n%s", err, data)
	}
	if len(got) != 2 || got[1].Message != "m1" {
		t.Errorf("saved = %+v", got)
	}
}

func TestFileSinkEmptyAndCompressed(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	if err := newFileSink(empty, logging.Discard()).Save(context.Background(), nil); err != nil {
		t.Fatalf("Save(nil) error = %v", err)
	}
	if data, _ := os.ReadFile(empty); string(data) != "[]" {
		t.Errorf("empty save = %q, want []", data)
	}

	packed := filepath.Join(dir, "out.json.gz")
	if err := newFileSink(packed, logging.Discard()).Save(context.Background(), records(3)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := codec.ReadFile(packed)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var got []record.LogRecord
	if err := json.Unmarshal(data, &got); err != nil || len(got) != 3 {
		t.Errorf("decompressed = %d records, err %v", len(got), err)
	}
}

func TestFileSinkIOError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.json")
	err := newFileSink(path, logging.Discard()).Save(context.Background(), records(1))
	if !errkind.Is(err, errkind.IO) {
		t.Errorf("Save() error = %v, want io", err)
	}
}

type fakeCluster struct {
	mu       sync.Mutex
	calls    []string
	bulks    [][]byte
	failBulk int // bulk calls from this one (1-based) on drop the connection
	response string
}

func (f *fakeCluster) conn(t *testing.T) *elastic.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		isBulk := strings.HasSuffix(r.URL.Path, "/_bulk")
		if isBulk {
			f.bulks = append(f.bulks, body)
		}
		fail := isBulk && f.failBulk > 0 && len(f.bulks) >= f.failBulk
		f.mu.Unlock()

		if fail {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("response writer cannot hijack")
				return
			}
			c, _, _ := hj.Hijack()
			c.Close()
			return
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		resp := f.response
		if resp == "" {
			resp = `{"errors":false,"items":[]}`
		}
		io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return elastic.NewConn(func() (elastic.Settings, error) {
		return elastic.Settings{Host: srv.URL, User: "u", Password: "p"}, nil
	}, logging.Discard())
}

// bulkLines splits an NDJSON body into action and document lines.
func bulkLines(t *testing.T, body []byte) (actions, docs []map[string]any) {
	t.Helper()
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 1<<20), 1<<24)
	for i := 0; sc.Scan(); i++ {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %d is not json: %v", i, err)
		}
		if i%2 == 0 {
			actions = append(actions, m)
		} else {
			docs = append(docs, m)
		}
	}
	return actions, docs
}

func TestElasticSinkBatches(t *testing.T) {
	f := &fakeCluster{}
	s := newElasticSink("logs", false, f.conn(t), logging.Discard())

	if err := s.Save(context.Background(), records(2500)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	want := []string{"POST /logs/_bulk", "POST /logs/_bulk", "POST /logs/_bulk"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}

	sizes := []int{1000, 1000, 500}
	for i, body := range f.bulks {
		actions, docs := bulkLines(t, body)
		if len(actions) != sizes[i] || len(docs) != sizes[i] {
			t.Errorf("batch %d: %d actions, %d docs, want %d", i, len(actions), len(docs), sizes[i])
		}
	}

	actions, docs := bulkLines(t, f.bulks[0])
	create, ok := actions[0]["create"].(map[string]any)
	if !ok || create["_id"] != "2024-05-01T10:00:00Z" {
		t.Errorf("first action = %v, want create keyed by timestamp", actions[0])
	}
	if docs[0]["message"] != "m0" || docs[0]["level"] != "info" {
		t.Errorf("first doc = %v", docs[0])
	}
}

func TestElasticSinkTruncate(t *testing.T) {
	f := &fakeCluster{response: `{"deleted":3}`}
	s := newElasticSink("logs", true, f.conn(t), logging.Discard())

	if err := s.Save(context.Background(), records(1)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	want := []string{"POST /logs/_delete_by_query", "POST /logs/_bulk"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", f.calls, want)
	}
}

func TestElasticSinkEmpty(t *testing.T) {
	f := &fakeCluster{}
	s := newElasticSink("logs", false, f.conn(t), logging.Discard())
	if err := s.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("calls = %v, want none", f.calls)
	}
}

func TestElasticSinkAbortsOnTransportFailure(t *testing.T) {
	f := &fakeCluster{failBulk: 2}
	s := newElasticSink("logs", false, f.conn(t), logging.Discard())

	err := s.Save(context.Background(), records(3500))
	if !errkind.Is(err, errkind.Network) {
		t.Fatalf("Save() error = %v, want network", err)
	}
	// The go-elasticsearch transport may retry a dropped connection, but no
	// batch after the failing one is attempted.
	for i, body := range f.bulks {
		_, docs := bulkLines(t, body)
		if i > 0 && docs[0]["message"] != "m1000" {
			t.Errorf("bulk call %d started at %v, want only retries of batch 2", i, docs[0]["message"])
		}
	}
}

func TestElasticSinkItemErrorsAreNotFatal(t *testing.T) {
	f := &fakeCluster{response: `{"errors":true,"items":[{"create":{"status":409}}]}`}
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Options{Level: "warn", Out: &buf})
	s := newElasticSink("logs", false, f.conn(t), logger)

	if err := s.Save(context.Background(), records(1)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.Contains(buf.String(), "rejected") {
		t.Errorf("log = %q, want a warning about rejected items", buf.String())
	}
}

func TestBulkHasErrors(t *testing.T) {
	tests := map[string]bool{
		`{"errors":true}`:  true,
		`{"errors":false}`: false,
		`{}`:               false,
		`not json`:         false,
	}
	for body, want := range tests {
		if got := bulkHasErrors([]byte(body)); got != want {
			t.Errorf("bulkHasErrors(%s) = %v, want %v", body, got, want)
		}
	}
}
