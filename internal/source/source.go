package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cyra/logpipe/internal/config"
	"github.com/cyra/logpipe/internal/elastic"
	"github.com/cyra/logpipe/internal/errkind"
	"github.com/cyra/logpipe/internal/logging"
	"github.com/cyra/logpipe/internal/record"
)

// Source produces the final candidate sequence of a run.
type Source interface {
	// Get loads, filters and orders records.
	Get(ctx context.Context) ([]record.LogRecord, error)
	// Name returns a short identifier for logging.
	Name() string
}

// Deps are the collaborators a source may need.
type Deps struct {
	Conn       *elastic.Conn
	HTTPClient *http.Client
	Lookup     config.LookupFunc
	Logger     *logging.Logger
}

// New constructs the Source selected by cfg.Input.
func New(cfg *config.Config, deps Deps) (Source, error) {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	pipeline := localPipeline{
		reverse:    cfg.Filter.Reverse,
		limit:      cfg.Filter.MaxRecords(),
		level:      cfg.Level,
		window:     cfg.Window,
		dateFilter: cfg.Filter.Date,
		logger:     deps.Logger,
	}

	switch cfg.Input.Type() {
	case config.InputFile:
		return newFileSource(cfg.Input.File, pipeline), nil
	case config.InputURL:
		client := deps.HTTPClient
		if client == nil {
			client = &http.Client{}
		}
		lookup := deps.Lookup
		if lookup == nil {
			lookup = config.OSLookup
		}
		return newURLSource(cfg.Input.URL, lookup, client, pipeline), nil
	case config.InputESIndex:
		if deps.Conn == nil {
			return nil, errkind.Errorf(errkind.Config, "create source", "elastic connection is required for es_index input")
		}
		return newElasticSource(cfg.Input.ESIndex, ElasticQuery{
			Reverse: cfg.Filter.Reverse,
			Limit:   cfg.Filter.MaxRecords(),
			Level:   cfg.Level,
			Window:  cfg.Window,
		}, deps.Conn, deps.Logger), nil
	default:
		return nil, errkind.E(errkind.Config, "create source", fmt.Errorf("no single input selected"))
	}
}
