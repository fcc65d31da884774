// Package processor wires one source, an optional sink and an optional
// renderer together for a single run.
package processor

import (
	"context"
	"io"
	"net/http"

	"github.com/cyra/logpipe/internal/config"
	"github.com/cyra/logpipe/internal/elastic"
	"github.com/cyra/logpipe/internal/logging"
	"github.com/cyra/logpipe/internal/render"
	"github.com/cyra/logpipe/internal/sink"
	"github.com/cyra/logpipe/internal/source"
)

// Processor runs get, save and render in that order.
type Processor struct {
	source   source.Source
	sink     sink.Sink
	renderer render.Renderer
	logger   *logging.Logger
}

// New selects the strategies named by cfg. The Elasticsearch connection is
// only created when the input or save target needs it, and it is shared by
// both.
func New(cfg *config.Config, logger *logging.Logger, stdout io.Writer) (*Processor, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	var conn *elastic.Conn
	if cfg.Input.Type() == config.InputESIndex || cfg.Save.Type() == config.SaveESIndex {
		conn = elastic.NewConn(func() (elastic.Settings, error) {
			return cfg.Elastic.ElasticSettings(config.OSLookup)
		}, logger)
	}

	src, err := source.New(cfg, source.Deps{
		Conn:       conn,
		HTTPClient: &http.Client{},
		Lookup:     config.OSLookup,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Debugf("source: %s", src.Name())

	snk, err := sink.New(cfg, conn, logger)
	if err != nil {
		return nil, err
	}
	if snk != nil {
		logger.Debugf("sink: %s", snk.Name())
	}

	rnd, err := render.New(cfg.Output, stdout)
	if err != nil {
		return nil, err
	}

	return &Processor{
		source:   src,
		sink:     snk,
		renderer: rnd,
		logger:   logger,
	}, nil
}

// Run executes one pass. The first error ends the run; nothing is rendered
// after a failed save.
func (p *Processor) Run(ctx context.Context) error {
	logs, err := p.source.Get(ctx)
	if err != nil {
		return err
	}
	p.logger.Infof("loaded %d records from %s", len(logs), p.source.Name())

	if p.sink != nil {
		if err := p.sink.Save(ctx, logs); err != nil {
			return err
		}
		p.logger.Infof("saved %d records to %s", len(logs), p.sink.Name())
	}

	if p.renderer != nil {
		if err := p.renderer.Render(logs); err != nil {
			return err
		}
	}
	return nil
}
