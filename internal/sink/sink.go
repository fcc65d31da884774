package sink

import (
	"context"

	"github.com/cyra/logpipe/internal/config"
	"github.com/cyra/logpipe/internal/elastic"
	"github.com/cyra/logpipe/internal/errkind"
	"github.com/cyra/logpipe/internal/logging"
	"github.com/cyra/logpipe/internal/record"
)

// Sink persists a finished sequence.
type Sink interface {
	// Save writes every record. The slice must not be modified.
	Save(ctx context.Context, logs []record.LogRecord) error
	// Name returns a short identifier for logging.
	Name() string
}

// New constructs the Sink selected by cfg.Save. It returns nil when no
// save target is configured.
func New(cfg *config.Config, conn *elastic.Conn, logger *logging.Logger) (Sink, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	switch cfg.Save.Type() {
	case "":
		return nil, nil
	case config.SaveFile:
		return newFileSink(cfg.Save.File, logger), nil
	case config.SaveESIndex:
		if conn == nil {
			return nil, errkind.Errorf(errkind.Config, "create sink", "elastic connection is required for es_index save")
		}
		return newElasticSink(cfg.Save.ESIndex, cfg.Save.Truncate, conn, logger), nil
	default:
		return nil, errkind.Errorf(errkind.Config, "create sink", "unsupported save type %q", cfg.Save.Type())
	}
}
