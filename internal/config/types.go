package config

import (
	"github.com/cyra/logpipe/internal/datefilter"
	"github.com/cyra/logpipe/internal/record"
)

// Input kinds.
const (
	InputFile    = "file"
	InputURL     = "url"
	InputESIndex = "es_index"
)

// Save kinds.
const (
	SaveFile    = "file"
	SaveESIndex = "es_index"
)

// Output kinds.
const (
	OutputJSON       = "json"
	OutputPrettyJSON = "pretty_json"
	OutputCount      = "count"
	OutputSummary    = "summary"
)

// DefaultLimit caps the number of records when no limit is configured.
const DefaultLimit = 100_000

// Config is the root configuration structure loaded from YAML and flags.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Input   InputConfig   `yaml:"input"`
	Save    SaveConfig    `yaml:"save"`
	Output  string        `yaml:"output,omitempty"` // json, pretty_json, count, summary
	Filter  FilterConfig  `yaml:"filter"`
	Elastic ElasticConfig `yaml:"elastic"`

	// Resolved by validation.
	Level  *record.Level      `yaml:"-"`
	Window *datefilter.Window `yaml:"-"`
}

// LoggingConfig controls log verbosity and format.
type LoggingConfig struct {
	Level string `yaml:"level"` // trace, debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// InputConfig names exactly one place to read records from.
type InputConfig struct {
	File    string `yaml:"file,omitempty"`     // path, .gz/.zst are decompressed
	URL     string `yaml:"url,omitempty"`      // suffix of the DEFAULT_URL_<suffix> env key
	ESIndex string `yaml:"es_index,omitempty"` // index name
}

// Type returns the selected input kind, or "" when none or several are set.
func (c InputConfig) Type() string {
	return pickOne(map[string]string{
		InputFile:    c.File,
		InputURL:     c.URL,
		InputESIndex: c.ESIndex,
	})
}

// SaveConfig names at most one place to persist records to.
type SaveConfig struct {
	File     string `yaml:"file,omitempty"`
	ESIndex  string `yaml:"es_index,omitempty"`
	Truncate bool   `yaml:"truncate,omitempty"` // clear the index before saving
}

// Type returns the selected save kind, or "" when none is set.
func (c SaveConfig) Type() string {
	return pickOne(map[string]string{
		SaveFile:    c.File,
		SaveESIndex: c.ESIndex,
	})
}

// FilterConfig shapes the candidate sequence.
type FilterConfig struct {
	Level   string `yaml:"level,omitempty"` // level name or alias
	Date    string `yaml:"date,omitempty"`  // see package datefilter
	Reverse bool   `yaml:"reverse,omitempty"`
	Limit   *int   `yaml:"limit,omitempty"`
}

// MaxRecords returns the configured limit or DefaultLimit.
func (c FilterConfig) MaxRecords() int {
	if c.Limit == nil {
		return DefaultLimit
	}
	return *c.Limit
}

// ElasticConfig locates the cluster. Empty fields are filled from the
// ELASTIC_* environment variables.
type ElasticConfig struct {
	Host           string `yaml:"host,omitempty"`
	User           string `yaml:"user,omitempty"`
	Password       string `yaml:"password,omitempty"`
	CertValidation *bool  `yaml:"cert_validation,omitempty"`
}

func pickOne(candidates map[string]string) string {
	picked := ""
	for kind, v := range candidates {
		if v == "" {
			continue
		}
		if picked != "" {
			return ""
		}
		picked = kind
	}
	return picked
}
