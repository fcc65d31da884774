package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cyra/logpipe/internal/datefilter"
	"github.com/cyra/logpipe/internal/errkind"
)

// Load reads the optional YAML file at path, applies overlay (command-line
// flags) on top of it, and validates the result.
// Warns if the config file has insecure permissions (world-readable).
func Load(path string, overlay func(*Config)) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		// Check file permissions (Unix only).
		if runtime.GOOS != "windows" {
			if info, err := os.Stat(path); err == nil {
				mode := info.Mode().Perm()
				// Warn if file is world-readable (may contain elastic credentials).
				if mode&0o004 != 0 {
					fmt.Fprintf(os.Stderr, "WARNING: config file %s is world-readable (mode %o). Consider: chmod 600 %s\n", path, mode, path)
				}
			}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errkind.E(errkind.Config, "read config", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errkind.E(errkind.Config, "parse config", err)
		}
	}

	if overlay != nil {
		overlay(cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks selection rules, applies defaults and resolves the level
// and date filters.
func Validate(c *Config) error {
	if err := validate(c); err != nil {
		if errkind.Is(err, errkind.Validation) {
			return err
		}
		return errkind.E(errkind.Config, "validate config", err)
	}
	return nil
}

func validate(c *Config) error {
	if c.Input.Type() == "" {
		return fmt.Errorf("exactly one of input.file, input.url, input.es_index is required")
	}

	if c.Save.File != "" && c.Save.ESIndex != "" {
		return fmt.Errorf("save.file and save.es_index are mutually exclusive")
	}
	if c.Save.Truncate && c.Save.Type() == "" {
		return fmt.Errorf("save.truncate requires save.file or save.es_index")
	}

	switch c.Output {
	case "", OutputJSON, OutputPrettyJSON, OutputCount, OutputSummary:
	default:
		return fmt.Errorf("unsupported output %q", c.Output)
	}

	if c.Filter.Limit != nil && *c.Filter.Limit < 0 {
		return fmt.Errorf("filter.limit must be >= 0")
	}

	if c.Filter.Level != "" {
		lvl, err := ParseLevelFilter(c.Filter.Level)
		if err != nil {
			return err
		}
		c.Level = &lvl
	}

	if c.Filter.Date != "" {
		w, err := datefilter.Parse(c.Filter.Date)
		if err != nil {
			return err
		}
		c.Window = &w
	}

	// Default logging level if not provided.
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	return nil
}
