package config

import (
	"fmt"
	"strings"

	"github.com/cyra/logpipe/internal/record"
)

// ParseLevelFilter accepts a level name or one of its short aliases.
func ParseLevelFilter(s string) (record.Level, error) {
	switch strings.ToLower(s) {
	case "debug", "deb", "d":
		return record.LevelDebug, nil
	case "error", "err", "e", "ror":
		return record.LevelError, nil
	case "info", "in", "i", "inf":
		return record.LevelInfo, nil
	case "none", "non", "n", "no":
		return record.LevelNone, nil
	case "warn", "war", "w":
		return record.LevelWarn, nil
	default:
		return 0, fmt.Errorf("unknown level filter %q", s)
	}
}
