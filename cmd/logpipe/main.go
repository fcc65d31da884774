package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/cyra/logpipe/internal/config"
	"github.com/cyra/logpipe/internal/logging"
	"github.com/cyra/logpipe/internal/processor"
)

var version = "dev" // Set via ldflags: -X main.version=v1.0.0

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cliFlags holds the command line. Only flags the user actually set are
// applied on top of the config file.
type cliFlags struct {
	configPath  string
	showVersion bool

	inputFile    string
	inputURL     string
	inputESIndex string

	reverse    bool
	level      string
	limit      int
	dateFilter string

	json       bool
	prettyJSON bool
	count      bool
	summary    bool

	saveToFile    string
	saveToESIndex string
	truncate      bool

	verbose bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	f := &cliFlags{set: map[string]bool{}}
	fs := flag.NewFlagSet("logpipe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	str := func(p *string, short, long, usage string) {
		if short != "" {
			fs.StringVar(p, short, "", usage)
		}
		fs.StringVar(p, long, "", usage)
	}
	boolean := func(p *bool, short, long, usage string) {
		if short != "" {
			fs.BoolVar(p, short, false, usage)
		}
		fs.BoolVar(p, long, false, usage)
	}

	fs.StringVar(&f.configPath, "config", "", "Path to YAML configuration file")
	fs.BoolVar(&f.showVersion, "version", false, "Print version and exit")

	str(&f.inputFile, "F", "input-file", "Read logs from a JSON array file (.gz/.zst decompressed)")
	str(&f.inputURL, "U", "input-url", "Read logs from the URL in DEFAULT_URL_<value>")
	str(&f.inputESIndex, "E", "input-es-index", "Read logs from an Elasticsearch index")

	boolean(&f.reverse, "r", "reverse", "Reverse order before limiting")
	str(&f.level, "", "level", "Keep only one level (debug, error, info, none, warn or a short alias)")
	fs.IntVar(&f.limit, "l", config.DefaultLimit, "Keep at most n records")
	fs.IntVar(&f.limit, "limit", config.DefaultLimit, "Keep at most n records")
	str(&f.dateFilter, "", "date-filter", "Date window: yesterday, today, N-, start_end")

	boolean(&f.json, "j", "json", "Print records as a JSON array")
	boolean(&f.prettyJSON, "p", "pretty-json", "Print records as formatted blocks")
	boolean(&f.count, "c", "count", "Print the number of records")
	boolean(&f.summary, "s", "summary", "Print a summary")

	str(&f.saveToFile, "f", "save-to-file", "Save records to a file")
	str(&f.saveToESIndex, "e", "save-to-es-index", "Save records to an Elasticsearch index")
	boolean(&f.truncate, "t", "truncate", "Remove existing documents before saving to an index")

	boolean(&f.verbose, "v", "verbose", "Enable trace logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	aliases := map[string]string{
		"F": "input-file", "U": "input-url", "E": "input-es-index",
		"r": "reverse", "l": "limit",
		"j": "json", "p": "pretty-json", "c": "count", "s": "summary",
		"f": "save-to-file", "e": "save-to-es-index", "t": "truncate",
		"v": "verbose",
	}
	fs.Visit(func(fl *flag.Flag) {
		name := fl.Name
		if long, ok := aliases[name]; ok {
			name = long
		}
		f.set[name] = true
	})

	outputs := 0
	for _, on := range []bool{f.json, f.prettyJSON, f.count, f.summary} {
		if on {
			outputs++
		}
	}
	if outputs > 1 {
		return nil, errors.New("only one of --json, --pretty-json, --count, --summary may be set")
	}
	return f, nil
}

// apply overlays the flags that were set onto cfg. An input or save flag
// replaces that whole section of the file.
func (f *cliFlags) apply(cfg *config.Config) {
	if f.set["input-file"] || f.set["input-url"] || f.set["input-es-index"] {
		cfg.Input = config.InputConfig{File: f.inputFile, URL: f.inputURL, ESIndex: f.inputESIndex}
	}
	if f.set["save-to-file"] || f.set["save-to-es-index"] {
		cfg.Save = config.SaveConfig{File: f.saveToFile, ESIndex: f.saveToESIndex, Truncate: cfg.Save.Truncate}
	}
	if f.set["truncate"] {
		cfg.Save.Truncate = f.truncate
	}

	switch {
	case f.json:
		cfg.Output = config.OutputJSON
	case f.prettyJSON:
		cfg.Output = config.OutputPrettyJSON
	case f.count:
		cfg.Output = config.OutputCount
	case f.summary:
		cfg.Output = config.OutputSummary
	}

	if f.set["reverse"] {
		cfg.Filter.Reverse = f.reverse
	}
	if f.set["level"] {
		cfg.Filter.Level = f.level
	}
	if f.set["limit"] {
		limit := f.limit
		cfg.Filter.Limit = &limit
	}
	if f.set["date-filter"] {
		cfg.Filter.Date = f.dateFilter
	}
	if f.verbose {
		cfg.Logging.Level = "trace"
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	flags, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "logpipe: %v\n", err)
		return exitUsage
	}

	if flags.showVersion {
		fmt.Fprintln(stdout, "logpipe version", version)
		return exitOK
	}

	cfg, err := config.Load(flags.configPath, flags.apply)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitUsage
	}

	logger := logging.NewLogger(logging.Options{
		Level: cfg.Logging.Level,
		JSON:  cfg.Logging.JSON,
		Out:   stderr,
	}).With("run", uuid.NewString())

	logger.Debugf("logpipe %s: input=%s save=%s output=%q elastic=%s",
		version, cfg.Input.Type(), cfg.Save.Type(), cfg.Output, cfg.Elastic)

	p, err := processor.New(cfg, logger, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "logpipe: %v\n", err)
		return exitUsage
	}

	if err := p.Run(context.Background()); err != nil {
		fmt.Fprintf(stderr, "logpipe: %v\n", err)
		return exitError
	}
	return exitOK
}
