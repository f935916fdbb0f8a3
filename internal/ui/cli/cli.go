package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const versionString = "1.0.0"

type cliOptions struct {
	program     string
	selection   string
	settings    string
	output      string
	services    stringList
	dryRun      bool
	watch       bool
	ui          bool
	serve       bool
	history     bool
	historyList int
	metricsAddr string
	verbose     bool
	version     bool
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("value must not be empty")
	}
	*s = append(*s, value)
	return nil
}

// parseOptions accepts the program either as --program or as the single
// positional argument, which may sit anywhere among the flags.
func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("slicer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.program, "program", "", "Path to the program tree (JSON) to slice")
	fs.StringVar(&opts.selection, "config", "", "Path to the service configuration file (JSON)")
	fs.StringVar(&opts.settings, "settings", "", "Path to the slicer settings file (TOML, default ./slicer.toml)")
	fs.StringVar(&opts.output, "output", "", "Output directory for the generated artifacts")
	fs.StringVar(&opts.output, "o", "", "Shorthand for --output")
	fs.Var(&opts.services, "service", "Only slice configured services matching this glob (repeatable)")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Print the sliced programs instead of writing artifacts")
	fs.BoolVar(&opts.watch, "watch", false, "Slice again whenever the program or configuration changes")
	fs.BoolVar(&opts.ui, "ui", false, "Browse the slices in a terminal UI")
	fs.BoolVar(&opts.serve, "serve", false, "Serve the slice operation as a JSON-RPC tool over stdio")
	fs.BoolVar(&opts.history, "history", false, "Record every run in the local history database")
	fs.IntVar(&opts.historyList, "history-list", 0, "Print the N most recent recorded runs and exit")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return cliOptions{}, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	switch {
	case len(positional) > 1:
		return cliOptions{}, fmt.Errorf("expected one program, got %d: %s", len(positional), strings.Join(positional, " "))
	case len(positional) == 1 && opts.program != "":
		return cliOptions{}, fmt.Errorf("program given twice: %q and --program %q", positional[0], opts.program)
	case len(positional) == 1:
		opts.program = positional[0]
	}
	if opts.historyList < 0 {
		return cliOptions{}, fmt.Errorf("--history-list must not be negative")
	}
	return opts, nil
}

func validateModeCompatibility(opts cliOptions) error {
	if opts.serve && (opts.watch || opts.ui || opts.dryRun) {
		return fmt.Errorf("--serve cannot be combined with --watch, --ui or --dry-run")
	}
	if opts.historyList > 0 && (opts.serve || opts.watch || opts.ui) {
		return fmt.Errorf("--history-list cannot be combined with --serve, --watch or --ui")
	}
	if !opts.serve && opts.historyList == 0 && opts.program == "" {
		return fmt.Errorf("a program is required: slicer [flags] <program.json>")
	}
	return nil
}
