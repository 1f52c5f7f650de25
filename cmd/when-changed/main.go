// Package main provides the when-changed CLI application.
//
// when-changed watches one or more files or directories and runs a
// command whenever a relevant filesystem event occurs, substituting
// the changed file's path for %f in the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/0xmhha/when-changed/pkg/config"
	"github.com/0xmhha/when-changed/pkg/filter"
	"github.com/0xmhha/when-changed/pkg/gate"
	"github.com/0xmhha/when-changed/pkg/history"
	"github.com/0xmhha/when-changed/pkg/logger"
	"github.com/0xmhha/when-changed/pkg/registry"
	"github.com/0xmhha/when-changed/pkg/runner"
	"github.com/0xmhha/when-changed/pkg/watch"
	"github.com/0xmhha/when-changed/pkg/watcher"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the parsed command-line flags.
type options struct {
	recursive    bool
	runOnce      bool
	runAtStart   bool
	quiet        bool
	verbosity    int
	verbositySet bool
	command      string
	configPath   string
	showVersion  bool
	showHistory  int
}

// run executes the main application logic.
func run(args []string) error {
	fs := flag.NewFlagSet("when-changed", flag.ContinueOnError)

	var opts options
	fs.BoolVar(&opts.recursive, "r", false, "watch directories recursively")
	fs.BoolVar(&opts.runOnce, "1", false, "don't re-run the command for changes already accounted for")
	fs.BoolVar(&opts.runAtStart, "s", false, "run the command immediately at start")
	fs.BoolVar(&opts.quiet, "q", false, "discard the command's standard output")
	fs.IntVar(&opts.verbosity, "v", 2, "verbosity level (0-3)")
	fs.StringVar(&opts.command, "c", "", "command applied to all paths (alternative to trailing COMMAND)")
	fs.StringVar(&opts.configPath, "config", "", "path to configuration file")
	fs.BoolVar(&opts.showVersion, "version", false, "show version information")
	fs.IntVar(&opts.showHistory, "history", 0, "print the N most recent runs and exit")

	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "v" {
			opts.verbositySet = true
		}
	})

	if opts.showVersion {
		fmt.Printf("when-changed %s\n", version)
		return nil
	}

	cfg, err := config.NewLoader(opts.configPath).Load()
	if err != nil {
		return err
	}

	log := newLogger(cfg, opts)

	if opts.showHistory > 0 {
		return printHistory(cfg, opts.showHistory)
	}

	paths, command, err := parseArgs(fs.Args(), opts.command, cfg.Command)
	if err != nil {
		printUsage(fs)
		return err
	}

	return runWatch(cfg, opts, paths, command, log)
}

// runWatch wires the session and blocks until interrupted.
func runWatch(cfg *config.Config, opts options, paths, command []string, log logger.Logger) error {
	reg := registry.New(opts.recursive, log)
	if err := reg.Register(paths); err != nil {
		return err
	}

	excludes := cfg.Excludes
	if len(excludes) == 0 {
		excludes = filter.DefaultExcludes()
	}
	flt, err := filter.New(filter.Config{
		Excludes:    excludes,
		IgnoreGlobs: cfg.IgnoreGlobs,
		Recursive:   opts.recursive,
	}, reg, log)
	if err != nil {
		return err
	}

	cmdRunner, err := runner.New(runner.Config{
		Template: command,
		Quiet:    opts.quiet,
	}, log)
	if err != nil {
		return err
	}

	w, err := watcher.New(watcher.Config{
		DebounceInterval: cfg.Watcher.DebounceInterval,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			log.Warn("failed to close watcher", "error", closeErr)
		}
	}()

	canonical := make([]string, 0, len(reg.Targets()))
	for _, t := range reg.Targets() {
		canonical = append(canonical, t.CanonicalPath)
	}
	sessionKey := history.SessionKey(canonical, command)

	var store history.Store
	if cfg.History.Enabled {
		store, err = history.NewBoltStore(cfg.History.DBPath, cfg.History.MaxRecords)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				log.Warn("failed to close history store", "error", closeErr)
			}
		}()
	} else {
		store = history.NewMemoryStore(cfg.History.MaxRecords)
	}

	session := watch.New(watch.Config{
		RunOnce:        opts.runOnce,
		RunAtStart:     opts.runAtStart,
		SessionKey:     sessionKey,
		RestoreLastRun: cfg.History.Enabled && opts.runOnce,
	}, w, flt, gate.New(opts.runOnce, log), cmdRunner, store, log)

	// Interrupt requests a clean stop; the in-flight command, if any,
	// finishes first. A clean stop exits 0.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, t := range reg.Targets() {
		log.Info("watching", "path", t.Label, "canonical", t.CanonicalPath)
	}

	return session.Run(ctx, reg.Specs())
}

// parseArgs splits positional arguments into watch paths and the
// command template.
//
// Two surfaces are supported:
//
//	when-changed [flags] PATH COMMAND...
//	when-changed [flags] PATH [PATH ...] -c COMMAND
func parseArgs(positional []string, commandFlag string, cmdCfg config.CommandConfig) (paths, command []string, err error) {
	if commandFlag != "" {
		if len(positional) == 0 {
			return nil, nil, errors.New("no paths to watch")
		}
		command, err = cmdCfg.Tokens(commandFlag)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid command: %w", err)
		}
		return positional, command, nil
	}

	if len(positional) < 2 {
		return nil, nil, errors.New("expected a path followed by a command (or use -c)")
	}

	return positional[:1], positional[1:], nil
}

// newLogger builds the session logger from config and flags.
//
// The -v flag overrides the configured level. The "auto" format
// resolves to text on a terminal and json otherwise, so redirected
// logs stay machine-readable.
func newLogger(cfg *config.Config, opts options) logger.Logger {
	level := cfg.Logging.Level
	if opts.verbositySet {
		level = logger.LevelFromVerbosity(opts.verbosity)
	}

	format := cfg.Logging.Format
	if format == "auto" {
		if term.IsTerminal(int(os.Stderr.Fd())) {
			format = "text"
		} else {
			format = "json"
		}
	}

	return logger.New(logger.Config{
		Level:  level,
		Output: cfg.Logging.Output,
		Format: format,
	})
}

// printUsage displays usage information.
func printUsage(fs *flag.FlagSet) {
	usage := `when-changed - run a command when a file changes

Usage:
  when-changed [flags] PATH COMMAND...
  when-changed [flags] PATH [PATH ...] -c COMMAND

PATH can be a file or a directory. Use %%f to pass the changed file's
path to the command.

Flags:
  -r          Watch directories recursively
  -1          Don't re-run the command for changes already accounted for
  -s          Run the command immediately at start
  -q          Discard the command's standard output
  -v          Verbosity level 0-3 (default 2)
  -c          Command applied to all paths
  -config     Path to configuration file
  -history    Print the N most recent runs and exit
  -version    Show version information

Environment variables visible to the command:
  WHEN_CHANGED_EVENT  file_created, file_modified, file_moved or file_deleted
  WHEN_CHANGED_FILE   full path of the file that generated the event

Examples:
  # Run tests whenever a source file changes
  when-changed -r . make test

  # Rebuild one file on change, passing its path
  when-changed main.go -c 'go build %%f'

  # Collapse event bursts to a single run
  when-changed -1 notes.md -c 'make render'

Version: %s
`

	fmt.Fprintf(fs.Output(), usage, version)
}
