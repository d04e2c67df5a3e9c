package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/islishude/tarriball/internal/cli"
	"github.com/islishude/tarriball/internal/engine"
)

// logLevelEnv selects the level of diagnostic logs written to stderr.
const logLevelEnv = "TARRIBALL_LOG_LEVEL"

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if v := strings.TrimSpace(os.Getenv(logLevelEnv)); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "tarriball: ignoring %s: %v\n", logLevelEnv, err)
			level = slog.LevelWarn
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	opts, err := cli.Parse(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "tarriball: %v\n", err)
		os.Exit(engine.ExitFatal)
	}
	if opts.Help {
		_, _ = fmt.Fprint(os.Stdout, cli.HelpText(filepath.Base(os.Args[0])))
		os.Exit(0)
	}

	basectx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger := newLogger()
	slog.SetDefault(logger)

	runner, err := engine.New(basectx, os.Stdout, os.Stderr, engine.WithLogger(logger))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "tarriball: %v\n", err)
		os.Exit(engine.ExitFatal)
	}

	result := runner.Run(basectx, opts)
	if result.Err != nil {
		logger.Debug("run failed", "mode", opts.Mode, "err", result.Err)
		_, _ = fmt.Fprintf(os.Stderr, "tarriball: %v\n", result.Err)
	}
	cancel()
	os.Exit(result.ExitCode)
}
