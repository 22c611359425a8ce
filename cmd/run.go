// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	arkit "github.com/hashicorp/go-arkit"
	"github.com/pkg/errors"
)

// CLI are the cli parameters for arkit binary
type CLI struct {
	Archive           string           `arg:"" name:"archive" help:"Path to archive. (\"-\" for STDIN)"`
	CreateDestination bool             `short:"c" help:"Create destination directory if it does not exist."`
	Destination       string           `arg:"" name:"destination" default:"." help:"Output file or directory."`
	MaxChunks         int64            `optional:"" default:"1048576" help:"Maximum number of chunks in the index. (disable check: -1)"`
	MaxChunkSize      int64            `optional:"" default:"268435456" help:"Maximum uncompressed size of a single chunk (in bytes). (disable check: -1)"`
	MaxExtractionSize int64            `optional:"" default:"1073741824" help:"Maximum decoded size that is allowed (in bytes). (disable check: -1)"`
	MaxExtractionTime int64            `optional:"" default:"60" help:"Maximum time that a decoding should take (in seconds). (disable check: -1)"`
	MaxInputSize      int64            `optional:"" default:"1073741824" help:"Maximum input size that is allowed (in bytes). (disable check: -1)"`
	Metrics           bool             `short:"M" optional:"" default:"false" help:"Print metrics to log after decoding."`
	Overwrite         bool             `short:"O" help:"Overwrite if exist."`
	Verbose           bool             `short:"v" optional:"" help:"Verbose logging."`
	Version           kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// Run the entrypoint into go-arkit as a cli tool
func Run(version, commit, date string) {
	var cli CLI
	kong.Parse(&cli,
		kong.Description("A strict decoder for chunked ARK archives"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// Check for verbose output
	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if err := run(context.Background(), cli, os.Stdin, logger); err != nil {
		logger.Error("decoding failed", "error", err)
		os.Exit(-1)
	}
}

// run decodes the archive given on the command line.
func run(ctx context.Context, cli CLI, stdin io.Reader, logger *slog.Logger) error {

	// setup metrics hook
	metricsToLog := func(ctx context.Context, td *arkit.TelemetryData) {
		if cli.Metrics {
			logger.Info("decoding finished",
				"metrics", td,
				"input", humanize.Bytes(uint64(td.InputSize)),
				"output", humanize.Bytes(uint64(td.ExtractionSize)),
			)
		}
	}

	// process cli params
	cfg := arkit.NewConfig(
		arkit.WithCreateDestination(cli.CreateDestination),
		arkit.WithLogger(logger),
		arkit.WithMaxChunks(cli.MaxChunks),
		arkit.WithMaxChunkSize(cli.MaxChunkSize),
		arkit.WithMaxExtractionSize(cli.MaxExtractionSize),
		arkit.WithMaxInputSize(cli.MaxInputSize),
		arkit.WithOverwrite(cli.Overwrite),
		arkit.WithTelemetryHook(metricsToLog),
	)

	// open archive
	var archive io.Reader = stdin
	if cli.Archive != "-" {
		f, err := os.Open(cli.Archive)
		if err != nil {
			return errors.Wrap(err, "opening archive failed")
		}
		defer f.Close()
		archive = f
	}

	if cli.MaxExtractionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second*time.Duration(cli.MaxExtractionTime))
		defer cancel()
	}

	// decode archive
	if err := arkit.Unpack(ctx, archive, cli.Destination, cfg); err != nil {
		return errors.Wrapf(err, "error during decoding of %s (partially written output may be left in %s)", cli.Archive, cli.Destination)
	}

	return nil
}
