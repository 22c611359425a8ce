// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
)

// ConfigOption is a function pointer to implement the option pattern
type ConfigOption func(*Config)

// Config provides a configuration struct and options to adjust the configuration.
//
// The configuration struct holds all configuration options for the decoding process.
// The configuration options can be adjusted using the option pattern style.
//
// The default configuration is designed to be secure by default and prevent memory
// and disk exhaustion caused by crafted headers or index entries.
type Config struct {
	// create destination directory if it does not exist
	createDestination bool

	// customCreateDirMode is the file mode for a created destination directory (respecting umask)
	customCreateDirMode fs.FileMode

	// customDecompressFileMode is the file mode for the decoded file (respecting umask)
	customDecompressFileMode fs.FileMode

	// logger stream for decoding
	logger logger

	// maxChunks is the maximum number of index entries in an archive.
	// Set value to -1 to disable the check.
	maxChunks int64

	// maxChunkSize is the maximum declared uncompressed size of a single chunk.
	// It bounds the buffer allocated per chunk. Set value to -1 to disable the check.
	maxChunkSize int64

	// maxExtractionSize is the maximum size of the decoded output.
	// Set value to -1 to disable the check.
	maxExtractionSize int64

	// maxInputSize is the maximum size of the input
	// Set value to -1 to disable the check.
	maxInputSize int64

	// Define if an existing destination file should be overwritten
	overwrite bool

	// telemetryHook is a function to consume telemetry data after finished decoding
	// Important: do not adjust this value after decoding started
	telemetryHook TelemetryHook
}

// CheckMaxChunks checks if counter exceeds the configured maximum. If the maximum is exceeded,
// a [ErrMaxChunksExceeded] error is returned.
func (c *Config) CheckMaxChunks(counter int64) error {

	// check if disabled
	if c.MaxChunks() == -1 {
		return nil
	}

	// check value
	if counter > c.MaxChunks() {
		return ErrMaxChunksExceeded
	}
	return nil
}

// CheckChunkSize checks if the declared uncompressed size of a chunk exceeds the
// configured maximum. If the maximum is exceeded, a [ErrMaxChunkSizeExceeded] error is returned.
func (c *Config) CheckChunkSize(size uint64) error {

	// check if disabled
	if c.MaxChunkSize() == -1 {
		return nil
	}

	// check value
	if size > uint64(c.MaxChunkSize()) {
		return ErrMaxChunkSizeExceeded
	}
	return nil
}

// CheckExtractionSize checks if size exceeds configured maximum. If the maximum is exceeded,
// a [ErrMaxExtractionSizeExceeded] error is returned.
func (c *Config) CheckExtractionSize(size uint64) error {

	// check if disabled
	if c.MaxExtractionSize() == -1 {
		return nil
	}

	// check value
	if size > uint64(c.MaxExtractionSize()) {
		return ErrMaxExtractionSizeExceeded
	}
	return nil
}

// CreateDestination returns true if the destination directory should be
// created if it does not exist.
func (c *Config) CreateDestination() bool {
	return c.createDestination
}

// CustomCreateDirMode returns the file mode for a created destination directory.
// (respecting umask)
func (c *Config) CustomCreateDirMode() fs.FileMode {
	return c.customCreateDirMode
}

// CustomDecompressFileMode returns the file mode for the decoded file.
// (respecting umask)
func (c *Config) CustomDecompressFileMode() fs.FileMode {
	return c.customDecompressFileMode
}

// Logger returns the logger.
func (c *Config) Logger() logger {
	return c.logger
}

// MaxChunks returns the maximum number of index entries in an archive.
func (c *Config) MaxChunks() int64 {
	return c.maxChunks
}

// MaxChunkSize returns the maximum declared uncompressed size of a single chunk.
func (c *Config) MaxChunkSize() int64 {
	return c.maxChunkSize
}

// MaxExtractionSize returns the maximum size of the decoded output.
func (c *Config) MaxExtractionSize() int64 {
	return c.maxExtractionSize
}

// MaxInputSize returns the maximum size of the input.
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// Overwrite returns true if an existing destination file should be overwritten.
func (c *Config) Overwrite() bool {
	return c.overwrite
}

// TelemetryHook returns the telemetry hook.
func (c *Config) TelemetryHook() TelemetryHook {
	if c.telemetryHook == nil {
		return func(ctx context.Context, d *TelemetryData) {
			// noop
		}
	}
	return c.telemetryHook
}

const (
	defaultCreateDestination        = false         // don't create destination directory
	defaultCustomCreateDirMode      = 0750          // default directory permissions rwxr-x---
	defaultCustomDecompressFileMode = 0640          // default decompression permissions rw-r-----
	defaultMaxChunks                = 1 << 20       // 1M index entries
	defaultMaxChunkSize             = 256 << 20     // 256 Mb
	defaultMaxExtractionSize        = 1 << (10 * 3) // 1 Gb
	defaultMaxInputSize             = 1 << (10 * 3) // 1 Gb
	defaultOverwrite                = false         // don't overwrite existing files
)

var (
	// slog to discard
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	// no operation telemetry hook
	defaultTelemetryHook = func(ctx context.Context, d *TelemetryData) {
		// noop
	}
)

// NewConfig is a generator option that takes opts as adjustments of the
// default configuration in an option pattern style.
func NewConfig(opts ...ConfigOption) *Config {

	// setup default values
	config := &Config{
		createDestination:        defaultCreateDestination,
		customCreateDirMode:      defaultCustomCreateDirMode,
		customDecompressFileMode: defaultCustomDecompressFileMode,
		logger:                   defaultLogger,
		maxChunks:                defaultMaxChunks,
		maxChunkSize:             defaultMaxChunkSize,
		maxExtractionSize:        defaultMaxExtractionSize,
		maxInputSize:             defaultMaxInputSize,
		overwrite:                defaultOverwrite,
		telemetryHook:            defaultTelemetryHook,
	}

	// Loop through each option
	for _, opt := range opts {
		opt(config)
	}

	return config
}

// WithCreateDestination options pattern function to create
// destination directory if it does not exist.
func WithCreateDestination(create bool) ConfigOption {
	return func(c *Config) {
		c.createDestination = create
	}
}

// WithCustomCreateDirMode options pattern function to set the file mode
// for a created destination directory. (respecting umask)
func WithCustomCreateDirMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) {
		c.customCreateDirMode = mode
	}
}

// WithCustomDecompressFileMode options pattern function to set the file mode for the
// decoded file. (respecting umask)
func WithCustomDecompressFileMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) {
		c.customDecompressFileMode = mode
	}
}

// WithLogger options pattern function to set a custom logger.
func WithLogger(logger logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithMaxChunks options pattern function to set the maximum number of
// index entries. (-1 to disable check)
func WithMaxChunks(maxChunks int64) ConfigOption {
	return func(c *Config) {
		c.maxChunks = maxChunks
	}
}

// WithMaxChunkSize options pattern function to set the maximum declared
// uncompressed size of a single chunk. (-1 to disable check)
func WithMaxChunkSize(maxChunkSize int64) ConfigOption {
	return func(c *Config) {
		c.maxChunkSize = maxChunkSize
	}
}

// WithMaxExtractionSize options pattern function to set the maximum size
// of the decoded output. (-1 to disable check)
func WithMaxExtractionSize(maxExtractionSize int64) ConfigOption {
	return func(c *Config) {
		c.maxExtractionSize = maxExtractionSize
	}
}

// WithMaxInputSize options pattern function to set MaxInputSize for the archive input. (-1 to disable check)
func WithMaxInputSize(maxInputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = maxInputSize
	}
}

// WithOverwrite options pattern function specify if an existing destination file should be overwritten.
func WithOverwrite(enable bool) ConfigOption {
	return func(c *Config) {
		c.overwrite = enable
	}
}

// WithTelemetryHook options pattern function to set a [TelemetryHook], which is called after decoding.
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}
