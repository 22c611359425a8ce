// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Decode reads the archive from src and writes the decoded content to dst.
//
// Header and index are validated before anything is written to dst. The chunks
// are then inflated one at a time and appended to dst in index order. Every
// validation failure aborts the decoding. dst may hold a prefix of fully
// written chunks in that case, cleaning it up is left to the caller.
//
// The context is checked once per chunk.
func Decode(ctx context.Context, src io.Reader, dst io.Writer, cfg *Config) error {
	if cfg == nil {
		cfg = NewConfig()
	}

	// prepare telemetry capturing
	td := &TelemetryData{ExtractedType: fileExtensionArk}
	defer cfg.TelemetryHook()(ctx, td)
	defer captureExtractionDuration(td, time.Now())

	// limit input size
	limitedReader := newLimitErrorReader(src, cfg.MaxInputSize())
	defer captureInputSize(td, limitedReader)

	r, err := openReader(ctx, limitedReader, cfg, td)
	if err != nil {
		return err
	}
	defer r.Close()

	return decodeChunks(ctx, r, dst, cfg, td)
}

// openReader reads header and index and performs all checks that can be done
// before the destination is touched.
func openReader(ctx context.Context, src io.Reader, cfg *Config, td *TelemetryData) (*Reader, error) {
	// check if context is canceled
	if err := ctx.Err(); err != nil {
		return nil, handleError(cfg, td, "context error", err)
	}

	r, err := NewReader(src, cfg)
	if err != nil {
		return nil, handleError(cfg, td, "cannot read archive index", err)
	}
	td.ChunkSize = r.Header().ChunkSize
	td.IndexedChunks = int64(r.Chunks())

	// check output size
	if err := cfg.CheckExtractionSize(r.Header().UnpackedTotalSize); err != nil {
		r.Close()
		return nil, handleError(cfg, td, "cannot decode archive", err)
	}

	return r, nil
}

// decodeChunks writes all chunks of r to dst.
func decodeChunks(ctx context.Context, r *Reader, dst io.Writer, cfg *Config, td *TelemetryData) error {
	for i := 0; ; i++ {

		// check if context is canceled
		if err := ctx.Err(); err != nil {
			return handleError(cfg, td, "context error", err)
		}

		chunk, err := r.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			return handleError(cfg, td, "cannot decode chunk", err)
		}

		n, err := dst.Write(chunk)
		td.ExtractionSize += int64(n)
		if err != nil {
			return handleError(cfg, td, "cannot write chunk", fmt.Errorf("chunk %d: %w", i, err))
		}
		td.ExtractedChunks++
		cfg.Logger().Debug("decoded chunk", "chunk", i, "size", n)
	}

	return nil
}

// handleError logs err, records it in td and returns it wrapped with msg.
func handleError(cfg *Config, td *TelemetryData, msg string, err error) error {

	// increase error counter and set error
	td.ExtractionErrors++
	td.LastExtractionError = fmt.Errorf("%s: %w", msg, err)

	cfg.Logger().Error(msg, "error", err)
	return td.LastExtractionError
}
