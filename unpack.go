// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// Unpack decodes the archive from src into the file dst on disk. If dst is an
// existing directory, the decoded file is placed inside of it, named after the
// archive. The configuration cfg is used to adjust the decoding.
func Unpack(ctx context.Context, src io.Reader, dst string, cfg *Config) error {
	return UnpackTo(ctx, NewTargetDisk(), dst, src, cfg)
}

// UnpackFile opens the archive at srcPath and decodes it into dst on disk.
// The archive is closed on every return path. A partially written dst is not
// removed on failure.
func UnpackFile(ctx context.Context, srcPath string, dst string, cfg *Config) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("cannot open archive: %w", err)
	}
	defer f.Close()

	return Unpack(ctx, f, dst, cfg)
}

// UnpackTo decodes the archive from src into the file dst of the target t.
//
// Header and index are validated before the destination file is created, so a
// foreign or inconsistent archive leaves the target untouched. Failures while
// decoding the chunks leave the partially written file in the target.
func UnpackTo(ctx context.Context, t Target, dst string, src io.Reader, cfg *Config) error {
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

	// determine name of the decoded file
	inputName := ""
	if f, ok := src.(*os.File); ok {
		inputName = f.Name()
	}
	path := determineOutputPath(t, dst, inputName)
	cfg.Logger().Debug("determined output path", "path", path)

	// stream chunks into the target
	stream := &chunkStream{ctx: ctx, r: r, td: td}
	n, err := createFile(t, path, stream, cfg)
	td.ExtractionSize = n
	if err != nil {
		return handleError(cfg, td, "cannot create file", err)
	}

	return nil
}

// chunkStream is an [io.Reader] over the decoded chunks of r. It checks
// ctx before each chunk is decoded and counts the consumed chunks.
type chunkStream struct {
	ctx     context.Context
	r       *Reader
	td      *TelemetryData
	pending []byte
	chunk   int
}

func (s *chunkStream) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {

		// check if context is canceled
		if err := s.ctx.Err(); err != nil {
			return 0, fmt.Errorf("context error: %w", err)
		}

		chunk, err := s.r.NextChunk()
		if err != nil {
			return 0, err
		}
		s.pending = chunk
		s.chunk++
		s.r.cfg.Logger().Debug("decoded chunk", "chunk", s.chunk-1, "size", len(chunk))
		if len(chunk) == 0 {
			s.td.ExtractedChunks++
		}
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	if len(s.pending) == 0 {
		s.td.ExtractedChunks++
	}
	return n, nil
}
