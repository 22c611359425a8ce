// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	arkit "github.com/hashicorp/go-arkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestDecodeScenario(t *testing.T) {
	var dst bytes.Buffer
	err := arkit.Decode(context.Background(), bytes.NewReader(scenarioArchive(20)), &dst, nil)

	require.NoError(t, err)
	assert.Equal(t, make([]byte, 20), dst.Bytes())
}

func TestDecodeScenarioIndexMismatch(t *testing.T) {
	var dst bytes.Buffer
	err := arkit.Decode(context.Background(), bytes.NewReader(scenarioArchive(25)), &dst, nil)

	require.ErrorIs(t, err, arkit.ErrIndexSizeMismatch)
	var mismatch *arkit.IndexSizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, uint64(25), mismatch.Expected)
	assert.Equal(t, uint64(20), mismatch.Actual)
	assert.Zero(t, dst.Len(), "nothing must be written on index mismatch")
}

func TestDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name      string
		size      int
		chunkSize int
	}{
		{"single chunk", 100, 1024},
		{"exact multiple", 4096, 1024},
		{"uneven tail", 10_000, 3000},
		{"one byte chunks", 64, 1},
		{"empty", 0, 1024},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := testData(tc.size)
			var dst bytes.Buffer

			err := arkit.Decode(context.Background(), bytes.NewReader(packArchive(t, data, tc.chunkSize)), &dst, nil)

			require.NoError(t, err)
			assert.Equal(t, len(data), dst.Len())
			assert.True(t, bytes.Equal(data, dst.Bytes()), "decoded content differs from input")
		})
	}
}

func TestDecodeIsIdempotent(t *testing.T) {
	archive := packArchive(t, testData(20_000), 4096)

	var first, second bytes.Buffer
	require.NoError(t, arkit.Decode(context.Background(), bytes.NewReader(archive), &first, nil))
	require.NoError(t, arkit.Decode(context.Background(), bytes.NewReader(archive), &second, nil))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestDecodeErrors(t *testing.T) {
	data := testData(3000)
	valid := packArchive(t, data, 1000)
	payloadStart := arkit.HeaderSize + 3*arkit.IndexEntrySize

	tampered := bytes.Clone(valid)
	tampered[len(tampered)-1] ^= 0xff // adler32 of the last chunk

	cases := []struct {
		name      string
		archive   []byte
		cfg       *arkit.Config
		expectErr error
		written   int
	}{
		{
			name:      "foreign signature",
			archive:   append([]byte("PK\x03\x04\x00\x00\x00\x00"), valid[8:]...),
			expectErr: arkit.ErrInvalidSignature,
		},
		{
			name:      "empty input",
			archive:   nil,
			expectErr: io.EOF,
		},
		{
			name:      "truncated header",
			archive:   valid[:12],
			expectErr: io.ErrUnexpectedEOF,
		},
		{
			name:      "truncated index",
			archive:   valid[:arkit.HeaderSize+20],
			expectErr: arkit.ErrIndexSizeMismatch,
		},
		{
			name:      "truncated payload",
			archive:   valid[:len(valid)-3],
			expectErr: arkit.ErrTruncatedChunk,
			written:   2000,
		},
		{
			name:      "no payload",
			archive:   valid[:payloadStart],
			expectErr: arkit.ErrTruncatedChunk,
		},
		{
			name:      "tampered payload",
			archive:   tampered,
			expectErr: arkit.ErrInflate,
			written:   2000,
		},
		{
			name:      "input size exceeded",
			archive:   valid,
			cfg:       arkit.NewConfig(arkit.WithMaxInputSize(int64(len(valid) - 1))),
			expectErr: arkit.ErrMaxInputSizeExceeded,
			written:   2000,
		},
		{
			name:      "extraction size exceeded",
			archive:   valid,
			cfg:       arkit.NewConfig(arkit.WithMaxExtractionSize(2999)),
			expectErr: arkit.ErrMaxExtractionSizeExceeded,
		},
		{
			name:      "chunk count exceeded",
			archive:   valid,
			cfg:       arkit.NewConfig(arkit.WithMaxChunks(2)),
			expectErr: arkit.ErrMaxChunksExceeded,
		},
		{
			name:      "chunk size exceeded",
			archive:   valid,
			cfg:       arkit.NewConfig(arkit.WithMaxChunkSize(999)),
			expectErr: arkit.ErrMaxChunkSizeExceeded,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dst bytes.Buffer
			err := arkit.Decode(context.Background(), bytes.NewReader(tc.archive), &dst, tc.cfg)

			require.ErrorIs(t, err, tc.expectErr)
			assert.Equal(t, tc.written, dst.Len())

			// the written prefix consists of complete chunks
			assert.True(t, bytes.Equal(data[:dst.Len()], dst.Bytes()), "written prefix differs from input")
		})
	}
}

func TestDecodeDisabledLimits(t *testing.T) {
	data := testData(3000)
	cfg := arkit.NewConfig(
		arkit.WithMaxChunks(-1),
		arkit.WithMaxChunkSize(-1),
		arkit.WithMaxExtractionSize(-1),
		arkit.WithMaxInputSize(-1),
	)

	var dst bytes.Buffer
	require.NoError(t, arkit.Decode(context.Background(), bytes.NewReader(packArchive(t, data, 100)), &dst, cfg))
	assert.Equal(t, data, dst.Bytes())
}

// countingCancelWriter cancels the context after n writes
type countingCancelWriter struct {
	bytes.Buffer
	cancel context.CancelFunc
	writes int
	after  int
}

func (w *countingCancelWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes == w.after {
		w.cancel()
	}
	return w.Buffer.Write(p)
}

func TestDecodeContextCancel(t *testing.T) {
	archive := packArchive(t, testData(5000), 1000)

	t.Run("canceled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var dst bytes.Buffer
		err := arkit.Decode(ctx, bytes.NewReader(archive), &dst, nil)
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, dst.Len())
	})

	t.Run("canceled between chunks", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dst := &countingCancelWriter{cancel: cancel, after: 2}
		err := arkit.Decode(ctx, bytes.NewReader(archive), dst, nil)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 2000, dst.Len())
	})
}

// failingWriter fails every write
type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestDecodeWriteError(t *testing.T) {
	err := arkit.Decode(context.Background(), bytes.NewReader(scenarioArchive(20)), failingWriter{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestDecodeLogging(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		logger := &capturingLogger{}
		cfg := arkit.NewConfig(arkit.WithLogger(logger))

		var dst bytes.Buffer
		require.NoError(t, arkit.Decode(context.Background(), bytes.NewReader(packArchive(t, testData(300), 100)), &dst, cfg))

		// header, index and three chunks
		assert.Equal(t, 5, logger.count("debug"))
		assert.Zero(t, logger.count("error"))
	})

	t.Run("failure", func(t *testing.T) {
		logger := &capturingLogger{}
		cfg := arkit.NewConfig(arkit.WithLogger(logger))

		var dst bytes.Buffer
		require.Error(t, arkit.Decode(context.Background(), bytes.NewReader(scenarioArchive(25)), &dst, cfg))
		assert.Equal(t, 1, logger.count("error"))
	})
}

func TestDecodeTelemetry(t *testing.T) {
	data := testData(2500)
	archive := packArchive(t, data, 1000)

	t.Run("success", func(t *testing.T) {
		var (
			calls int
			got   arkit.TelemetryData
		)
		cfg := arkit.NewConfig(arkit.WithTelemetryHook(func(ctx context.Context, td *arkit.TelemetryData) {
			calls++
			got = *td
		}))

		var dst bytes.Buffer
		require.NoError(t, arkit.Decode(context.Background(), bytes.NewReader(archive), &dst, cfg))

		assert.Equal(t, 1, calls)
		assert.Equal(t, "ark", got.ExtractedType)
		assert.Equal(t, uint64(1000), got.ChunkSize)
		assert.Equal(t, int64(3), got.IndexedChunks)
		assert.Equal(t, int64(3), got.ExtractedChunks)
		assert.Equal(t, int64(2500), got.ExtractionSize)
		assert.Equal(t, int64(len(archive)), got.InputSize)
		assert.Zero(t, got.ExtractionErrors)
		assert.NoError(t, got.LastExtractionError)
	})

	t.Run("failure", func(t *testing.T) {
		var (
			calls int
			got   arkit.TelemetryData
		)
		cfg := arkit.NewConfig(arkit.WithTelemetryHook(func(ctx context.Context, td *arkit.TelemetryData) {
			calls++
			got = *td
		}))

		var dst bytes.Buffer
		require.Error(t, arkit.Decode(context.Background(), bytes.NewReader(archive[:len(archive)-1]), &dst, cfg))

		assert.Equal(t, 1, calls)
		assert.Equal(t, int64(1), got.ExtractionErrors)
		assert.Equal(t, int64(2), got.ExtractedChunks)
		assert.ErrorIs(t, got.LastExtractionError, arkit.ErrTruncatedChunk)
	})
}

func TestDecodeConcurrent(t *testing.T) {
	archives := make([][]byte, 8)
	inputs := make([][]byte, len(archives))
	for i := range archives {
		inputs[i] = testData(1000 * (i + 1))
		archives[i] = packArchive(t, inputs[i], 512)
	}

	// a shared config and logger must be safe for concurrent decodings
	logger := &capturingLogger{}
	cfg := arkit.NewConfig(arkit.WithLogger(logger))

	outputs := make([]bytes.Buffer, len(archives))
	var g errgroup.Group
	for i := range archives {
		i := i
		g.Go(func() error {
			if err := arkit.Decode(context.Background(), bytes.NewReader(archives[i]), &outputs[i], cfg); err != nil {
				return fmt.Errorf("archive %d: %w", i, err)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i := range archives {
		assert.True(t, bytes.Equal(inputs[i], outputs[i].Bytes()), "archive %d decoded incorrectly", i)
	}
	assert.Zero(t, logger.count("error"))
}
