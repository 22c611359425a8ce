// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit

import (
	"fmt"
	"io"
	"math"
)

// Reader decodes the chunks of an archive in index order. Header and index
// are read by [NewReader]; chunk payloads are read and inflated one at a time,
// so memory use is bounded by the largest chunk.
type Reader struct {
	r      io.Reader
	cfg    *Config
	header *Header
	index  Index

	next       int    // index of the next chunk to decode
	compressed []byte // reusable buffer for compressed payloads
	chunk      []byte // reusable buffer for inflated chunks
	pending    []byte // remainder of the current chunk for Read
	inflater   inflater
	err        error // sticky error
}

// NewReader reads and validates the header and the chunk index from src.
// The returned [Reader] is positioned at the first chunk payload.
func NewReader(src io.Reader, cfg *Config) (*Reader, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	h, err := ReadHeader(src)
	if err != nil {
		return nil, err
	}
	cfg.Logger().Debug("read header",
		"chunkSize", h.ChunkSize,
		"packedTotalSize", h.PackedTotalSize,
		"unpackedTotalSize", h.UnpackedTotalSize,
	)

	idx, err := ReadIndex(src, h, cfg.MaxChunks())
	if err != nil {
		return nil, err
	}
	cfg.Logger().Debug("read index", "chunks", len(idx), "sizeIndexed", idx.UncompressedSize())

	// reject oversized chunks before anything is allocated
	for i, e := range idx {
		if err := cfg.CheckChunkSize(e.UncompressedSize); err != nil {
			return nil, fmt.Errorf("chunk %d declares %d bytes: %w", i, e.UncompressedSize, err)
		}
		if cfg.MaxChunkSize() >= 0 && e.CompressedSize > compressBound(uint64(cfg.MaxChunkSize())) {
			return nil, fmt.Errorf("chunk %d declares %d compressed bytes: %w", i, e.CompressedSize, ErrMaxChunkSizeExceeded)
		}
	}

	return &Reader{r: src, cfg: cfg, header: h, index: idx}, nil
}

// Header returns the archive header.
func (r *Reader) Header() *Header {
	return r.header
}

// Index returns the chunk index.
func (r *Reader) Index() Index {
	return r.index
}

// Chunks returns the number of chunks in the archive.
func (r *Reader) Chunks() int {
	return len(r.index)
}

// NextChunk reads and inflates the next chunk. The returned slice is only valid
// until the next call. After the last chunk, NextChunk returns [io.EOF].
func (r *Reader) NextChunk() ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.next >= len(r.index) {
		return nil, io.EOF
	}

	chunk, err := r.readChunk(r.next, r.index[r.next])
	if err != nil {
		r.err = err
		return nil, err
	}
	r.next++
	return chunk, nil
}

// readChunk reads exactly e.CompressedSize bytes and inflates them into a
// buffer of e.UncompressedSize bytes.
func (r *Reader) readChunk(i int, e IndexEntry) ([]byte, error) {
	if e.CompressedSize > math.MaxInt || e.UncompressedSize > math.MaxInt {
		return nil, fmt.Errorf("chunk %d: %w", i, ErrMaxChunkSizeExceeded)
	}

	// read compressed payload
	r.compressed = grow(r.compressed, e.CompressedSize)
	n, err := io.ReadFull(r.r, r.compressed)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &TruncatedChunkError{Index: i, Expected: e.CompressedSize, Actual: uint64(n), Err: io.ErrUnexpectedEOF}
		}
		return nil, fmt.Errorf("cannot read chunk %d: %w", i, err)
	}

	// inflate and verify length
	r.chunk = grow(r.chunk, e.UncompressedSize)
	n, err = r.inflater.inflate(r.chunk, r.compressed)
	if err != nil {
		return nil, &InflateError{Index: i, Err: err}
	}
	if uint64(n) != e.UncompressedSize {
		return nil, &ChunkSizeMismatchError{Index: i, Expected: e.UncompressedSize, Actual: uint64(n)}
	}

	return r.chunk, nil
}

// Read implements [io.Reader] over the concatenated chunks.
func (r *Reader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		chunk, err := r.NextChunk()
		if err != nil {
			return 0, err
		}
		r.pending = chunk
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// Close releases the decompressor. It does not close the source.
func (r *Reader) Close() error {
	return r.inflater.Close()
}

// compressBound returns the largest zlib stream a chunk of n bytes may be
// compressed to, following compressBound() of the zlib reference library.
func compressBound(n uint64) uint64 {
	return n + n>>12 + n>>14 + n>>25 + 13
}

// grow returns buf resized to n bytes, reusing its backing array if possible.
func grow(buf []byte, n uint64) []byte {
	if uint64(cap(buf)) >= n {
		return buf[:n]
	}
	return make([]byte, n)
}
