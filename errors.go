// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSignature indicates that the archive does not start with [Signature].
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrIndexSizeMismatch indicates that the chunk index does not sum up to the
	// unpacked total size declared in the header.
	ErrIndexSizeMismatch = errors.New("header-index size mismatch")

	// ErrTruncatedChunk indicates that the archive ended inside a chunk payload.
	ErrTruncatedChunk = errors.New("truncated chunk")

	// ErrChunkSizeMismatch indicates that a chunk did not inflate to its declared size.
	ErrChunkSizeMismatch = errors.New("chunk size mismatch")

	// ErrInflate indicates that a chunk payload is not a valid zlib stream.
	ErrInflate = errors.New("cannot inflate chunk")

	// ErrMaxChunksExceeded indicates that the index holds more entries than allowed.
	ErrMaxChunksExceeded = errors.New("maximum chunks exceeded")

	// ErrMaxChunkSizeExceeded indicates that a chunk declares a larger uncompressed size than allowed.
	ErrMaxChunkSizeExceeded = errors.New("maximum chunk size exceeded")

	// ErrMaxInputSizeExceeded indicates that the archive is larger than allowed.
	ErrMaxInputSizeExceeded = errors.New("maximum input size exceeded")

	// ErrMaxExtractionSizeExceeded indicates that the decoded output is larger than allowed.
	ErrMaxExtractionSizeExceeded = errors.New("maximum extraction size exceeded")
)

// InvalidSignatureError is returned if the first 8 bytes of an archive do not
// hold the expected signature.
type InvalidSignatureError struct {
	Expected uint64
	Found    uint64
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature format: expected %d, found %d", e.Expected, e.Found)
}

// Is reports whether target is [ErrInvalidSignature].
func (e *InvalidSignatureError) Is(target error) bool {
	return target == ErrInvalidSignature
}

// IndexSizeMismatchError is returned if the sum of the uncompressed chunk sizes
// in the index differs from the unpacked total size in the header.
// Err is set if the source ended before the index was complete.
type IndexSizeMismatchError struct {
	Expected uint64
	Actual   uint64
	Err      error
}

func (e *IndexSizeMismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("header-index mismatch: expected uncompressed bytes %d, actual %d: %s", e.Expected, e.Actual, e.Err)
	}
	return fmt.Sprintf("header-index mismatch: expected uncompressed bytes %d, actual %d", e.Expected, e.Actual)
}

// Is reports whether target is [ErrIndexSizeMismatch].
func (e *IndexSizeMismatchError) Is(target error) bool {
	return target == ErrIndexSizeMismatch
}

// Unwrap returns the read error that ended the index early, if any.
func (e *IndexSizeMismatchError) Unwrap() error {
	return e.Err
}

// TruncatedChunkError is returned if fewer compressed bytes than declared
// in the index could be read for a chunk.
type TruncatedChunkError struct {
	Index    int
	Expected uint64
	Actual   uint64
	Err      error
}

func (e *TruncatedChunkError) Error() string {
	return fmt.Sprintf("truncated chunk %d: expected %d compressed bytes, read %d", e.Index, e.Expected, e.Actual)
}

// Is reports whether target is [ErrTruncatedChunk].
func (e *TruncatedChunkError) Is(target error) bool {
	return target == ErrTruncatedChunk
}

// Unwrap returns the underlying read error.
func (e *TruncatedChunkError) Unwrap() error {
	return e.Err
}

// ChunkSizeMismatchError is returned if a chunk inflates to a different
// number of bytes than declared in the index.
type ChunkSizeMismatchError struct {
	Index    int
	Expected uint64
	Actual   uint64
}

func (e *ChunkSizeMismatchError) Error() string {
	return fmt.Sprintf("chunk %d size mismatch: expected %d, actual %d", e.Index, e.Expected, e.Actual)
}

// Is reports whether target is [ErrChunkSizeMismatch].
func (e *ChunkSizeMismatchError) Is(target error) bool {
	return target == ErrChunkSizeMismatch
}

// InflateError is returned if the payload of a chunk is rejected by the
// zlib decompressor.
type InflateError struct {
	Index int
	Err   error
}

func (e *InflateError) Error() string {
	return fmt.Sprintf("cannot inflate chunk %d: %s", e.Index, e.Err)
}

// Is reports whether target is [ErrInflate].
func (e *InflateError) Is(target error) bool {
	return target == ErrInflate
}

// Unwrap returns the error reported by the decompressor.
func (e *InflateError) Unwrap() error {
	return e.Err
}
