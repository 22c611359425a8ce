// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// IndexEntrySize is the binary size of a single index record.
const IndexEntrySize = 16 // 2 * 8 bytes

// IndexEntry describes one chunk of the payload region.
type IndexEntry struct {
	// CompressedSize is the number of zlib bytes stored for the chunk.
	CompressedSize uint64

	// UncompressedSize is the exact number of bytes the chunk inflates to.
	UncompressedSize uint64
}

// Index is the ordered list of chunks of an archive.
type Index []IndexEntry

// UncompressedSize returns the sum of all uncompressed chunk sizes.
func (idx Index) UncompressedSize() uint64 {
	var n uint64
	for _, e := range idx {
		n += e.UncompressedSize
	}
	return n
}

// CompressedSize returns the sum of all compressed chunk sizes.
func (idx Index) CompressedSize() uint64 {
	var n uint64
	for _, e := range idx {
		n += e.CompressedSize
	}
	return n
}

// MaxUncompressedSize returns the largest uncompressed chunk size, which
// bounds the memory needed to decode the archive.
func (idx Index) MaxUncompressedSize() uint64 {
	var n uint64
	for _, e := range idx {
		if e.UncompressedSize > n {
			n = e.UncompressedSize
		}
	}
	return n
}

// ReadIndex reads index records from r until the sum of their uncompressed
// sizes reaches the unpacked total size declared in h.
//
// An entry that pushes the sum beyond the declared total, or an index that
// ends before the total is reached, is rejected with an [IndexSizeMismatchError].
// The number of records is limited by maxChunks (-1 to disable the check).
func ReadIndex(r io.Reader, h *Header, maxChunks int64) (Index, error) {
	var (
		idx         Index
		sizeIndexed uint64
		buf         [IndexEntrySize]byte
	)

	for sizeIndexed < h.UnpackedTotalSize {

		// limit number of records
		if maxChunks >= 0 && int64(len(idx)) >= maxChunks {
			return nil, fmt.Errorf("%w: more than %d index entries", ErrMaxChunksExceeded, maxChunks)
		}

		// read record
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				// the index ended before the declared total was reached
				return nil, &IndexSizeMismatchError{Expected: h.UnpackedTotalSize, Actual: sizeIndexed, Err: io.ErrUnexpectedEOF}
			}
			return nil, fmt.Errorf("cannot read index entry %d: %w", len(idx), err)
		}
		e := IndexEntry{
			CompressedSize:   binary.LittleEndian.Uint64(buf[0:8]),
			UncompressedSize: binary.LittleEndian.Uint64(buf[8:16]),
		}

		// reject overshoot, including uint64 overflow of the running sum
		if e.UncompressedSize > h.UnpackedTotalSize-sizeIndexed {
			actual := sizeIndexed + e.UncompressedSize
			if actual < sizeIndexed {
				actual = math.MaxUint64
			}
			return nil, &IndexSizeMismatchError{Expected: h.UnpackedTotalSize, Actual: actual}
		}

		idx = append(idx, e)
		sizeIndexed += e.UncompressedSize
	}

	if sizeIndexed != h.UnpackedTotalSize {
		return nil, &IndexSizeMismatchError{Expected: h.UnpackedTotalSize, Actual: sizeIndexed}
	}

	return idx, nil
}
