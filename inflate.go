// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// inflater decompresses independent zlib streams, one per chunk. The
// decompressor is reused between chunks, but its state is reset, so no
// window is shared across chunks.
type inflater struct {
	src bytes.Reader
	zr  io.ReadCloser
	one [1]byte
}

// inflate decompresses compressed into dst and returns the number of bytes
// the stream inflates to. If the stream holds more than len(dst) bytes, the
// returned count is len(dst)+1. The zlib checksum is verified in both cases.
func (f *inflater) inflate(dst []byte, compressed []byte) (int, error) {
	f.src.Reset(compressed)

	// start or reset decompression
	if f.zr == nil {
		zr, err := zlib.NewReader(&f.src)
		if err != nil {
			return 0, err
		}
		f.zr = zr
	} else if err := f.zr.(zlib.Resetter).Reset(&f.src, nil); err != nil {
		return 0, err
	}

	// fill dst
	n := 0
	for n < len(dst) {
		m, err := f.zr.Read(dst[n:])
		n += m
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}

	// the stream must end here, reading on verifies the checksum
	for {
		m, err := f.zr.Read(f.one[:])
		if m > 0 {
			return n + 1, nil
		}
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

// Close releases the decompressor.
func (f *inflater) Close() error {
	if f.zr == nil {
		return nil
	}
	return f.zr.Close()
}
