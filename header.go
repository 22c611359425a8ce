// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Signature is the magic value stored in the first 8 bytes of an archive,
// encoded as a little-endian unsigned 64-bit integer.
const Signature uint64 = 2653586369

// HeaderSize is the fixed binary size of an archive header.
const HeaderSize = 32 // 4 * 8 bytes

// fileExtensionArk is the file extension of packed archives.
const fileExtensionArk = "ark"

// Header represents the fixed header of an archive.
type Header struct {
	// Signature must equal [Signature].
	Signature uint64

	// ChunkSize is the nominal uncompressed size of a chunk. Informational only,
	// the index entries carry the authoritative sizes.
	ChunkSize uint64

	// PackedTotalSize is the declared size of all compressed chunks. Informational only.
	PackedTotalSize uint64

	// UnpackedTotalSize is the size of the fully decoded output.
	UnpackedTotalSize uint64
}

// Validate checks the header for validity.
func (h *Header) Validate() error {
	if h.Signature != Signature {
		return &InvalidSignatureError{Expected: Signature, Found: h.Signature}
	}
	return nil
}

// DecodeFrom reads the header from the given buffer.
// Does not validate - use UnmarshalBinary for validation.
func (h *Header) DecodeFrom(data []byte) {
	h.Signature = binary.LittleEndian.Uint64(data[0:8])
	h.ChunkSize = binary.LittleEndian.Uint64(data[8:16])
	h.PackedTotalSize = binary.LittleEndian.Uint64(data[16:24])
	h.UnpackedTotalSize = binary.LittleEndian.Uint64(data[24:32])
}

// UnmarshalBinary decodes the header from binary format and validates it.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("header data too short: need %d, got %d", HeaderSize, len(data))
	}
	h.DecodeFrom(data)
	return h.Validate()
}

// ReadHeader reads and validates a header from r. The signature is checked
// before the remaining header fields are read, so a foreign input is rejected
// after 8 bytes.
func ReadHeader(r io.Reader) (*Header, error) {
	var buf [HeaderSize]byte

	// read signature
	if _, err := io.ReadFull(r, buf[:8]); err != nil {
		return nil, fmt.Errorf("cannot read signature: %w", err)
	}
	h := &Header{Signature: binary.LittleEndian.Uint64(buf[:8])}
	if err := h.Validate(); err != nil {
		return nil, err
	}

	// read remaining fields
	if _, err := io.ReadFull(r, buf[8:]); err != nil {
		return nil, fmt.Errorf("cannot read header: %w", err)
	}
	h.DecodeFrom(buf[:])

	return h, nil
}
