// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package arkit decodes chunked ARK archives into a single output file.
//
// An archive starts with a fixed header of four little-endian uint64 values
// (signature, nominal chunk size, packed total size, unpacked total size),
// followed by an index of (compressed size, uncompressed size) pairs and the
// chunk payloads, each an independent zlib stream:
//
//	offset 0:  signature           (must be 2653586369)
//	offset 8:  chunkSize
//	offset 16: packedTotalSize
//	offset 24: unpackedTotalSize
//	offset 32: index[0].compressedSize, index[0].uncompressedSize
//	...        until sum(uncompressedSize) == unpackedTotalSize
//	           chunk[0], chunk[1], ...
//
// [Decode] writes the decoded content to an [io.Writer], [Unpack], [UnpackTo]
// and [UnpackFile] write it to a file of a [Target]. Every size declared by the
// archive is verified, a mismatch aborts the decoding with a typed error
// (see [ErrInvalidSignature], [ErrIndexSizeMismatch], [ErrTruncatedChunk] and
// [ErrChunkSizeMismatch]). Partially written output is never removed by the package.
//
// Configuration is done using the [Config], which holds the logger, the telemetry
// hook and the limits that protect against crafted archives.
package arkit
