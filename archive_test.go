// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"testing"

	arkit "github.com/hashicorp/go-arkit"
	"github.com/klauspost/compress/zlib"
)

// scenarioChunk is a 10 byte zlib stream that inflates to 20 zero bytes.
var scenarioChunk = []byte{0x78, 0x01, 0x63, 0xc0, 0x02, 0x00, 0x00, 0x14, 0x00, 0x01}

// compressZlib compresses data into a single zlib stream
func compressZlib(t *testing.T, data []byte) []byte {
	var buf bytes.Buffer

	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("error writing data to zlib writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("error closing zlib writer: %v", err)
	}

	return buf.Bytes()
}

// buildArchive writes the header, the index entries and the payloads verbatim,
// without any consistency checks.
func buildArchive(h arkit.Header, index arkit.Index, payloads ...[]byte) []byte {
	var buf bytes.Buffer
	for _, v := range []uint64{h.Signature, h.ChunkSize, h.PackedTotalSize, h.UnpackedTotalSize} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	for _, e := range index {
		_ = binary.Write(&buf, binary.LittleEndian, e.CompressedSize)
		_ = binary.Write(&buf, binary.LittleEndian, e.UncompressedSize)
	}
	for _, p := range payloads {
		buf.Write(p)
	}
	return buf.Bytes()
}

// packArchive is a conforming encoder: it splits data into chunks of chunkSize
// bytes and compresses each chunk independently.
func packArchive(t *testing.T, data []byte, chunkSize int) []byte {
	var (
		index    arkit.Index
		payloads [][]byte
		packed   uint64
	)
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		c := compressZlib(t, data[off:end])
		index = append(index, arkit.IndexEntry{CompressedSize: uint64(len(c)), UncompressedSize: uint64(end - off)})
		payloads = append(payloads, c)
		packed += uint64(len(c))
	}
	h := arkit.Header{
		Signature:         arkit.Signature,
		ChunkSize:         uint64(chunkSize),
		PackedTotalSize:   packed,
		UnpackedTotalSize: uint64(len(data)),
	}
	return buildArchive(h, index, payloads...)
}

// scenarioArchive returns the archive of the documented example: one chunk of
// 10 compressed bytes inflating to 20 bytes, with the given unpacked total size.
func scenarioArchive(unpackedTotalSize uint64) []byte {
	h := arkit.Header{Signature: arkit.Signature, ChunkSize: 1024, PackedTotalSize: 10, UnpackedTotalSize: unpackedTotalSize}
	return buildArchive(h, arkit.Index{{CompressedSize: 10, UncompressedSize: 20}}, scenarioChunk)
}

// testData returns n bytes of compressible pseudo random data
func testData(n int) []byte {
	rnd := rand.New(rand.NewSource(int64(n)))
	words := []string{"alpha ", "bravo ", "charlie ", "delta ", "echo "}
	var buf bytes.Buffer
	for buf.Len() < n {
		buf.WriteString(words[rnd.Intn(len(words))])
		if rnd.Intn(7) == 0 {
			buf.WriteByte(byte(rnd.Intn(256)))
		}
	}
	return buf.Bytes()[:n]
}

// newTestFile writes data to target and opens it for reading
func newTestFile(target string, data []byte) *os.File {
	if err := os.WriteFile(target, data, 0640); err != nil {
		panic(fmt.Errorf("error writing archive to file: %w", err))
	}
	f, err := os.Open(target)
	if err != nil {
		panic(fmt.Errorf("error opening file: %w", err))
	}
	return f
}

// logEntry is a captured log line
type logEntry struct {
	Level         string
	Msg           string
	KeysAndValues []interface{}
}

// capturingLogger records all log calls
type capturingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *capturingLogger) log(level, msg string, kv []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{Level: level, Msg: msg, KeysAndValues: kv})
}

func (l *capturingLogger) Debug(msg string, kv ...interface{}) { l.log("debug", msg, kv) }
func (l *capturingLogger) Info(msg string, kv ...interface{})  { l.log("info", msg, kv) }
func (l *capturingLogger) Warn(msg string, kv ...interface{})  { l.log("warn", msg, kv) }
func (l *capturingLogger) Error(msg string, kv ...interface{}) { l.log("error", msg, kv) }

// count returns the number of captured entries with level
func (l *capturingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}
