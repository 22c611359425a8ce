// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit

import (
	"context"
	"encoding/json"
	"time"
)

// TelemetryData holds all telemetry data of a decoding.
type TelemetryData struct {
	// ChunkSize is the nominal chunk size declared in the header
	ChunkSize uint64 `json:"chunk_size"`

	// ExtractedChunks is the number of chunks written to the destination
	ExtractedChunks int64 `json:"extracted_chunks"`

	// ExtractedType is the type of the archive
	ExtractedType string `json:"extracted_type"`

	// ExtractionDuration is the time it took to decode the archive
	ExtractionDuration time.Duration `json:"extraction_duration"`

	// ExtractionErrors is the number of errors during decoding
	ExtractionErrors int64 `json:"extraction_errors"`

	// ExtractionSize is the number of decoded bytes written to the destination
	ExtractionSize int64 `json:"extraction_size"`

	// IndexedChunks is the number of entries in the chunk index
	IndexedChunks int64 `json:"indexed_chunks"`

	// InputSize is the number of bytes read from the archive
	InputSize int64 `json:"input_size"`

	// LastExtractionError is the last error during decoding
	LastExtractionError error `json:"last_extraction_error"`
}

// String returns a string representation of [TelemetryData].
func (m TelemetryData) String() string {
	b, _ := json.Marshal(m)
	return string(b)
}

// MarshalJSON implements the [encoding/json.Marshaler] interface.
func (m TelemetryData) MarshalJSON() ([]byte, error) {
	var lastError string
	if m.LastExtractionError != nil {
		lastError = m.LastExtractionError.Error()
	}

	type Alias TelemetryData
	return json.Marshal(&struct {
		LastExtractionError string `json:"last_extraction_error"`
		*Alias
	}{
		LastExtractionError: lastError,
		Alias:               (*Alias)(&m),
	})
}

// TelemetryHook is a function type that performs operations on [TelemetryData]
// after a decoding has finished which can be used to submit the [TelemetryData]
// to a telemetry service, for example.
type TelemetryHook func(context.Context, *TelemetryData)

// captureExtractionDuration ensures that the extraction duration is captured
func captureExtractionDuration(td *TelemetryData, start time.Time) {
	td.ExtractionDuration = time.Since(start)
}

// captureInputSize captures the input size of the decoding
func captureInputSize(td *TelemetryData, ler *limitErrorReader) {
	td.InputSize = ler.ReadBytes()
}
