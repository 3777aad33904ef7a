// Package facedetect decodes the packed result buffer of a CNN face detector,
// normalizes the detections against the frame bounds and decides what a frame
// publishes: a bounding-box collection or a no-face signal.
package facedetect

import "encoding/binary"

// Scratch buffer and result layout shared with the detector.
// The detector writes an int32 record count followed by fixed-stride records
// of int16 fields. Only the first six fields of a record carry meaning.
const (
	// BufferSize is the fixed scratch capacity the detector expects. Do not change.
	BufferSize = 0x20000

	// CountBytes is the width of the leading record count.
	CountBytes = 4

	// RecordFields is the number of int16 fields per record (detector ABI).
	RecordFields = 142

	// FieldBytes is the width of one record field.
	FieldBytes = 2

	// RecordBytes is the stride between consecutive records.
	RecordBytes = RecordFields * FieldBytes

	// MaxRecords is the most records a full scratch buffer can hold.
	MaxRecords = (BufferSize - CountBytes) / RecordBytes
)

// Field positions within a record. Fields past FieldAngle are reserved.
const (
	FieldX = iota
	FieldY
	FieldWidth
	FieldHeight
	FieldConfidence
	FieldAngle

	usedFields
)

// ConfidenceThreshold is the minimum score (0-100) a detection needs to be kept.
const ConfidenceThreshold = 90

// byteOrder is the detector's native order on every supported target.
var byteOrder = binary.LittleEndian

// fieldOffset returns the byte offset of field f of record i, relative to the
// start of the result region.
func fieldOffset(i, f int) int {
	return CountBytes + i*RecordBytes + f*FieldBytes
}
