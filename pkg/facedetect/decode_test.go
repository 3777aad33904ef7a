package facedetect

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	assert.Equal(t, 284, RecordBytes)
	assert.Equal(t, 461, MaxRecords)
	assert.LessOrEqual(t, CountBytes+MaxRecords*RecordBytes, BufferSize)
}

func TestDecode_Absent(t *testing.T) {
	assert.Empty(t, Decode(NoResult))
	assert.Empty(t, Decode(NewResultHandle(nil)))
	assert.False(t, NoResult.Present())
}

func TestDecode_Records(t *testing.T) {
	scratch := make([]byte, BufferSize)
	want := []RawRecord{
		{X: 10, Y: 20, Width: 30, Height: 40, Confidence: 99, Angle: 0},
		{X: -5, Y: 7, Width: 100, Height: 120, Confidence: 42, Angle: -30},
		{X: 639, Y: 479, Width: 1, Height: 1, Confidence: 90, Angle: 90},
	}

	h, err := Pack(scratch, want)
	require.NoError(t, err)
	require.True(t, h.Present())

	got, report := DecodeWithReport(h)
	assert.Equal(t, want, got)
	assert.Equal(t, DecodeReport{Declared: 3, Decoded: 3}, report)
}

func TestDecode_SkipsReservedFields(t *testing.T) {
	scratch := make([]byte, BufferSize)
	h, err := Pack(scratch, []RawRecord{
		{X: 1, Y: 2, Width: 3, Height: 4, Confidence: 95, Angle: 6},
		{X: 11, Y: 12, Width: 13, Height: 14, Confidence: 96, Angle: 16},
	})
	require.NoError(t, err)

	// Landmarks and other reserved fields of the first record must not leak
	// into the second.
	for f := usedFields; f < RecordFields; f++ {
		off := fieldOffset(0, f)
		byteOrder.PutUint16(scratch[off:], 0x7fff)
	}

	got := Decode(h)
	require.Len(t, got, 2)
	assert.Equal(t, RawRecord{X: 11, Y: 12, Width: 13, Height: 14, Confidence: 96, Angle: 16}, got[1])
}

func TestDecode_DoesNotMutate(t *testing.T) {
	scratch := make([]byte, BufferSize)
	h, err := Pack(scratch, []RawRecord{{X: 1, Y: 2, Width: 3, Height: 4, Confidence: 95}})
	require.NoError(t, err)

	before := bytes.Clone(scratch)
	Decode(h)
	assert.Equal(t, before, scratch)
}

func TestDecode_ClampsCount(t *testing.T) {
	tests := []struct {
		name     string
		region   int
		declared int32
		decoded  int
		clamped  bool
	}{
		{"huge count against full buffer", BufferSize, 100000, MaxRecords, true},
		{"count just over capacity", BufferSize, MaxRecords + 1, MaxRecords, true},
		{"count at capacity", BufferSize, MaxRecords, MaxRecords, false},
		{"negative count", BufferSize, -7, 0, true},
		{"short region", CountBytes + 2*RecordBytes + 10, 5, 2, true},
		{"zero count", BufferSize, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region := make([]byte, tt.region)
			byteOrder.PutUint32(region, uint32(tt.declared))

			got, report := DecodeWithReport(NewResultHandle(region))
			assert.Len(t, got, tt.decoded)
			assert.Equal(t, int(tt.declared), report.Declared)
			assert.Equal(t, tt.decoded, report.Decoded)
			assert.Equal(t, tt.clamped, report.Clamped)
		})
	}
}

func TestDecode_TruncatedCount(t *testing.T) {
	assert.Empty(t, Decode(NewResultHandle([]byte{1, 0})))
}

func TestPack(t *testing.T) {
	t.Run("empty yields absent handle", func(t *testing.T) {
		h, err := Pack(make([]byte, BufferSize), nil)
		require.NoError(t, err)
		assert.False(t, h.Present())
	})

	t.Run("too many records", func(t *testing.T) {
		_, err := Pack(make([]byte, BufferSize), make([]RawRecord, MaxRecords+1))
		assert.ErrorIs(t, err, ErrTooManyRecords)
	})

	t.Run("destination too small", func(t *testing.T) {
		_, err := Pack(make([]byte, RecordBytes), make([]RawRecord, 1))
		assert.ErrorIs(t, err, ErrTooManyRecords)
	})

	t.Run("count header", func(t *testing.T) {
		h, err := Pack(make([]byte, BufferSize), make([]RawRecord, 4))
		require.NoError(t, err)
		assert.Equal(t, 4, h.Count())
	})
}
