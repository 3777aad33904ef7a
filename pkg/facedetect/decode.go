package facedetect

// ResultHandle refers to the detector's output inside the scratch buffer.
// The zero value is the absent handle: the detector found nothing.
// A handle is valid only until the next detector invocation and must not be
// written through.
type ResultHandle struct {
	region []byte
}

// NoResult is the absent handle.
var NoResult = ResultHandle{}

// NewResultHandle wraps a result region that begins with the record count.
// A nil or empty region yields the absent handle.
func NewResultHandle(region []byte) ResultHandle {
	if len(region) == 0 {
		return NoResult
	}
	return ResultHandle{region: region}
}

// Present reports whether the detector produced a result region.
func (h ResultHandle) Present() bool {
	return h.region != nil
}

// Count returns the record count as written by the detector, unclamped.
func (h ResultHandle) Count() int {
	if len(h.region) < CountBytes {
		return 0
	}
	return int(int32(byteOrder.Uint32(h.region[:CountBytes])))
}

// RawRecord is one detector record as laid out in the result region.
type RawRecord struct {
	X          int16
	Y          int16
	Width      int16
	Height     int16
	Confidence int16
	Angle      int16
}

// DecodeReport describes a decode pass.
type DecodeReport struct {
	Declared int  // count written by the detector
	Decoded  int  // records actually read
	Clamped  bool // Declared was outside [0, capacity]
}

// Decode reads the records of a result region. An absent handle decodes to an
// empty sequence.
func Decode(h ResultHandle) []RawRecord {
	records, _ := DecodeWithReport(h)
	return records
}

// DecodeWithReport is Decode plus a report of how the declared count was
// treated. The declared count is clamped to MaxRecords and to what the region
// really holds, so a corrupt count never reads past the buffer.
func DecodeWithReport(h ResultHandle) ([]RawRecord, DecodeReport) {
	if !h.Present() || len(h.region) < CountBytes {
		return nil, DecodeReport{}
	}

	declared := h.Count()
	n := declared

	limit := MaxRecords
	if fit := (len(h.region) - CountBytes) / RecordBytes; fit < limit {
		limit = fit
	}
	if n < 0 {
		n = 0
	}
	if n > limit {
		n = limit
	}

	report := DecodeReport{
		Declared: declared,
		Decoded:  n,
		Clamped:  n != declared,
	}
	if n == 0 {
		return nil, report
	}

	records := make([]RawRecord, n)
	for i := range records {
		var f [usedFields]int16
		for j := range f {
			off := fieldOffset(i, j)
			f[j] = int16(byteOrder.Uint16(h.region[off : off+FieldBytes]))
		}
		records[i] = RawRecord{
			X:          f[FieldX],
			Y:          f[FieldY],
			Width:      f[FieldWidth],
			Height:     f[FieldHeight],
			Confidence: f[FieldConfidence],
			Angle:      f[FieldAngle],
		}
	}
	return records, report
}

// Pack writes records into dst in the detector's result layout and returns a
// handle over the written region. Reserved fields are zeroed. Detector
// backends that do not write the layout natively use this to honor the
// contract; an empty record set yields NoResult, as the detector does.
func Pack(dst []byte, records []RawRecord) (ResultHandle, error) {
	if len(records) == 0 {
		return NoResult, nil
	}
	capacity := 0
	if len(dst) >= CountBytes {
		capacity = (len(dst) - CountBytes) / RecordBytes
	}
	if len(records) > capacity || len(records) > MaxRecords {
		return NoResult, ErrTooManyRecords
	}

	size := CountBytes + len(records)*RecordBytes
	region := dst[:size]
	clear(region)

	byteOrder.PutUint32(region[:CountBytes], uint32(int32(len(records))))
	for i, r := range records {
		fields := [usedFields]int16{r.X, r.Y, r.Width, r.Height, r.Confidence, r.Angle}
		for j, v := range fields {
			off := fieldOffset(i, j)
			byteOrder.PutUint16(region[off:off+FieldBytes], uint16(v))
		}
	}
	return ResultHandle{region: region}, nil
}
