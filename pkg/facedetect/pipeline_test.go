package facedetect

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() Frame {
	return Frame{
		Pixels: make([]byte, testWidth*testHeight*Channels),
		Width:  testWidth,
		Height: testHeight,
		Stride: testWidth * Channels,
		Header: Header{Seq: 7, Stamp: time.Unix(1700000000, 0), FrameID: "camera"},
	}
}

func newTestPipeline(t *testing.T, det Detector) (*Pipeline, *RecordingPublisher) {
	t.Helper()
	pub := &RecordingPublisher{}
	p, err := New(det, pub)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, pub
}

func TestSelect(t *testing.T) {
	ctx := testFrame().Context()

	ev := Select(nil, ctx)
	assert.Equal(t, NoFace, ev.Kind)
	assert.Empty(t, ev.Faces)

	faces := []Face{{X: 1, Y: 2, Width: 3, Height: 4, Confidence: 95}}
	ev = Select(faces, ctx)
	assert.Equal(t, Faces, ev.Kind)
	assert.Equal(t, faces, ev.Faces)
	assert.Equal(t, ctx, ev.Context)
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "noface", NoFace.String())
	assert.Equal(t, "faces", Faces.String())
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, &RecordingPublisher{})
	assert.ErrorIs(t, err, ErrNoDetector)

	_, err = New(&MockDetector{}, nil)
	assert.ErrorIs(t, err, ErrNoPublisher)
}

func TestNew_RejectsReleasedBuffer(t *testing.T) {
	buf, err := AcquireBuffer()
	require.NoError(t, err)
	require.NoError(t, buf.Release())

	_, err = New(&MockDetector{}, &RecordingPublisher{}, WithBuffer(buf))
	assert.ErrorIs(t, err, ErrInvalidBufferSize)
}

func TestPipeline_Process(t *testing.T) {
	tests := []struct {
		name      string
		records   []RawRecord
		wantKind  EventKind
		wantFaces []Face
	}{
		{
			name:     "no detections",
			records:  nil,
			wantKind: NoFace,
		},
		{
			name: "all below threshold",
			records: []RawRecord{
				{X: 10, Y: 10, Width: 20, Height: 20, Confidence: 89},
				{X: 50, Y: 50, Width: 20, Height: 20, Confidence: 12},
			},
			wantKind: NoFace,
		},
		{
			name:      "face left of frame",
			records:   []RawRecord{{X: -5, Y: 10, Width: 50, Height: 50, Confidence: 95}},
			wantKind:  Faces,
			wantFaces: []Face{{X: 0, Y: 10, Width: 50, Height: 50, Confidence: 95}},
		},
		{
			name:      "face overflowing right edge",
			records:   []RawRecord{{X: 620, Y: 10, Width: 50, Height: 50, Confidence: 95}},
			wantKind:  Faces,
			wantFaces: []Face{{X: 620, Y: 10, Width: 19, Height: 50, Confidence: 95}},
		},
		{
			name: "mixed keeps order",
			records: []RawRecord{
				{X: 100, Y: 100, Width: 40, Height: 40, Confidence: 97, Angle: 10},
				{X: 200, Y: 100, Width: 40, Height: 40, Confidence: 50},
				{X: 300, Y: 100, Width: 40, Height: 40, Confidence: 90},
			},
			wantKind: Faces,
			wantFaces: []Face{
				{X: 100, Y: 100, Width: 40, Height: 40, Confidence: 97, Angle: 10},
				{X: 300, Y: 100, Width: 40, Height: 40, Confidence: 90},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, pub := newTestPipeline(t, &MockDetector{Records: tt.records})
			frame := testFrame()

			ev, err := p.Process(frame)
			require.NoError(t, err)

			assert.Equal(t, tt.wantKind, ev.Kind)
			assert.Equal(t, tt.wantFaces, ev.Faces)
			if tt.wantKind == Faces {
				assert.Equal(t, frame.Header, ev.Context.Header)
			}

			events := pub.Events()
			require.Len(t, events, 1, "exactly one event per frame")
			assert.Equal(t, ev, events[0])
		})
	}
}

func TestPipeline_ProcessClampsCorruptCount(t *testing.T) {
	det := &MockDetector{
		DetectFunc: func(scratch []byte, _ Frame) ResultHandle {
			byteOrder.PutUint32(scratch, 100000)
			return NewResultHandle(scratch)
		},
	}
	p, pub := newTestPipeline(t, det)

	ev, err := p.Process(testFrame())
	require.NoError(t, err)

	// Zeroed records score 0 and are all discarded.
	assert.Equal(t, NoFace, ev.Kind)
	assert.Len(t, pub.Events(), 1)

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.CountClamped)
	assert.Equal(t, int64(MaxRecords), stats.Discarded)
}

func TestPipeline_ReusesScratchBuffer(t *testing.T) {
	var seen []*byte
	det := &MockDetector{
		DetectFunc: func(scratch []byte, _ Frame) ResultHandle {
			require.Len(t, scratch, BufferSize)
			seen = append(seen, &scratch[0])
			return NoResult
		},
	}
	p, _ := newTestPipeline(t, det)

	for i := 0; i < 3; i++ {
		_, err := p.Process(testFrame())
		require.NoError(t, err)
	}

	require.Len(t, seen, 3)
	assert.Same(t, seen[0], seen[1])
	assert.Same(t, seen[0], seen[2])
}

func TestPipeline_InvalidFrame(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Frame)
	}{
		{"zero width", func(f *Frame) { f.Width = 0 }},
		{"negative height", func(f *Frame) { f.Height = -1 }},
		{"stride too small", func(f *Frame) { f.Stride = f.Width }},
		{"short pixel buffer", func(f *Frame) { f.Pixels = f.Pixels[:100] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &MockDetector{}
			p, pub := newTestPipeline(t, det)

			frame := testFrame()
			tt.mutate(&frame)

			_, err := p.Process(frame)
			assert.ErrorIs(t, err, ErrInvalidFrame)
			assert.Zero(t, det.Calls())
			assert.Empty(t, pub.Events())
		})
	}
}

func TestPipeline_PaddedStride(t *testing.T) {
	frame := testFrame()
	frame.Stride = testWidth*Channels + 64
	frame.Pixels = make([]byte, (testHeight-1)*frame.Stride+testWidth*Channels)

	p, _ := newTestPipeline(t, &MockDetector{})
	_, err := p.Process(frame)
	assert.NoError(t, err)
}

func TestPipeline_PublishError(t *testing.T) {
	pub := &RecordingPublisher{Err: errors.New("broker down")}
	p, err := New(&MockDetector{Records: []RawRecord{{X: 1, Y: 1, Width: 5, Height: 5, Confidence: 99}}}, pub)
	require.NoError(t, err)
	defer p.Close()

	ev, err := p.Process(testFrame())
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, Faces, ev.Kind)
	assert.Equal(t, int64(1), p.Stats().PublishErrors)
}

func TestPipeline_Close(t *testing.T) {
	buf, err := AcquireBuffer()
	require.NoError(t, err)

	p, err := New(&MockDetector{}, &RecordingPublisher{}, WithBuffer(buf))
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "second close is a no-op")
	assert.Nil(t, buf.Bytes(), "buffer released on close")

	_, err = p.Process(testFrame())
	assert.ErrorIs(t, err, ErrPipelineClosed)
}

func TestPipeline_Stats(t *testing.T) {
	det := &MockDetector{}
	p, _ := newTestPipeline(t, det)

	det.Records = []RawRecord{
		{X: 1, Y: 1, Width: 5, Height: 5, Confidence: 99},
		{X: 9, Y: 9, Width: 5, Height: 5, Confidence: 91},
		{X: 9, Y: 9, Width: 5, Height: 5, Confidence: 3},
	}
	_, err := p.Process(testFrame())
	require.NoError(t, err)

	det.Records = nil
	_, err = p.Process(testFrame())
	require.NoError(t, err)

	assert.Equal(t, Stats{
		Frames:       2,
		FaceEvents:   1,
		NoFaceEvents: 1,
		Faces:        2,
		Discarded:    1,
	}, p.Stats())
}

func TestPipeline_SerializesFrames(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		maxSeen  int
	)
	det := &MockDetector{
		DetectFunc: func(scratch []byte, _ Frame) ResultHandle {
			mu.Lock()
			inFlight++
			if inFlight > maxSeen {
				maxSeen = inFlight
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return NoResult
		},
	}
	p, pub := newTestPipeline(t, det)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Process(testFrame())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Len(t, pub.Events(), 8)
}

func TestMultiPublisher(t *testing.T) {
	a := &RecordingPublisher{}
	b := &RecordingPublisher{Err: errors.New("b failed")}
	c := &RecordingPublisher{}

	err := MultiPublisher{a, b, c}.Publish(Event{Kind: NoFace})
	assert.ErrorContains(t, err, "b failed")
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
	assert.Len(t, c.Events(), 1, "later publishers still run")

	assert.NoError(t, MultiPublisher{a, c}.Publish(Event{Kind: NoFace}))
}
