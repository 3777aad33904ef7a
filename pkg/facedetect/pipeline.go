package facedetect

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Detector runs face detection on a BGR frame, using scratch as its working
// memory. It returns a handle into scratch, or NoResult when nothing was found.
type Detector interface {
	Detect(scratch []byte, frame Frame) ResultHandle
}

// Pipeline owns the scratch buffer and turns frames into published events.
// Frames are processed one at a time: the detector overwrites the scratch
// buffer on every call.
type Pipeline struct {
	detector  Detector
	publisher Publisher
	logger    *slog.Logger
	buffer    *ScratchBuffer

	mu     sync.Mutex
	closed bool

	frames        atomic.Int64
	faceEvents    atomic.Int64
	noFaceEvents  atomic.Int64
	facesOut      atomic.Int64
	discarded     atomic.Int64
	countClamped  atomic.Int64
	publishErrors atomic.Int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBuffer hands the pipeline an already acquired scratch buffer.
// The pipeline takes ownership and releases it on Close.
func WithBuffer(buf *ScratchBuffer) Option {
	return func(p *Pipeline) {
		p.buffer = buf
	}
}

// New builds a pipeline. Unless WithBuffer is given, the scratch buffer is
// acquired here; failure to get one leaves nothing to run with.
func New(detector Detector, publisher Publisher, opts ...Option) (*Pipeline, error) {
	if detector == nil {
		return nil, ErrNoDetector
	}
	if publisher == nil {
		return nil, ErrNoPublisher
	}

	p := &Pipeline{
		detector:  detector,
		publisher: publisher,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.buffer == nil {
		buf, err := AcquireBuffer()
		if err != nil {
			return nil, fmt.Errorf("acquire scratch buffer: %w", err)
		}
		p.buffer = buf
	}
	if p.buffer.Len() != BufferSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidBufferSize, p.buffer.Len())
	}

	p.logger.Debug("face pipeline ready", "buffer_bytes", BufferSize, "max_records", MaxRecords)
	return p, nil
}

// Process runs one frame through detection, decoding, normalization and
// output selection, then publishes the outcome. A valid frame always yields
// exactly one event; a publish failure is returned alongside it.
func (p *Pipeline) Process(frame Frame) (Event, error) {
	if err := frame.Validate(); err != nil {
		return Event{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Event{}, ErrPipelineClosed
	}

	p.frames.Add(1)

	handle := p.detector.Detect(p.buffer.Bytes(), frame)
	records, report := DecodeWithReport(handle)
	if report.Clamped {
		p.countClamped.Add(1)
		p.logger.Warn("detector record count clamped",
			"declared", report.Declared,
			"decoded", report.Decoded,
			"frame_id", frame.Header.FrameID,
		)
	}

	faces := Normalize(records, frame.Width, frame.Height, ConfidenceThreshold)
	p.discarded.Add(int64(len(records) - len(faces)))

	ev := Select(faces, frame.Context())
	switch ev.Kind {
	case Faces:
		p.faceEvents.Add(1)
		p.facesOut.Add(int64(len(ev.Faces)))
	default:
		p.noFaceEvents.Add(1)
	}

	p.logger.Debug("frame processed",
		"frame_id", frame.Header.FrameID,
		"seq", frame.Header.Seq,
		"detections", len(records),
		"faces", len(faces),
		"event", ev.Kind.String(),
	)

	if err := p.publisher.Publish(ev); err != nil {
		p.publishErrors.Add(1)
		return ev, fmt.Errorf("publish %s: %w", ev.Kind, err)
	}
	return ev, nil
}

// Close releases the scratch buffer. Further frames are rejected.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.buffer.Release(); err != nil {
		return fmt.Errorf("release scratch buffer: %w", err)
	}
	p.logger.Debug("face pipeline closed")
	return nil
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Frames:        p.frames.Load(),
		FaceEvents:    p.faceEvents.Load(),
		NoFaceEvents:  p.noFaceEvents.Load(),
		Faces:         p.facesOut.Load(),
		Discarded:     p.discarded.Load(),
		CountClamped:  p.countClamped.Load(),
		PublishErrors: p.publishErrors.Load(),
	}
}

// Stats contains pipeline statistics.
type Stats struct {
	Frames        int64 `json:"frames"`
	FaceEvents    int64 `json:"face_events"`
	NoFaceEvents  int64 `json:"noface_events"`
	Faces         int64 `json:"faces"`
	Discarded     int64 `json:"discarded"`
	CountClamped  int64 `json:"count_clamped"`
	PublishErrors int64 `json:"publish_errors"`
}
